package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/harness/pkg/daemon"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// exitCodeError lets a subcommand's RunE pick a specific exit code per
// spec §6: 0 success, 1 generic failure, 2 invalid configuration, 3 daemon
// not reachable, 4 partial failure.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func configError(err error) error    { return &exitCodeError{code: 2, err: err} }
func transportError(err error) error { return &exitCodeError{code: 3, err: err} }
func partialError(err error) error   { return &exitCodeError{code: 4, err: err} }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code := 1
		if ce, ok := err.(*exitCodeError); ok {
			code = ce.code
		}
		os.Exit(code)
	}
}

var rootCmd = &cobra.Command{
	Use:     "harness",
	Short:   "harness is the control-plane client for harnessd",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"harness version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	rootCmd.PersistentFlags().String("daemon", "ws://127.0.0.1:7777/ws", "Daemon control socket address")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(healthCmd)
}

// dialDaemon connects to the daemon socket given by the --daemon flag,
// mapping a connect failure onto exit code 3.
func dialDaemon(cmd *cobra.Command) (*daemon.Client, error) {
	addr, _ := cmd.Flags().GetString("daemon")
	c, err := daemon.Dial(addr, nil)
	if err != nil {
		return nil, transportError(fmt.Errorf("connect to daemon at %s: %w", addr, err))
	}
	return c, nil
}
