package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <service>",
	Short: "Stop a running service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		c, err := dialDaemon(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.StopService(args[0], force); err != nil {
			return fmt.Errorf("stop %s: %w", args[0], err)
		}
		fmt.Printf("stopped %s\n", args[0])
		return nil
	},
}

func init() {
	stopCmd.Flags().Bool("force", false, "Kill rather than gracefully terminate")
}
