package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <service>",
	Short: "Start a service the daemon's loaded stack defines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		result, err := c.StartService(args[0], nil)
		if err != nil {
			return fmt.Errorf("start %s: %w", args[0], err)
		}
		fmt.Printf("started %s\n", args[0])
		for k, v := range result.NetworkInfo {
			fmt.Printf("  %s: %s\n", k, v)
		}
		return nil
	},
}
