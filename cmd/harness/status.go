package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <service>",
	Short: "Show one service's current state and last health result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		status, err := c.GetServiceStatus(args[0])
		if err != nil {
			return fmt.Errorf("status %s: %w", args[0], err)
		}
		fmt.Printf("%s: %s\n", status.Name, status.State)
		if status.UpdatedAt != "" {
			fmt.Printf("  updated: %s\n", status.UpdatedAt)
		}
		if status.Message != "" {
			fmt.Printf("  healthy=%v: %s\n", status.Healthy, status.Message)
		}
		return nil
	},
}
