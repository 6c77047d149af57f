package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health [service]",
	Short: "Show the last recorded health check result for one or every service",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		c, err := dialDaemon(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		results, err := c.RunHealthChecks(name)
		if err != nil {
			return fmt.Errorf("health: %w", err)
		}

		unhealthy := 0
		for svc, r := range results {
			fmt.Printf("%-24s healthy=%v %s\n", svc, r.Healthy, r.Message)
			if !r.Healthy {
				unhealthy++
			}
		}
		if unhealthy > 0 {
			return partialError(fmt.Errorf("%d service(s) unhealthy", unhealthy))
		}
		return nil
	},
}
