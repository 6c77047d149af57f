package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every service in the daemon's loaded stack and its state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dialDaemon(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		views, err := c.ListServicesDetailed()
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })

		failed := 0
		for _, v := range views {
			fmt.Printf("%-24s %-12s healthy=%v\n", v.Name, v.State, v.Healthy)
			if v.State == "failed" {
				failed++
			}
		}
		if failed > 0 {
			return partialError(fmt.Errorf("%d service(s) in failed state", failed))
		}
		return nil
	},
}
