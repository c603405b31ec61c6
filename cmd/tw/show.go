package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <gate-id>",
	Short:   "Show a gate's full state",
	GroupID: "gates",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := gatesClient.GetGate(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting gate: %w", err)
		}

		if jsonOutput {
			printJSON(g)
		} else {
			printGateTable(g)
		}
		return nil
	},
}
