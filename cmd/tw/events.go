package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:     "events <gate-id>",
	Short:   "Show a gate's event history",
	GroupID: "gates",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := gatesClient.GetEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}

		if jsonOutput {
			printJSON(events)
			return nil
		}
		if len(events) == 0 {
			fmt.Println("no events")
			return nil
		}
		printEventListTable(events)
		return nil
	},
}
