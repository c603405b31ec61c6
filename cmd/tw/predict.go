package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:     "predict <gate-id> <value>",
	Short:   "Set a gate's predicted value (owner only)",
	GroupID: "ops",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		value, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}

		g, err := gatesClient.SetPredictedValue(context.Background(), id, actor, value)
		if err != nil {
			return fmt.Errorf("setting predicted value: %w", err)
		}

		if jsonOutput {
			printJSON(g)
		} else {
			fmt.Printf("%s: predicted value set to %d\n", g.ID, g.PredictedValue)
		}
		return nil
	},
}
