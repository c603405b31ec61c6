package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/tripwire/internal/client"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <feed>",
	Short:   "Create a new condition gate on an oracle feed",
	GroupID: "gates",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed := args[0]

		name, _ := cmd.Flags().GetString("name")
		owner, _ := cmd.Flags().GetString("owner")
		threshold, _ := cmd.Flags().GetUint64("threshold")
		predicted, _ := cmd.Flags().GetUint64("predicted")

		if owner == "" {
			owner = actor
		}

		g, err := gatesClient.CreateGate(context.Background(), &client.CreateGateRequest{
			Name:             name,
			Owner:            owner,
			Feed:             feed,
			TriggerThreshold: threshold,
			CreatedBy:        actor,
		})
		if err != nil {
			return fmt.Errorf("creating gate: %w", err)
		}

		// Seed the prediction in the same invocation when requested.
		if cmd.Flags().Changed("predicted") {
			g, err = gatesClient.SetPredictedValue(context.Background(), g.ID, owner, predicted)
			if err != nil {
				return fmt.Errorf("setting predicted value: %w", err)
			}
		}

		if jsonOutput {
			printJSON(g)
		} else {
			printGateTable(g)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().String("name", "", "human-readable gate name")
	createCmd.Flags().String("owner", "", "gate owner (defaults to --actor)")
	createCmd.Flags().Uint64("threshold", 0, "trigger threshold (required)")
	createCmd.Flags().Uint64("predicted", 0, "initial predicted value")
	_ = createCmd.MarkFlagRequired("threshold")
}
