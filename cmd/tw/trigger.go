package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/tripwire/internal/ui"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:     "trigger <gate-id>",
	Short:   "Trigger an armed gate, consuming its condition flag",
	GroupID: "ops",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		if err := gatesClient.TriggerGate(context.Background(), id, actor); err != nil {
			return fmt.Errorf("triggering gate: %w", err)
		}

		if jsonOutput {
			printJSON(map[string]string{"gate_id": id, "status": "triggered"})
		} else {
			fmt.Printf("%s: %s\n", id, ui.RenderOK("triggered"))
		}
		return nil
	},
}
