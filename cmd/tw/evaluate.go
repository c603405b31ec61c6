package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/tripwire/internal/ui"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:     "eval <gate-id>",
	Short:   "Evaluate a gate against its oracle feed",
	GroupID: "ops",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eval, err := gatesClient.EvaluateGate(context.Background(), args[0], actor)
		if err != nil {
			return fmt.Errorf("evaluating gate: %w", err)
		}

		if jsonOutput {
			printJSON(eval)
			return nil
		}

		switch {
		case eval.Transitioned:
			fmt.Printf("%s: observed %d, %s\n", eval.GateID, eval.Observed, ui.RenderArmed("condition met, gate armed"))
		case eval.Armed:
			fmt.Printf("%s: observed %d, gate already armed\n", eval.GateID, eval.Observed)
		default:
			fmt.Printf("%s: observed %d, %s\n", eval.GateID, eval.Observed, ui.RenderMuted("condition not met"))
		}
		return nil
	},
}
