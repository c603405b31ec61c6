package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alfredjeanlab/tripwire/internal/model"
	"github.com/alfredjeanlab/tripwire/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func stateLabel(armed bool) string {
	if armed {
		return ui.RenderArmed("armed")
	}
	return ui.RenderMuted("idle")
}

func printGateTable(g *model.Gate) {
	fmt.Printf("ID:          %s\n", g.ID)
	if g.Name != "" {
		fmt.Printf("Name:        %s\n", g.Name)
	}
	fmt.Printf("Owner:       %s\n", g.Owner)
	fmt.Printf("Feed:        %s\n", g.Feed)
	fmt.Printf("State:       %s\n", stateLabel(g.Armed))
	fmt.Printf("Threshold:   %d\n", g.TriggerThreshold)
	fmt.Printf("Predicted:   %d\n", g.PredictedValue)
	if g.LastObserved != nil {
		fmt.Printf("Observed:    %d\n", *g.LastObserved)
	}
	if g.ArmedAt != nil {
		fmt.Printf("Armed At:    %s\n", g.ArmedAt.Format("2006-01-02 15:04:05"))
	}
	if g.CreatedBy != "" {
		fmt.Printf("Created By:  %s\n", g.CreatedBy)
	}
	if !g.CreatedAt.IsZero() {
		fmt.Printf("Created At:  %s\n", g.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !g.UpdatedAt.IsZero() {
		fmt.Printf("Updated At:  %s\n", g.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printGateListTable(gates []*model.Gate, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tFEED\tTHRESHOLD\tPREDICTED\tOWNER\tNAME")
	for _, g := range gates {
		name := g.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			g.ID,
			stateLabel(g.Armed),
			g.Feed,
			g.TriggerThreshold,
			g.PredictedValue,
			g.Owner,
			name,
		)
	}
	w.Flush()
	fmt.Printf("\n%d gates (%d total)\n", len(gates), total)
}

func printEventListTable(events []*model.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTOPIC\tACTOR\tPAYLOAD")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Topic,
			e.Actor,
			string(e.Payload),
		)
	}
	w.Flush()
}
