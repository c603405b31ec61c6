package main

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/tripwire/internal/client"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List condition gates",
	GroupID: "gates",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		feed, _ := cmd.Flags().GetString("feed")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		req := &client.ListGatesRequest{
			Owner:  owner,
			Feed:   feed,
			Limit:  limit,
			Offset: offset,
		}
		if cmd.Flags().Changed("armed") {
			armed, _ := cmd.Flags().GetBool("armed")
			req.Armed = &armed
		}

		resp, err := gatesClient.ListGates(context.Background(), req)
		if err != nil {
			return fmt.Errorf("listing gates: %w", err)
		}

		if jsonOutput {
			printJSON(resp)
		} else {
			printGateListTable(resp.Gates, resp.Total)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().String("owner", "", "filter by owner")
	listCmd.Flags().String("feed", "", "filter by oracle feed")
	listCmd.Flags().Bool("armed", false, "filter by armed state")
	listCmd.Flags().Int("limit", 0, "maximum number of gates to return")
	listCmd.Flags().Int("offset", 0, "number of gates to skip")
}
