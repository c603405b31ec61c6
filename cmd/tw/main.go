package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/alfredjeanlab/tripwire/internal/client"
	"github.com/alfredjeanlab/tripwire/internal/ui"
	"github.com/spf13/cobra"
)

var (
	httpURL    string
	jsonOutput bool
	actor      string

	gatesClient client.GatesClient
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func defaultHTTPURL() string {
	if s := os.Getenv("TRIPWIRE_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func clientToken() string {
	if t := os.Getenv("TRIPWIRE_TOKEN"); t != "" {
		return t
	}
	return activeRemoteToken()
}

var rootCmd = &cobra.Command{
	Use:   "tw <command>",
	Short: "CLI client for the tripwire condition-gate service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		gatesClient = client.NewHTTPClient(httpURL, clientToken())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if gatesClient != nil {
			gatesClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "caller identity for gate operations")

	rootCmd.AddGroup(
		&cobra.Group{ID: "gates", Title: "Gates:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Gates
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(eventsCmd)

	// Operations
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
