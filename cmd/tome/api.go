package main

import (
	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Tome server via HTTP.

These commands require a running server (tome serve).
Use --server to specify a custom server URL.

Examples:
  tome api health                   # Check server health
  tome api cases list               # List all cases
  tome api volumes extract <id>     # Segment a volume into documents`,
}

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Case management commands",
}

var volumesCmd = &cobra.Command{
	Use:   "volumes",
	Short: "Volume management and extraction commands",
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Extraction run history commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

// addEndpointCommand renames an endpoint's command for use inside a group.
func addEndpointCommand(group *cobra.Command, ep interface {
	Command(func() string) *cobra.Command
}, use string) {
	cmd := ep.Command(getServerURL)
	if cmd == nil {
		return
	}
	cmd.Use = use
	group.AddCommand(cmd)
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Cases as subcommand group
	addEndpointCommand(casesCmd, &endpoints.CreateCaseEndpoint{}, "create <case-number>")
	addEndpointCommand(casesCmd, &endpoints.ListCasesEndpoint{}, "list")
	addEndpointCommand(casesCmd, &endpoints.GetCaseEndpoint{}, "get <id>")
	addEndpointCommand(casesCmd, &endpoints.DeleteCaseEndpoint{}, "delete <id>")

	// Volumes as subcommand group
	addEndpointCommand(volumesCmd, &endpoints.UploadVolumeEndpoint{}, "upload <case-id> <pdf-path>")
	addEndpointCommand(volumesCmd, &endpoints.ListVolumesEndpoint{}, "list <case-id>")
	addEndpointCommand(volumesCmd, &endpoints.GetVolumeEndpoint{}, "get <id>")
	addEndpointCommand(volumesCmd, &endpoints.DeleteVolumeEndpoint{}, "delete <id>")
	addEndpointCommand(volumesCmd, &endpoints.ExtractEndpoint{}, "extract <id>")
	addEndpointCommand(volumesCmd, &endpoints.ListDocumentsEndpoint{}, "documents <id>")

	// Runs as subcommand group
	addEndpointCommand(runsCmd, &endpoints.ListRunsEndpoint{}, "list <volume-id>")
	addEndpointCommand(runsCmd, &endpoints.CurrentRunEndpoint{}, "current <volume-id>")
	addEndpointCommand(runsCmd, &endpoints.RunByVersionEndpoint{}, "get <volume-id> <version>")

	apiCmd.AddCommand(casesCmd)
	apiCmd.AddCommand(volumesCmd)
	apiCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(apiCmd)
}
