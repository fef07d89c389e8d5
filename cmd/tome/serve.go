package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pvolkov/tome/internal/config"
	"github.com/pvolkov/tome/internal/home"
	"github.com/pvolkov/tome/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Tome server",
	Long: `Start the Tome HTTP server.

The server opens the SQLite database under the home directory and watches
the config file for changes; LLM provider settings are hot-reloaded.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes database status)

Examples:
  tome serve                    # Start on default port 8080
  tome serve --port 3000        # Start on custom port
  tome serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Load configuration with hot reload
		path := cfgFile
		if path == "" && h.ConfigExists() {
			path = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(path)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		host, port := listenAddress(serveHost, servePort,
			cmd.Flags().Changed("host"), cmd.Flags().Changed("port"),
			cfgMgr.Get().Server)

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// listenAddress resolves the bind address. An explicit flag wins; otherwise
// the config file's server section applies, then the flag defaults.
func listenAddress(flagHost, flagPort string, hostSet, portSet bool, srv config.ServerCfg) (host, port string) {
	host = flagHost
	if !hostSet && srv.Host != "" {
		host = srv.Host
	}
	port = flagPort
	if !portSet && srv.Port != 0 {
		port = strconv.Itoa(srv.Port)
	}
	return host, port
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
