package main

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/config"
	"github.com/bookvision/bookvision/internal/home"
	"github.com/bookvision/bookvision/internal/server"
)

var (
	serveHost string
	servePort string
	logLevel  string
)

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Bookvision server",
	Long: `Start the Bookvision HTTP server.

On first run this creates ~/.bookvision with a default config.yaml;
edit it to add provider API keys (or export them as environment
variables referenced from the config).

The server provides:
  - /health       - Basic server health check
  - /api/...      - Library, analysis, generation, and Q&A endpoints

Examples:
  bookvision serve                    # Start on default port 8870
  bookvision serve --port 3000        # Start on custom port
  bookvision serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(logLevel),
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Write a starter config on first run
		if !h.ConfigExists() && cfgFile == "" {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return err
			}
			logger.Info("wrote default config", "path", h.ConfigPath())
		}

		// Load config with hot-reload support
		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		serverCfg := cfgMgr.Get().Server
		host := serveHost
		if host == "" {
			host = serverCfg.Host
		}
		port := servePort
		if port == "" {
			port = strconv.Itoa(serverCfg.Port)
		}

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

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
}
