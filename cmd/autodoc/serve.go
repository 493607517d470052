package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/autodoc/internal/logging"
	"github.com/jward/autodoc/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the module API over HTTP",
	Long:  "Runs the HTTP API. Modules are uploaded as archives and live in memory until deleted or the server stops.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Listen
	if flagListen != "" {
		addr = flagListen
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(newSession(),
		server.WithLogger(logging.Default()),
		server.WithMaxBodyBytes(cfg.Limits.MaxArchiveBytes),
	)
	if err := srv.Run(ctx, addr); err != nil {
		return outputError(cmd, "serve", err)
	}
	return nil
}
