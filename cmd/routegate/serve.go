package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zen-systems/routegate/pkg/server"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve routing decisions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			defer rt.Logger.Sync() //nolint:errcheck

			if listen == "" {
				listen = cfg.Server.Listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Deps{
				Router:   rt.Router,
				Events:   rt.Sink,
				Budgets:  rt.Ledger,
				Health:   rt.Breaker,
				Outcomes: rt.Recorder,
			}, rt.Logger.Named("server"))
			return srv.Run(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (defaults to server.listen)")
	return cmd
}
