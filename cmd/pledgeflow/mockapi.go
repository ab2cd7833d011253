package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pledgeflow"
	"pkt.systems/pledgeflow/internal/appconfig"
	"pkt.systems/pslog"
)

func newMockAPICmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Serve the in-memory API for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Mock.Addr = addr
			}
			app, err := pledgeflow.New(cfg, pledgeflow.AppDeps{Logger: logger}, pledgeflow.WithMockAPI())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := app.Stop(stopCtx); err != nil {
					logger.Warn("mock api stop failed", "err", err)
				}
			}()
			logger.Info("mock api listening", "addr", cfg.Mock.Addr, "seed_email", cfg.Mock.SeedEmail)
			if err := app.Start(ctx); err != nil {
				return err
			}
			return app.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides mock.addr)")
	return cmd
}
