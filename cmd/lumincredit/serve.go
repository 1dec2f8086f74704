package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"LuminCredit/internal/api"
	"LuminCredit/internal/scheduler"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, scheduled sweeps and the chat bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			n, tg := a.notifiers()
			sched := scheduler.NewScheduler(ctx, a.dashboard, a.store, n, a.log)
			if err := sched.RegisterAll(a.cfg.Schedule.SweepCron, a.cfg.Schedule.DigestCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tg != nil {
				go tg.StartPolling(ctx, sched.HandleCommand)
				a.log.Info("telegram polling started")
			}

			if a.cfg.Server.JWTSecret == "" {
				a.log.Warn("server.jwt_secret is empty, API routes are unauthenticated")
			}
			h := api.NewHandler(a.store, a.dashboard, a.payments, a.recorder,
				api.NewTokenIssuer(a.cfg.Server.JWTSecret, a.cfg.Server.TokenTTL), a.log)
			srv := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      h.Router(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: a.cfg.Scoring.ResolveTimeout + 15*time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("addr", srv.Addr).Info("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info("shutdown signal received, stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
