package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JoshUrdnb/Billed/auth"
	"github.com/JoshUrdnb/Billed/bill"
	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/migrations"
	"github.com/JoshUrdnb/Billed/server"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the employee screens and the bills API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := migrations.Up(ctx, db); err != nil {
			return err
		}
	}

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.Events.BufferSize)
	worker.Start()
	defer worker.Shutdown()

	sessionRepo := session.NewRepository(db, cfg.Auth.SessionTTL)
	if n, err := sessionRepo.DeleteExpired(ctx); err != nil {
		slog.Warn("failed to purge expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("purged expired sessions", "count", n)
	}

	srv := server.New(server.Deps{
		Bills:           bill.NewRepository(db, cfg.BillsAPI.ReceiptURL),
		Users:           user.NewRepository(db),
		Sessions:        sessionRepo,
		Tokens:          auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL),
		Events:          worker,
		BillsAPIURL:     cfg.BillsAPI.URL,
		BillsAPITimeout: cfg.BillsAPI.Timeout,
		SecureCookies:   cfg.Server.SecureCookies,
		Metrics:         cfg.Metrics.Enabled,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
