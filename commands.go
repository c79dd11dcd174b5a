package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JoshUrdnb/Billed/eventlogger"
	"github.com/JoshUrdnb/Billed/migrations"
	"github.com/JoshUrdnb/Billed/session"
	"github.com/JoshUrdnb/Billed/user"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	for name, run := range map[string]func(cmd *cobra.Command) error{
		"up": func(cmd *cobra.Command) error {
			return withDB(cmd, migrations.Up)
		},
		"down": func(cmd *cobra.Command) error {
			return withDB(cmd, migrations.Down)
		},
		"status": func(cmd *cobra.Command) error {
			return withDB(cmd, migrations.Status)
		},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: "goose " + name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return run(cmd)
			},
		})
	}
	return cmd
}

func withDB(cmd *cobra.Command, fn func(context.Context, *sql.DB) error) error {
	ctx := cmd.Context()
	_, db, err := setup(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var email, password, typ string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userType := user.Type(typ)
			if !userType.Valid() {
				return fmt.Errorf("unknown account type %q", typ)
			}

			ctx := cmd.Context()
			_, db, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := user.NewRepository(db).Register(ctx, email, password, userType)
			if err != nil {
				return err
			}
			slog.Info("user registered", "user_id", u.ID, "email", u.Email, "type", u.Type)

			evt := eventlogger.NewEvent(
				eventlogger.WithType(eventlogger.UserRegistered),
				eventlogger.WithData(map[string]string{
					"user_id": u.ID.String(),
					"email":   u.Email,
					"type":    string(u.Type),
				}),
			)
			if err := eventlogger.NewSqlEventLogger(db).Save(ctx, evt); err != nil {
				slog.Warn("failed to record registration", "error", err)
			}
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "account email")
	add.Flags().StringVar(&password, "password", "", "account password")
	add.Flags().StringVar(&typ, "type", string(user.TypeEmployee), "Employee or Admin")
	add.MarkFlagRequired("email")
	add.MarkFlagRequired("password")

	var revokeEmail string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Sign an account out of every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, db, err := setup(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := user.NewRepository(db).GetByEmail(ctx, revokeEmail)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no account for %q", revokeEmail)
			}
			if err := session.NewRepository(db, cfg.Auth.SessionTTL).DeleteByUserID(ctx, u.ID); err != nil {
				return fmt.Errorf("revoking sessions: %w", err)
			}
			slog.Info("sessions revoked", "user_id", u.ID, "email", u.Email)
			return nil
		},
	}
	revoke.Flags().StringVar(&revokeEmail, "email", "", "account email")
	revoke.MarkFlagRequired("email")

	cmd.AddCommand(add, revoke)
	return cmd
}

func eventsCmd() *cobra.Command {
	var eventType string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print recorded events of one type as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *sql.DB) error {
				events, err := eventlogger.NewSqlEventLogger(db).GetByType(ctx, eventType)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, e := range events {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&eventType, "type", eventlogger.BillCreated, "event type, e.g. user.logged_in")
	return cmd
}
