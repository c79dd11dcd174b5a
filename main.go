package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshUrdnb/Billed/config"
	"github.com/JoshUrdnb/Billed/logging"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "billed",
		Short:         "Expense reports for employees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), userCmd(), eventsCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		printErrorAndExit("billed", err)
	}
}

// setup loads the configuration, installs the logger and opens the database.
func setup(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(level)

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}
	return cfg, db, nil
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
