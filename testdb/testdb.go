// Package testdb starts one postgres container per test binary and applies
// the migrations to it.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/JoshUrdnb/Billed/migrations"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// Open returns a connection to the shared, migrated database with every
// table emptied. It skips the test under -short or when no container runtime
// is available.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = startContainerAndMigrate()
	})
	if initErr != nil {
		t.Skipf("testdb: postgres unavailable: %v", initErr)
	}

	db, err := sql.Open("postgres", sharedDSN)
	if err != nil {
		t.Fatalf("testdb: sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`TRUNCATE events, bills, receipts, session_items, sessions, users`); err != nil {
		t.Fatalf("testdb: truncate: %v", err)
	}
	return db
}

func startContainerAndMigrate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "billed",
			"POSTGRES_PASSWORD": "billed",
			"POSTGRES_DB":       "billed",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://billed:billed@%s:%s/billed?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return "", fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return "", fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		return "", err
	}
	return dsn, nil
}
