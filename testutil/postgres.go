// Package testutil provides shared test utilities for sqlschema
package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// getPostgresVersion returns the PostgreSQL version to use for testing.
// It reads from the SQLSCHEMA_POSTGRES_VERSION environment variable,
// defaulting to "17" if not set.
func getPostgresVersion() string {
	if version := os.Getenv("SQLSCHEMA_POSTGRES_VERSION"); version != "" {
		return version
	}
	return "17"
}

// ContainerInfo holds PostgreSQL container connection details
type ContainerInfo struct {
	Container testcontainers.Container
	Host      string
	Port      int
	DSN       string
	Pool      *pgxpool.Pool
}

// SetupPostgresContainer starts a PostgreSQL container and skips the test in
// -short mode. The container is terminated when the test finishes.
func SetupPostgresContainer(ctx context.Context, t *testing.T) *ContainerInfo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	postgresContainer, err := postgres.Run(ctx,
		"postgres:"+getPostgresVersion()+"-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}

	testDSN, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, testDSN)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	containerHost, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	containerPort, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	ci := &ContainerInfo{
		Container: postgresContainer,
		Host:      containerHost,
		Port:      containerPort.Int(),
		DSN:       testDSN,
		Pool:      pool,
	}
	t.Cleanup(func() { ci.Terminate(context.Background(), t) })
	return ci
}

// Terminate cleans up the container and connection
func (ci *ContainerInfo) Terminate(ctx context.Context, t *testing.T) {
	ci.Pool.Close()
	if err := ci.Container.Terminate(ctx); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}

// Exec runs each statement in order, failing the test on the first error.
func (ci *ContainerInfo) Exec(ctx context.Context, t *testing.T, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		if _, err := ci.Pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to execute %q: %v", stmt, err)
		}
	}
}
