// Package testutil starts the pgvector Postgres used by integration and e2e
// tests and applies the repo migrations to it.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	dbName        = "shipba"
)

// Tables in truncation order.
var tables = []string{"search_logs", "api_keys", "profile_chunks", "workspace_members", "workspaces", "profiles"}

type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
	User      string
	Password  string
	Database  string
}

// StartPostgres runs a disposable pgvector container and waits until it
// accepts connections.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     dbName,
				"POSTGRES_PASSWORD": dbName,
				"POSTGRES_DB":       dbName,
			},
			// The entrypoint restarts postgres once after init.
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &PostgresContainer{
		Container: container,
		Host:      host,
		Port:      port.Port(),
		User:      dbName,
		Password:  dbName,
		Database:  dbName,
	}, nil
}

// NewPostgresContainer is StartPostgres for a single test. The caller
// terminates it.
func NewPostgresContainer(ctx context.Context, t testing.TB) *PostgresContainer {
	t.Helper()
	pc, err := StartPostgres(ctx)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return pc
}

func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pc.User, pc.Password, pc.Host, pc.Port, pc.Database)
}

func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// OpenPool connects to the container, retrying while postgres finishes
// starting, and applies every up migration in migrationsDir.
func OpenPool(ctx context.Context, pc *PostgresContainer, migrationsDir string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.New(ctx, pc.ConnectionString())
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
			pool = nil
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	if err := Migrate(pc.ConnectionString(), migrationsDir); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewTestPool is OpenPool for a single test.
func NewTestPool(ctx context.Context, t testing.TB, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()
	pool, err := OpenPool(ctx, pc, migrationsDir)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return pool
}

// Migrate applies the up migrations in migrationsDir with golang-migrate,
// the same runner the server uses on startup.
func Migrate(databaseURL, migrationsDir string) error {
	dir, err := filepath.Abs(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations dir: %w", err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// TruncateAll empties every application table.
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	for _, table := range tables {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}
