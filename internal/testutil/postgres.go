// Package testutil provides test helpers including database container
// management.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oakmund/fable/internal/config"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// pgvector extension available.
type PostgresContainer struct {
	container testcontainers.Container
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns a
// connected pool with pgvector types registered.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool, or fails
// the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN())
	if err != nil {
		t.Fatalf("parsing test dsn: %v", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		t.Fatalf("installing pgvector extension: %v", err)
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		RawPool:   pool,
		Config:    dbCfg,
	}

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})
	return pc
}

// ApplyKnowledgeSchema runs the knowledge store schema directly for tests.
// This avoids requiring the migrate tool in the test environment and must be
// kept in step with the migrations directory.
//
// Precondition: RawPool must be connected.
// Postcondition: The kg_entities, kg_relations, and kg_chunks tables exist.
func (pc *PostgresContainer) ApplyKnowledgeSchema(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	schema := `
		CREATE TABLE IF NOT EXISTS kg_entities (
			id    TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			type  TEXT NOT NULL DEFAULT 'other'
		);
		CREATE TABLE IF NOT EXISTS kg_relations (
			subject   TEXT NOT NULL REFERENCES kg_entities (id) ON DELETE CASCADE,
			predicate TEXT NOT NULL,
			object    TEXT NOT NULL,
			PRIMARY KEY (subject, predicate, object)
		);
		CREATE INDEX IF NOT EXISTS idx_kg_relations_object ON kg_relations (object);
		CREATE TABLE IF NOT EXISTS kg_chunks (
			id        TEXT PRIMARY KEY,
			text      TEXT NOT NULL,
			embedding vector(1536)
		);
	`
	if _, err := pc.RawPool.Exec(ctx, schema); err != nil {
		t.Fatalf("applying knowledge schema: %v", err)
	}
	t.Logf("knowledge schema applied [%s]", time.Since(start))
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
