//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ahems/SportsLeague/pkg/clients/postgres"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// setupContainer starts a throwaway Postgres and returns a connected client.
// Both are torn down with the test.
func setupContainer(t *testing.T) *postgres.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "docker.io/postgres:16-alpine",
		tcpostgres.WithDatabase("sportsleague_test"),
		tcpostgres.WithUsername("league"),
		tcpostgres.WithPassword("league"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	client, err := postgres.NewClient(ctx, postgres.Config{URI: uri})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestIntegration_DocumentRoundTrip(t *testing.T) {
	client := setupContainer(t)
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health() error: %v", err)
	}

	_, err := client.Exec(ctx, `CREATE TABLE docs (
		partition_key TEXT NOT NULL,
		id            TEXT NOT NULL,
		body          JSONB NOT NULL,
		PRIMARY KEY (partition_key, id))`)
	if err != nil {
		t.Fatalf("Exec(CREATE TABLE) error: %v", err)
	}

	tag, err := client.Exec(ctx,
		`INSERT INTO docs (partition_key, id, body) VALUES ($1, $2, $3), ($1, $4, $5)`,
		"Category", "c1", []byte(`{"id":"c1","CategoryId":1}`), "c2", []byte(`{"id":"c2","CategoryId":2}`))
	if err != nil {
		t.Fatalf("Exec(INSERT) error: %v", err)
	}
	if tag.RowsAffected() != 2 {
		t.Errorf("RowsAffected() = %d, want 2", tag.RowsAffected())
	}

	rows, err := client.Query(ctx,
		`SELECT id FROM docs WHERE partition_key = $1 ORDER BY (body->>'CategoryId')::int DESC`, "Category")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		t.Fatalf("CollectRows() error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c2" || ids[1] != "c1" {
		t.Errorf("ids = %v, want [c2 c1]", ids)
	}

	var id string
	err = client.QueryRow(ctx, `SELECT id FROM docs WHERE partition_key = $1 AND id = $2`, "Category", "nope").Scan(&id)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("QueryRow().Scan() error = %v, want pgx.ErrNoRows", err)
	}
}

func TestIntegration_TransactionRollback(t *testing.T) {
	client := setupContainer(t)
	ctx := context.Background()

	if _, err := client.Exec(ctx, `CREATE TABLE carts (id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("Exec(CREATE TABLE) error: %v", err)
	}

	tx, err := client.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO carts (id) VALUES ('abandoned')`); err != nil {
		t.Fatalf("tx.Exec() error: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}

	var n int
	if err := client.QueryRow(ctx, `SELECT count(*) FROM carts`).Scan(&n); err != nil {
		t.Fatalf("count error: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d after rollback, want 0", n)
	}
}

func TestIntegration_QueryTimeout(t *testing.T) {
	client := setupContainer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Exec(ctx, `SELECT pg_sleep(5)`)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !sserr.IsRetryable(err) {
		t.Errorf("timeout should be retryable, got code %q", sserr.GetCode(err))
	}
}

func TestIntegration_SyntaxError(t *testing.T) {
	client := setupContainer(t)

	_, err := client.Exec(context.Background(), `SELEC 1`)
	if got := sserr.GetCode(err); got != sserr.CodeInternalDatabase {
		t.Errorf("code = %q, want %q", got, sserr.CodeInternalDatabase)
	}
}
