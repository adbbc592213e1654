package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ahems/SportsLeague/pkg/clients/postgres"
	sserr "github.com/ahems/SportsLeague/pkg/errors"
)

// postgresBackend keeps each document as a JSONB row.
type postgresBackend struct {
	client *postgres.Client
	table  string
}

// NewPostgres returns a store over an open client. table must already
// exist; see [EnsureSchema].
func NewPostgres(client *postgres.Client, table string, opts ...Option) Store {
	return newDocumentStore(&postgresBackend{client: client, table: table}, opts...)
}

// EnsureSchema creates the documents table if it is missing.
func EnsureSchema(ctx context.Context, client *postgres.Client, table string) error {
	_, err := client.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	partition_key TEXT        NOT NULL,
	id            TEXT        NOT NULL,
	body          JSONB       NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (partition_key, id)
)`, table))
	return err
}

func (p *postgresBackend) name() string { return string(BackendPostgres) }

func (p *postgresBackend) get(ctx context.Context, partition, id string) ([]byte, error) {
	var body []byte
	err := p.client.QueryRow(ctx,
		fmt.Sprintf(`SELECT body FROM %s WHERE partition_key = $1 AND id = $2`, p.table),
		partition, id).Scan(&body)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, notFound(partition, id)
	case err != nil:
		return nil, classify(err, "store: postgres get failed")
	}
	return body, nil
}

func (p *postgresBackend) list(ctx context.Context, partition string) ([][]byte, error) {
	rows, err := p.client.Query(ctx,
		fmt.Sprintf(`SELECT body FROM %s WHERE partition_key = $1`, p.table), partition)
	if err != nil {
		return nil, err
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, classify(err, "store: postgres list failed")
	}
	return bodies, nil
}

func (p *postgresBackend) put(ctx context.Context, partition, id string, body []byte) error {
	_, err := p.client.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (partition_key, id, body)
VALUES ($1, $2, $3)
ON CONFLICT (partition_key, id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`, p.table),
		partition, id, body)
	return err
}

func (p *postgresBackend) del(ctx context.Context, partition, id string) error {
	tag, err := p.client.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE partition_key = $1 AND id = $2`, p.table),
		partition, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(partition, id)
	}
	return nil
}

func (p *postgresBackend) health(ctx context.Context) error { return p.client.Health(ctx) }

func (p *postgresBackend) close() error {
	p.client.Close()
	return nil
}

// classify maps errors the client hands back unwrapped (QueryRow scans,
// row iteration) onto the same codes the client uses.
func classify(err error, message string) error {
	if _, ok := sserr.AsError(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return sserr.Wrap(err, sserr.CodeTimeoutDatabase, message)
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
