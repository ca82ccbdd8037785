package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const createRecordBlobsTable = `CREATE TABLE IF NOT EXISTS record_blobs (
	tenant_id TEXT NOT NULL,
	collection TEXT NOT NULL,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant_id, collection)
)`

// PostgresBlobStore stores blobs in the record_blobs table.
type PostgresBlobStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresBlobStore creates a Postgres backed blob store.
func NewPostgresBlobStore(db *sqlx.DB) *PostgresBlobStore {
	return &PostgresBlobStore{db: db, now: time.Now}
}

// EnsureSchema creates the blob table when missing.
func (s *PostgresBlobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRecordBlobsTable); err != nil {
		return fmt.Errorf("ensure record_blobs: %w", err)
	}
	return nil
}

// Load returns the stored payload or nil when absent.
func (s *PostgresBlobStore) Load(ctx context.Context, tenantID string, c Collection) ([]byte, error) {
	return loadBlob(ctx, s.db, tenantID, c)
}

// LoadAll returns every tenant's payload for the collection.
func (s *PostgresBlobStore) LoadAll(ctx context.Context, c Collection) (map[string][]byte, error) {
	const query = `SELECT tenant_id, payload FROM record_blobs WHERE collection = $1 ORDER BY tenant_id`
	var rows []struct {
		TenantID string `db:"tenant_id"`
		Payload  []byte `db:"payload"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, string(c)); err != nil {
		return nil, fmt.Errorf("load all %s: %w", c, err)
	}

	result := make(map[string][]byte, len(rows))
	for _, row := range rows {
		result[row.TenantID] = row.Payload
	}
	return result, nil
}

// Update runs fn inside a SQL transaction holding the tenant's advisory lock.
func (s *PostgresBlobStore) Update(ctx context.Context, tenantID string, fn func(tx BlobTx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin blob tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID); err != nil {
		return fmt.Errorf("lock tenant %s: %w", tenantID, err)
	}

	if err = fn(&postgresBlobTx{tx: tx, tenantID: tenantID, now: s.now}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit blob tx: %w", err)
	}
	return nil
}

type postgresBlobTx struct {
	tx       *sqlx.Tx
	tenantID string
	now      func() time.Time
}

func (t *postgresBlobTx) Get(ctx context.Context, c Collection) ([]byte, error) {
	return loadBlob(ctx, t.tx, t.tenantID, c)
}

func (t *postgresBlobTx) Put(ctx context.Context, c Collection, payload []byte) error {
	const query = `INSERT INTO record_blobs (tenant_id, collection, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id, collection) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	if _, err := t.tx.ExecContext(ctx, query, t.tenantID, string(c), payload, t.now().UTC()); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", t.tenantID, c, err)
	}
	return nil
}

func loadBlob(ctx context.Context, q sqlx.QueryerContext, tenantID string, c Collection) ([]byte, error) {
	const query = `SELECT payload FROM record_blobs WHERE tenant_id = $1 AND collection = $2`
	var payload []byte
	if err := sqlx.GetContext(ctx, q, &payload, query, tenantID, string(c)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s/%s: %w", tenantID, c, err)
	}
	return payload, nil
}
