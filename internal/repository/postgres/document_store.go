package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/repository/document"
	"github.com/web-portfolio-personal/JAML-Ejercicios/internal/util"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       JSONB NOT NULL,
	version    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE TABLE IF NOT EXISTS unique_keys (
	collection TEXT NOT NULL,
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	owner      TEXT NOT NULL,
	PRIMARY KEY (collection, field, value)
);
CREATE INDEX IF NOT EXISTS unique_keys_owner_idx ON unique_keys (collection, owner);
`

type DB struct {
	Pool *pgxpool.Pool
}

func Connect(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *DB) Ready(ctx context.Context) error {
	var one int
	return db.Pool.QueryRow(ctx, "select 1").Scan(&one)
}

// Migrate creates the document tables.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	util.Info("Postgres schema is up to date")
	return nil
}

// DocumentStore keeps documents as JSONB rows. Unique keys live in their
// own table and change in the same transaction as the document.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

var _ document.Store = (*DocumentStore)(nil)

func (s *DocumentStore) Insert(ctx context.Context, collection string, rec document.Record) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO documents (collection, id, data, version) VALUES ($1, $2, $3, 1)
			 ON CONFLICT DO NOTHING`,
			collection, rec.ID, rec.Data)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &document.DuplicateError{Field: "id"}
		}
		return claim(ctx, tx, collection, rec.ID, rec.Uniques)
	})
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (document.Record, error) {
	rec := document.Record{ID: id}
	err := s.db.Pool.QueryRow(ctx,
		`SELECT data, version FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&rec.Data, &rec.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Record{}, document.ErrNotFound
	}
	if err != nil {
		return document.Record{}, fmt.Errorf("get document: %w", err)
	}

	rec.Uniques, err = uniquesOf(ctx, s.db.Pool, collection, id)
	if err != nil {
		return document.Record{}, err
	}
	return rec, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection string, rec document.Record) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET data = $1, version = version + 1
			 WHERE collection = $2 AND id = $3 AND version = $4`,
			rec.Data, collection, rec.ID, rec.Version)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`,
				collection, rec.ID).Scan(&exists); err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			if !exists {
				return document.ErrNotFound
			}
			return document.ErrVersionConflict
		}

		prev, err := uniquesOf(ctx, tx, collection, rec.ID)
		if err != nil {
			return err
		}
		claimKeys, releaseKeys := document.ChangedUniques(prev, rec.Uniques)
		for field, val := range releaseKeys {
			if _, err := tx.Exec(ctx,
				`DELETE FROM unique_keys WHERE collection = $1 AND field = $2 AND value = $3 AND owner = $4`,
				collection, field, val, rec.ID); err != nil {
				return fmt.Errorf("release unique key: %w", err)
			}
		}
		return claim(ctx, tx, collection, rec.ID, claimKeys)
	})
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return document.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM unique_keys WHERE collection = $1 AND owner = $2`, collection, id); err != nil {
			return fmt.Errorf("release unique keys: %w", err)
		}
		return nil
	})
}

func (s *DocumentStore) List(ctx context.Context, collection string) ([]document.Record, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, data, version FROM documents WHERE collection = $1 ORDER BY created_at, id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []document.Record
	for rows.Next() {
		var rec document.Record
		if err := rows.Scan(&rec.ID, &rec.Data, &rec.Version); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func (s *DocumentStore) HealthCheck(ctx context.Context) error {
	return s.db.Ready(ctx)
}

func (s *DocumentStore) Close() {
	s.db.Close()
	util.Info("Postgres pool closed")
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func uniquesOf(ctx context.Context, q querier, collection, id string) (map[string]string, error) {
	rows, err := q.Query(ctx,
		`SELECT field, value FROM unique_keys WHERE collection = $1 AND owner = $2`, collection, id)
	if err != nil {
		return nil, fmt.Errorf("read unique keys: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan unique key: %w", err)
		}
		out[field] = value
	}
	return out, rows.Err()
}

func claim(ctx context.Context, tx pgx.Tx, collection, id string, keys map[string]string) error {
	for field, val := range keys {
		tag, err := tx.Exec(ctx,
			`INSERT INTO unique_keys (collection, field, value, owner) VALUES ($1, $2, $3, $4)
			 ON CONFLICT DO NOTHING`,
			collection, field, val, id)
		if err != nil {
			return fmt.Errorf("claim unique key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			util.Debug("Unique key already owned",
				zap.String("collection", collection),
				zap.String("field", field))
			return &document.DuplicateError{Field: field}
		}
	}
	return nil
}
