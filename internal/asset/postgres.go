package asset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flightledger/internal/fingerprint"
	"flightledger/internal/licensing"
	"flightledger/pkg/platform/sentinel"
)

// PostgresStore persists tokenization metadata in Postgres, upserting on the
// initial fingerprint.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("asset postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("asset postgres ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS asset_metadata (
	initial_fingerprint   TEXT PRIMARY KEY,
	telemetry_fingerprint TEXT NOT NULL,
	storage_ref           TEXT NOT NULL DEFAULT '',
	asset_id              TEXT NOT NULL,
	terms_id              BIGINT NOT NULL,
	token_id              BIGINT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the backing table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("asset postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, meta Metadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO asset_metadata
			(initial_fingerprint, telemetry_fingerprint, storage_ref, asset_id, terms_id, token_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (initial_fingerprint) DO UPDATE SET
			telemetry_fingerprint = EXCLUDED.telemetry_fingerprint,
			storage_ref           = EXCLUDED.storage_ref,
			asset_id              = EXCLUDED.asset_id,
			terms_id              = EXCLUDED.terms_id,
			token_id              = EXCLUDED.token_id`,
		meta.Initial.String(), meta.Telemetry.String(), meta.StorageRef,
		string(meta.AssetID), int64(meta.TermsID), int64(meta.TokenID), meta.CreatedAt)
	if err != nil {
		return fmt.Errorf("asset postgres save: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, initial fingerprint.Digest) (Metadata, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT initial_fingerprint, telemetry_fingerprint, storage_ref, asset_id, terms_id, token_id, created_at
		FROM asset_metadata
		WHERE initial_fingerprint = $1`, initial.String())
	meta, err := scanMetadata(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Metadata{}, fmt.Errorf("asset metadata for %s: %w", initial, sentinel.ErrNotFound)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("asset postgres find: %w", err)
	}
	return meta, nil
}

func (s *PostgresStore) FindMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	keys := make([]string, len(initials))
	for i, fp := range initials {
		keys[i] = fp.String()
	}
	rows, err := s.pool.Query(ctx, `
		SELECT initial_fingerprint, telemetry_fingerprint, storage_ref, asset_id, terms_id, token_id, created_at
		FROM asset_metadata
		WHERE initial_fingerprint = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("asset postgres find many: %w", err)
	}
	defer rows.Close()

	out := make(map[fingerprint.Digest]Metadata, len(initials))
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("asset postgres find many: %w", err)
		}
		out[meta.Initial] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("asset postgres find many: %w", err)
	}
	return out, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanMetadata(row pgx.Row) (Metadata, error) {
	var (
		meta                    Metadata
		initial, telemetry, aid string
		termsID, tokenID        int64
		createdAt               time.Time
	)
	if err := row.Scan(&initial, &telemetry, &meta.StorageRef, &aid, &termsID, &tokenID, &createdAt); err != nil {
		return Metadata{}, err
	}
	var err error
	if meta.Initial, err = fingerprint.Parse(initial); err != nil {
		return Metadata{}, err
	}
	if meta.Telemetry, err = fingerprint.Parse(telemetry); err != nil {
		return Metadata{}, err
	}
	meta.AssetID = licensing.AssetID(aid)
	meta.TermsID = licensing.TermsID(termsID)
	meta.TokenID = uint64(tokenID)
	meta.CreatedAt = createdAt
	return meta, nil
}
