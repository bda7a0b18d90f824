// Package database persists finished runs to PostgreSQL: one row per
// campaign run, per-person attention rows and the identity reference
// embeddings in a pgvector column.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/dooh-labs/attentiond/internal/identity"
	"github.com/dooh-labs/attentiond/internal/report"
)

// Store manages a PostgreSQL connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(url string) (*Store, error) {
	if url == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the tables and the vector extension if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			campaign TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			duration_s DOUBLE PRECISION NOT NULL,
			people_watched INT NOT NULL,
			total_attention_s DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_entities (
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			track_id INT NOT NULL,
			identity_id INT,
			attention_s DOUBLE PRECISION NOT NULL,
			total_s DOUBLE PRECISION NOT NULL,
			start_s DOUBLE PRECISION NOT NULL,
			end_s DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, track_id)
		)`,
		`CREATE TABLE IF NOT EXISTS run_identities (
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			identity_id INT NOT NULL,
			embedding vector,
			PRIMARY KEY (run_id, identity_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores the summary and the identity references in one
// transaction and returns the minted run id.
func (s *Store) SaveRun(ctx context.Context, startedAt time.Time, sum report.Summary, identities []identity.Record) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, campaign, started_at, duration_s, people_watched, total_attention_s)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, sum.Campaign, startedAt,
		sum.CampaignDuration.Seconds(), len(sum.Entities), sum.TotalAttention().Seconds(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, e := range sum.Entities {
		var identityID sql.NullInt64
		if e.IdentityID > 0 {
			identityID = sql.NullInt64{Int64: int64(e.IdentityID), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_entities (run_id, track_id, identity_id, attention_s, total_s, start_s, end_s)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, e.TrackID, identityID,
			e.AttentionTime.Seconds(), e.TotalTime.Seconds(),
			e.StartTime.Seconds(), e.EndTime.Seconds(),
		)
		if err != nil {
			return "", fmt.Errorf("inserting entity %d: %w", e.TrackID, err)
		}
	}

	for _, rec := range identities {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_identities (run_id, identity_id, embedding)
			VALUES ($1, $2, $3)`,
			runID, rec.ID, pgvector.NewVector(rec.Embedding),
		)
		if err != nil {
			return "", fmt.Errorf("inserting identity %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	return runID, nil
}
