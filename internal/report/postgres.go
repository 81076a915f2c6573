package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/lingualert/pkg/translate"
)

// Schema is the DDL for the emergency_reports table. Apply it with
// [PostgresStore.Migrate].
const Schema = `
CREATE TABLE IF NOT EXISTS emergency_reports (
    report_id              UUID PRIMARY KEY,
    recording_id           TEXT NOT NULL DEFAULT '',
    audio_blob             BYTEA NOT NULL,
    audio_type             TEXT NOT NULL DEFAULT '',
    original_text          TEXT NOT NULL,
    translated_text        TEXT,
    source_language        TEXT,
    translation_status     TEXT NOT NULL DEFAULT 'pending',
    translation_confidence DOUBLE PRECISION,
    confidence             DOUBLE PRECISION NOT NULL DEFAULT 0,
    emergency_type         TEXT NOT NULL,
    location_data          JSONB,
    timestamp              TIMESTAMPTZ NOT NULL DEFAULT now(),
    blockchain_hash        TEXT
);
CREATE INDEX IF NOT EXISTS idx_emergency_reports_timestamp ON emergency_reports(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_emergency_reports_type ON emergency_reports(emergency_type);
`

// DB is the subset of *pgxpool.Pool and *pgx.Conn used by [PostgresStore].
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps db. Call [PostgresStore.Migrate] before use.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the emergency_reports table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("report: migrate: %w", err)
	}
	return nil
}

// Create implements [Store].
func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var loc []byte
	if r.Location != nil {
		var err error
		if loc, err = json.Marshal(r.Location); err != nil {
			return fmt.Errorf("report: marshal location: %w", err)
		}
	}

	const query = `
		INSERT INTO emergency_reports (
			report_id, recording_id, audio_blob, audio_type, original_text,
			translated_text, source_language, translation_status, translation_confidence,
			confidence, emergency_type, location_data, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := s.db.Exec(ctx, query,
		r.ID, r.RecordingID, r.Audio, r.AudioType, r.OriginalText,
		nullString(r.TranslatedText), nullString(r.SourceLanguage), string(r.TranslationStatus), r.TranslationConfidence,
		r.Confidence, string(r.EmergencyType), loc, r.Timestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
		}
		return fmt.Errorf("report: create: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT report_id::text, recording_id, audio_blob, audio_type, original_text,
	       COALESCE(translated_text, ''), COALESCE(source_language, ''),
	       translation_status, translation_confidence, confidence,
	       emergency_type, location_data, timestamp
	FROM emergency_reports`

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	r, err := scanReport(s.db.QueryRow(ctx, selectColumns+` WHERE report_id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("report: get %q: %w", id, err)
	}
	return r, nil
}

// Recent implements [Store].
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.Query(ctx, selectColumns+` ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("report: recent: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("report: recent scan: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report: recent: %w", err)
	}
	return out, nil
}

// Ping implements [Store].
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("report: ping: %w", err)
	}
	return nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var (
		r             Report
		status, etype string
		loc           []byte
		ts            time.Time
	)
	err := row.Scan(
		&r.ID, &r.RecordingID, &r.Audio, &r.AudioType, &r.OriginalText,
		&r.TranslatedText, &r.SourceLanguage,
		&status, &r.TranslationConfidence, &r.Confidence,
		&etype, &loc, &ts,
	)
	if err != nil {
		return nil, err
	}
	r.TranslationStatus = translate.Status(status)
	r.EmergencyType = EmergencyType(etype)
	r.Timestamp = ts.UTC()
	if len(loc) > 0 {
		r.Location = &Location{}
		if err := json.Unmarshal(loc, r.Location); err != nil {
			return nil, fmt.Errorf("unmarshal location_data: %w", err)
		}
	}
	return &r, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
