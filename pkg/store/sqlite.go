// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/teradata-labs/bobbin/internal/sqlitedriver"
	"github.com/teradata-labs/bobbin/pkg/observability"
)

// SQLiteConfig holds SQLite store configuration including optional
// encryption at rest.
type SQLiteConfig struct {
	// Path to the SQLite database file.
	Path string

	// TTL is how long saved records stay live. Records older than TTL read
	// as absent and are eligible for pruning. Zero disables expiry.
	TTL time.Duration

	// EncryptDatabase enables SQLCipher encryption at rest. Requires a CGO
	// build and EncryptionKey (or the BOBBIN_DB_KEY environment variable).
	EncryptDatabase bool

	// EncryptionKey is the SQLCipher key. Falls back to BOBBIN_DB_KEY.
	EncryptionKey string

	// Tracer receives a span per database operation. Nil disables tracing.
	Tracer observability.Tracer
}

// SQLiteStore is a Store backed by a local SQLite database.
//
// Saves append a timestamped record per session rather than updating in
// place, so concurrent writers settle on last-writer-wins and loads simply
// read the newest record.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	ttl    time.Duration
	tracer observability.Tracer
}

// NewSQLiteStore opens (creating if needed) the database at cfg.Path and
// prepares the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoOpTracer()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		ttl:    cfg.TTL,
		tracer: cfg.Tracer,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// openDB opens the SQLite database with optional SQLCipher encryption.
// The key PRAGMA must be the first statement after opening.
func openDB(cfg SQLiteConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.EncryptDatabase {
		if !sqlitedriver.EncryptionSupported {
			db.Close()
			return nil, fmt.Errorf("database encryption requires a CGO build (pure-Go driver has no SQLCipher support)")
		}
		key := cfg.EncryptionKey
		if key == "" {
			key = os.Getenv("BOBBIN_DB_KEY")
		}
		if key == "" {
			db.Close()
			return nil, fmt.Errorf("encryption enabled but no key provided (set EncryptionKey or BOBBIN_DB_KEY env var)")
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA key = '%s'", key)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set encryption key: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		if cfg.EncryptDatabase {
			return nil, fmt.Errorf("failed to verify encryption key (wrong key or corrupted database): %w", err)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// initSchema creates the record table if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	ctx, span := s.tracer.StartSpan(context.Background(), "sqlite_store.init_schema")
	defer s.tracer.EndSpan(span)

	schema := `
	-- sk and expiration_time are unix milliseconds
	CREATE TABLE IF NOT EXISTS session_records (
		pk TEXT NOT NULL,
		sk INTEGER NOT NULL,
		payload TEXT NOT NULL,
		expiration_time INTEGER,
		PRIMARY KEY (pk, sk)
	);

	CREATE INDEX IF NOT EXISTS idx_session_records_expiration ON session_records(expiration_time);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// SaveMessages implements Store.
func (s *SQLiteStore) SaveMessages(ctx context.Context, sessionID string, snapshot []byte) error {
	return s.appendRecord(ctx, messagesKey(sessionID), sessionID, "messages", time.Now(), snapshot)
}

// LoadMessages implements Store.
func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID string) ([]byte, bool, error) {
	return s.latestRecord(ctx, messagesKey(sessionID), sessionID, "messages")
}

// SaveReasoning implements Store. Saving with the same startedAt replaces
// the record, so a run's incremental updates stay one history entry.
func (s *SQLiteStore) SaveReasoning(ctx context.Context, sessionID string, startedAt time.Time, trace []byte) error {
	return s.appendRecord(ctx, reasoningKey(sessionID), sessionID, "reasoning", startedAt, trace)
}

// LoadReasoning implements Store.
func (s *SQLiteStore) LoadReasoning(ctx context.Context, sessionID string) ([]byte, bool, error) {
	return s.latestRecord(ctx, reasoningKey(sessionID), sessionID, "reasoning")
}

// LoadReasoningHistory implements Store.
func (s *SQLiteStore) LoadReasoningHistory(ctx context.Context, sessionID string) ([][]byte, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreLoad,
		observability.WithAttribute(observability.AttrStoreBackend, "sqlite"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", "reasoning_history"))
	defer s.tracer.EndSpan(span)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT payload, expiration_time
		FROM session_records
		WHERE pk = ?
		ORDER BY sk ASC
	`

	rows, err := s.db.QueryContext(ctx, query, reasoningKey(sessionID))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query reasoning history: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	traces := [][]byte{}
	for rows.Next() {
		var payload string
		var expiration sql.NullInt64
		if err := rows.Scan(&payload, &expiration); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan reasoning record: %w", err)
		}
		if expiration.Valid && recordExpired(expiration.Int64, now.UnixMilli()) {
			continue
		}
		traces = append(traces, []byte(payload))
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating reasoning records: %w", err)
	}

	span.SetAttribute("trace_count", fmt.Sprintf("%d", len(traces)))
	return traces, nil
}

// PruneExpired deletes every record whose expiration time has passed and
// returns the number of rows removed. Reads already treat expired records
// as absent; pruning just reclaims the space.
func (s *SQLiteStore) PruneExpired(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStorePrune,
		observability.WithAttribute(observability.AttrStoreBackend, "sqlite"))
	defer s.tracer.EndSpan(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_records WHERE expiration_time IS NOT NULL AND expiration_time <= ?`,
		time.Now().UnixMilli(),
	)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to prune expired records: %w", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count pruned records: %w", err)
	}

	span.SetAttribute("pruned", fmt.Sprintf("%d", pruned))
	return pruned, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// appendRecord inserts a record for pk keyed by at. Records sharing a sort
// key collapse to one row, which preserves last-writer-wins; the expiration
// clock always starts at write time, so rewrites refresh the TTL.
func (s *SQLiteStore) appendRecord(ctx context.Context, pk, sessionID, kind string, at time.Time, payload []byte) error {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreSave,
		observability.WithAttribute(observability.AttrStoreBackend, "sqlite"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", kind))
	defer s.tracer.EndSpan(span)

	s.mu.Lock()
	defer s.mu.Unlock()

	var expiration interface{}
	if s.ttl > 0 {
		expiration = time.Now().Add(s.ttl).UnixMilli()
	}

	query := `
		INSERT INTO session_records (pk, sk, payload, expiration_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pk, sk) DO UPDATE SET
			payload = excluded.payload,
			expiration_time = excluded.expiration_time
	`

	if _, err := s.db.ExecContext(ctx, query, pk, at.UnixMilli(), string(payload), expiration); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save %s record: %w", kind, err)
	}

	span.SetAttribute("payload_bytes", fmt.Sprintf("%d", len(payload)))
	return nil
}

// latestRecord returns the newest record for pk. A missing or expired
// record reads as absent so callers start the session fresh.
func (s *SQLiteStore) latestRecord(ctx context.Context, pk, sessionID, kind string) ([]byte, bool, error) {
	ctx, span := s.tracer.StartSpan(ctx, observability.SpanStoreLoad,
		observability.WithAttribute(observability.AttrStoreBackend, "sqlite"),
		observability.WithAttribute(observability.AttrSessionID, sessionID),
		observability.WithAttribute("record_kind", kind))
	defer s.tracer.EndSpan(span)

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT payload, expiration_time
		FROM session_records
		WHERE pk = ?
		ORDER BY sk DESC
		LIMIT 1
	`

	var payload string
	var expiration sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, pk).Scan(&payload, &expiration)
	if err == sql.ErrNoRows {
		span.SetAttribute("found", "false")
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to load %s record: %w", kind, err)
	}

	if expiration.Valid && recordExpired(expiration.Int64, time.Now().UnixMilli()) {
		span.SetAttribute("found", "false")
		span.SetAttribute("expired", "true")
		return nil, false, nil
	}

	span.SetAttribute("found", "true")
	return []byte(payload), true, nil
}
