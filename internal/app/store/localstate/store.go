// Package localstate is the local persistent store: a SQLite-backed
// string-keyed map of JSON-serialized text, namespaced by owner. It is the
// server-side equivalent of browser local storage and follows the same
// contract: absent or corrupt data reads as empty, and save failures are
// logged and swallowed so the in-memory state stays authoritative for the
// session.
package localstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// Storage keys. The tt_* names are carried over from the browser app's
// localStorage schema so exports stay recognizable.
const (
	KeyDaily          = "tt_daily"
	KeyHourly         = "tt_hourly"
	KeyPatterns       = "tt_patterns"
	KeyReflections    = "tt_reflections"
	KeyPomodoro       = "tt_pomodoro"
	KeyHappinessItems = "tt_happiness_items"
	KeyHappinessState = "tt_happiness_status"
	KeyDataSource     = "data_source"
)

// Store wraps the SQLite key-value table.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the kv table exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local state db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping local state db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS kv (
		owner      TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, key)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	logger.Info("local state store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection, for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the raw value for (owner, key). Missing keys and read errors
// both report false; read errors are additionally logged.
func (s *Store) Get(owner, key string) (string, bool) {
	var v string
	err := s.db.QueryRow(
		`SELECT value FROM kv WHERE owner = ? AND key = ?`, owner, key,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Warn("local state read failed",
			zap.String("owner", owner), zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, true
}

// Set stores the raw value for (owner, key). Failures are logged and
// swallowed; in-memory state remains the source of truth for the session.
func (s *Store) Set(owner, key, value string) {
	_, err := s.db.Exec(
		`INSERT INTO kv (owner, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (owner, key) DO UPDATE SET
		   value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		owner, key, value,
	)
	if err != nil {
		s.logger.Warn("local state write failed",
			zap.String("owner", owner), zap.String("key", key), zap.Error(err))
	}
}

// Delete removes (owner, key). Failures are logged and swallowed.
func (s *Store) Delete(owner, key string) {
	if _, err := s.db.Exec(
		`DELETE FROM kv WHERE owner = ? AND key = ?`, owner, key,
	); err != nil {
		s.logger.Warn("local state delete failed",
			zap.String("owner", owner), zap.String("key", key), zap.Error(err))
	}
}

// GetJSON decodes the stored value into v. Missing and malformed data both
// report false; malformed data is treated as absence, never as an error to
// surface.
func (s *Store) GetJSON(owner, key string, v any) bool {
	raw, ok := s.Get(owner, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("local state value malformed, treating as absent",
			zap.String("owner", owner), zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores v JSON-encoded.
func (s *Store) SetJSON(owner, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("local state encode failed",
			zap.String("owner", owner), zap.String("key", key), zap.Error(err))
		return
	}
	s.Set(owner, key, string(raw))
}

// LoadBundle reads an owner's full bundle. Each of the four maps falls back
// to empty independently when missing or corrupt; a map that fails to decode
// part-way is discarded whole rather than kept half-filled.
func (s *Store) LoadBundle(owner string) timegrid.Bundle {
	b := timegrid.NewBundle()
	var daily map[timegrid.DayKey]timegrid.Totals
	if s.GetJSON(owner, KeyDaily, &daily) {
		b.Daily = daily
	}
	var grid map[timegrid.DayKey]timegrid.DayGrid
	if s.GetJSON(owner, KeyHourly, &grid) {
		b.Grid = grid
	}
	var patterns map[timegrid.DayKey][]string
	if s.GetJSON(owner, KeyPatterns, &patterns) {
		b.Patterns = patterns
	}
	var refl map[timegrid.DayKey]string
	if s.GetJSON(owner, KeyReflections, &refl) {
		b.Reflections = refl
	}
	return b.Normalize()
}

// SaveBundle mirrors an owner's full bundle into the store.
func (s *Store) SaveBundle(owner string, b timegrid.Bundle) {
	s.SetJSON(owner, KeyDaily, b.Daily)
	s.SetJSON(owner, KeyHourly, b.Grid)
	s.SetJSON(owner, KeyPatterns, b.Patterns)
	s.SetJSON(owner, KeyReflections, b.Reflections)
}

// Owners returns every distinct owner id present in the store, for the
// backup job.
func (s *Store) Owners() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT owner FROM kv ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
