package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the snapshot in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the snapshot database at path and
// migrates its schema. An existing file that cannot be read as a snapshot
// database yields an error wrapping ErrCorruptSnapshot.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	existed := false
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		existed = true
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	fail := func(err error) error {
		if existed {
			return fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, path, err)
		}
		return err
	}

	if err := runMigrations(path); err != nil {
		return nil, fail(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fail(fmt.Errorf("open sqlite database: %w", err))
	}
	// One connection keeps the foreign_keys pragma in effect for every statement.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fail(fmt.Errorf("ping database: %w", err))
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fail(fmt.Errorf("enable foreign keys: %w", err))
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save implements Store. The previous snapshot is replaced atomically.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM recycling_events"); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM households"); err != nil {
		return fmt.Errorf("clear households: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, version, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at`,
		snap.Version, toUnix(snap.SavedAt)); err != nil {
		return fmt.Errorf("write snapshot meta: %w", err)
	}

	insertHousehold, err := tx.PrepareContext(ctx,
		"INSERT INTO households (id, position, name, address, join_date) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare household insert: %w", err)
	}
	defer insertHousehold.Close()

	insertEvent, err := tx.PrepareContext(ctx,
		`INSERT INTO recycling_events (id, household_id, seq, material_type, weight_kg, recorded_at, eco_points)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer insertEvent.Close()

	for pos, h := range snap.Households {
		if _, err = insertHousehold.ExecContext(ctx, h.ID, pos, h.Name, h.Address, toUnix(h.JoinDate)); err != nil {
			return fmt.Errorf("insert household %s: %w", h.ID, err)
		}
		for seq, e := range h.Events {
			if _, err = insertEvent.ExecContext(ctx,
				e.ID, h.ID, seq, e.MaterialType, e.WeightKg, toUnix(e.RecordedAt), e.EcoPoints); err != nil {
				return fmt.Errorf("insert event %s: %w", e.ID, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var (
		snap    Snapshot
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT version, saved_at FROM snapshot_meta WHERE id = 1").
		Scan(&snap.Version, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read snapshot meta: %w", ErrCorruptSnapshot, err)
	}
	snap.SavedAt = fromUnix(savedAt)

	households, err := s.loadHouseholds(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.loadEvents(ctx, households); err != nil {
		return Snapshot{}, err
	}
	snap.Households = households
	return snap, nil
}

func (s *SQLiteStore) loadHouseholds(ctx context.Context) ([]HouseholdRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address, join_date FROM households ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: query households: %w", ErrCorruptSnapshot, err)
	}
	defer rows.Close()

	out := make([]HouseholdRecord, 0)
	for rows.Next() {
		var (
			h        HouseholdRecord
			joinDate int64
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &joinDate); err != nil {
			return nil, fmt.Errorf("%w: scan household: %w", ErrCorruptSnapshot, err)
		}
		h.JoinDate = fromUnix(joinDate)
		h.Events = make([]EventRecord, 0)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate households: %w", ErrCorruptSnapshot, err)
	}
	return out, nil
}

func (s *SQLiteStore) loadEvents(ctx context.Context, households []HouseholdRecord) error {
	index := make(map[string]int, len(households))
	for i, h := range households {
		index[h.ID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, material_type, weight_kg, recorded_at, eco_points
		 FROM recycling_events ORDER BY household_id, seq`)
	if err != nil {
		return fmt.Errorf("%w: query events: %w", ErrCorruptSnapshot, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e           EventRecord
			householdID string
			recordedAt  int64
		)
		if err := rows.Scan(&e.ID, &householdID, &e.MaterialType, &e.WeightKg, &recordedAt, &e.EcoPoints); err != nil {
			return fmt.Errorf("%w: scan event: %w", ErrCorruptSnapshot, err)
		}
		i, ok := index[householdID]
		if !ok {
			return fmt.Errorf("%w: event %s references unknown household %s", ErrCorruptSnapshot, e.ID, householdID)
		}
		e.RecordedAt = fromUnix(recordedAt)
		households[i].Events = append(households[i].Events, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate events: %w", ErrCorruptSnapshot, err)
	}
	return nil
}

// Quarantine moves an unreadable snapshot file aside so a fresh one can be
// created in its place. It returns the new location of the old file.
func Quarantine(path string, now time.Time) (string, error) {
	dst := fmt.Sprintf("%s.corrupt-%s", path, now.UTC().Format("20060102T150405"))
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", path, err)
	}
	return dst, nil
}

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }
