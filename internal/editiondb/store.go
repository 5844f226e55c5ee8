package editiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"magicscraper/internal/catalog"
	"magicscraper/internal/config"
)

// Entry is one edition row joined with the card that owns it.
type Entry struct {
	MultiverseID int    `json:"multiverse_id"`
	CardName     string `json:"card_name"`
	Set          string `json:"set"`
	Rarity       string `json:"rarity"`
}

// Collision records a multiverse id claimed by more than one card. The first
// card in catalog order keeps the id.
type Collision struct {
	MultiverseID int    `json:"multiverse_id"`
	CardName     string `json:"card_name"`
	KeptCardName string `json:"kept_card_name"`
}

// RebuildResult summarizes a Rebuild.
type RebuildResult struct {
	Cards      int         `json:"cards"`
	Editions   int         `json:"editions"`
	Collisions []Collision `json:"collisions"`
}

// Store is the SQLite edition lookup database derived from the catalog.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the edition database at cfg.Paths.EditionDBPath.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.EditionDBPath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Rebuild replaces every row with the editions of cat in a single transaction.
// Multiverse ids claimed by a second card are recorded as collisions rather
// than rejected.
func (s *Store) Rebuild(ctx context.Context, cat *catalog.Catalog) (RebuildResult, error) {
	var result RebuildResult
	err := retryOnBusy(ctx, func() error {
		var txErr error
		result, txErr = s.rebuild(ctx, cat)
		return txErr
	})
	return result, err
}

func (s *Store) rebuild(ctx context.Context, cat *catalog.Catalog) (RebuildResult, error) {
	result := RebuildResult{Cards: len(cat.Cards), Collisions: []Collision{}}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin rebuild tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"editions", "edition_collisions", "rebuild_info"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return result, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO editions (multiverse_id, card_name, set_name, rarity)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(multiverse_id) DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("prepare edition insert: %w", err)
	}
	defer insert.Close()

	for _, card := range cat.Cards {
		for _, edition := range card.Editions {
			res, err := insert.ExecContext(ctx, edition.MultiverseID, card.Name, edition.Set, edition.Rarity)
			if err != nil {
				return result, fmt.Errorf("insert edition %d: %w", edition.MultiverseID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return result, fmt.Errorf("rows affected: %w", err)
			}
			if affected == 1 {
				result.Editions++
				continue
			}

			var kept string
			if err := tx.QueryRowContext(ctx,
				"SELECT card_name FROM editions WHERE multiverse_id = ?", edition.MultiverseID,
			).Scan(&kept); err != nil {
				return result, fmt.Errorf("lookup kept card for %d: %w", edition.MultiverseID, err)
			}
			if kept == card.Name {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO edition_collisions (multiverse_id, card_name, kept_card_name)
                 VALUES (?, ?, ?)`,
				edition.MultiverseID, card.Name, kept,
			); err != nil {
				return result, fmt.Errorf("record collision %d: %w", edition.MultiverseID, err)
			}
			result.Collisions = append(result.Collisions, Collision{
				MultiverseID: edition.MultiverseID,
				CardName:     card.Name,
				KeptCardName: kept,
			})
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO rebuild_info (id, rebuilt_at, card_count) VALUES (1, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), result.Cards,
	); err != nil {
		return result, fmt.Errorf("record rebuild: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit rebuild: %w", err)
	}
	return result, nil
}

// Lookup returns the edition with the given multiverse id.
func (s *Store) Lookup(ctx context.Context, multiverseID int) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT multiverse_id, card_name, set_name, rarity FROM editions WHERE multiverse_id = ?",
		multiverseID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup edition: %w", err)
	}
	return entry, true, nil
}

// EditionsForCard returns every edition kept for name, ordered by id.
func (s *Store) EditionsForCard(ctx context.Context, name string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT multiverse_id, card_name, set_name, rarity FROM editions
         WHERE card_name = ? ORDER BY multiverse_id`, name)
	if err != nil {
		return nil, fmt.Errorf("query editions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edition: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of stored editions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM editions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count editions: %w", err)
	}
	return n, nil
}

// Collisions returns every recorded multiverse id collision ordered by id.
func (s *Store) Collisions(ctx context.Context) ([]Collision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT multiverse_id, card_name, kept_card_name FROM edition_collisions
         ORDER BY multiverse_id, card_name`)
	if err != nil {
		return nil, fmt.Errorf("query collisions: %w", err)
	}
	defer rows.Close()

	var collisions []Collision
	for rows.Next() {
		var c Collision
		if err := rows.Scan(&c.MultiverseID, &c.CardName, &c.KeptCardName); err != nil {
			return nil, fmt.Errorf("scan collision: %w", err)
		}
		collisions = append(collisions, c)
	}
	return collisions, rows.Err()
}

// LastRebuilt returns when Rebuild last committed, or false if it never ran.
func (s *Store) LastRebuilt(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT rebuilt_at FROM rebuild_info WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read rebuild info: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse rebuild time: %w", err)
	}
	return ts, true, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var e Entry
	err := scanner.Scan(&e.MultiverseID, &e.CardName, &e.Set, &e.Rarity)
	return e, err
}
