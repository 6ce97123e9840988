// Package lexstore persists lookup history and favorites in a SQLite
// database. Thread-safe for concurrent use from multiple goroutines within
// one process; WAL mode plus a busy timeout keeps a second app instance from
// corrupting anything.
package lexstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"

	"github.com/dictdeck/dictdeck/internal/logging"
)

var storeLog = logging.ForComponent(logging.CompStore)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// DefaultMaxHistorySize caps the history table.
const DefaultMaxHistorySize = 1000

// HistoryEntry is one visited lookup.
type HistoryEntry struct {
	ID          string
	Keyword     string
	Groups      json.RawMessage // entry-group payload for re-opening the lookup
	ProfileID   int64
	ProfileName string
	VisitedAt   time.Time
}

// FavoriteEntry is one saved lookup.
type FavoriteEntry struct {
	ID          string
	Keyword     string
	Groups      json.RawMessage
	ProfileID   int64
	ProfileName string
	AddedAt     time.Time
}

// SortBy selects favorites ordering.
type SortBy int

const (
	SortByTime SortBy = iota // newest first
	SortByName               // locale-aware keyword order
)

// FavoritesQuery filters and orders a favorites listing.
type FavoritesQuery struct {
	SortBy    SortBy
	ProfileID int64  // 0 = all profiles
	Contains  string // case-insensitive keyword substring, "" = all
}

// Store wraps the SQLite database holding history and favorites.
type Store struct {
	db       *sql.DB
	collator *collate.Collator
}

// Open creates or opens the database at dbPath with WAL mode and a busy
// timeout, and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("lexstore: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("lexstore: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("lexstore: %s: %w", pragma, err)
		}
	}

	s := &Store{
		db:       db,
		collator: collate.New(language.Und, collate.Loose),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	storeLog.Debug("store opened", "path", dbPath)
	return s, nil
}

// SetCollation switches the locale used for name-ordered favorites.
func (s *Store) SetCollation(tag language.Tag) {
	s.collator = collate.New(tag, collate.Loose)
}

// Close checkpoints WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("lexstore: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("lexstore: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id           TEXT PRIMARY KEY,
			keyword      TEXT NOT NULL,
			group_index  TEXT NOT NULL,
			profile_id   INTEGER NOT NULL,
			profile_name TEXT NOT NULL,
			visited_at   INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("lexstore: create history: %w", err)
	}
	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_visited_at ON history(visited_at DESC)
	`); err != nil {
		return fmt.Errorf("lexstore: create history index: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			id           TEXT PRIMARY KEY,
			keyword      TEXT NOT NULL,
			group_index  TEXT NOT NULL,
			profile_id   INTEGER NOT NULL,
			profile_name TEXT NOT NULL,
			added_at     INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("lexstore: create favorites: %w", err)
	}
	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_favorites_added_at ON favorites(added_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_favorites_keyword ON favorites(keyword COLLATE NOCASE)",
		"CREATE INDEX IF NOT EXISTS idx_favorites_profile_id ON favorites(profile_id)",
	} {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("lexstore: create favorites index: %w", err)
		}
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("lexstore: set schema version: %w", err)
	}

	return tx.Commit()
}

// --- History ---

// AddHistory records a visit and prunes the table past the size cap. A zero
// ID or VisitedAt is filled in.
func (s *Store) AddHistory(e HistoryEntry) (HistoryEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.VisitedAt.IsZero() {
		e.VisitedAt = time.Now()
	}
	groups := e.Groups
	if len(groups) == 0 {
		groups = json.RawMessage("[]")
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO history (id, keyword, group_index, profile_id, profile_name, visited_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Keyword, string(groups), e.ProfileID, e.ProfileName, e.VisitedAt.UnixMilli())
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("lexstore: add history: %w", err)
	}

	if err := s.pruneHistory(); err != nil {
		return HistoryEntry{}, err
	}
	return e, nil
}

func (s *Store) pruneHistory() error {
	maxSize, err := s.MaxHistorySize()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY visited_at DESC LIMIT ?
		)
	`, maxSize)
	if err != nil {
		return fmt.Errorf("lexstore: prune history: %w", err)
	}
	return nil
}

// History returns entries newest first, up to limit (0 = all).
func (s *Store) History(limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, keyword, group_index, profile_id, profile_name, visited_at
		FROM history ORDER BY visited_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("lexstore: load history: %w", err)
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var groups string
		var visited int64
		if err := rows.Scan(&e.ID, &e.Keyword, &groups, &e.ProfileID, &e.ProfileName, &visited); err != nil {
			return nil, fmt.Errorf("lexstore: scan history: %w", err)
		}
		e.Groups = json.RawMessage(groups)
		e.VisitedAt = time.UnixMilli(visited)
		result = append(result, e)
	}
	return result, rows.Err()
}

// HistoryByID returns one entry, or sql.ErrNoRows wrapped if absent.
func (s *Store) HistoryByID(id string) (HistoryEntry, error) {
	var e HistoryEntry
	var groups string
	var visited int64
	err := s.db.QueryRow(`
		SELECT id, keyword, group_index, profile_id, profile_name, visited_at
		FROM history WHERE id = ?
	`, id).Scan(&e.ID, &e.Keyword, &groups, &e.ProfileID, &e.ProfileName, &visited)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("lexstore: history %s: %w", id, err)
	}
	e.Groups = json.RawMessage(groups)
	e.VisitedAt = time.UnixMilli(visited)
	return e, nil
}

// RemoveHistory deletes one entry by ID.
func (s *Store) RemoveHistory(id string) error {
	_, err := s.db.Exec("DELETE FROM history WHERE id = ?", id)
	return err
}

// ClearHistory deletes all history.
func (s *Store) ClearHistory() error {
	_, err := s.db.Exec("DELETE FROM history")
	return err
}

// HistoryCount returns the number of history rows.
func (s *Store) HistoryCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&n)
	return n, err
}

// MaxHistorySize returns the history cap (default DefaultMaxHistorySize).
func (s *Store) MaxHistorySize() (int, error) {
	val, err := s.GetMeta("max_history_size")
	if err != nil {
		return 0, err
	}
	if val == "" {
		return DefaultMaxHistorySize, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return DefaultMaxHistorySize, nil
	}
	return n, nil
}

// SetMaxHistorySize updates the cap and prunes immediately.
func (s *Store) SetMaxHistorySize(n int) error {
	if n <= 0 {
		return fmt.Errorf("lexstore: invalid history size %d", n)
	}
	if err := s.SetMeta("max_history_size", strconv.Itoa(n)); err != nil {
		return err
	}
	return s.pruneHistory()
}

// --- Favorites ---

// AddFavorite saves a lookup. Adding the same keyword+profile again
// replaces the stored group payload and refreshes the timestamp.
func (s *Store) AddFavorite(e FavoriteEntry) (FavoriteEntry, error) {
	if e.AddedAt.IsZero() {
		e.AddedAt = time.Now()
	}
	groups := e.Groups
	if len(groups) == 0 {
		groups = json.RawMessage("[]")
	}

	// One favorite per keyword+profile; reuse the existing row's ID.
	existing, err := s.favoriteID(e.Keyword, e.ProfileID)
	if err != nil {
		return FavoriteEntry{}, err
	}
	if existing != "" {
		e.ID = existing
	} else if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO favorites (id, keyword, group_index, profile_id, profile_name, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Keyword, string(groups), e.ProfileID, e.ProfileName, e.AddedAt.UnixMilli())
	if err != nil {
		return FavoriteEntry{}, fmt.Errorf("lexstore: add favorite: %w", err)
	}
	return e, nil
}

func (s *Store) favoriteID(keyword string, profileID int64) (string, error) {
	var id string
	err := s.db.QueryRow(
		"SELECT id FROM favorites WHERE keyword = ? AND profile_id = ?",
		keyword, profileID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lexstore: find favorite: %w", err)
	}
	return id, nil
}

// RemoveFavorite deletes the favorite for keyword in profile.
func (s *Store) RemoveFavorite(keyword string, profileID int64) error {
	_, err := s.db.Exec(
		"DELETE FROM favorites WHERE keyword = ? AND profile_id = ?",
		keyword, profileID,
	)
	return err
}

// ToggleFavorite adds the favorite if absent, removes it if present.
// Returns true when the keyword is favorited after the call.
func (s *Store) ToggleFavorite(e FavoriteEntry) (bool, error) {
	fav, err := s.IsFavorited(e.Keyword, e.ProfileID)
	if err != nil {
		return false, err
	}
	if fav {
		return false, s.RemoveFavorite(e.Keyword, e.ProfileID)
	}
	_, err = s.AddFavorite(e)
	return true, err
}

// IsFavorited reports whether keyword is saved for profile.
func (s *Store) IsFavorited(keyword string, profileID int64) (bool, error) {
	id, err := s.favoriteID(keyword, profileID)
	return id != "", err
}

// ClearFavorites deletes all favorites.
func (s *Store) ClearFavorites() error {
	_, err := s.db.Exec("DELETE FROM favorites")
	return err
}

// FavoritesCount returns the number of favorite rows.
func (s *Store) FavoritesCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM favorites").Scan(&n)
	return n, err
}

// Favorites returns favorites matching q. Name ordering is done in process
// with the configured collator, which handles locales SQLite's NOCASE
// cannot.
func (s *Store) Favorites(q FavoritesQuery) ([]FavoriteEntry, error) {
	query := `
		SELECT id, keyword, group_index, profile_id, profile_name, added_at
		FROM favorites
	`
	var args []any
	if q.ProfileID != 0 {
		query += " WHERE profile_id = ?"
		args = append(args, q.ProfileID)
	}
	query += " ORDER BY added_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexstore: load favorites: %w", err)
	}
	defer rows.Close()

	var result []FavoriteEntry
	contains := strings.ToLower(q.Contains)
	for rows.Next() {
		var e FavoriteEntry
		var groups string
		var added int64
		if err := rows.Scan(&e.ID, &e.Keyword, &groups, &e.ProfileID, &e.ProfileName, &added); err != nil {
			return nil, fmt.Errorf("lexstore: scan favorite: %w", err)
		}
		if contains != "" && !strings.Contains(strings.ToLower(e.Keyword), contains) {
			continue
		}
		e.Groups = json.RawMessage(groups)
		e.AddedAt = time.UnixMilli(added)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if q.SortBy == SortByName {
		sort.SliceStable(result, func(i, j int) bool {
			return s.collator.CompareString(result[i].Keyword, result[j].Keyword) < 0
		})
	}
	return result, nil
}

// --- Metadata ---

// SetMeta sets a key-value pair in the metadata table.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta gets a value from the metadata table. Returns "" if not found.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
