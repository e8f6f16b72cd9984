package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// LeaderboardEntry represents one row in the leaderboard
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	PlayerName string    `json:"playerName"`
	Goals      int       `json:"goals"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// OpenDB opens (or creates) the SQLite database. ":memory:" gives a
// private in-memory database, which tests use.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		// every pooled connection would otherwise get its own empty database
		conn.SetMaxOpenConns(1)
	} else if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leaderboard (
		player_name TEXT PRIMARY KEY,
		goals INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS relay_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room_code TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_relay_events_type ON relay_events(event_type, created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		log.Error().Err(err).Msg("DB migration error")
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns a stored setting, or "" if unset
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn().Err(err).Str("key", key).Msg("read setting")
		}
		return ""
	}
	return v
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// AddGoal credits one goal to a player name and returns the new total
func (db *DB) AddGoal(playerName string) (int, error) {
	if playerName == "" {
		return 0, errors.New("empty player name")
	}
	_, err := db.conn.Exec(`
		INSERT INTO leaderboard (player_name, goals, updated_at) VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(player_name) DO UPDATE SET goals = goals + 1, updated_at = CURRENT_TIMESTAMP`,
		playerName,
	)
	if err != nil {
		return 0, fmt.Errorf("add goal: %w", err)
	}
	var total int
	err = db.conn.QueryRow("SELECT goals FROM leaderboard WHERE player_name = ?", playerName).Scan(&total)
	return total, err
}

// GetLeaderboard returns the top scorers, best first
func (db *DB) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(`
		SELECT player_name, goals, updated_at FROM leaderboard
		ORDER BY goals DESC, player_name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	rank := 1
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.PlayerName, &e.Goals, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Rank = rank
		rank++
		result = append(result, e)
	}
	return result, rows.Err()
}

// LeaderboardMap flattens entries into the name -> goals form sent to peers
func LeaderboardMap(entries []LeaderboardEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.PlayerName] = e.Goals
	}
	return m
}
