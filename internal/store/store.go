// Package store persists settlement records and chat for leaderboard and
// history use. The table engine holds no durable state; this is the
// hand-off boundary.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cardroomlabs/cardroom/internal/game"
)

// Store is a sqlite-backed recorder
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open opens (and if needed initializes) the database at path
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger.WithPrefix("store")}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS hands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			pot INTEGER NOT NULL,
			uncontested INTEGER NOT NULL,
			winnings TEXT NOT NULL,
			played_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chat (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			seat INTEGER NOT NULL,
			name TEXT NOT NULL,
			message TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// RecordHand stores a settlement record. Storage failures are logged,
// not surfaced: persistence must never stall a table.
func (s *Store) RecordHand(roomID string, settlement *game.Settlement) {
	winnings, err := json.Marshal(settlement.Winnings)
	if err != nil {
		s.logger.Error("failed to encode winnings", "error", err)
		return
	}
	_, err = s.db.Exec(
		"INSERT INTO hands (room_id, pot, uncontested, winnings) VALUES (?, ?, ?, ?)",
		roomID, settlement.Pot, settlement.Uncontested, string(winnings),
	)
	if err != nil {
		s.logger.Error("failed to record hand", "room", roomID, "error", err)
	}
}

// RecordChat stores one chat line
func (s *Store) RecordChat(roomID string, m game.ChatMessage) {
	_, err := s.db.Exec(
		"INSERT INTO chat (room_id, seat, name, message, sent_at) VALUES (?, ?, ?, ?, ?)",
		roomID, m.Seat, m.Name, m.Text, m.At,
	)
	if err != nil {
		s.logger.Error("failed to record chat", "room", roomID, "error", err)
	}
}

// HandCount returns the number of hands recorded for a room
func (s *Store) HandCount(roomID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM hands WHERE room_id = ?", roomID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count hands: %w", err)
	}
	return n, nil
}

// PlayerWinnings sums a player's recorded winnings by name, for
// leaderboard display.
func (s *Store) PlayerWinnings(name string) (int, error) {
	rows, err := s.db.Query("SELECT winnings FROM hands")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, err
		}
		var winnings []game.Winning
		if err := json.Unmarshal([]byte(raw), &winnings); err != nil {
			continue
		}
		for _, w := range winnings {
			if w.Name == name {
				total += w.Amount
			}
		}
	}
	return total, rows.Err()
}
