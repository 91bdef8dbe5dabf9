package game

import (
	"time"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

// ChatMessage is one chat line, append-only per room
type ChatMessage struct {
	Seat int       `json:"seat"`
	Name string    `json:"name"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// SeatView is a player's state as seen in a snapshot. Hole carries the
// actual cards; the gateway redacts it per viewer before sending.
type SeatView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Seat      int         `json:"seat"`
	Stack     int         `json:"stack"`
	Bet       int         `json:"bet"`
	Hole      []deck.Card `json:"hole,omitempty"`
	Revealed  bool        `json:"revealed"`
	IsBot     bool        `json:"isBot"`
	Connected bool        `json:"connected"`
	Ready     bool        `json:"ready"`
	InHand    bool        `json:"inHand"`
	Folded    bool        `json:"folded"`
	AllIn     bool        `json:"allIn"`
}

// Snapshot is an immutable copy of the table state taken at the end of a
// mutation. Broadcast construction works from snapshots only, so it can
// run concurrently with the next queued mutation.
type Snapshot struct {
	RoomID     string        `json:"roomId"`
	Round      string        `json:"round"`
	Board      []deck.Card   `json:"board"`
	Pot        int           `json:"pot"`
	Dealer     int           `json:"dealer"`
	Acting     int           `json:"acting"`
	CurrentBet int           `json:"currentBet"`
	MinRaise   int           `json:"minRaise"`
	SmallBlind int           `json:"smallBlind"`
	BigBlind   int           `json:"bigBlind"`
	Seats      []SeatView    `json:"seats"`
	Chat       []ChatMessage `json:"chat"`
	LastResult *Settlement   `json:"lastResult,omitempty"`
}
