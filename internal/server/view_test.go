package server

import (
	"testing"

	"github.com/cardroomlabs/cardroom/internal/deck"
	"github.com/cardroomlabs/cardroom/internal/game"
)

func testSnapshot() game.Snapshot {
	hole := func(codes ...string) []deck.Card {
		cards := make([]deck.Card, len(codes))
		for i, code := range codes {
			c, err := deck.Parse(code)
			if err != nil {
				panic(err)
			}
			cards[i] = c
		}
		return cards
	}
	return game.Snapshot{
		RoomID: "lobby",
		Round:  "preflop",
		Seats: []game.SeatView{
			{ID: "alice", Seat: 0, Hole: hole("As", "Kd")},
			{ID: "bob", Seat: 1, Hole: hole("2c", "7h")},
			{ID: "carol", Seat: 2, Hole: hole("Qs", "Qd"), Revealed: true},
		},
	}
}

func TestRedactHidesOtherHoleCards(t *testing.T) {
	t.Parallel()

	out := Redact(testSnapshot(), "alice")

	if got := len(out.Seats[0].Hole); got != 2 {
		t.Errorf("viewer's own hole cards hidden, got %d cards", got)
	}
	if out.Seats[1].Hole != nil {
		t.Errorf("bob's hole cards leaked to alice: %v", out.Seats[1].Hole)
	}
	if got := len(out.Seats[2].Hole); got != 2 {
		t.Errorf("revealed cards should stay visible, got %d cards", got)
	}
}

func TestRedactSpectatorSeesOnlyRevealed(t *testing.T) {
	t.Parallel()

	out := Redact(testSnapshot(), "")

	if out.Seats[0].Hole != nil || out.Seats[1].Hole != nil {
		t.Errorf("spectator saw hidden cards: %v %v", out.Seats[0].Hole, out.Seats[1].Hole)
	}
	if got := len(out.Seats[2].Hole); got != 2 {
		t.Errorf("spectator should see revealed cards, got %d", got)
	}
}

func TestRedactDoesNotMutateSource(t *testing.T) {
	t.Parallel()

	snap := testSnapshot()
	_ = Redact(snap, "bob")

	for i, seat := range snap.Seats {
		if len(seat.Hole) != 2 {
			t.Errorf("seat %d of source snapshot mutated: %v", i, seat.Hole)
		}
	}
}
