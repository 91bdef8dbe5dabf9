package server

import "github.com/cardroomlabs/cardroom/internal/game"

// Redact projects a table snapshot for one viewer: the viewer sees their
// own hole cards, everyone else's only when revealed at showdown. Folded
// players' cards are never revealed. The seat list is copied fresh per
// viewer, never mutated in place, so no payload can leak another
// viewer's cards.
func Redact(snap game.Snapshot, viewerID string) game.Snapshot {
	out := snap
	out.Seats = make([]game.SeatView, len(snap.Seats))
	for i, seat := range snap.Seats {
		if seat.ID != viewerID && !seat.Revealed {
			seat.Hole = nil
		}
		out.Seats[i] = seat
	}
	return out
}
