package game

import "github.com/cardroomlabs/cardroom/internal/deck"

// Player is a seated player. Seat index is stable once assigned; the
// per-hand fields (Hole, Bet, TotalBet, Folded, AllIn, InHand) are reset
// at the start of every hand.
type Player struct {
	ID   string
	Name string
	Seat int

	Stack    int
	Bet      int // chips committed this street
	TotalBet int // chips committed this hand

	Hole []deck.Card

	IsBot     bool
	Connected bool
	Ready     bool
	InHand    bool
	Folded    bool
	AllIn     bool
}

// Live reports whether the player still contests the pot this hand.
// Nil-safe so callers can range over a seat list with empty seats.
func (p *Player) Live() bool {
	return p != nil && p.InHand && !p.Folded
}

// CanAct reports whether the player may still take betting actions
func (p *Player) CanAct() bool {
	return p.Live() && !p.AllIn
}
