package game

import "fmt"

// Round is the room lifecycle phase
type Round int

const (
	Waiting Round = iota
	Preflop
	Flop
	Turn
	River
	ShowdownRound
)

func (r Round) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}[r]
}

// ActionKind is a player betting action
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
)

func (a ActionKind) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise"}[a]
}

// ParseActionKind parses an action name from the wire
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// BettingRound holds the state of one street of betting. Turn order is
// the room's concern; the betting round validates and applies a single
// action for a seat whose turn it is.
type BettingRound struct {
	CurrentBet     int
	MinRaise       int
	LastAggressor  int // seat of the last full bet or raise, -1 if none
	acted          []bool
	bigBlind       int
	bbSeat         int // -1 except preflop, where the big blind keeps its option
	bbActed        bool
}

// NewBettingRound creates the preflop betting round. bbSeat is the big
// blind's seat, which retains the option to act even when all bets match.
func NewBettingRound(numSeats, bigBlind, bbSeat int) *BettingRound {
	return &BettingRound{
		MinRaise:      bigBlind,
		LastAggressor: -1,
		acted:         make([]bool, numSeats),
		bigBlind:      bigBlind,
		bbSeat:        bbSeat,
	}
}

// ResetForStreet clears per-street state for the next board street
func (br *BettingRound) ResetForStreet() {
	br.CurrentBet = 0
	br.MinRaise = br.bigBlind
	br.LastAggressor = -1
	br.bbSeat = -1
	for i := range br.acted {
		br.acted[i] = false
	}
}

// Apply validates and applies one action for the given seat. On error the
// players and the round are left untouched. For Bet and Raise, amount is
// the total street bet the player is making, not the increment.
func (br *BettingRound) Apply(players []*Player, seat int, kind ActionKind, amount int) error {
	if seat < 0 || seat >= len(players) {
		return illegalf("no such seat %d", seat)
	}
	p := players[seat]
	if p == nil || !p.CanAct() {
		return illegalf("seat %d cannot act", seat)
	}

	switch kind {
	case Fold:
		p.Folded = true

	case Check:
		if p.Bet != br.CurrentBet {
			return illegalf("cannot check, %d to call", br.CurrentBet-p.Bet)
		}

	case Call:
		toCall := br.CurrentBet - p.Bet
		if toCall <= 0 {
			return illegalf("nothing to call")
		}
		pay := min(toCall, p.Stack)
		p.Stack -= pay
		p.Bet += pay
		p.TotalBet += pay
		if p.Stack == 0 {
			p.AllIn = true
		}

	case Bet, Raise:
		total := amount
		chips := total - p.Bet
		if chips <= 0 {
			return illegalf("bet must add chips")
		}
		if chips > p.Stack {
			return illegalf("insufficient chips")
		}
		if total <= br.CurrentBet {
			return illegalf("must exceed current bet of %d", br.CurrentBet)
		}
		allIn := chips == p.Stack
		if total < br.CurrentBet+br.MinRaise && !allIn {
			return illegalf("minimum raise is to %d", br.CurrentBet+br.MinRaise)
		}

		// A short all-in reopens the action but only a full raise moves
		// the minimum raise increment.
		if raise := total - br.CurrentBet; raise >= br.MinRaise {
			br.MinRaise = raise
		}
		br.CurrentBet = total
		br.LastAggressor = seat

		p.Stack -= chips
		p.Bet = total
		p.TotalBet += chips
		if p.Stack == 0 {
			p.AllIn = true
		}

		for i := range br.acted {
			br.acted[i] = false
		}

	default:
		return illegalf("unknown action")
	}

	br.acted[seat] = true
	if seat == br.bbSeat {
		br.bbActed = true
	}
	return nil
}

// MarkActed records an action for a seat without chip movement. Used for
// forced folds and checks driven by the disconnect grace timer.
func (br *BettingRound) MarkActed(seat int) {
	if seat >= 0 && seat < len(br.acted) {
		br.acted[seat] = true
	}
	if seat == br.bbSeat {
		br.bbActed = true
	}
}

// Complete reports whether the street's betting has closed: every player
// who can still act has matched the current bet and acted since the last
// aggression, and preflop the big blind has used its option.
func (br *BettingRound) Complete(players []*Player) bool {
	for seat, p := range players {
		if !p.CanAct() {
			continue
		}
		if p.Bet != br.CurrentBet || !br.acted[seat] {
			return false
		}
	}
	if br.bbSeat >= 0 && br.LastAggressor == -1 {
		bb := players[br.bbSeat]
		if bb.CanAct() && !br.bbActed {
			return false
		}
	}
	return true
}

// NextToAct returns the first seat at or after from (wrapping) that can
// still act, or -1 if none remain.
func NextToAct(players []*Player, from int) int {
	n := len(players)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		seat := (from + i) % n
		if players[seat].CanAct() {
			return seat
		}
	}
	return -1
}
