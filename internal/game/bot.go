package game

import "math/rand"

// botDecide picks an action for a house bot. Bots mostly check or call,
// with a weighted chance to raise or fold, and their decisions go through
// the same validation path as human actions.
func botDecide(rng *rand.Rand, br *BettingRound, p *Player) (ActionKind, int) {
	toCall := br.CurrentBet - p.Bet
	roll := rng.Intn(100)

	if toCall == 0 {
		// Nothing to call: occasionally bet the minimum.
		if roll < 15 && p.Stack > 0 {
			amount := min(br.CurrentBet+br.MinRaise, p.Bet+p.Stack)
			return Bet, amount
		}
		return Check, 0
	}

	if toCall >= p.Stack {
		// Calling puts the bot all-in; fold the worst of the time.
		if roll < 40 {
			return Fold, 0
		}
		return Call, 0
	}

	switch {
	case roll < 10:
		return Fold, 0
	case roll < 25 && p.Stack > toCall:
		amount := min(br.CurrentBet+br.MinRaise, p.Bet+p.Stack)
		return Raise, amount
	default:
		return Call, 0
	}
}
