// Package evaluator ranks poker hands. Given two hole cards and a board of
// three to five cards it finds the best five-card hand among all
// combinations and encodes it as a totally ordered Rank.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

// ErrTooFewCards is returned when fewer than five cards are available.
// Callers must not evaluate before the flop.
var ErrTooFewCards = fmt.Errorf("evaluator: need at least 5 cards")

// Result is the outcome of evaluating a set of cards
type Result struct {
	Rank Rank
	Best []deck.Card // the five cards forming the ranked hand
}

// Evaluate finds the best five-card hand from the hole cards plus board.
func Evaluate(hole []deck.Card, board []deck.Card) (Result, error) {
	cards := make([]deck.Card, 0, len(hole)+len(board))
	cards = append(cards, hole...)
	cards = append(cards, board...)
	if len(cards) < 5 {
		return Result{}, ErrTooFewCards
	}

	var best Result
	combinations(cards, func(five []deck.Card) {
		rank := rank5(five)
		if best.Best == nil || rank > best.Rank {
			best.Rank = rank
			best.Best = append(best.Best[:0], five...)
		}
	})
	return best, nil
}

// combinations visits every 5-card subset of cards
func combinations(cards []deck.Card, visit func([]deck.Card)) {
	n := len(cards)
	if n == 5 {
		visit(cards)
		return
	}
	pick := make([]deck.Card, 5)
	var recurse func(start, depth int)
	recurse = func(start, depth int) {
		if depth == 5 {
			visit(pick)
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			pick[depth] = cards[i]
			recurse(i+1, depth+1)
		}
	}
	recurse(0, 0)
}

// rank5 ranks exactly five cards
func rank5(cards []deck.Card) Rank {
	ranks := make([]deck.Rank, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	straightHigh, straight := straightHighCard(ranks)

	if flush && straight {
		return makeRank(StraightFlush, straightHigh)
	}

	// Group ranks by count, then order groups by count then rank. The
	// grouped ordering yields the kicker sequence for every paired category.
	counts := map[deck.Rank]int{}
	for _, r := range ranks {
		counts[r]++
	}
	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r, n := range counts {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	kickers := make([]deck.Rank, 0, 5)
	for _, g := range groups {
		kickers = append(kickers, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return makeRank(FourOfAKind, kickers...)
	case groups[0].count == 3 && groups[1].count == 2:
		return makeRank(FullHouse, kickers...)
	case flush:
		return makeRank(Flush, ranks...)
	case straight:
		return makeRank(Straight, straightHigh)
	case groups[0].count == 3:
		return makeRank(ThreeOfAKind, kickers...)
	case groups[0].count == 2 && groups[1].count == 2:
		return makeRank(TwoPair, kickers...)
	case groups[0].count == 2:
		return makeRank(OnePair, kickers...)
	default:
		return makeRank(HighCard, ranks...)
	}
}

// straightHighCard reports whether ranks (sorted descending) form a
// straight, and its high card. The wheel (A-5-4-3-2) ranks five high.
func straightHighCard(ranks []deck.Rank) (deck.Rank, bool) {
	run := true
	for i := 1; i < 5; i++ {
		if ranks[i-1]-ranks[i] != 1 {
			run = false
			break
		}
	}
	if run {
		return ranks[0], true
	}
	if ranks[0] == deck.Ace && ranks[1] == deck.Five && ranks[2] == deck.Four &&
		ranks[3] == deck.Three && ranks[4] == deck.Two {
		return deck.Five, true
	}
	return 0, false
}
