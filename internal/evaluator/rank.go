package evaluator

import (
	"fmt"

	"github.com/cardroomlabs/cardroom/internal/deck"
)

// Hand categories, weakest to strongest
const (
	HighCard = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// Rank is a totally ordered hand strength. The category lives in the top
// bits and five kicker nibbles below it, so plain integer comparison
// orders any two hands correctly: higher is stronger.
//
// Layout: category<<20 | k1<<16 | k2<<12 | k3<<8 | k4<<4 | k5
type Rank uint32

func makeRank(category int, kickers ...deck.Rank) Rank {
	r := Rank(category) << 20
	shift := 16
	for _, k := range kickers {
		r |= Rank(k) << shift
		shift -= 4
	}
	return r
}

// Category returns the hand category of the rank
func (r Rank) Category() int {
	return int(r >> 20)
}

// Compare returns 1 if r beats other, -1 if it loses, 0 on an exact tie
func (r Rank) Compare(other Rank) int {
	switch {
	case r > other:
		return 1
	case r < other:
		return -1
	default:
		return 0
	}
}

func (r Rank) kicker(i int) deck.Rank {
	return deck.Rank(r >> (16 - 4*i) & 0xF)
}

var categoryNames = [...]string{
	"High Card", "Pair", "Two Pair", "Three of a Kind", "Straight",
	"Flush", "Full House", "Four of a Kind", "Straight Flush",
}

// String returns a human-readable descriptor, e.g. "Pair of Kings" or
// "Flush, Ace high". Straight flushes to the ace report as a royal flush.
func (r Rank) String() string {
	switch r.Category() {
	case StraightFlush:
		if r.kicker(0) == deck.Ace {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", rankName(r.kicker(0)))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %ss", rankName(r.kicker(0)))
	case FullHouse:
		return fmt.Sprintf("Full House, %ss over %ss", rankName(r.kicker(0)), rankName(r.kicker(1)))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankName(r.kicker(0)))
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankName(r.kicker(0)))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %ss", rankName(r.kicker(0)))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %ss and %ss", rankName(r.kicker(0)), rankName(r.kicker(1)))
	case OnePair:
		return fmt.Sprintf("Pair of %ss", rankName(r.kicker(0)))
	default:
		return fmt.Sprintf("High Card %s", rankName(r.kicker(0)))
	}
}

func rankName(r deck.Rank) string {
	switch r {
	case deck.Ace:
		return "Ace"
	case deck.King:
		return "King"
	case deck.Queen:
		return "Queen"
	case deck.Jack:
		return "Jack"
	case deck.Ten:
		return "Ten"
	case deck.Nine:
		return "Nine"
	case deck.Eight:
		return "Eight"
	case deck.Seven:
		return "Seven"
	case deck.Six:
		return "Six"
	case deck.Five:
		return "Five"
	case deck.Four:
		return "Four"
	case deck.Three:
		return "Three"
	case deck.Two:
		return "Two"
	default:
		return "?"
	}
}
