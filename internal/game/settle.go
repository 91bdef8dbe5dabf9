package game

import (
	"sort"

	"github.com/cardroomlabs/cardroom/internal/deck"
	"github.com/cardroomlabs/cardroom/internal/evaluator"
)

// Winning is one player's share of a settled hand
type Winning struct {
	Seat     int         `json:"seat"`
	PlayerID string      `json:"playerId"`
	Name     string      `json:"name"`
	Amount   int         `json:"amount"`
	HandName string      `json:"handName,omitempty"`
	Best     []deck.Card `json:"best,omitempty"`
}

// Settlement records the outcome of a hand. It is broadcast with the
// next snapshots and handed to the persistence boundary.
type Settlement struct {
	Pot         int       `json:"pot"`
	Winnings    []Winning `json:"winnings"`
	Uncontested bool      `json:"uncontested"`
}

// Settle distributes the chips committed this hand back to winners'
// stacks and returns the settlement record.
//
// With a single live player the pot is awarded whole with no evaluation.
// Otherwise each pot layer goes to the best hand among its eligible
// seats, ties split evenly and indivisible remainder chips awarded one
// per seat starting immediately left of the dealer.
func Settle(players []*Player, board []deck.Card, dealer int) (*Settlement, error) {
	s := &Settlement{Pot: PotTotal(players)}

	var live []*Player
	for _, p := range players {
		if p.Live() {
			live = append(live, p)
		}
	}

	if len(live) == 1 {
		p := live[0]
		p.Stack += s.Pot
		s.Uncontested = true
		s.Winnings = []Winning{{Seat: p.Seat, PlayerID: p.ID, Name: p.Name, Amount: s.Pot}}
		return s, nil
	}

	results := make(map[int]evaluator.Result, len(live))
	for _, p := range live {
		res, err := evaluator.Evaluate(p.Hole, board)
		if err != nil {
			return nil, err
		}
		results[p.Seat] = res
	}

	won := make(map[int]int, len(live))
	for _, pot := range BuildPots(players) {
		winners := bestSeats(pot.Eligible, results)
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)

		// Odd chips go seat by seat starting left of the dealer.
		sort.Slice(winners, func(i, j int) bool {
			return seatOrder(winners[i], dealer, len(players)) < seatOrder(winners[j], dealer, len(players))
		})
		for i, seat := range winners {
			amount := share
			if i < remainder {
				amount++
			}
			won[seat] += amount
		}
	}

	for _, p := range players {
		if p == nil {
			continue
		}
		amount, ok := won[p.Seat]
		if !ok {
			continue
		}
		p.Stack += amount
		res := results[p.Seat]
		s.Winnings = append(s.Winnings, Winning{
			Seat:     p.Seat,
			PlayerID: p.ID,
			Name:     p.Name,
			Amount:   amount,
			HandName: res.Rank.String(),
			Best:     res.Best,
		})
	}
	return s, nil
}

// bestSeats returns the seats holding the maximal hand among eligible
func bestSeats(eligible []int, results map[int]evaluator.Result) []int {
	var best []int
	var bestRank evaluator.Rank
	for _, seat := range eligible {
		res, ok := results[seat]
		if !ok {
			continue
		}
		switch {
		case len(best) == 0 || res.Rank.Compare(bestRank) > 0:
			best = []int{seat}
			bestRank = res.Rank
		case res.Rank.Compare(bestRank) == 0:
			best = append(best, seat)
		}
	}
	return best
}

// seatOrder ranks seats by distance clockwise from the dealer button
func seatOrder(seat, dealer, numSeats int) int {
	return (seat - dealer - 1 + 2*numSeats) % numSeats
}
