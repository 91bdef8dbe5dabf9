package game

import "sort"

// Pot is a single pot layer. Side pots form when an all-in player caps
// what contenders above them can win from them.
type Pot struct {
	Amount   int
	Eligible []int // seats that can win this layer
}

// BuildPots partitions the chips committed this hand into a main pot and
// side pots. Layers are cut at each distinct all-in contribution level,
// ascending; a layer is winnable only by live players who matched it.
// Folded players' chips stay in the layers they contributed to.
func BuildPots(players []*Player) []Pot {
	levels := make([]int, 0, len(players))
	for _, p := range players {
		if p != nil && p.InHand && p.AllIn && p.TotalBet > 0 {
			levels = append(levels, p.TotalBet)
		}
	}
	sort.Ints(levels)

	// The top layer runs to the largest contribution of any player.
	top := 0
	for _, p := range players {
		if p != nil && p.TotalBet > top {
			top = p.TotalBet
		}
	}
	if top == 0 {
		return nil
	}
	if len(levels) == 0 || levels[len(levels)-1] < top {
		levels = append(levels, top)
	}

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		if level == prev {
			continue
		}
		pot := Pot{}
		for _, p := range players {
			if p == nil {
				continue
			}
			contribution := min(p.TotalBet, level) - prev
			if contribution > 0 {
				pot.Amount += contribution
			}
			if p.Live() && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, p.Seat)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = level
	}
	return pots
}

// PotTotal is the sum of all chips committed this hand
func PotTotal(players []*Player) int {
	total := 0
	for _, p := range players {
		if p != nil {
			total += p.TotalBet
		}
	}
	return total
}
