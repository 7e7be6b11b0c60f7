package poker

import "sort"

// Pot tracks the chips contributed per seat position. The first pot of a
// table is the main pot, later ones are side pots created when a player
// goes all in below the amount others are betting.
type Pot struct {
	Bets map[int]int `json:"bets"`
}

func NewPot() *Pot {
	return &Pot{Bets: make(map[int]int)}
}

// Amount is the total number of chips in the pot.
func (p *Pot) Amount() int {
	sum := 0
	for _, bet := range p.Bets {
		sum += bet
	}
	return sum
}

// MaxBet is the highest contribution by a single position, 0 for an
// empty pot. It acts as the cap for further contributions once a player
// is all in.
func (p *Pot) MaxBet() int {
	max := 0
	for _, bet := range p.Bets {
		if bet > max {
			max = bet
		}
	}
	return max
}

func (p *Pot) Bet(position int) int {
	return p.Bets[position]
}

func (p *Pot) AddBet(position, bet int) {
	if bet < 0 {
		panic("negative bet added to pot")
	}
	if p.Bets == nil {
		p.Bets = make(map[int]int)
	}
	p.Bets[position] += bet
}

// Positions returns the contributing positions in ascending order.
func (p *Pot) Positions() []int {
	positions := make([]int, 0, len(p.Bets))
	for position := range p.Bets {
		positions = append(positions, position)
	}
	sort.Ints(positions)
	return positions
}

// Split caps every contribution at threshold and moves the overflow into
// a new pot, which is returned.
func (p *Pot) Split(threshold int) *Pot {
	overflow := NewPot()
	for position, bet := range p.Bets {
		if bet > threshold {
			overflow.Bets[position] = bet - threshold
			p.Bets[position] = threshold
		}
	}
	return overflow
}
