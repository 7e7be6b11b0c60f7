package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPotAmountAndMaxBet(t *testing.T) {
	pot := NewPot()
	assert.Equal(t, 0, pot.Amount())
	assert.Equal(t, 0, pot.MaxBet())

	pot.AddBet(1, 5)
	pot.AddBet(2, 8)
	pot.AddBet(1, 3)

	assert.Equal(t, 16, pot.Amount())
	assert.Equal(t, 8, pot.MaxBet())
	assert.Equal(t, 8, pot.Bet(1))
	assert.Equal(t, 0, pot.Bet(7))
	assert.Equal(t, []int{1, 2}, pot.Positions())
}

func TestPotAddBetPanicsOnNegative(t *testing.T) {
	pot := NewPot()
	assert.Panics(t, func() { pot.AddBet(1, -1) })
}

func TestPotSplit(t *testing.T) {
	pot := NewPot()
	pot.AddBet(1, 10)
	pot.AddBet(2, 4)
	pot.AddBet(3, 7)

	overflow := pot.Split(5)

	assert.Equal(t, 5, pot.Bet(1))
	assert.Equal(t, 4, pot.Bet(2))
	assert.Equal(t, 5, pot.Bet(3))
	assert.Equal(t, 5, overflow.Bet(1))
	require.NotContains(t, overflow.Bets, 2)
	assert.Equal(t, 2, overflow.Bet(3))
	assert.Equal(t, 21, pot.Amount()+overflow.Amount())
}
