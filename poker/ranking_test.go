package poker

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

func cards(tokens ...string) []card.Card {
	cs := make([]card.Card, 0, len(tokens))
	for _, token := range tokens {
		cs = append(cs, card.MustParse(token))
	}
	return cs
}

func TestRankCategories(t *testing.T) {
	examples := []struct {
		category Category
		tokens   []string
	}{
		{HighCard, []string{"2c", "4d", "6h", "8s", "10c", "Qd", "Ah"}},
		{OnePair, []string{"2c", "2d", "6h", "8s", "10c", "Qd", "Ah"}},
		{TwoPairs, []string{"2c", "2d", "6h", "6s", "10c", "Qd", "Ah"}},
		{ThreeOfAKind, []string{"2c", "2d", "2h", "6s", "10c", "Qd", "Ah"}},
		{Straight, []string{"2c", "3d", "4h", "5s", "6c", "Qd", "Ah"}},
		{Flush, []string{"2c", "5c", "8c", "10c", "Qc", "3d", "Ah"}},
		{FullHouse, []string{"2c", "2d", "2h", "6s", "6c", "Qd", "Ah"}},
		{FourOfAKind, []string{"2c", "2d", "2h", "2s", "10c", "Qd", "Ah"}},
		{StraightFlush, []string{"2c", "3c", "4c", "5c", "6c", "Qd", "Ah"}},
	}

	ranks := make([]HandRank, 0, len(examples))
	for _, example := range examples {
		r := Rank(cards(example.tokens...))
		assert.Equal(t, example.category, r.Category, "cards %v", example.tokens)
		ranks = append(ranks, r)
	}

	// One example of each category, sorted by rank, must reproduce the
	// category order.
	assert.True(t, sort.SliceIsSorted(ranks, func(i, j int) bool {
		return ranks[i].Compare(ranks[j]) < 0
	}))
}

func TestFindStraightWheel(t *testing.T) {
	r := Rank(cards("4d", "8h", "3s", "5c", "2c", "7d", "Ad"))
	require.Equal(t, Straight, r.Category)
	assert.Equal(t, []int{5}, r.Tiebreakers)
}

func TestFindStraightNoWraparound(t *testing.T) {
	r := Rank(cards("Kd", "8h", "3s", "4c", "2c", "7d", "Ad"))
	assert.NotEqual(t, Straight, r.Category)
	assert.Nil(t, findStraight(cards("Kd", "8h", "3s", "4c", "2c", "7d", "Ad")))
}

func TestRankTiebreakers(t *testing.T) {
	r := Rank(cards("Ah", "As", "Kd", "Qc", "7h", "3d", "2s"))
	require.Equal(t, OnePair, r.Category)
	assert.Equal(t, []int{14, 13, 12, 7}, r.Tiebreakers)

	r = Rank(cards("Ah", "As", "Kd", "Kc", "7h", "3d", "2s"))
	require.Equal(t, TwoPairs, r.Category)
	assert.Equal(t, []int{14, 13, 7}, r.Tiebreakers)

	r = Rank(cards("Ah", "As", "Ad", "Kc", "Kh", "3d", "2s"))
	require.Equal(t, FullHouse, r.Category)
	assert.Equal(t, []int{14, 13}, r.Tiebreakers)

	// Two triples still form a full house from the best triple and the
	// best remaining pair.
	r = Rank(cards("Ah", "As", "Ad", "Kc", "Kh", "Ks", "2s"))
	require.Equal(t, FullHouse, r.Category)
	assert.Equal(t, []int{14, 13}, r.Tiebreakers)

	r = Rank(cards("2c", "5c", "8c", "10c", "Qc", "3c", "Ah"))
	require.Equal(t, Flush, r.Category)
	assert.Equal(t, []int{12, 10, 8, 5, 3}, r.Tiebreakers)
}

func TestStraightFlushUsesFlushSuit(t *testing.T) {
	// A straight with mixed suits plus a flush must not count as a
	// straight flush.
	r := Rank(cards("2c", "3d", "4c", "5c", "6c", "8c", "Ah"))
	assert.Equal(t, Flush, r.Category)
}

func TestDetermineWinningPlayersFlushBeatsNoPair(t *testing.T) {
	open := cards("2c", "3c", "5c", "6d", "7d")
	first := &Player{Name: "first", Cards: cards("Ac", "Kc")}
	second := &Player{Name: "second", Cards: cards("Kh", "Qh")}

	winners := DetermineWinningPlayers([]*Player{first, second}, open)
	require.Len(t, winners, 1)
	assert.Equal(t, first, winners[0])
}

func TestDetermineWinningPlayersTie(t *testing.T) {
	open := cards("2c", "3c", "5c", "6d", "7d")
	first := &Player{Name: "first", Cards: cards("8h", "9h")}
	second := &Player{Name: "second", Cards: cards("8d", "9d")}

	winners := DetermineWinningPlayers([]*Player{first, second}, open)
	assert.Len(t, winners, 2)
}
