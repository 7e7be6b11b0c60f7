package poker

import (
	"sort"

	"github.com/MartinAltmayer/pokerserver-sub000/card"
)

// Category of a poker hand. Higher beats lower.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPairs
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high card"
	case OnePair:
		return "one pair"
	case TwoPairs:
		return "two pairs"
	case ThreeOfAKind:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case FourOfAKind:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	}
	return "unknown"
}

// HandRank is the value of the best five card hand found in a set of
// cards. Two ranks are compared by category first and then by comparing
// the tiebreakers lexicographically.
type HandRank struct {
	Category    Category
	Tiebreakers []int
}

// Compare returns a negative number if r is worse than other, zero if the
// hands tie and a positive number if r is better.
func (r HandRank) Compare(other HandRank) int {
	if r.Category != other.Category {
		return int(r.Category) - int(other.Category)
	}
	for i := 0; i < len(r.Tiebreakers) && i < len(other.Tiebreakers); i++ {
		if r.Tiebreakers[i] != other.Tiebreakers[i] {
			return r.Tiebreakers[i] - other.Tiebreakers[i]
		}
	}
	return len(r.Tiebreakers) - len(other.Tiebreakers)
}

// Rank evaluates the best hand in the given cards, typically the two hole
// cards plus up to five open cards. Categories are tried from the highest
// down, so the first match is the hand's value.
func Rank(cards []card.Card) HandRank {
	type finder struct {
		category Category
		find     func([]card.Card) []int
	}
	finders := []finder{
		{StraightFlush, findStraightFlush},
		{FourOfAKind, func(cs []card.Card) []int { return findNOfAKind(4, cs) }},
		{FullHouse, findFullHouse},
		{Flush, findFlush},
		{Straight, findStraight},
		{ThreeOfAKind, func(cs []card.Card) []int { return findNOfAKind(3, cs) }},
		{TwoPairs, findTwoPairs},
		{OnePair, func(cs []card.Card) []int { return findNOfAKind(2, cs) }},
	}
	for _, f := range finders {
		if tiebreakers := f.find(cards); tiebreakers != nil {
			return HandRank{Category: f.category, Tiebreakers: tiebreakers}
		}
	}
	return HandRank{Category: HighCard, Tiebreakers: findHighCard(cards, 5)}
}

func findHighCard(cards []card.Card, number int) []int {
	ranks := make([]int, 0, len(cards))
	for _, c := range cards {
		ranks = append(ranks, c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	if len(ranks) > number {
		ranks = ranks[:number]
	}
	return ranks
}

func countRanks(cards []card.Card) map[int]int {
	counts := make(map[int]int)
	for _, c := range cards {
		counts[c.Rank]++
	}
	return counts
}

// ranksByCount returns the distinct ranks ordered by count descending,
// ranks with equal count by rank descending.
func ranksByCount(counts map[int]int) []int {
	ranks := make([]int, 0, len(counts))
	for rank := range counts {
		ranks = append(ranks, rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if counts[ranks[i]] != counts[ranks[j]] {
			return counts[ranks[i]] > counts[ranks[j]]
		}
		return ranks[i] > ranks[j]
	})
	return ranks
}

func findNOfAKind(n int, cards []card.Card) []int {
	counts := countRanks(cards)
	ranks := ranksByCount(counts)
	best := ranks[0]
	if counts[best] < n {
		return nil
	}
	kickers := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		if c.Rank != best {
			kickers = append(kickers, c)
		}
	}
	return append([]int{best}, findHighCard(kickers, 5-n)...)
}

func findTwoPairs(cards []card.Card) []int {
	counts := countRanks(cards)
	ranks := ranksByCount(counts)
	if len(ranks) < 2 || counts[ranks[1]] < 2 {
		return nil
	}
	rank1, rank2 := ranks[0], ranks[1]
	kickers := make([]card.Card, 0, len(cards))
	for _, c := range cards {
		if c.Rank != rank1 && c.Rank != rank2 {
			kickers = append(kickers, c)
		}
	}
	return append([]int{rank1, rank2}, findHighCard(kickers, 1)...)
}

// findStraight returns the high rank of the best straight, if any. The
// ace counts both above the king and below the two, so A-2-3-4-5 ranks as
// a five high straight. There is no wraparound beyond that.
func findStraight(cards []card.Card) []int {
	distinct := make(map[int]bool)
	for _, c := range cards {
		distinct[c.Rank] = true
	}
	ranks := make([]int, 0, len(distinct))
	for rank := range distinct {
		ranks = append(ranks, rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	if len(ranks) > 0 && ranks[0] == card.MaxRank {
		ranks = append(ranks, card.MinRank-1)
	}
	for i := 0; i+5 <= len(ranks); i++ {
		straight := true
		for j := 1; j < 5; j++ {
			if ranks[i+j] != ranks[i]-j {
				straight = false
				break
			}
		}
		if straight {
			return []int{ranks[i]}
		}
	}
	return nil
}

func findFlushCards(cards []card.Card) []card.Card {
	counts := make(map[card.Suit]int)
	for _, c := range cards {
		counts[c.Suit]++
	}
	for suit, count := range counts {
		if count >= 5 {
			flush := make([]card.Card, 0, count)
			for _, c := range cards {
				if c.Suit == suit {
					flush = append(flush, c)
				}
			}
			return flush
		}
	}
	return nil
}

func findFlush(cards []card.Card) []int {
	flush := findFlushCards(cards)
	if flush == nil {
		return nil
	}
	return findHighCard(flush, 5)
}

func findFullHouse(cards []card.Card) []int {
	counts := countRanks(cards)
	ranks := ranksByCount(counts)
	if len(ranks) < 2 || counts[ranks[0]] < 3 || counts[ranks[1]] < 2 {
		return nil
	}
	return []int{ranks[0], ranks[1]}
}

func findStraightFlush(cards []card.Card) []int {
	flush := findFlushCards(cards)
	if flush == nil {
		return nil
	}
	return findStraight(flush)
}

// DetermineWinningPlayers returns every player whose hole cards combined
// with the open cards form the best hand. Multiple players share a win
// when their hands tie exactly.
func DetermineWinningPlayers(players []*Player, openCards []card.Card) []*Player {
	var best HandRank
	var winners []*Player
	for _, player := range players {
		r := Rank(append(append([]card.Card{}, player.Cards...), openCards...))
		switch {
		case winners == nil || r.Compare(best) > 0:
			best = r
			winners = []*Player{player}
		case r.Compare(best) == 0:
			winners = append(winners, player)
		}
	}
	return winners
}
