// Package card implements the playing card and deck model used by the
// poker engine. Cards are serialized as short tokens like "Ah" or "10c"
// which is also the format stored in the database and sent to clients.
package card

import (
	"fmt"
	"strings"
)

const (
	MinRank = 2
	MaxRank = 14 // ace
)

// Suit is one of 's', 'h', 'd', 'c'.
type Suit byte

const (
	Spades   Suit = 's'
	Hearts   Suit = 'h'
	Diamonds Suit = 'd'
	Clubs    Suit = 'c'
)

var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// Card is a rank between 2 and 14 (ace high) together with a suit.
type Card struct {
	Rank int
	Suit Suit
}

type InvalidCardError string

func (e InvalidCardError) Error() string { return "invalid card: " + string(e) }

var rankNames = map[int]string{
	11: "J",
	12: "Q",
	13: "K",
	14: "A",
}

var namedRanks = map[string]int{
	"J": 11,
	"Q": 12,
	"K": 13,
	"A": 14,
}

// String renders the card token, e.g. "Ah" or "10c".
func (c Card) String() string {
	if name, ok := rankNames[c.Rank]; ok {
		return name + string(c.Suit)
	}
	return fmt.Sprintf("%d%c", c.Rank, c.Suit)
}

// Parse converts a card token back into a Card. It accepts exactly the
// output of String.
func Parse(token string) (Card, error) {
	if len(token) < 2 {
		return Card{}, InvalidCardError(token)
	}
	suit := Suit(token[len(token)-1])
	switch suit {
	case Spades, Hearts, Diamonds, Clubs:
	default:
		return Card{}, InvalidCardError(token)
	}

	rankToken := token[:len(token)-1]
	rank, ok := namedRanks[rankToken]
	if !ok {
		n := 0
		for _, ch := range rankToken {
			if ch < '0' || ch > '9' {
				return Card{}, InvalidCardError(token)
			}
			n = n*10 + int(ch-'0')
		}
		rank = n
	}
	if rank < MinRank || rank > MaxRank {
		return Card{}, InvalidCardError(token)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// MustParse is Parse for tokens known to be valid, typically literals in
// tests and fixtures.
func MustParse(token string) Card {
	c, err := Parse(token)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseAll parses a slice of card tokens.
func ParseAll(tokens []string) ([]Card, error) {
	cards := make([]Card, 0, len(tokens))
	for _, token := range tokens {
		c, err := Parse(token)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Tokens formats a slice of cards as tokens.
func Tokens(cards []Card) []string {
	tokens := make([]string, 0, len(cards))
	for _, c := range cards {
		tokens = append(tokens, c.String())
	}
	return tokens
}

// JoinTokens renders cards as a space separated token list, the storage
// format used by the database layer.
func JoinTokens(cards []Card) string {
	return strings.Join(Tokens(cards), " ")
}

// SplitTokens parses a space separated token list.
func SplitTokens(list string) ([]Card, error) {
	if strings.TrimSpace(list) == "" {
		return []Card{}, nil
	}
	return ParseAll(strings.Fields(list))
}

// AllCards returns the full 52 card set in a deterministic order.
func AllCards() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := MinRank; rank <= MaxRank; rank++ {
			cards = append(cards, Card{Rank: rank, Suit: suit})
		}
	}
	return cards
}
