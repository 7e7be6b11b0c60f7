package card

import "math/rand"

// ShuffledDeck returns the 52 card set shuffled with the given source.
// Passing a seeded source makes the deal deterministic, which the engine
// tests rely on.
func ShuffledDeck(rng *rand.Rand) []Card {
	deck := AllCards()
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck
}

// Draw removes n cards from the end of the deck and returns the shortened
// deck together with the drawn cards.
func Draw(deck []Card, n int) (remaining, drawn []Card) {
	if n > len(deck) {
		panic("not enough cards in deck")
	}
	return deck[:len(deck)-n], deck[len(deck)-n:]
}
