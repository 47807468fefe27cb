// internal/game/deck.go
//
// Draw pile + discard pile. The top of the draw pile is the end of the
// slice. When the draw pile runs dry the discard pile is reshuffled into it.

package game

import (
	"math/rand/v2"

	"github.com/robalobadob/millebornes/internal/cards"
)

// Deck owns every card that is not in a player's hand.
type Deck struct {
	draw    []cards.Card
	discard []cards.Card
	rng     *rand.Rand
}

// NewDeck returns a shuffled full deck drawing randomness from rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{draw: cards.FullDeck(), rng: rng}
	d.Shuffle()
	return d
}

// Shuffle permutes the draw pile uniformly (Fisher–Yates).
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.draw), func(i, j int) { d.draw[i], d.draw[j] = d.draw[j], d.draw[i] })
}

// Draw removes and returns the top card, recycling the discard pile first
// when the draw pile is empty. Fails with ErrOutOfCards, unchanged, when
// both piles are empty.
func (d *Deck) Draw() (cards.Card, error) {
	if len(d.draw) == 0 {
		if len(d.discard) == 0 {
			return cards.Card{}, ErrOutOfCards
		}
		d.draw, d.discard = d.discard, nil
		d.Shuffle()
	}
	n := len(d.draw) - 1
	c := d.draw[n]
	d.draw = d.draw[:n]
	return c, nil
}

// Discard puts c on top of the discard pile.
func (d *Deck) Discard(c cards.Card) { d.discard = append(d.discard, c) }

// Available is the number of cards Draw can still hand out.
func (d *Deck) Available() int { return len(d.draw) + len(d.discard) }

func (d *Deck) DrawPileSize() int    { return len(d.draw) }
func (d *Deck) DiscardPileSize() int { return len(d.discard) }
