package game

import (
	"math/rand/v2"
	"testing"

	"github.com/robalobadob/millebornes/internal/cards"
)

func seeded(seed uint64) Option { return WithRand(rand.New(rand.NewPCG(seed, 0x5eed))) }

// startedGame returns a started two-player game where player_1 moves first.
func startedGame(t *testing.T, seed uint64) *Game {
	t.Helper()
	g := New("test", seeded(seed))
	for _, name := range []string{"alice", "bob"} {
		if _, err := g.AddPlayer(name); err != nil {
			t.Fatalf("AddPlayer(%s): %v", name, err)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	g.current = 0
	return g
}

// rig puts a card with the given face into hand[slot] of a seat by swapping
// it with a matching card from the piles (or the other hand), so the supply
// stays intact.
func rig(t *testing.T, g *Game, seat, slot int, face cards.Card) {
	t.Helper()
	p := g.players[seat]
	if p.hand[slot].SameFace(face) {
		return
	}
	pools := [][]cards.Card{g.deck.draw, g.deck.discard, g.players[1-seat].hand}
	for _, pool := range pools {
		for j := range pool {
			if pool[j].SameFace(face) {
				pool[j], p.hand[slot] = p.hand[slot], pool[j]
				return
			}
		}
	}
	t.Fatalf("no %s left to rig", face)
}

// stripSafeties swaps every safety out of a seat's hand for distance cards.
func stripSafeties(t *testing.T, g *Game, seat int) {
	t.Helper()
	for i, c := range g.players[seat].hand {
		if c.Kind == cards.KindSafety {
			rig(t, g, seat, i, cards.Distance(25))
		}
	}
}

// clearHazard lifts the opening Stop so distance cards become playable.
func clearHazard(g *Game, seat int) { g.players[seat].battle.hazarded = false }

func assertSupply(t *testing.T, g *Game) {
	t.Helper()
	seen := map[string]bool{}
	got := map[string]int{}
	add := func(cs []cards.Card) {
		for _, c := range cs {
			if seen[c.ID] {
				t.Fatalf("card %s appears twice", c.ID)
			}
			seen[c.ID] = true
			got[c.Key()]++
		}
	}
	add(g.deck.draw)
	add(g.deck.discard)
	for _, p := range g.players {
		add(p.hand)
	}
	want := map[string]int{}
	for _, c := range cards.FullDeck() {
		want[c.Key()]++
	}
	if len(seen) != cards.DeckSize {
		t.Fatalf("supply has %d cards, want %d", len(seen), cards.DeckSize)
	}
	for k, n := range want {
		if got[k] != n {
			t.Fatalf("supply of %s = %d, want %d", k, got[k], n)
		}
	}
}

type fingerprint struct {
	Snap    Snapshot
	Hands   [][]cards.Card
	Pending *PendingCoupFourre
	Current int
}

func capture(g *Game) fingerprint {
	f := fingerprint{Snap: g.PublicSnapshot(), Current: g.current}
	for _, p := range g.players {
		f.Hands = append(f.Hands, append([]cards.Card{}, p.hand...))
	}
	if g.pending != nil {
		cp := *g.pending
		f.Pending = &cp
	}
	return f
}
