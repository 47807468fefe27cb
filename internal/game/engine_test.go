package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"github.com/robalobadob/millebornes/internal/cards"
)

func TestLifecycle(t *testing.T) {
	g := New("g1", seeded(1))
	if g.State() != StateForming {
		t.Fatalf("state = %s, want forming", g.State())
	}
	a, err := g.AddPlayer("alice")
	if err != nil || a != "player_1" {
		t.Fatalf("AddPlayer = %q, %v", a, err)
	}
	if err := g.Start(); !errors.Is(err, ErrWrongPlayerCount) {
		t.Fatalf("Start with one player: %v", err)
	}
	if _, err := g.PlayCard(a, 0, ""); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("play before start: %v", err)
	}
	if _, err := g.AddPlayer("bob"); err != nil {
		t.Fatal(err)
	}
	if g.State() != StateReady {
		t.Fatalf("state = %s, want ready", g.State())
	}
	if _, err := g.AddPlayer("carol"); !errors.Is(err, ErrGameFull) {
		t.Fatalf("third player: %v", err)
	}
	for _, p := range g.players {
		if len(p.hand) != HandSize {
			t.Errorf("%s dealt %d cards", p.ID, len(p.hand))
		}
		if v := p.battle.view(); v.Hazard == nil || *v.Hazard != cards.Stop {
			t.Errorf("%s should start stopped", p.ID)
		}
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start: %v", err)
	}
	if g.CurrentPlayerID() == "" {
		t.Fatal("no current player after start")
	}
	assertSupply(t, g)
}

func TestFirstPlayerIsRandom(t *testing.T) {
	var firsts [2]int
	for seed := uint64(0); seed < 200; seed++ {
		g := New("g", seeded(seed))
		_, _ = g.AddPlayer("a")
		_, _ = g.AddPlayer("b")
		if err := g.Start(); err != nil {
			t.Fatal(err)
		}
		firsts[g.current]++
	}
	if firsts[0] < 60 || firsts[1] < 60 {
		t.Fatalf("first player distribution skewed: %v", firsts)
	}
}

func TestHazardAlwaysTargetsOpponent(t *testing.T) {
	for _, target := range []string{"", "player_1", "player_2"} {
		t.Run("target="+target, func(t *testing.T) {
			g := startedGame(t, 2)
			clearHazard(g, 1)
			stripSafeties(t, g, 1)
			rig(t, g, 0, 0, cards.HazardCard(cards.Accident))
			if _, err := g.PlayCard("player_1", 0, target); err != nil {
				t.Fatalf("PlayCard: %v", err)
			}
			if v := g.players[0].battle.view(); v.Hazard == nil || *v.Hazard != cards.Stop {
				t.Fatalf("actor battle changed: %+v", v)
			}
			if v := g.players[1].battle.view(); v.Hazard == nil || *v.Hazard != cards.Accident {
				t.Fatalf("opponent hazard = %v, want Accident", v.Hazard)
			}
		})
	}
}

func TestSpeedLimitScenario(t *testing.T) {
	g := startedGame(t, 3)
	clearHazard(g, 1) // bob has already played Go
	stripSafeties(t, g, 1)
	rig(t, g, 0, 0, cards.HazardCard(cards.SpeedLimit))
	rig(t, g, 1, 0, cards.Distance(75))
	rig(t, g, 1, 1, cards.Distance(50))

	if _, err := g.PlayCard("player_1", 0, "player_1"); err != nil {
		t.Fatalf("speed limit: %v", err)
	}
	if !g.players[1].battle.speedLimit {
		t.Fatal("bob should be under speed limit")
	}
	_, err := g.PlayCard("player_2", 0, "")
	var ipe *IllegalPlayError
	if !errors.As(err, &ipe) || ipe.Reason != ReasonSpeedLimit {
		t.Fatalf("75 under limit: %v", err)
	}
	if _, err := g.PlayCard("player_2", 1, ""); err != nil {
		t.Fatalf("50 under limit: %v", err)
	}
	if d := g.players[1].battle.distance; d != 50 {
		t.Fatalf("distance = %d, want 50", d)
	}
}

func TestCoupFourreScenario(t *testing.T) {
	g := startedGame(t, 4)
	rig(t, g, 0, 0, cards.SafetyCard(cards.DrivingAce))
	clearHazard(g, 0)
	stripSafeties(t, g, 1)
	rig(t, g, 1, 0, cards.HazardCard(cards.Accident))
	rig(t, g, 1, 1, cards.Distance(25))
	g.current = 1

	if _, err := g.PlayCard("player_2", 0, ""); err != nil {
		t.Fatalf("accident: %v", err)
	}
	pc, ok := g.PendingCoupFourre()
	if !ok || pc.PlayerID != "player_1" || pc.Hazard != cards.Accident || pc.CardIndex != 0 {
		t.Fatalf("pending = %+v, %v", pc, ok)
	}
	if v, _ := g.PrivateView("player_1"); v.CoupFourre == nil || v.CoupFourre.CardIndex != 0 {
		t.Fatalf("alice should see her opportunity: %+v", v.CoupFourre)
	}
	if v, _ := g.PrivateView("player_2"); v.CoupFourre != nil {
		t.Fatal("bob must not see alice's opportunity")
	}

	before := capture(g)
	if _, err := g.PlayCard("player_2", 0, ""); !errors.Is(err, ErrCoupFourrePending) {
		t.Fatalf("opponent play during window: %v", err)
	}
	if !reflect.DeepEqual(before, capture(g)) {
		t.Fatal("rejected play mutated the game")
	}

	if _, err := g.PlayCard("player_1", pc.CardIndex, ""); err != nil {
		t.Fatalf("coup fourré: %v", err)
	}
	b := g.players[0].battle
	if b.hazarded {
		t.Fatal("accident should be cleared")
	}
	if !b.holds(cards.DrivingAce) || b.coupsFourres != 1 {
		t.Fatalf("battle = %+v", b.view())
	}
	if _, open := g.PendingCoupFourre(); open {
		t.Fatal("window should be closed")
	}
	if g.CurrentPlayerID() != "player_1" {
		t.Fatalf("current = %s, alice should play again", g.CurrentPlayerID())
	}
}

func TestCoupFourreWindowClosesOnOtherAction(t *testing.T) {
	g := startedGame(t, 5)
	rig(t, g, 0, 0, cards.SafetyCard(cards.FuelTank))
	clearHazard(g, 0)
	stripSafeties(t, g, 1)
	rig(t, g, 1, 0, cards.HazardCard(cards.OutOfGas))
	g.current = 1
	if _, err := g.PlayCard("player_2", 0, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := g.DrawCard("player_2"); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("bob draw during window: %v", err)
	}
	if _, err := g.DrawCard("player_1"); err != nil {
		t.Fatalf("alice draw: %v", err)
	}
	if _, open := g.PendingCoupFourre(); open {
		t.Fatal("drawing should close the window")
	}
	if g.players[0].battle.hazard != cards.OutOfGas || !g.players[0].battle.hazarded {
		t.Fatal("hazard should remain")
	}
}

func TestDistanceRules(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(b *battle)
		card   cards.Card
		reason Reason
	}{
		{"stopped", func(b *battle) {}, cards.Distance(25), ReasonHazardActive},
		{"accident", func(b *battle) { b.hazard, b.hazarded = cards.Accident, true }, cards.Distance(25), ReasonHazardActive},
		{"limit blocks 75", func(b *battle) { b.hazarded, b.speedLimit = false, true }, cards.Distance(75), ReasonSpeedLimit},
		{"third 200", func(b *battle) { b.hazarded, b.twoHundreds = false, 2 }, cards.Distance(200), ReasonTwoHundredLimit},
		{"over goal", func(b *battle) { b.hazarded, b.distance = false, 950 }, cards.Distance(75), ReasonOverGoal},
		{"limit allows 50", func(b *battle) { b.hazarded, b.speedLimit = false, true }, cards.Distance(50), ""},
		{"second 200", func(b *battle) { b.hazarded, b.twoHundreds = false, 1 }, cards.Distance(200), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, 6)
			tt.setup(&g.players[0].battle)
			rig(t, g, 0, 0, tt.card)
			before := capture(g)
			_, err := g.PlayCard("player_1", 0, "")
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("want success, got %v", err)
				}
				return
			}
			var ipe *IllegalPlayError
			if !errors.As(err, &ipe) || ipe.Reason != tt.reason {
				t.Fatalf("err = %v, want reason %s", err, tt.reason)
			}
			if !errors.Is(err, ErrIllegalPlay) {
				t.Fatal("IllegalPlayError must match ErrIllegalPlay")
			}
			if !reflect.DeepEqual(before, capture(g)) {
				t.Fatal("rejected play mutated the game")
			}
		})
	}
}

func TestTwoHundredCapAcrossGame(t *testing.T) {
	g := startedGame(t, 7)
	clearHazard(g, 0)
	for i := 0; i < MaxTwoHundreds; i++ {
		g.current = 0
		rig(t, g, 0, 0, cards.Distance(200))
		if _, err := g.PlayCard("player_1", 0, ""); err != nil {
			t.Fatalf("200 #%d: %v", i+1, err)
		}
		g.current = 0
		if _, err := g.DrawCard("player_1"); err != nil {
			t.Fatal(err)
		}
	}
	g.current = 0
	rig(t, g, 0, 0, cards.Distance(200))
	if _, err := g.PlayCard("player_1", 0, ""); !errors.Is(err, ErrIllegalPlay) {
		t.Fatalf("third 200: %v", err)
	}
	if g.players[0].battle.distance != 400 {
		t.Fatalf("distance = %d", g.players[0].battle.distance)
	}
}

func TestHazardRules(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(b *battle)
		hazard cards.Hazard
		reason Reason
	}{
		{"protected", func(b *battle) { b.hazarded, b.safeties = false, []cards.Safety{cards.DrivingAce} }, cards.Accident, ReasonProtected},
		{"right of way blocks limit", func(b *battle) { b.hazarded, b.safeties = false, []cards.Safety{cards.RightOfWay} }, cards.SpeedLimit, ReasonProtected},
		{"already hazarded", func(b *battle) {}, cards.FlatTire, ReasonAlreadyHazarded},
		{"limit stacks on stop", func(b *battle) {}, cards.SpeedLimit, ""},
		{"clear target", func(b *battle) { b.hazarded = false }, cards.Stop, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := startedGame(t, 8)
			stripSafeties(t, g, 1)
			tt.setup(&g.players[1].battle)
			rig(t, g, 0, 0, cards.HazardCard(tt.hazard))
			_, err := g.PlayCard("player_1", 0, "player_2")
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("want success, got %v", err)
				}
				return
			}
			var ipe *IllegalPlayError
			if !errors.As(err, &ipe) || ipe.Reason != tt.reason {
				t.Fatalf("err = %v, want %s", err, tt.reason)
			}
		})
	}
}

func TestRemediesAndSafeties(t *testing.T) {
	g := startedGame(t, 9)
	rig(t, g, 0, 0, cards.RemedyCard(cards.Repairs))
	_, err := g.PlayCard("player_1", 0, "")
	var ipe *IllegalPlayError
	if !errors.As(err, &ipe) || ipe.Reason != ReasonNothingToCure {
		t.Fatalf("repairs on stop: %v", err)
	}

	rig(t, g, 0, 0, cards.RemedyCard(cards.Go))
	if _, err := g.PlayCard("player_1", 0, "player_2"); !errors.Is(err, ErrIllegalPlay) {
		t.Fatalf("remedy on opponent: %v", err)
	}
	if _, err := g.PlayCard("player_1", 0, ""); err != nil {
		t.Fatalf("go: %v", err)
	}
	if g.players[0].battle.hazarded {
		t.Fatal("go should clear stop")
	}

	g.current = 0
	g.players[0].battle.speedLimit = true
	g.players[0].battle.hazard, g.players[0].battle.hazarded = cards.Stop, true
	rig(t, g, 0, 1, cards.SafetyCard(cards.RightOfWay))
	if _, err := g.PlayCard("player_1", 1, ""); err != nil {
		t.Fatalf("right of way: %v", err)
	}
	b := g.players[0].battle
	if b.hazarded || b.speedLimit {
		t.Fatalf("right of way should clear stop and limit: %+v", b.view())
	}
	if g.CurrentPlayerID() != "player_1" {
		t.Fatal("safety grants another turn")
	}
	if _, err := g.DrawCard("player_1"); err != nil {
		t.Fatalf("draw after safety: %v", err)
	}
	if g.CurrentPlayerID() != "player_2" {
		t.Fatal("draw should pass the turn")
	}
}

func TestWinEndsGame(t *testing.T) {
	g := startedGame(t, 10)
	clearHazard(g, 0)
	g.players[0].battle.distance = 950
	rig(t, g, 0, 0, cards.Distance(50))
	snap, err := g.PlayCard("player_1", 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Winner != "player_1" || snap.State != StateFinished || !g.IsOver() {
		t.Fatalf("snapshot = %+v", snap)
	}
	if w, ok := g.Winner(); !ok || w != "player_1" {
		t.Fatalf("Winner = %q, %v", w, ok)
	}
	if _, err := g.DrawCard("player_2"); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("draw after finish: %v", err)
	}
	g.Abandon()
	if g.State() != StateFinished {
		t.Fatal("abandon must not undo a finished game")
	}
}

func TestFullHandMustDiscard(t *testing.T) {
	g := startedGame(t, 11)
	if _, err := g.DiscardCard("player_1", 0); !errors.Is(err, ErrNoDiscardNeeded) {
		t.Fatalf("discard without need: %v", err)
	}
	res, err := g.DrawCard("player_1")
	if err != nil || !res.NeedsDiscard || res.Card != nil {
		t.Fatalf("DrawCard = %+v, %v", res, err)
	}
	if len(g.players[0].hand) != HandSize || g.CurrentPlayerID() != "player_1" {
		t.Fatal("full-hand draw must not draw or advance")
	}
	if _, err := g.DiscardCard("player_1", HandSize); !errors.Is(err, ErrInvalidCardIndex) {
		t.Fatalf("bad index: %v", err)
	}
	want := g.players[0].hand[2]
	out, err := g.DiscardCard("player_1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Discarded.ID != want.ID {
		t.Fatalf("discarded %s, want %s", out.Discarded.ID, want.ID)
	}
	if len(g.players[0].hand) != HandSize || g.players[0].needsDiscard {
		t.Fatal("hand should be refilled and flag cleared")
	}
	if g.CurrentPlayerID() != "player_2" {
		t.Fatal("discard should pass the turn")
	}
	assertSupply(t, g)
}

func TestPlayClearsDiscardObligation(t *testing.T) {
	g := startedGame(t, 11)
	if res, err := g.DrawCard("player_1"); err != nil || !res.NeedsDiscard {
		t.Fatalf("DrawCard = %+v, %v", res, err)
	}
	rig(t, g, 0, 0, cards.RemedyCard(cards.Go))
	if _, err := g.PlayCard("player_1", 0, ""); err != nil {
		t.Fatalf("Go on the opening Stop: %v", err)
	}
	if g.players[0].needsDiscard || g.PublicSnapshot().Players[0].NeedsDiscard {
		t.Fatal("playing a card should clear the discard obligation")
	}
	if _, err := g.DiscardCard("player_1", 0); !errors.Is(err, ErrNoDiscardNeeded) {
		t.Fatalf("late discard: %v", err)
	}
	assertSupply(t, g)
}

func TestDrawReshufflesDiscardPile(t *testing.T) {
	g := startedGame(t, 12)
	p := g.players[0]
	removed := p.hand[HandSize-1]
	p.hand = p.hand[:HandSize-1]
	g.deck.discard = append(g.deck.discard, removed)
	g.deck.discard = append(g.deck.discard, g.deck.draw...)
	g.deck.draw = nil
	total := g.deck.Available()

	res, err := g.DrawCard("player_1")
	if err != nil || res.Card == nil {
		t.Fatalf("draw with empty pile: %+v, %v", res, err)
	}
	if g.deck.DiscardPileSize() != 0 || g.deck.DrawPileSize() != total-1 {
		t.Fatalf("piles = %d/%d", g.deck.DrawPileSize(), g.deck.DiscardPileSize())
	}
	assertSupply(t, g)
}

func TestOutOfCards(t *testing.T) {
	d := &Deck{rng: rand.New(rand.NewPCG(1, 2))}
	if _, err := d.Draw(); !errors.Is(err, ErrOutOfCards) {
		t.Fatalf("empty deck draw: %v", err)
	}
	g := startedGame(t, 13)
	g.players[0].hand = g.players[0].hand[:5]
	g.deck.draw, g.deck.discard = nil, nil
	if _, err := g.DrawCard("player_1"); !errors.Is(err, ErrOutOfCards) {
		t.Fatalf("exhausted draw: %v", err)
	}
	if len(g.players[0].hand) != 5 || g.CurrentPlayerID() != "player_1" {
		t.Fatal("failed draw mutated the game")
	}
	if Code(fmt.Errorf("draw: %w", ErrOutOfCards)) != "out_of_cards" {
		t.Fatal("Code should see through wrapping")
	}
}

func TestShuffleIsUniform(t *testing.T) {
	base := cards.FullDeck()[:3]
	counts := map[string]int{}
	rng := rand.New(rand.NewPCG(42, 42))
	const rounds = 6000
	for i := 0; i < rounds; i++ {
		d := &Deck{draw: append([]cards.Card{}, base...), rng: rng}
		d.Shuffle()
		counts[d.draw[0].ID+d.draw[1].ID+d.draw[2].ID]++
	}
	if len(counts) != 6 {
		t.Fatalf("saw %d permutations, want 6", len(counts))
	}
	for perm, n := range counts {
		if n < rounds/6*8/10 || n > rounds/6*12/10 {
			t.Errorf("permutation %s drawn %d times", perm, n)
		}
	}
}

func TestAbandonMakesGameInert(t *testing.T) {
	g := startedGame(t, 14)
	g.Abandon()
	if _, err := g.PlayCard("player_1", 0, ""); !errors.Is(err, ErrAbandoned) {
		t.Fatalf("play after abandon: %v", err)
	}
	if _, err := g.DrawCard("player_1"); !errors.Is(err, ErrAbandoned) {
		t.Fatalf("draw after abandon: %v", err)
	}
	if _, err := g.PlayerHand("player_1"); err != nil {
		t.Fatalf("reads stay available: %v", err)
	}
	snap := g.PublicSnapshot()
	if !snap.Started || snap.State != StateAbandoned || snap.CurrentPlayerID != "" {
		t.Fatalf("abandoned mid-game: started=%v state=%s current=%q", snap.Started, snap.State, snap.CurrentPlayerID)
	}

	early := New("g-early", seeded(14))
	if _, err := early.AddPlayer("ann"); err != nil {
		t.Fatal(err)
	}
	early.Abandon()
	if early.Started() {
		t.Fatal("a game abandoned before Start never started")
	}
}

func TestWithDeckDealsFromGivenDeck(t *testing.T) {
	d := NewDeck(rand.New(rand.NewPCG(3, 4)))
	g := New("g", seeded(3), WithDeck(d))
	for _, name := range []string{"ann", "bob"} {
		if _, err := g.AddPlayer(name); err != nil {
			t.Fatal(err)
		}
	}
	if d.DrawPileSize() != cards.DeckSize-2*HandSize {
		t.Fatalf("shared deck has %d cards, want %d", d.DrawPileSize(), cards.DeckSize-2*HandSize)
	}
	assertSupply(t, g)
}

func TestSnapshotRedactsHands(t *testing.T) {
	g := startedGame(t, 15)
	b, err := json.Marshal(g.PublicSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range g.players {
		for _, c := range p.hand {
			if strings.Contains(string(b), `"`+c.ID+`"`) {
				t.Fatalf("snapshot leaks card %s", c.ID)
			}
		}
	}
	if !strings.Contains(string(b), `"handSize":6`) || !strings.Contains(string(b), `"hazard":"Stop"`) {
		t.Fatalf("snapshot = %s", b)
	}
	if _, err := g.PlayerHand("nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("unknown hand: %v", err)
	}
}

func TestRandomIntentsPreserveInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 30; seed++ {
		g := startedGame(t, seed)
		r := rand.New(rand.NewPCG(seed, 99))
		var last [2]int
		for step := 0; step < 2000 && g.State() == StateInProgress; step++ {
			seat := r.IntN(2)
			id := g.players[seat].ID
			before := capture(g)
			var err error
			switch r.IntN(3) {
			case 0:
				target := ""
				switch r.IntN(3) {
				case 1:
					target = id
				case 2:
					target = g.players[1-seat].ID
				}
				idx := r.IntN(HandSize+2) - 1
				var card cards.Card
				if idx >= 0 && idx < len(g.players[seat].hand) {
					card = g.players[seat].hand[idx]
				}
				_, err = g.PlayCard(id, idx, target)
				if err == nil && card.Kind == cards.KindHazard {
					if !reflect.DeepEqual(before.Snap.Players[seat].Battle, g.players[seat].battle.view()) {
						t.Fatalf("seed %d step %d: hazard landed on its player", seed, step)
					}
				}
			case 1:
				_, err = g.DrawCard(id)
			default:
				_, err = g.DiscardCard(id, r.IntN(HandSize))
			}
			if err != nil {
				if errors.Is(err, ErrOutOfCards) {
					t.Fatalf("seed %d step %d: %v", seed, step, err)
				}
				if !reflect.DeepEqual(before, capture(g)) {
					t.Fatalf("seed %d step %d: failed call (%v) mutated the game", seed, step, err)
				}
				continue
			}
			assertSupply(t, g)
			for i, p := range g.players {
				d := p.battle.distance
				if d < last[i] || d > Goal {
					t.Fatalf("seed %d step %d: distance %d after %d", seed, step, d, last[i])
				}
				last[i] = d
				if len(p.hand) > HandSize {
					t.Fatalf("seed %d: %s holds %d cards", seed, p.ID, len(p.hand))
				}
			}
		}
	}
}
