// internal/game/engine.go
//
// Authoritative rules engine for one Mille Bornes duel.
// Responsibilities:
//   - Seat two players, deal 6-card hands, pick a random first player.
//   - Validate and apply card plays (distance, hazard, remedy, safety).
//   - Enforce turn order, the 6-card hand limit and the discard obligation.
//   - Open and resolve the Coup Fourré interrupt window.
//   - Detect the winner at 1000 miles.
//
// Every operation validates first and mutates only after all checks pass,
// so a rejected intent leaves the game exactly as it was.
package game

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"

	"github.com/robalobadob/millebornes/internal/cards"
)

// New constructs an empty game with a freshly shuffled deck.
func New(id string, opts ...Option) *Game {
	g := &Game{ID: id, state: StateForming}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		g.rng = rand.New(rand.NewChaCha8(seed))
	}
	if g.deck == nil {
		g.deck = NewDeck(g.rng)
	}
	return g
}

// AddPlayer seats a player and deals their opening hand.
func (g *Game) AddPlayer(name string) (string, error) {
	if g.state == StateAbandoned {
		return "", ErrAbandoned
	}
	if len(g.players) >= MaxPlayers {
		return "", ErrGameFull
	}
	if g.deck.Available() < HandSize {
		return "", ErrOutOfCards
	}
	p := &Player{
		ID:     fmt.Sprintf("player_%d", len(g.players)+1),
		Name:   name,
		hand:   make([]cards.Card, 0, HandSize),
		battle: newBattle(),
	}
	for range HandSize {
		c, err := g.deck.Draw()
		if err != nil {
			return "", err
		}
		p.hand = append(p.hand, c)
	}
	g.players = append(g.players, p)
	if len(g.players) == MaxPlayers {
		g.state = StateReady
	}
	return p.ID, nil
}

// Start locks in a random first player and opens play.
func (g *Game) Start() error {
	if g.state == StateAbandoned {
		return ErrAbandoned
	}
	if len(g.players) != MaxPlayers {
		return ErrWrongPlayerCount
	}
	if g.state != StateReady {
		return ErrAlreadyStarted
	}
	g.current = g.rng.IntN(MaxPlayers)
	g.state = StateInProgress
	g.begun = true
	return nil
}

// Abandon makes the game inert. A finished game stays finished.
func (g *Game) Abandon() {
	if g.state == StateFinished {
		return
	}
	g.state = StateAbandoned
	g.pending = nil
}

// play is a validated, not yet applied card play.
type play struct {
	actor, target int
	index         int
	card          cards.Card
	interrupt     bool
}

// checkPlay runs every PlayCard validation without mutating anything.
func (g *Game) checkPlay(playerID string, cardIndex int, targetID string) (play, error) {
	if err := g.requireInProgress(); err != nil {
		return play{}, err
	}
	ai := g.indexOf(playerID)
	if ai < 0 {
		return play{}, ErrPlayerNotFound
	}
	pl := play{actor: ai, target: ai, index: cardIndex}
	if g.pending != nil {
		if g.pending.PlayerID != playerID {
			return play{}, ErrCoupFourrePending
		}
		pl.interrupt = true
	}
	if !pl.interrupt && ai != g.current {
		return play{}, ErrNotYourTurn
	}
	actor := g.players[ai]
	if cardIndex < 0 || cardIndex >= len(actor.hand) {
		return play{}, ErrInvalidCardIndex
	}
	pl.card = actor.hand[cardIndex]

	if targetID != "" {
		if pl.target = g.indexOf(targetID); pl.target < 0 {
			return play{}, fmt.Errorf("target %s: %w", targetID, ErrPlayerNotFound)
		}
	}
	// Hazards always land on the opponent whatever the client sent.
	if pl.card.Kind == cards.KindHazard {
		pl.target = 1 - ai
	}

	var err error
	switch pl.card.Kind {
	case cards.KindHazard:
		err = g.players[pl.target].battle.checkAttack(pl.card)
	case cards.KindDistance, cards.KindRemedy, cards.KindSafety:
		if pl.target != ai {
			return play{}, illegal(ReasonWrongTarget, pl.card)
		}
		err = actor.battle.checkOwn(pl.card)
	default:
		err = fmt.Errorf("unknown card kind %q", pl.card.Kind)
	}
	if err != nil {
		return play{}, err
	}
	return pl, nil
}

// PlayCard validates and applies a card from the player's hand.
// targetID may be empty (self); hazards are always re-targeted to the
// opponent. The eligible player of an open Coup Fourré may play out of turn;
// everyone else is rejected with ErrCoupFourrePending until they act.
func (g *Game) PlayCard(playerID string, cardIndex int, targetID string) (Snapshot, error) {
	pl, err := g.checkPlay(playerID, cardIndex, targetID)
	if err != nil {
		return Snapshot{}, err
	}
	actor, target := g.players[pl.actor], g.players[pl.target]

	// The eligible player's move, whatever it is, closes the window.
	window := g.pending
	g.pending = nil

	actor.hand = append(actor.hand[:pl.index], actor.hand[pl.index+1:]...)
	actor.needsDiscard = false // the hand is no longer full
	target.battle.apply(pl.card)
	if pl.interrupt && pl.card.Kind == cards.KindSafety && pl.card.Safety.Protects(window.Hazard) {
		actor.battle.coupsFourres++
	}
	g.deck.Discard(pl.card)

	if target.battle.distance >= Goal {
		g.winner = target.ID
		g.state = StateFinished
		return g.PublicSnapshot(), nil
	}

	if pl.card.Kind == cards.KindSafety {
		g.current = pl.actor
	} else {
		g.current = 1 - pl.actor
	}

	if pl.card.Kind == cards.KindHazard {
		if idx := target.findSafety(cards.SafetyFor(pl.card.Hazard)); idx >= 0 {
			g.pending = &PendingCoupFourre{PlayerID: target.ID, CardIndex: idx, Hazard: pl.card.Hazard}
		}
	}
	return g.PublicSnapshot(), nil
}

// CanPlay reports whether PlayCard would accept the play, without applying it.
func (g *Game) CanPlay(playerID string, cardIndex int, targetID string) error {
	_, err := g.checkPlay(playerID, cardIndex, targetID)
	return err
}

// LegalPlays lists the hand indices the player could play right now with
// default targeting.
func (g *Game) LegalPlays(playerID string) []int {
	p := g.player(playerID)
	if p == nil {
		return nil
	}
	var out []int
	for i := range p.hand {
		if g.CanPlay(playerID, i, "") == nil {
			out = append(out, i)
		}
	}
	return out
}

// DrawResult is either a drawn card or a discard obligation.
type DrawResult struct {
	Card         *cards.Card `json:"card,omitempty"`
	NeedsDiscard bool        `json:"needsDiscard,omitempty"`
}

// DrawCard ends the player's turn by drawing one card. With a full hand
// nothing is drawn: the player is flagged to discard and keeps the turn.
func (g *Game) DrawCard(playerID string) (DrawResult, error) {
	if err := g.requireInProgress(); err != nil {
		return DrawResult{}, err
	}
	ai := g.indexOf(playerID)
	if ai < 0 {
		return DrawResult{}, ErrPlayerNotFound
	}
	if ai != g.current {
		return DrawResult{}, ErrNotYourTurn
	}
	p := g.players[ai]
	if len(p.hand) >= HandSize {
		p.needsDiscard = true
		g.closeWindow(playerID)
		return DrawResult{NeedsDiscard: true}, nil
	}
	c, err := g.deck.Draw()
	if err != nil {
		return DrawResult{}, err
	}
	p.hand = append(p.hand, c)
	g.closeWindow(playerID)
	g.current = 1 - ai
	return DrawResult{Card: &c}, nil
}

// DiscardResult reports the card exchanged by DiscardCard.
type DiscardResult struct {
	Discarded cards.Card `json:"discarded"`
	Drawn     cards.Card `json:"drawn"`
}

// DiscardCard settles a discard obligation: the chosen card goes to the
// discard pile, a replacement is drawn and the turn passes.
func (g *Game) DiscardCard(playerID string, cardIndex int) (DiscardResult, error) {
	if err := g.requireInProgress(); err != nil {
		return DiscardResult{}, err
	}
	ai := g.indexOf(playerID)
	if ai < 0 {
		return DiscardResult{}, ErrPlayerNotFound
	}
	p := g.players[ai]
	if !p.needsDiscard {
		return DiscardResult{}, ErrNoDiscardNeeded
	}
	if cardIndex < 0 || cardIndex >= len(p.hand) {
		return DiscardResult{}, ErrInvalidCardIndex
	}
	out := DiscardResult{Discarded: p.hand[cardIndex]}
	p.hand = append(p.hand[:cardIndex], p.hand[cardIndex+1:]...)
	g.deck.Discard(out.Discarded)
	// The discard pile is non-empty now, so Draw cannot fail.
	drawn, err := g.deck.Draw()
	if err != nil {
		return DiscardResult{}, err
	}
	out.Drawn = drawn
	p.hand = append(p.hand, drawn)
	p.needsDiscard = false
	g.closeWindow(playerID)
	g.current = 1 - ai
	return out, nil
}

// IsOver reports whether a player has reached the goal.
func (g *Game) IsOver() bool {
	for _, p := range g.players {
		if p.battle.distance >= Goal {
			return true
		}
	}
	return false
}

// Winner returns the winning player id, if any.
func (g *Game) Winner() (string, bool) { return g.winner, g.winner != "" }

// State returns the lifecycle stage.
func (g *Game) State() State { return g.state }

// Started reports whether play has begun. Finished games and games
// abandoned mid-play count as started.
func (g *Game) Started() bool { return g.begun }

// CurrentPlayerID returns whose turn it is while the game is in progress,
// or who moved last once it is finished. Abandoned games have no turn.
func (g *Game) CurrentPlayerID() string {
	if (g.state != StateInProgress && g.state != StateFinished) || len(g.players) == 0 {
		return ""
	}
	return g.players[g.current].ID
}

// PendingCoupFourre returns a copy of the open interrupt window.
func (g *Game) PendingCoupFourre() (PendingCoupFourre, bool) {
	if g.pending == nil {
		return PendingCoupFourre{}, false
	}
	return *g.pending, true
}

// PlayerCount returns the number of seated players.
func (g *Game) PlayerCount() int { return len(g.players) }

// Opponent returns the id of the other seated player.
func (g *Game) Opponent(playerID string) (string, error) {
	ai := g.indexOf(playerID)
	if ai < 0 || len(g.players) < MaxPlayers {
		return "", ErrPlayerNotFound
	}
	return g.players[1-ai].ID, nil
}

func (g *Game) requireInProgress() error {
	switch g.state {
	case StateInProgress:
		return nil
	case StateAbandoned:
		return ErrAbandoned
	}
	return ErrNotInProgress
}

// closeWindow clears a Coup Fourré window owned by playerID.
func (g *Game) closeWindow(playerID string) {
	if g.pending != nil && g.pending.PlayerID == playerID {
		g.pending = nil
	}
}

func (g *Game) indexOf(playerID string) int {
	for i, p := range g.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (g *Game) player(playerID string) *Player {
	if i := g.indexOf(playerID); i >= 0 {
		return g.players[i]
	}
	return nil
}
