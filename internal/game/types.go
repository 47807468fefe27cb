// internal/game/types.go
//
// Core type definitions for the Mille Bornes rules engine.
// Defines:
//   - State: lifecycle of a game (forming → ready → in_progress → finished).
//   - Player: identity, private hand, discard obligation and battle area.
//   - PendingCoupFourre: the open interrupt window after a hazard.
//   - Game: the aggregate root owning the deck and both players.

package game

import (
	"math/rand/v2"

	"github.com/robalobadob/millebornes/internal/cards"
)

const (
	MaxPlayers      = 2
	HandSize        = 6
	Goal            = 1000
	SpeedLimitMiles = 50
	MaxTwoHundreds  = 2
)

// State is the lifecycle stage of a game.
type State string

const (
	StateForming    State = "forming"     // fewer than 2 players
	StateReady      State = "ready"       // 2 players, not started
	StateInProgress State = "in_progress" // accepting play/draw/discard
	StateFinished   State = "finished"    // winner set
	StateAbandoned  State = "abandoned"   // torn down before a winner
)

// Player is one seat of a game.
type Player struct {
	ID           string
	Name         string
	hand         []cards.Card
	needsDiscard bool
	battle       battle
}

func (p *Player) findSafety(s cards.Safety) int {
	for i, c := range p.hand {
		if c.Kind == cards.KindSafety && c.Safety == s {
			return i
		}
	}
	return -1
}

// PendingCoupFourre marks the player who may answer a hazard with its safety.
type PendingCoupFourre struct {
	PlayerID  string       `json:"playerId"`
	CardIndex int          `json:"cardIndex"`
	Hazard    cards.Hazard `json:"hazard"`
}

// Game is a single two-player race. It is not safe for concurrent use;
// callers serialize access per game (see store.Store.Update).
type Game struct {
	ID      string
	players []*Player
	deck    *Deck
	current int
	state   State
	winner  string
	pending *PendingCoupFourre
	begun   bool // Start succeeded; survives Abandon
	rng     *rand.Rand
}

// Option configures a Game at construction.
type Option func(*Game)

// WithRand makes shuffling and first-player selection deterministic.
func WithRand(r *rand.Rand) Option { return func(g *Game) { g.rng = r } }

// WithDeck deals from d instead of a freshly shuffled full deck. The caller
// keeps d and must only touch it while it holds the game's lock.
func WithDeck(d *Deck) Option { return func(g *Game) { g.deck = d } }
