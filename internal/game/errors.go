// internal/game/errors.go
//
// Error taxonomy of the rules engine. Every error is a synchronous rejection
// and leaves the game untouched; ErrOutOfCards additionally means the deck
// accounting is broken and the session layer should tear the game down.

package game

import (
	"errors"
	"fmt"

	"github.com/robalobadob/millebornes/internal/cards"
)

var (
	ErrGameFull          = errors.New("game is full")
	ErrWrongPlayerCount  = errors.New("need exactly 2 players to start")
	ErrAlreadyStarted    = errors.New("game already started")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCoupFourrePending = errors.New("waiting for coup fourré response")
	ErrInvalidCardIndex  = errors.New("invalid card index")
	ErrIllegalPlay       = errors.New("illegal play")
	ErrNoDiscardNeeded   = errors.New("player does not need to discard")
	ErrOutOfCards        = errors.New("no cards left in the game")
	ErrNotInProgress     = errors.New("game is not in progress")
	ErrAbandoned         = errors.New("game abandoned")
)

// Reason explains why a play was rejected.
type Reason string

const (
	ReasonWrongTarget     Reason = "wrong_target"
	ReasonHazardActive    Reason = "hazard_active"
	ReasonSpeedLimit      Reason = "speed_limit"
	ReasonTwoHundredLimit Reason = "two_hundred_limit"
	ReasonOverGoal        Reason = "over_goal"
	ReasonProtected       Reason = "protected"
	ReasonAlreadyHazarded Reason = "already_hazarded"
	ReasonNothingToCure   Reason = "nothing_to_cure"
	ReasonAlreadyHeld     Reason = "already_held"
)

// IllegalPlayError is returned when a card cannot legally be played.
// errors.Is(err, ErrIllegalPlay) holds for every IllegalPlayError.
type IllegalPlayError struct {
	Reason Reason
	Card   cards.Card
}

func (e *IllegalPlayError) Error() string {
	switch e.Reason {
	case ReasonWrongTarget:
		if e.Card.Kind == cards.KindHazard {
			return "illegal play: cannot play hazards on yourself"
		}
		return fmt.Sprintf("illegal play: can only play %s cards on yourself", e.Card.Kind)
	case ReasonHazardActive:
		return "illegal play: cannot play distance cards while affected by a hazard"
	case ReasonSpeedLimit:
		return fmt.Sprintf("illegal play: cannot play %d miles under speed limit, maximum is %d", e.Card.Miles, SpeedLimitMiles)
	case ReasonTwoHundredLimit:
		return fmt.Sprintf("illegal play: cannot play more than %d 200-mile cards", MaxTwoHundreds)
	case ReasonOverGoal:
		return fmt.Sprintf("illegal play: cannot exceed %d miles", Goal)
	case ReasonProtected:
		return fmt.Sprintf("illegal play: target is protected by %s", cards.SafetyFor(e.Card.Hazard))
	case ReasonAlreadyHazarded:
		return "illegal play: target already has a hazard"
	case ReasonNothingToCure:
		return fmt.Sprintf("illegal play: no %s to cure", e.Card.Remedy.Cures())
	case ReasonAlreadyHeld:
		return fmt.Sprintf("illegal play: %s already in play", e.Card.Safety)
	}
	return "illegal play: " + string(e.Reason)
}

// Is lets errors.Is match the ErrIllegalPlay sentinel.
func (e *IllegalPlayError) Is(target error) bool { return target == ErrIllegalPlay }

func illegal(r Reason, c cards.Card) error { return &IllegalPlayError{Reason: r, Card: c} }

// Code maps an engine error to a stable wire code for clients.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrGameFull):
		return "game_full"
	case errors.Is(err, ErrWrongPlayerCount):
		return "wrong_player_count"
	case errors.Is(err, ErrAlreadyStarted):
		return "already_started"
	case errors.Is(err, ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrCoupFourrePending):
		return "coup_fourre_pending"
	case errors.Is(err, ErrInvalidCardIndex):
		return "invalid_card_index"
	case errors.Is(err, ErrIllegalPlay):
		return "illegal_play"
	case errors.Is(err, ErrNoDiscardNeeded):
		return "no_discard_needed"
	case errors.Is(err, ErrOutOfCards):
		return "out_of_cards"
	case errors.Is(err, ErrNotInProgress):
		return "not_in_progress"
	case errors.Is(err, ErrAbandoned):
		return "abandoned"
	}
	return "internal"
}
