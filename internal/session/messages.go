// internal/session/messages.go
//
// Wire vocabulary of the websocket protocol.
// Responsibilities:
//   - Envelope types and the Client interface the transport implements.
//   - Intent and event names.
//   - Router errors and their mapping to stable error codes.
//   - Payload structs for events and intents.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/cards"
	"github.com/robalobadob/millebornes/internal/game"
	"github.com/robalobadob/millebornes/internal/lobby"
	"github.com/robalobadob/millebornes/internal/store"
)

// Inbound is one intent from a client: {"type": "...", "data": {...}}.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is one event for a client, same envelope.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client is a connected peer. Send must not block.
type Client interface {
	ID() string
	Send(Outbound)
}

// Intents.
const (
	InLogin       = "loginUser"
	InChat        = "sendChatMessage"
	InGetGames    = "getGames"
	InCreateGame  = "createGame"
	InJoinGame    = "joinGameFromLobby"
	InAddBot      = "addBot"
	InPlayCard    = "playCard"
	InDrawCard    = "drawCard"
	InDiscardCard = "discardCard"
	InGetHand     = "getHand"
	InRejoinGame  = "rejoinGame"
	InLeaveGame   = "leaveGame"
	InEndGame     = "endGame"
)

// Events.
const (
	EvLoginSuccess       = "loginSuccess"
	EvLoginError         = "loginError"
	EvUsersList          = "usersList"
	EvUserJoined         = "userJoined"
	EvUserLeft           = "userLeft"
	EvUserStatusChanged  = "userStatusChanged"
	EvChatMessage        = "chatMessage"
	EvGamesList          = "gamesList"
	EvJoinedGame         = "joinedGame"
	EvWaitingForOpponent = "waitingForOpponent"
	EvHandUpdated        = "handUpdated"
	EvPlayerJoined       = "playerJoined"
	EvGameStarted        = "gameStarted"
	EvGameUpdated        = "gameUpdated"
	EvCoupFourre         = "coupFourreOpportunity"
	EvNeedsDiscard       = "needsDiscard"
	EvCardExchanged      = "cardExchanged"
	EvGameOver           = "gameOver"
	EvGameEnded          = "gameEnded"
	EvPlayerLeft         = "playerLeft"
	EvPlayerDisconnected = "playerDisconnected"
	EvGameError          = "gameError"
)

var (
	ErrNotLoggedIn   = errors.New("you must be logged in")
	ErrNotSeated     = errors.New("you are not in a game")
	ErrAlreadySeated = errors.New("you are already in a game")
	ErrSeatTaken     = errors.New("seat is already connected")
	ErrBadPayload    = errors.New("malformed request")
	ErrUnknownIntent = errors.New("unknown request type")
	ErrBotsDisabled  = errors.New("computer opponents are not available")
)

// ErrorCode maps any router or engine error to a stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		return "not_logged_in"
	case errors.Is(err, ErrNotSeated):
		return "not_seated"
	case errors.Is(err, ErrAlreadySeated):
		return "already_seated"
	case errors.Is(err, ErrSeatTaken):
		return "seat_taken"
	case errors.Is(err, ErrBadPayload):
		return "bad_request"
	case errors.Is(err, ErrUnknownIntent):
		return "unknown_intent"
	case errors.Is(err, ErrBotsDisabled):
		return "bots_disabled"
	case errors.Is(err, store.ErrNotFound):
		return "game_not_found"
	case errors.Is(err, store.ErrExists):
		return "game_exists"
	case errors.Is(err, auth.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, lobby.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, lobby.ErrInvalidUsername):
		return "invalid_username"
	case errors.Is(err, lobby.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, lobby.ErrUnknownUser):
		return "not_logged_in"
	}
	return game.Code(err)
}

// Payloads.

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

type LoginSuccess struct {
	User         lobby.User          `json:"user"`
	Users        []lobby.User        `json:"users"`
	ChatMessages []lobby.ChatMessage `json:"chatMessages"`
}

type StatusChange struct {
	UserID string       `json:"userId"`
	Status lobby.Status `json:"status"`
}

// GameSummary is one row of the lobby's game list.
type GameSummary struct {
	ID          string   `json:"id"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"playerCount"`
	InProgress  bool     `json:"inProgress"`
	State       string   `json:"state"`
	HasPassword bool     `json:"hasPassword"`
	HasBot      bool     `json:"hasBot"`
}

type JoinedGame struct {
	GameID    string        `json:"gameId"`
	PlayerID  string        `json:"playerId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Game      game.Snapshot `json:"game"`
	Rejoined  bool          `json:"rejoined,omitempty"`
}

type PlayerRef struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Bot        bool   `json:"bot,omitempty"`
	Rejoined   bool   `json:"rejoined,omitempty"`
}

type CardExchanged struct {
	Discarded cards.Card `json:"discarded"`
	Drawn     cards.Card `json:"drawn"`
}

type GameOver struct {
	Winner     string        `json:"winner"`
	WinnerName string        `json:"winnerName"`
	FinalState game.Snapshot `json:"finalState"`
}

type GameEnded struct {
	GameID     string `json:"gameId"`
	Reason     string `json:"reason"`
	PlayerName string `json:"playerName,omitempty"`
}

// Intent payloads. Seat identity never comes from here.

type loginReq struct {
	Username string `json:"username"`
}

type chatReq struct {
	Message string `json:"message"`
}

type createReq struct {
	GameID   string `json:"gameId"`
	Password string `json:"password"`
}

type joinReq struct {
	GameID   string `json:"gameId"`
	Password string `json:"password"`
}

type playReq struct {
	CardIndex      *int   `json:"cardIndex"`
	TargetPlayerID string `json:"targetPlayerId"`
}

type discardReq struct {
	CardIndex *int `json:"cardIndex"`
}

type rejoinReq struct {
	Token string `json:"token"`
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// decodeText accepts either a bare JSON string or an object with field key.
func decodeText(data json.RawMessage, obj any, field *string) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*field = s
		return nil
	}
	return decode(data, obj)
}
