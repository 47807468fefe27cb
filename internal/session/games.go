// internal/session/games.go
//
// Room lifecycle intents.
// Responsibilities:
//   - createGame / joinGameFromLobby: seat a logged-in user, check the room
//     password, hand out a seat token, auto-start at two players.
//   - addBot: fill the free seat with a computer opponent.
//   - rejoinGame: rebind a seat from a seat token after a disconnect.
//   - leaveGame / endGame: abandon and clean up.

package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/bot"
	"github.com/robalobadob/millebornes/internal/game"
	"github.com/robalobadob/millebornes/internal/lobby"
	"github.com/robalobadob/millebornes/internal/store"
)

const maxGameIDLen = 40

func (r *Router) createGame(ctx context.Context, c Client, data []byte) error {
	var req createReq
	if err := decodeText(data, &req, &req.GameID); err != nil {
		return err
	}
	u, ok := r.lobby.User(c.ID())
	if !ok {
		return ErrNotLoggedIn
	}
	if r.seat(c.ID()) != nil {
		return ErrAlreadySeated
	}
	id := strings.TrimSpace(req.GameID)
	if id == "" {
		id = "game_" + uuid.NewString()[:8]
	}
	if len(id) > maxGameIDLen {
		return fmt.Errorf("%w: game id too long", ErrBadPayload)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	if err := r.store.Save(ctx, r.newGame(id)); err != nil {
		return err
	}
	r.mu.Lock()
	r.rooms[id] = &room{
		id:       id,
		password: hash,
		seats:    map[string]string{},
		names:    map[string]string{},
		bots:     map[string]bool{},
	}
	r.mu.Unlock()
	log.Info().Str("gameId", id).Str("client", c.ID()).Bool("password", hash != "").Msg("game created")

	if err := r.seatHuman(ctx, c, u, id, req.Password); err != nil {
		r.remove(ctx, id)
		return err
	}
	c.Send(Outbound{Type: EvWaitingForOpponent, Data: map[string]string{"gameId": id}})
	r.announce(fmt.Sprintf("%s created game %s", u.Username, id))
	r.broadcastGames(ctx)
	return nil
}

func (r *Router) joinGame(ctx context.Context, c Client, data []byte) error {
	var req joinReq
	if err := decodeText(data, &req, &req.GameID); err != nil {
		return err
	}
	u, ok := r.lobby.User(c.ID())
	if !ok {
		return ErrNotLoggedIn
	}
	if r.seat(c.ID()) != nil {
		return ErrAlreadySeated
	}
	if err := r.seatHuman(ctx, c, u, req.GameID, req.Password); err != nil {
		return err
	}
	r.announce(fmt.Sprintf("%s joined game %s", u.Username, req.GameID))
	r.broadcastGames(ctx)
	return nil
}

// seatHuman adds the user to the game and binds the connection to the seat.
func (r *Router) seatHuman(ctx context.Context, c Client, u lobby.User, id, password string) error {
	var out outcome
	err := r.store.Update(ctx, id, func(g *game.Game) error {
		rm := r.room(id)
		if rm == nil {
			return store.ErrNotFound
		}
		if err := auth.CheckPassword(rm.password, password); err != nil {
			return err
		}
		pid, err := g.AddPlayer(u.Username)
		if err != nil {
			return err
		}

		r.mu.Lock()
		if cn := r.conns[c.ID()]; cn != nil {
			cn.gameID, cn.playerID = id, pid
		}
		rm.seats[pid] = c.ID()
		rm.names[pid] = u.Username
		r.cancelTimerLocked(rm)
		r.mu.Unlock()
		log.Info().Str("gameId", id).Str("playerId", pid).Str("client", c.ID()).Msg("player joined")

		c.Send(Outbound{Type: EvJoinedGame, Data: r.joined(g, pid, u.Username, false)})
		r.pushHand(g, rm, pid)
		r.sendOthers(rm, pid, Outbound{Type: EvPlayerJoined, Data: PlayerRef{PlayerID: pid, PlayerName: u.Username}})
		r.maybeStart(g, rm, &out)
		return nil
	})
	if err != nil {
		return err
	}
	r.setStatus(c.ID(), lobby.StatusInGame)
	r.settle(ctx, id, out)
	return nil
}

func (r *Router) joined(g *game.Game, pid, name string, rejoined bool) JoinedGame {
	j := JoinedGame{GameID: g.ID, PlayerID: pid, Game: g.PublicSnapshot(), Rejoined: rejoined}
	if r.tokens != nil {
		tok, exp, err := r.tokens.Issue(g.ID, pid, name)
		if err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Str("playerId", pid).Msg("sign seat token")
		}
		j.Token, j.ExpiresAt = tok, exp
	}
	return j
}

// maybeStart starts a full game and lets a bot move first if it drew the turn.
func (r *Router) maybeStart(g *game.Game, rm *room, out *outcome) {
	if g.PlayerCount() != game.MaxPlayers || g.State() != game.StateReady {
		return
	}
	if err := g.Start(); err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Msg("start game")
		return
	}
	r.mu.Lock()
	rm.startedAt = time.Now()
	r.mu.Unlock()
	out.started = true
	log.Info().Str("gameId", g.ID).Str("first", g.CurrentPlayerID()).Msg("game started")

	r.sendRoom(rm, Outbound{Type: EvGameStarted, Data: g.PublicSnapshot()})
	for _, pid := range r.seatIDs(rm) {
		r.pushHand(g, rm, pid)
	}
	r.driveBots(g, rm, out)
}

func (r *Router) addBot(ctx context.Context, c Client) error {
	if r.bot == nil {
		return ErrBotsDisabled
	}
	cn := r.seat(c.ID())
	if cn == nil {
		return ErrNotSeated
	}
	var out outcome
	err := r.store.Update(ctx, cn.gameID, func(g *game.Game) error {
		rm := r.room(g.ID)
		if rm == nil {
			return store.ErrNotFound
		}
		if g.PlayerCount() >= game.MaxPlayers {
			return game.ErrGameFull
		}
		var taken []string
		for _, p := range g.PublicSnapshot().Players {
			taken = append(taken, p.Name)
		}
		name := bot.RandomName(taken...)
		pid, err := g.AddPlayer(name)
		if err != nil {
			return err
		}
		r.mu.Lock()
		rm.seats[pid] = ""
		rm.names[pid] = name
		rm.bots[pid] = true
		r.mu.Unlock()
		log.Info().Str("gameId", g.ID).Str("playerId", pid).Str("bot", name).Msg("bot joined")

		r.sendRoom(rm, Outbound{Type: EvPlayerJoined, Data: PlayerRef{PlayerID: pid, PlayerName: name, Bot: true}})
		r.maybeStart(g, rm, &out)
		return nil
	})
	if err != nil {
		return err
	}
	r.settle(ctx, cn.gameID, out)
	return nil
}

func (r *Router) rejoinGame(ctx context.Context, c Client, data []byte) error {
	var req rejoinReq
	if err := decodeText(data, &req, &req.Token); err != nil {
		return err
	}
	if r.tokens == nil {
		return auth.ErrInvalidToken
	}
	claims, err := r.tokens.Parse(req.Token)
	if err != nil {
		return err
	}
	if r.seat(c.ID()) != nil {
		return ErrAlreadySeated
	}
	err = r.store.Update(ctx, claims.GameID, func(g *game.Game) error {
		rm := r.room(g.ID)
		if rm == nil {
			return store.ErrNotFound
		}
		pid := claims.PlayerID

		r.mu.Lock()
		cur, ok := rm.seats[pid]
		if !ok || rm.bots[pid] {
			r.mu.Unlock()
			return game.ErrPlayerNotFound
		}
		if _, live := r.conns[cur]; cur != "" && cur != c.ID() && live {
			r.mu.Unlock()
			return ErrSeatTaken
		}
		rm.seats[pid] = c.ID()
		if cn := r.conns[c.ID()]; cn != nil {
			cn.gameID, cn.playerID = g.ID, pid
		}
		if !rm.over {
			r.cancelTimerLocked(rm)
		}
		name := rm.names[pid]
		r.mu.Unlock()
		log.Info().Str("gameId", g.ID).Str("playerId", pid).Str("client", c.ID()).Msg("player rejoined")

		c.Send(Outbound{Type: EvJoinedGame, Data: r.joined(g, pid, name, true)})
		r.pushPrivate(g, rm, pid)
		r.sendOthers(rm, pid, Outbound{Type: EvPlayerJoined, Data: PlayerRef{PlayerID: pid, PlayerName: name, Rejoined: true}})
		return nil
	})
	if err != nil {
		return err
	}
	r.setStatus(c.ID(), lobby.StatusInGame)
	return nil
}

func (r *Router) leaveGame(ctx context.Context, c Client) error {
	cn := r.seat(c.ID())
	if cn == nil {
		return ErrNotSeated
	}
	id, pid := cn.gameID, cn.playerID
	var name string
	var removeNow bool
	err := r.store.Update(ctx, id, func(g *game.Game) error {
		rm := r.room(id)
		if rm == nil {
			return store.ErrNotFound
		}
		r.mu.Lock()
		name = rm.names[pid]
		r.mu.Unlock()
		r.sendOthers(rm, pid, Outbound{Type: EvPlayerLeft, Data: PlayerRef{PlayerID: pid, PlayerName: name}})

		r.mu.Lock()
		defer r.mu.Unlock()
		rm.seats[pid] = ""
		if own := r.conns[c.ID()]; own != nil {
			own.gameID, own.playerID = "", ""
		}
		humans := rm.humansConnected()

		switch g.State() {
		case game.StateInProgress:
			g.Abandon()
			rm.over = true
			r.sendRoomLocked(rm, Outbound{Type: EvGameEnded, Data: GameEnded{GameID: id, Reason: "opponent_left", PlayerName: name}})
			if humans {
				r.scheduleLocked(rm, r.finishedTTL, "abandoned")
			} else {
				removeNow = true
			}
		default:
			removeNow = !humans
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("gameId", id).Str("playerId", pid).Str("client", c.ID()).Msg("player left")

	r.setStatus(c.ID(), lobby.StatusOnline)
	r.announce(fmt.Sprintf("%s left game %s", name, id))
	if removeNow {
		r.remove(ctx, id)
	} else {
		r.broadcastGames(ctx)
	}
	return nil
}

func (r *Router) endGame(ctx context.Context, c Client) error {
	cn := r.seat(c.ID())
	if cn == nil {
		return ErrNotSeated
	}
	err := r.store.Update(ctx, cn.gameID, func(g *game.Game) error {
		rm := r.room(g.ID)
		if rm == nil {
			return store.ErrNotFound
		}
		g.Abandon()
		r.mu.Lock()
		name := rm.names[cn.playerID]
		rm.over = true
		r.mu.Unlock()
		r.sendRoom(rm, Outbound{Type: EvGameEnded, Data: GameEnded{GameID: g.ID, Reason: "ended_by_player", PlayerName: name}})
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("gameId", cn.gameID).Str("playerId", cn.playerID).Msg("game ended by player")
	r.announce(fmt.Sprintf("Game %s has ended", cn.gameID))
	r.remove(ctx, cn.gameID)
	return nil
}
