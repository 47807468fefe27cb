// internal/session/play.go
//
// In-game intents: playCard, drawCard, discardCard, getHand.
// Responsibilities:
//   - Run the engine call for the connection's own seat under the game lock.
//   - Broadcast the public snapshot, push the actor's hand, open Coup Fourré
//     windows for the eligible seat.
//   - Let computer opponents reply, then record results and schedule cleanup
//     once the lock is released.
//   - Tear the game down when the deck runs dry.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/internal/bot"
	"github.com/robalobadob/millebornes/internal/game"
	"github.com/robalobadob/millebornes/internal/results"
	"github.com/robalobadob/millebornes/internal/store"
)

// maxBotSteps bounds how many moves bots make in reply to one intent.
const maxBotSteps = 16

// outcome collects the follow-up work of one intent, done after the game
// lock is released.
type outcome struct {
	started  bool
	finished bool
	result   *results.Result
	teardown string
}

func (r *Router) playCard(ctx context.Context, c Client, data []byte) error {
	var req playReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.CardIndex == nil {
		return fmt.Errorf("%w: cardIndex is required", ErrBadPayload)
	}
	return r.act(ctx, c, func(g *game.Game, rm *room, pid string, out *outcome) error {
		return r.play(g, rm, pid, *req.CardIndex, req.TargetPlayerID, out)
	})
}

func (r *Router) drawCard(ctx context.Context, c Client) error {
	return r.act(ctx, c, r.draw)
}

func (r *Router) discardCard(ctx context.Context, c Client, data []byte) error {
	var req discardReq
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.CardIndex == nil {
		return fmt.Errorf("%w: cardIndex is required", ErrBadPayload)
	}
	return r.act(ctx, c, func(g *game.Game, rm *room, pid string, out *outcome) error {
		return r.discard(g, rm, pid, *req.CardIndex, out)
	})
}

func (r *Router) getHand(ctx context.Context, c Client) error {
	cn := r.seat(c.ID())
	if cn == nil {
		return ErrNotSeated
	}
	return r.store.Update(ctx, cn.gameID, func(g *game.Game) error {
		rm := r.room(g.ID)
		if rm == nil {
			return store.ErrNotFound
		}
		r.pushPrivate(g, rm, cn.playerID)
		return nil
	})
}

// act runs one engine intent for the connection's seat, then lets bots reply.
func (r *Router) act(ctx context.Context, c Client, fn func(*game.Game, *room, string, *outcome) error) error {
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
		if err := fn(g, rm, cn.playerID, &out); err != nil {
			return err
		}
		r.driveBots(g, rm, &out)
		return nil
	})
	r.settle(ctx, cn.gameID, out)
	return err
}

func (r *Router) play(g *game.Game, rm *room, pid string, idx int, target string, out *outcome) error {
	snap, err := g.PlayCard(pid, idx, target)
	if err != nil {
		return err
	}
	log.Debug().Str("gameId", g.ID).Str("playerId", pid).Int("cardIndex", idx).Msg("card played")

	r.sendRoom(rm, Outbound{Type: EvGameUpdated, Data: snap})
	r.pushHand(g, rm, pid)
	if pc, ok := g.PendingCoupFourre(); ok {
		r.sendSeat(rm, pc.PlayerID, Outbound{Type: EvCoupFourre, Data: game.CoupFourreOpportunity{
			CardIndex: pc.CardIndex,
			Hazard:    pc.Hazard,
		}})
	}
	if g.IsOver() {
		r.finishGame(g, rm, snap, out)
	}
	return nil
}

func (r *Router) draw(g *game.Game, rm *room, pid string, out *outcome) error {
	res, err := g.DrawCard(pid)
	if errors.Is(err, game.ErrOutOfCards) {
		log.Error().Err(err).Str("gameId", g.ID).Str("playerId", pid).Msg("deck exhausted, tearing game down")
		g.Abandon()
		r.sendRoom(rm, Outbound{Type: EvGameEnded, Data: GameEnded{GameID: g.ID, Reason: "out_of_cards"}})
		out.teardown = "out of cards"
		return err
	}
	if err != nil {
		return err
	}
	log.Debug().Str("gameId", g.ID).Str("playerId", pid).Bool("needsDiscard", res.NeedsDiscard).Msg("card drawn")

	r.sendRoom(rm, Outbound{Type: EvGameUpdated, Data: g.PublicSnapshot()})
	r.pushHand(g, rm, pid)
	if res.NeedsDiscard {
		r.sendSeat(rm, pid, Outbound{Type: EvNeedsDiscard})
	}
	return nil
}

func (r *Router) discard(g *game.Game, rm *room, pid string, idx int, out *outcome) error {
	res, err := g.DiscardCard(pid, idx)
	if err != nil {
		return err
	}
	log.Debug().Str("gameId", g.ID).Str("playerId", pid).Int("cardIndex", idx).Msg("card discarded")

	r.sendRoom(rm, Outbound{Type: EvGameUpdated, Data: g.PublicSnapshot()})
	r.pushHand(g, rm, pid)
	r.sendSeat(rm, pid, Outbound{Type: EvCardExchanged, Data: CardExchanged{Discarded: res.Discarded, Drawn: res.Drawn}})
	return nil
}

// driveBots plays for every bot whose move it is.
func (r *Router) driveBots(g *game.Game, rm *room, out *outcome) {
	if r.bot == nil {
		return
	}
	for range maxBotSteps {
		who := bot.ToMove(g)
		if who == "" || !r.isBot(rm, who) {
			return
		}
		a, err := r.bot.Decide(g, who)
		if err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Str("playerId", who).Msg("bot decide")
			return
		}
		switch a.Kind {
		case bot.ActionPlay:
			err = r.play(g, rm, who, a.Index, "", out)
		case bot.ActionDraw:
			err = r.draw(g, rm, who, out)
		case bot.ActionDiscard:
			err = r.discard(g, rm, who, a.Index, out)
		}
		if err != nil {
			if !errors.Is(err, game.ErrOutOfCards) {
				log.Error().Err(err).Str("gameId", g.ID).Str("playerId", who).Stringer("action", a).Msg("bot move rejected")
			}
			return
		}
	}
	log.Warn().Str("gameId", g.ID).Msg("bot step limit reached")
}

func (r *Router) finishGame(g *game.Game, rm *room, snap game.Snapshot, out *outcome) {
	winner, _ := g.Winner()
	r.mu.Lock()
	rm.over = true
	started := rm.startedAt
	winnerName := rm.names[winner]
	r.mu.Unlock()

	r.sendRoom(rm, Outbound{Type: EvGameOver, Data: GameOver{Winner: winner, WinnerName: winnerName, FinalState: snap}})
	out.finished = true

	res := results.Result{GameID: g.ID, Date: results.DateKey(time.Now()), Duration: time.Since(started)}
	for _, p := range snap.Players {
		if p.ID == winner {
			res.Winner, res.WinnerDistance, res.CoupsFourres = p.Name, p.Battle.Distance, p.Battle.CoupsFourres
		} else {
			res.Loser, res.LoserDistance = p.Name, p.Battle.Distance
		}
	}
	out.result = &res
	log.Info().Str("gameId", g.ID).Str("winner", res.Winner).Int("loserDistance", res.LoserDistance).Msg("game finished")
}

// settle does the work an intent left for after the game lock.
func (r *Router) settle(ctx context.Context, id string, out outcome) {
	if out.result != nil && r.results != nil {
		if err := r.results.Insert(ctx, *out.result); err != nil {
			log.Error().Err(err).Str("gameId", id).Msg("record result")
		}
	}
	switch {
	case out.teardown != "":
		r.remove(ctx, id)
	case out.finished:
		r.mu.Lock()
		if rm := r.rooms[id]; rm != nil {
			r.scheduleLocked(rm, r.finishedTTL, "finished")
		}
		r.mu.Unlock()
		r.broadcastGames(ctx)
	case out.started:
		r.broadcastGames(ctx)
	}
}

// pushHand sends a human seat its current hand.
func (r *Router) pushHand(g *game.Game, rm *room, pid string) {
	if r.isBot(rm, pid) {
		return
	}
	hand, err := g.PlayerHand(pid)
	if err != nil {
		return
	}
	r.sendSeat(rm, pid, Outbound{Type: EvHandUpdated, Data: hand})
}

// pushPrivate sends the hand plus any open obligation or opportunity.
func (r *Router) pushPrivate(g *game.Game, rm *room, pid string) {
	v, err := g.PrivateView(pid)
	if err != nil {
		return
	}
	r.sendSeat(rm, pid, Outbound{Type: EvHandUpdated, Data: v.Hand})
	if v.CoupFourre != nil {
		r.sendSeat(rm, pid, Outbound{Type: EvCoupFourre, Data: *v.CoupFourre})
	}
	if v.NeedsDiscard {
		r.sendSeat(rm, pid, Outbound{Type: EvNeedsDiscard})
	}
}
