// internal/session/router.go
//
// Session router: the owner of every live game and of the lobby.
// Responsibilities:
//   - Track connections, lobby logins and which seat each connection holds.
//   - Route intents to the right game under that game's lock.
//   - Broadcast public snapshots to both seats and private hands to one.
//   - Drive computer opponents, record results, schedule cleanup.
//
// Locking: game locks (store.Update) may take r.mu, never the reverse.
// Client.Send never blocks, so events are emitted while the game lock is
// held and arrive in the order the game changed.

package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/bot"
	"github.com/robalobadob/millebornes/internal/game"
	"github.com/robalobadob/millebornes/internal/lobby"
	"github.com/robalobadob/millebornes/internal/results"
	"github.com/robalobadob/millebornes/internal/store"
)

// Recorder persists finished games.
type Recorder interface {
	Insert(ctx context.Context, r results.Result) error
}

// Options configures a Router. Zero TTLs remove games right away.
type Options struct {
	Store       store.Store
	Tokens      *auth.Issuer
	Results     Recorder    // optional
	Bot         *bot.Policy // optional; addBot is refused without it
	ChatHistory int
	FinishedTTL time.Duration
	EmptyTTL    time.Duration
	NewGame     func(id string) *game.Game // optional, for seeded games in tests
}

type conn struct {
	client   Client
	gameID   string
	playerID string
}

// room is the router's bookkeeping for one game.
type room struct {
	id        string
	password  string            // bcrypt hash, "" for open rooms
	seats     map[string]string // playerID -> connID, "" while disconnected
	names     map[string]string // playerID -> display name
	bots      map[string]bool
	startedAt time.Time
	over      bool // finished or abandoned; a removal timer is already armed
	timer     *time.Timer
	timerGen  int
}

func (rm *room) humansConnected() bool {
	for pid, cid := range rm.seats {
		if !rm.bots[pid] && cid != "" {
			return true
		}
	}
	return false
}

// Router owns every live game, the lobby and the connection → seat bindings.
// It is safe for concurrent use.
type Router struct {
	store       store.Store
	lobby       *lobby.Lobby
	tokens      *auth.Issuer
	results     Recorder
	bot         *bot.Policy
	newGame     func(id string) *game.Game
	finishedTTL time.Duration
	emptyTTL    time.Duration

	mu    sync.Mutex
	conns map[string]*conn
	rooms map[string]*room
}

// New builds a Router. A nil Store gets an in-memory one.
func New(o Options) *Router {
	if o.Store == nil {
		o.Store = store.NewMemoryStore()
	}
	if o.NewGame == nil {
		o.NewGame = func(id string) *game.Game { return game.New(id) }
	}
	return &Router{
		store:       o.Store,
		lobby:       lobby.New(o.ChatHistory),
		tokens:      o.Tokens,
		results:     o.Results,
		bot:         o.Bot,
		newGame:     o.NewGame,
		finishedTTL: o.FinishedTTL,
		emptyTTL:    o.EmptyTTL,
		conns:       map[string]*conn{},
		rooms:       map[string]*room{},
	}
}

// Connect registers a client. Calling it twice is harmless.
func (r *Router) Connect(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID()]; !ok {
		r.conns[c.ID()] = &conn{client: c}
	}
	log.Debug().Str("client", c.ID()).Msg("client connected")
}

// Handle processes one intent. Failures are reported to the client only.
func (r *Router) Handle(ctx context.Context, c Client, in Inbound) {
	r.Connect(c)
	log.Debug().Str("client", c.ID()).Str("event", in.Type).Msg("intent")

	var err error
	switch in.Type {
	case InLogin:
		err = r.login(c, in.Data)
	case InChat:
		err = r.chat(c, in.Data)
	case InGetGames:
		c.Send(Outbound{Type: EvGamesList, Data: r.Games(ctx)})
	case InCreateGame:
		err = r.createGame(ctx, c, in.Data)
	case InJoinGame:
		err = r.joinGame(ctx, c, in.Data)
	case InAddBot:
		err = r.addBot(ctx, c)
	case InPlayCard:
		err = r.playCard(ctx, c, in.Data)
	case InDrawCard:
		err = r.drawCard(ctx, c)
	case InDiscardCard:
		err = r.discardCard(ctx, c, in.Data)
	case InGetHand:
		err = r.getHand(ctx, c)
	case InRejoinGame:
		err = r.rejoinGame(ctx, c, in.Data)
	case InLeaveGame:
		err = r.leaveGame(ctx, c)
	case InEndGame:
		err = r.endGame(ctx, c)
	default:
		err = ErrUnknownIntent
	}
	if err != nil {
		r.reject(c, in.Type, err)
	}
}

func (r *Router) reject(c Client, intent string, err error) {
	p := ErrorPayload{Code: ErrorCode(err), Message: err.Error(), Intent: intent}
	var ipe *game.IllegalPlayError
	if errors.As(err, &ipe) {
		p.Reason = string(ipe.Reason)
	}
	log.Debug().Err(err).Str("client", c.ID()).Str("event", intent).Str("code", p.Code).Msg("intent rejected")
	if intent == InLogin {
		c.Send(Outbound{Type: EvLoginError, Data: p})
		return
	}
	c.Send(Outbound{Type: EvGameError, Data: p})
}

// Disconnect forgets a client. Its seat, if any, stays reserved for a
// rejoin until the empty-game timer fires.
func (r *Router) Disconnect(ctx context.Context, c Client) {
	r.mu.Lock()
	cn, ok := r.conns[c.ID()]
	delete(r.conns, c.ID())
	var gameID, playerID, name string
	if ok && cn.gameID != "" {
		gameID, playerID = cn.gameID, cn.playerID
		if rm := r.rooms[gameID]; rm != nil {
			if rm.seats[playerID] == c.ID() {
				rm.seats[playerID] = ""
			}
			name = rm.names[playerID]
			r.sendRoomLocked(rm, Outbound{Type: EvPlayerDisconnected, Data: PlayerRef{PlayerID: playerID, PlayerName: name}})
			if !rm.over && !rm.humansConnected() {
				r.scheduleLocked(rm, r.emptyTTL, "all players disconnected")
			}
		}
	}
	r.mu.Unlock()

	if u, ok := r.lobby.RemoveUser(c.ID()); ok {
		r.broadcastLobby(Outbound{Type: EvUserLeft, Data: u.ID})
		r.broadcastLobby(Outbound{Type: EvUsersList, Data: r.lobby.Users()})
		if gameID != "" {
			r.announce(u.Username + " left game " + gameID)
		}
	}
	log.Info().Str("client", c.ID()).Str("gameId", gameID).Str("playerId", playerID).Msg("client disconnected")
}

/* ------------------------------ lobby ---------------------------------- */

func (r *Router) login(c Client, data []byte) error {
	var req loginReq
	if err := decodeText(data, &req, &req.Username); err != nil {
		return err
	}
	u, err := r.lobby.AddUser(c.ID(), req.Username)
	if err != nil {
		return err
	}
	if r.seat(c.ID()) != nil {
		u, _ = r.lobby.SetStatus(c.ID(), lobby.StatusInGame)
	}
	c.Send(Outbound{Type: EvLoginSuccess, Data: LoginSuccess{
		User:         u,
		Users:        r.lobby.Users(),
		ChatMessages: r.lobby.History(0),
	}})
	r.broadcastLobbyExcept(c.ID(), Outbound{Type: EvUserJoined, Data: u})
	r.broadcastLobby(Outbound{Type: EvUsersList, Data: r.lobby.Users()})
	log.Info().Str("client", c.ID()).Str("user", u.Username).Msg("user logged in")
	return nil
}

func (r *Router) chat(c Client, data []byte) error {
	var req chatReq
	if err := decodeText(data, &req, &req.Message); err != nil {
		return err
	}
	m, err := r.lobby.Say(c.ID(), req.Message)
	if err != nil {
		return err
	}
	r.broadcastLobby(Outbound{Type: EvChatMessage, Data: m})
	return nil
}

func (r *Router) announce(text string) {
	r.broadcastLobby(Outbound{Type: EvChatMessage, Data: r.lobby.Announce(text)})
}

func (r *Router) setStatus(connID string, s lobby.Status) {
	if _, ok := r.lobby.SetStatus(connID, s); ok {
		r.broadcastLobby(Outbound{Type: EvUserStatusChanged, Data: StatusChange{UserID: connID, Status: s}})
	}
}

// broadcastLobby sends to every logged-in connection that is not seated.
func (r *Router) broadcastLobby(msg Outbound) { r.broadcastLobbyExcept("", msg) }

func (r *Router) broadcastLobbyExcept(skip string, msg Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cn := range r.conns {
		if id == skip || cn.gameID != "" {
			continue
		}
		if _, ok := r.lobby.User(id); ok {
			cn.client.Send(msg)
		}
	}
}

func (r *Router) broadcastGames(ctx context.Context) {
	r.broadcastLobby(Outbound{Type: EvGamesList, Data: r.Games(ctx)})
}

/* ------------------------------ queries -------------------------------- */

// Games lists every registered game, sorted by id.
func (r *Router) Games(ctx context.Context) []GameSummary {
	out := []GameSummary{}
	r.store.Range(ctx, func(g *game.Game) {
		s := g.PublicSnapshot()
		gs := GameSummary{
			ID:          g.ID,
			Players:     make([]string, 0, len(s.Players)),
			PlayerCount: len(s.Players),
			InProgress:  s.Started && s.State == game.StateInProgress,
			State:       string(s.State),
		}
		for _, p := range s.Players {
			gs.Players = append(gs.Players, p.Name)
		}
		r.mu.Lock()
		if rm := r.rooms[g.ID]; rm != nil {
			gs.HasPassword = rm.password != ""
			gs.HasBot = len(rm.bots) > 0
		}
		r.mu.Unlock()
		out = append(out, gs)
	})
	return out
}

// Snapshot returns the public view of one game.
func (r *Router) Snapshot(ctx context.Context, id string) (game.Snapshot, error) {
	var s game.Snapshot
	err := r.store.Update(ctx, id, func(g *game.Game) error {
		s = g.PublicSnapshot()
		return nil
	})
	return s, err
}

// PrivateView returns one seat's hand and interrupt window.
func (r *Router) PrivateView(ctx context.Context, gameID, playerID string) (game.PrivateView, error) {
	var v game.PrivateView
	err := r.store.Update(ctx, gameID, func(g *game.Game) error {
		var err error
		v, err = g.PrivateView(playerID)
		return err
	})
	return v, err
}

// ActiveGames counts games currently being played.
func (r *Router) ActiveGames(ctx context.Context) int {
	n := 0
	r.store.Range(ctx, func(g *game.Game) {
		if g.State() == game.StateInProgress {
			n++
		}
	})
	return n
}

// OnlineUsers counts logged-in lobby users.
func (r *Router) OnlineUsers() int { return len(r.lobby.Users()) }

/* ------------------------------ plumbing ------------------------------- */

// seat returns the connection's binding, or nil when it holds no seat.
func (r *Router) seat(connID string) *conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	cn, ok := r.conns[connID]
	if !ok || cn.gameID == "" {
		return nil
	}
	cp := *cn
	return &cp
}

func (r *Router) room(id string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

func (r *Router) sendRoom(rm *room, msg Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendRoomLocked(rm, msg)
}

func (r *Router) sendRoomLocked(rm *room, msg Outbound) {
	for _, cid := range rm.seats {
		if cn := r.conns[cid]; cid != "" && cn != nil {
			cn.client.Send(msg)
		}
	}
}

func (r *Router) sendSeat(rm *room, playerID string, msg Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cn := r.conns[rm.seats[playerID]]; cn != nil {
		cn.client.Send(msg)
	}
}

func (r *Router) sendOthers(rm *room, playerID string, msg Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pid, cid := range rm.seats {
		if cn := r.conns[cid]; pid != playerID && cn != nil {
			cn.client.Send(msg)
		}
	}
}

// seatIDs lists the room's player ids in seat order.
func (r *Router) seatIDs(rm *room) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(rm.seats))
	for pid := range rm.seats {
		ids = append(ids, pid)
	}
	sort.Strings(ids)
	return ids
}

func (r *Router) isBot(rm *room, playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rm.bots[playerID]
}

// scheduleLocked (re)arms the room's removal timer.
func (r *Router) scheduleLocked(rm *room, d time.Duration, reason string) {
	if rm.timer != nil {
		rm.timer.Stop()
	}
	rm.timerGen++
	gen, id := rm.timerGen, rm.id
	rm.timer = time.AfterFunc(d, func() {
		r.mu.Lock()
		cur := r.rooms[id]
		stale := cur == nil || cur.timerGen != gen
		r.mu.Unlock()
		if stale {
			return
		}
		log.Info().Str("gameId", id).Str("reason", reason).Msg("cleanup timer fired")
		r.remove(context.Background(), id)
	})
}

func (r *Router) cancelTimerLocked(rm *room) {
	if rm.timer != nil {
		rm.timer.Stop()
		rm.timer = nil
	}
	rm.timerGen++
}

// remove abandons and forgets a game, returning any seated humans to the lobby.
func (r *Router) remove(ctx context.Context, id string) {
	_ = r.store.Update(ctx, id, func(g *game.Game) error {
		g.Abandon()
		return nil
	})
	_ = r.store.Delete(ctx, id)

	r.mu.Lock()
	rm := r.rooms[id]
	delete(r.rooms, id)
	var freed []string
	if rm != nil {
		r.cancelTimerLocked(rm)
		for _, cid := range rm.seats {
			if cn := r.conns[cid]; cid != "" && cn != nil && cn.gameID == id {
				cn.gameID, cn.playerID = "", ""
				freed = append(freed, cid)
			}
		}
	}
	r.mu.Unlock()

	for _, cid := range freed {
		r.setStatus(cid, lobby.StatusOnline)
	}
	log.Info().Str("gameId", id).Msg("game removed")
	r.broadcastGames(ctx)
}

// Close stops every pending cleanup timer.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rm := range r.rooms {
		r.cancelTimerLocked(rm)
	}
}
