// internal/bot/policy.go
//
// Computer opponent driven by a Lua script.
//
// The script defines a global choose(s) returning an action name and a
// 1-based hand index. It sees its own hand and both public battle areas,
// never the opponent's hand. Whatever it returns is checked against the
// engine; a rejected or broken choice falls back to the first legal action.

package bot

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/robalobadob/millebornes/assets"
	"github.com/robalobadob/millebornes/internal/cards"
	"github.com/robalobadob/millebornes/internal/game"
)

// ActionKind is what the bot wants to do with its turn.
type ActionKind string

const (
	ActionPlay    ActionKind = "play"
	ActionDraw    ActionKind = "draw"
	ActionDiscard ActionKind = "discard"
)

// Action is a decided move; Index is 0-based and unused for draws.
type Action struct {
	Kind  ActionKind
	Index int
}

func (a Action) String() string {
	if a.Kind == ActionDraw {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s[%d]", a.Kind, a.Index)
}

// Policy wraps one Lua interpreter. LState is not goroutine safe, so calls
// are serialized.
type Policy struct {
	mu sync.Mutex
	L  *lua.LState
}

// NewPolicy compiles script and checks that it defines choose.
func NewPolicy(script string) (*Policy, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// Only the pure libraries; scripts get no io or os access.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open %s: %w", lib.name, err)
		}
	}
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("load bot script: %w", err)
	}
	if L.GetGlobal("choose").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("bot script does not define choose(s)")
	}
	return &Policy{L: L}, nil
}

// Load reads the script at path, or the embedded default when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return NewPolicy(assets.DefaultBotScript())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewPolicy(string(b))
}

// Close releases the Lua state. The Policy must not be used afterwards.
func (p *Policy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

// ToMove returns the player expected to act next, or "" when nobody is.
func ToMove(g *game.Game) string {
	if g.State() != game.StateInProgress {
		return ""
	}
	if pc, ok := g.PendingCoupFourre(); ok {
		return pc.PlayerID
	}
	return g.CurrentPlayerID()
}

// Decide picks a move for playerID. The returned action is always one the
// engine accepts at the time of the call.
func (p *Policy) Decide(g *game.Game, playerID string) (Action, error) {
	view, err := g.PrivateView(playerID)
	if err != nil {
		return Action{}, err
	}
	snap := g.PublicSnapshot()

	a, err := p.ask(view, snap, g.LegalPlays(playerID))
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Str("playerId", playerID).Msg("bot script failed")
	} else if ok(g, view, playerID, a) {
		return a, nil
	} else {
		log.Debug().Str("gameId", g.ID).Str("playerId", playerID).Stringer("action", a).Msg("bot choice rejected")
	}
	return Fallback(g, playerID)
}

// Fallback is the first legal action: discard, answer a coup fourré, play, draw.
func Fallback(g *game.Game, playerID string) (Action, error) {
	view, err := g.PrivateView(playerID)
	if err != nil {
		return Action{}, err
	}
	switch {
	case view.NeedsDiscard:
		return Action{Kind: ActionDiscard}, nil
	case view.CoupFourre != nil:
		return Action{Kind: ActionPlay, Index: view.CoupFourre.CardIndex}, nil
	}
	if legal := g.LegalPlays(playerID); len(legal) > 0 {
		return Action{Kind: ActionPlay, Index: legal[0]}, nil
	}
	return Action{Kind: ActionDraw}, nil
}

func ok(g *game.Game, view game.PrivateView, playerID string, a Action) bool {
	switch a.Kind {
	case ActionPlay:
		return !view.NeedsDiscard && g.CanPlay(playerID, a.Index, "") == nil
	case ActionDraw:
		return !view.NeedsDiscard && g.CurrentPlayerID() == playerID
	case ActionDiscard:
		return view.NeedsDiscard && a.Index >= 0 && a.Index < len(view.Hand)
	}
	return false
}

func (p *Policy) ask(view game.PrivateView, snap game.Snapshot, legal []int) (Action, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	L := p.L

	s := L.NewTable()
	hand := L.NewTable()
	for _, c := range view.Hand {
		hand.Append(cardTable(L, c))
	}
	s.RawSetString("hand", hand)
	lt := L.NewTable()
	for _, i := range legal {
		lt.Append(lua.LNumber(i + 1))
	}
	s.RawSetString("legal", lt)
	s.RawSetString("needsDiscard", lua.LBool(view.NeedsDiscard))
	if view.CoupFourre != nil {
		s.RawSetString("coupFourre", lua.LNumber(view.CoupFourre.CardIndex+1))
	}
	for _, pv := range snap.Players {
		key := "opponent"
		if pv.ID == view.PlayerID {
			key = "me"
		}
		s.RawSetString(key, battleTable(L, pv.Battle))
	}

	if err := L.CallByParam(lua.P{Fn: L.GetGlobal("choose"), NRet: 2, Protect: true}, s); err != nil {
		return Action{}, err
	}
	kind, idx := L.Get(-2), L.Get(-1)
	L.Pop(2)

	a := Action{Kind: ActionKind(lua.LVAsString(kind))}
	if n, isNum := idx.(lua.LNumber); isNum {
		a.Index = int(n) - 1
	}
	return a, nil
}

func cardTable(L *lua.LState, c cards.Card) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(c.Kind))
	t.RawSetString("name", lua.LString(c.Name()))
	t.RawSetString("value", lua.LNumber(c.Miles))
	return t
}

func battleTable(L *lua.LState, b game.BattleView) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("distance", lua.LNumber(b.Distance))
	if b.Hazard != nil {
		t.RawSetString("hazard", lua.LString(b.Hazard.String()))
	}
	t.RawSetString("speedLimit", lua.LBool(b.SpeedLimit))
	t.RawSetString("twoHundreds", lua.LNumber(b.TwoHundreds))
	st := L.NewTable()
	for _, sf := range b.Safeties {
		st.Append(lua.LString(sf.String()))
	}
	t.RawSetString("safeties", st)
	return t
}
