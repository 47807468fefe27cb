// internal/game/snapshot.go
//
// Projections of a game for broadcast. The public snapshot carries hand
// sizes only; full hands leave the engine one player at a time through
// PlayerHand / PrivateView.

package game

import "github.com/robalobadob/millebornes/internal/cards"

// PlayerView is the public face of one seat.
type PlayerView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	HandSize     int        `json:"handSize"`
	Battle       BattleView `json:"battle"`
	NeedsDiscard bool       `json:"needsDiscard"`
}

// Snapshot is the state every participant may see.
type Snapshot struct {
	ID              string       `json:"id"`
	State           State        `json:"state"`
	Players         []PlayerView `json:"players"`
	CurrentPlayerID string       `json:"currentPlayerId,omitempty"`
	DeckSize        int          `json:"deckSize"`
	DiscardPileSize int          `json:"discardPileSize"`
	Started         bool         `json:"started"`
	Winner          string       `json:"winner,omitempty"`
}

// PublicSnapshot builds the broadcast view.
func (g *Game) PublicSnapshot() Snapshot {
	s := Snapshot{
		ID:              g.ID,
		State:           g.state,
		Players:         make([]PlayerView, 0, len(g.players)),
		CurrentPlayerID: g.CurrentPlayerID(),
		DeckSize:        g.deck.DrawPileSize(),
		DiscardPileSize: g.deck.DiscardPileSize(),
		Started:         g.Started(),
		Winner:          g.winner,
	}
	for _, p := range g.players {
		s.Players = append(s.Players, PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			HandSize:     len(p.hand),
			Battle:       p.battle.view(),
			NeedsDiscard: p.needsDiscard,
		})
	}
	return s
}

// PlayerHand returns a copy of the player's ordered hand.
func (g *Game) PlayerHand(playerID string) ([]cards.Card, error) {
	p := g.player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	return append([]cards.Card{}, p.hand...), nil
}

// CoupFourreOpportunity tells a player which card answers the hazard.
type CoupFourreOpportunity struct {
	CardIndex int          `json:"cardIndex"`
	Hazard    cards.Hazard `json:"hazard"`
}

// PrivateView is what only the seated player receives.
type PrivateView struct {
	PlayerID     string                 `json:"playerId"`
	Hand         []cards.Card           `json:"hand"`
	NeedsDiscard bool                   `json:"needsDiscard"`
	CoupFourre   *CoupFourreOpportunity `json:"coupFourre,omitempty"`
}

// PrivateView bundles the hand with the player's own interrupt window.
func (g *Game) PrivateView(playerID string) (PrivateView, error) {
	p := g.player(playerID)
	if p == nil {
		return PrivateView{}, ErrPlayerNotFound
	}
	v := PrivateView{
		PlayerID:     p.ID,
		Hand:         append([]cards.Card{}, p.hand...),
		NeedsDiscard: p.needsDiscard,
	}
	if g.pending != nil && g.pending.PlayerID == p.ID {
		v.CoupFourre = &CoupFourreOpportunity{CardIndex: g.pending.CardIndex, Hazard: g.pending.Hazard}
	}
	return v, nil
}
