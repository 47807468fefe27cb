// internal/game/battle.go
//
// Per-player battle area: distance, the single hazard slot, the independent
// speed-limit flag and acquired safeties. check* functions validate a card
// against the area without touching it; apply mutates it.

package game

import "github.com/robalobadob/millebornes/internal/cards"

type battle struct {
	distance     int
	hazard       cards.Hazard
	hazarded     bool
	speedLimit   bool
	safeties     []cards.Safety
	twoHundreds  int
	coupsFourres int
}

// newBattle returns the starting area: stopped until a Go is played.
func newBattle() battle {
	return battle{hazard: cards.Stop, hazarded: true}
}

func (b *battle) holds(s cards.Safety) bool {
	for _, have := range b.safeties {
		if have == s {
			return true
		}
	}
	return false
}

func (b *battle) immuneTo(h cards.Hazard) bool { return b.holds(cards.SafetyFor(h)) }

// checkOwn validates a card the player plays on their own area.
func (b *battle) checkOwn(c cards.Card) error {
	switch c.Kind {
	case cards.KindDistance:
		switch {
		case b.hazarded:
			return illegal(ReasonHazardActive, c)
		case b.speedLimit && c.Miles > SpeedLimitMiles:
			return illegal(ReasonSpeedLimit, c)
		case c.Miles == 200 && b.twoHundreds >= MaxTwoHundreds:
			return illegal(ReasonTwoHundredLimit, c)
		case b.distance+c.Miles > Goal:
			return illegal(ReasonOverGoal, c)
		}
	case cards.KindRemedy:
		cured := c.Remedy.Cures()
		if cured == cards.SpeedLimit {
			if !b.speedLimit {
				return illegal(ReasonNothingToCure, c)
			}
		} else if !b.hazarded || b.hazard != cured {
			return illegal(ReasonNothingToCure, c)
		}
	case cards.KindSafety:
		if b.holds(c.Safety) {
			return illegal(ReasonAlreadyHeld, c)
		}
	case cards.KindHazard:
		return illegal(ReasonWrongTarget, c)
	}
	return nil
}

// checkAttack validates a hazard landing on this area.
func (b *battle) checkAttack(c cards.Card) error {
	if c.Kind != cards.KindHazard {
		return illegal(ReasonWrongTarget, c)
	}
	if b.immuneTo(c.Hazard) {
		return illegal(ReasonProtected, c)
	}
	if c.Hazard != cards.SpeedLimit && b.hazarded {
		return illegal(ReasonAlreadyHazarded, c)
	}
	return nil
}

func (b *battle) apply(c cards.Card) {
	switch c.Kind {
	case cards.KindDistance:
		b.distance += c.Miles
		if c.Miles == 200 {
			b.twoHundreds++
		}
	case cards.KindHazard:
		if c.Hazard == cards.SpeedLimit {
			b.speedLimit = true
		} else {
			b.hazard, b.hazarded = c.Hazard, true
		}
	case cards.KindRemedy:
		if c.Remedy.Cures() == cards.SpeedLimit {
			b.speedLimit = false
		} else {
			b.hazarded = false
		}
	case cards.KindSafety:
		b.safeties = append(b.safeties, c.Safety)
		if b.hazarded && c.Safety.Protects(b.hazard) {
			b.hazarded = false
		}
		if b.speedLimit && c.Safety.Protects(cards.SpeedLimit) {
			b.speedLimit = false
		}
	}
}

// BattleView is the public copy of a battle area.
type BattleView struct {
	Distance     int            `json:"distance"`
	Hazard       *cards.Hazard  `json:"hazard"`
	SpeedLimit   bool           `json:"speedLimit"`
	Safeties     []cards.Safety `json:"safeties"`
	TwoHundreds  int            `json:"twoHundreds"`
	CoupsFourres int            `json:"coupsFourres"`
}

func (b *battle) view() BattleView {
	v := BattleView{
		Distance:     b.distance,
		SpeedLimit:   b.speedLimit,
		Safeties:     append([]cards.Safety{}, b.safeties...),
		TwoHundreds:  b.twoHundreds,
		CoupsFourres: b.coupsFourres,
	}
	if b.hazarded {
		h := b.hazard
		v.Hazard = &h
	}
	return v
}
