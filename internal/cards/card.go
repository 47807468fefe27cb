// internal/cards/card.go
//
// Card value type.
// A Card is a tagged variant: Kind selects which payload field is meaningful
// (Miles for distance, Hazard/Remedy/Safety for the others). Dealt cards
// carry a unique ID; grouping compares Key(), which ignores the ID.

package cards

import (
	"encoding/json"
	"fmt"
)

// Kind is the card category.
type Kind string

const (
	KindDistance Kind = "distance"
	KindHazard   Kind = "hazard"
	KindRemedy   Kind = "remedy"
	KindSafety   Kind = "safety"
)

// Card is an immutable card value.
type Card struct {
	ID     string
	Kind   Kind
	Miles  int
	Hazard Hazard
	Remedy Remedy
	Safety Safety
}

// Distance builds a distance card template.
func Distance(miles int) Card { return Card{Kind: KindDistance, Miles: miles} }

// HazardCard builds a hazard card template.
func HazardCard(h Hazard) Card { return Card{Kind: KindHazard, Hazard: h} }

// RemedyCard builds a remedy card template.
func RemedyCard(r Remedy) Card { return Card{Kind: KindRemedy, Remedy: r} }

// SafetyCard builds a safety card template.
func SafetyCard(s Safety) Card { return Card{Kind: KindSafety, Safety: s} }

// Name returns the display name ("200", "Stop", "Right of Way", ...).
func (c Card) Name() string {
	switch c.Kind {
	case KindDistance:
		return fmt.Sprintf("%d", c.Miles)
	case KindHazard:
		return c.Hazard.String()
	case KindRemedy:
		return c.Remedy.String()
	case KindSafety:
		return c.Safety.String()
	}
	return "unknown"
}

// Key identifies the card face ("hazard:Stop"); copies of one face share a key.
func (c Card) Key() string { return string(c.Kind) + ":" + c.Name() }

// SameFace reports whether c and o are copies of the same catalog entry.
func (c Card) SameFace(o Card) bool { return c.Key() == o.Key() }

func (c Card) String() string {
	if c.Kind == KindDistance {
		return c.Name() + " miles"
	}
	return c.Name()
}

// cardJSON is the wire shape shared with browser clients.
type cardJSON struct {
	ID       string   `json:"id"`
	Type     Kind     `json:"type"`
	Value    int      `json:"value,omitempty"`
	Name     string   `json:"name,omitempty"`
	Remedies string   `json:"remedies,omitempty"`
	Protects []string `json:"protects,omitempty"`
}

// MarshalJSON renders the card the way clients expect to read it.
func (c Card) MarshalJSON() ([]byte, error) {
	out := cardJSON{ID: c.ID, Type: c.Kind}
	switch c.Kind {
	case KindDistance:
		out.Value = c.Miles
	case KindHazard:
		out.Name = c.Hazard.String()
	case KindRemedy:
		out.Name = c.Remedy.String()
		out.Remedies = c.Remedy.Cures().String()
	case KindSafety:
		out.Name = c.Safety.String()
		for _, h := range c.Safety.Blocks() {
			out.Protects = append(out.Protects, h.String())
		}
	}
	return json.Marshal(out)
}
