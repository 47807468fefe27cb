// internal/cards/catalog.go
//
// Static card catalog for Mille Bornes.
// Responsibilities:
//   - Enumerate hazards, remedies and safeties as closed enums.
//   - Map hazard ↔ remedy ↔ safety through one table keyed by Hazard.
//   - Describe the dealt-deck composition (per-card counts, 106 cards).
//
// The relationship tables are checked for completeness in init(); a catalog
// edit that leaves a hazard without exactly one remedy and one safety
// panics at startup instead of producing a game that cannot be cured.

package cards

import "fmt"

// Hazard identifies an attack card. It is the shared key of the catalog.
type Hazard int

const (
	Accident Hazard = iota
	OutOfGas
	FlatTire
	SpeedLimit
	Stop
	numHazards
)

var hazardNames = [numHazards]string{
	Accident:   "Accident",
	OutOfGas:   "Out of Gas",
	FlatTire:   "Flat Tire",
	SpeedLimit: "Speed Limit",
	Stop:       "Stop",
}

func (h Hazard) String() string {
	if h < 0 || h >= numHazards {
		return fmt.Sprintf("Hazard(%d)", int(h))
	}
	return hazardNames[h]
}

// Remedy identifies a card that clears one hazard from its player.
type Remedy int

const (
	Repairs Remedy = iota
	Gasoline
	SpareTire
	EndOfLimit
	Go
	numRemedies
)

var remedyNames = [numRemedies]string{
	Repairs:    "Repairs",
	Gasoline:   "Gasoline",
	SpareTire:  "Spare Tire",
	EndOfLimit: "End of Speed Limit",
	Go:         "Go",
}

func (r Remedy) String() string {
	if r < 0 || r >= numRemedies {
		return fmt.Sprintf("Remedy(%d)", int(r))
	}
	return remedyNames[r]
}

// Safety identifies a card granting permanent immunity.
type Safety int

const (
	DrivingAce Safety = iota
	FuelTank
	PunctureProof
	RightOfWay
	numSafeties
)

var safetyNames = [numSafeties]string{
	DrivingAce:    "Driving Ace",
	FuelTank:      "Fuel Tank",
	PunctureProof: "Puncture-Proof",
	RightOfWay:    "Right of Way",
}

func (s Safety) String() string {
	if s < 0 || s >= numSafeties {
		return fmt.Sprintf("Safety(%d)", int(s))
	}
	return safetyNames[s]
}

// remedyCures and safetyBlocks are the source tables; the reverse lookups
// below are derived from them.
var (
	remedyCures = [numRemedies]Hazard{
		Repairs:    Accident,
		Gasoline:   OutOfGas,
		SpareTire:  FlatTire,
		EndOfLimit: SpeedLimit,
		Go:         Stop,
	}
	safetyBlocks = [numSafeties][]Hazard{
		DrivingAce:    {Accident},
		FuelTank:      {OutOfGas},
		PunctureProof: {FlatTire},
		RightOfWay:    {Stop, SpeedLimit},
	}

	remedyFor [numHazards]Remedy
	safetyFor [numHazards]Safety
)

func init() {
	var remedies, safeties [numHazards]int
	for r, h := range remedyCures {
		remedyFor[h] = Remedy(r)
		remedies[h]++
	}
	for s, hs := range safetyBlocks {
		for _, h := range hs {
			safetyFor[h] = Safety(s)
			safeties[h]++
		}
	}
	for h := Hazard(0); h < numHazards; h++ {
		if remedies[h] != 1 {
			panic(fmt.Sprintf("cards: hazard %s has %d remedies, want 1", h, remedies[h]))
		}
		if safeties[h] != 1 {
			panic(fmt.Sprintf("cards: hazard %s is blocked by %d safeties, want 1", h, safeties[h]))
		}
	}
}

// MarshalText encodes enums by display name so JSON and logs stay readable.
func (h Hazard) MarshalText() ([]byte, error) { return []byte(h.String()), nil }
func (r Remedy) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (s Safety) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Cures returns the hazard this remedy clears.
func (r Remedy) Cures() Hazard { return remedyCures[r] }

// Blocks returns the hazards this safety grants immunity to.
func (s Safety) Blocks() []Hazard { return append([]Hazard(nil), safetyBlocks[s]...) }

// Protects reports whether s makes its holder immune to h.
func (s Safety) Protects(h Hazard) bool { return safetyFor[h] == s }

// RemedyFor returns the remedy that cures h.
func RemedyFor(h Hazard) Remedy { return remedyFor[h] }

// SafetyFor returns the safety that blocks h.
func SafetyFor(h Hazard) Safety { return safetyFor[h] }

// Hazards lists every hazard in catalog order.
func Hazards() []Hazard {
	out := make([]Hazard, 0, numHazards)
	for h := Hazard(0); h < numHazards; h++ {
		out = append(out, h)
	}
	return out
}

// Safeties lists every safety in catalog order.
func Safeties() []Safety {
	out := make([]Safety, 0, numSafeties)
	for s := Safety(0); s < numSafeties; s++ {
		out = append(out, s)
	}
	return out
}

// Entry is one line of the deck composition.
type Entry struct {
	Code  string // prefix of the instance ids dealt from this entry
	Card  Card
	Count int
}

var catalog = []Entry{
	{"d25", Distance(25), 10},
	{"d50", Distance(50), 10},
	{"d75", Distance(75), 10},
	{"d100", Distance(100), 12},
	{"d200", Distance(200), 4},

	{"h_accident", HazardCard(Accident), 3},
	{"h_outofgas", HazardCard(OutOfGas), 3},
	{"h_flattire", HazardCard(FlatTire), 3},
	{"h_speedlimit", HazardCard(SpeedLimit), 4},
	{"h_stop", HazardCard(Stop), 5},

	{"r_repairs", RemedyCard(Repairs), 6},
	{"r_gasoline", RemedyCard(Gasoline), 6},
	{"r_sparetire", RemedyCard(SpareTire), 6},
	{"r_endoflimit", RemedyCard(EndOfLimit), 6},
	{"r_go", RemedyCard(Go), 14},

	{"s_drivingace", SafetyCard(DrivingAce), 1},
	{"s_fueltank", SafetyCard(FuelTank), 1},
	{"s_punctureproof", SafetyCard(PunctureProof), 1},
	{"s_rightofway", SafetyCard(RightOfWay), 1},
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 106

// Catalog returns a copy of the deck composition.
func Catalog() []Entry { return append([]Entry(nil), catalog...) }

// FullDeck returns one instance of every physical card, unshuffled.
// Instance ids are "<code>_<n>" with n starting at 1.
func FullDeck() []Card {
	out := make([]Card, 0, DeckSize)
	for _, e := range catalog {
		for i := 1; i <= e.Count; i++ {
			c := e.Card
			c.ID = fmt.Sprintf("%s_%d", e.Code, i)
			out = append(out, c)
		}
	}
	return out
}
