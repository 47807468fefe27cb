// internal/store/memory.go
//
// In-memory registry of live games, owned by the session router.
//
// Characteristics:
//   - Stores *game.Game objects keyed by ID in a map.
//   - The map is guarded by an RWMutex; each game has its own mutex so
//     intents for one game are serialized while different games proceed
//     in parallel.
//   - Game access only happens inside Update/Range callbacks, under the
//     game's lock.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/robalobadob/millebornes/internal/game"
)

var (
	ErrNotFound = errors.New("game not found")
	ErrExists   = errors.New("game already exists")
)

// Store defines the registry of running games.
type Store interface {
	// Save registers a new game. Fails with ErrExists on an id clash.
	Save(ctx context.Context, g *game.Game) error

	// Update runs fn with exclusive access to the game.
	// Returns ErrNotFound if the id is unknown, otherwise fn's error.
	Update(ctx context.Context, id string, fn func(*game.Game) error) error

	// Range calls fn for every game, one at a time, under its lock.
	Range(ctx context.Context, fn func(*game.Game))

	// Delete forgets a game. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Len reports the number of registered games.
	Len() int
}

type entry struct {
	mu sync.Mutex
	g  *game.Game
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex      // guards games map
	games map[string]*entry // keyed by Game.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*entry)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return ErrExists
	}
	m.games[g.ID] = &entry{g: g}
	return nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(*game.Game) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	e, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.g)
}

func (m *memory) Range(ctx context.Context, fn func(*game.Game)) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		_ = m.Update(ctx, id, func(g *game.Game) error {
			fn(g)
			return nil
		})
	}
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}
