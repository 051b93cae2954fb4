package guard

import (
	"sync"

	"github.com/google/uuid"
)

// Guard rejects re-entrant invocations against the same agreement within one
// call chain. The host serializes invocations, so this is defense-in-depth for
// self-invocation during fund movement, not a concurrency lock.
type Guard struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func New() *Guard {
	return &Guard{held: make(map[uuid.UUID]bool)}
}

// Acquire marks the id as in-flight. Returns false if it is already held.
func (g *Guard) Acquire(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[id] {
		return false
	}
	g.held[id] = true
	return true
}

// Release clears the flag. Safe to call on every exit path.
func (g *Guard) Release(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
}
