package papertrading

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry keeps live paper-trading sessions by ID so HTTP requests can come
// back to the same engine. Engines themselves stay single-threaded; only the
// map is guarded.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Engine
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Engine)}
}

// Add stores the engine under a fresh session ID and returns the ID.
func (r *Registry) Add(engine *Engine) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = engine
	r.mu.Unlock()

	return id
}

func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	engine, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("paper trading session %s not found", id)
	}
	return engine, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
