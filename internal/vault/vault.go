package vault

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrUnknownRef = errors.New("no adapter registered for vault reference")
)

// Adapter is an external yield source. Amounts and shares are fixed-unit
// integers; every method may fail, and a failure must abort the settlement
// operation that triggered it without touching agreement accounting.
type Adapter interface {
	Deposit(ctx context.Context, amount int64) (shares int64, err error)
	Redeem(ctx context.Context, shares int64) (amount int64, err error)
	ValueOf(ctx context.Context, shares int64) (amount int64, err error)
}

// Registry maps vault references to adapter implementations. Which refs are
// approved for use is persisted separately; the registry only answers how to
// talk to one.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(ref string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[ref] = adapter
}

func (r *Registry) Get(ref string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[ref]
	if !ok {
		return nil, ErrUnknownRef
	}
	return adapter, nil
}
