package app

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tonimelisma/teams-kdbx/internal/storage"
)

// ErrUnknownStorage is returned for a storage name with no registered
// provider.
var ErrUnknownStorage = errors.New("app: unknown storage")

// Registry maps storage names to providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]storage.Provider
}

// NewRegistry creates a registry holding the given providers, keyed by
// their Name.
func NewRegistry(providers ...storage.Provider) *Registry {
	r := &Registry{providers: make(map[string]storage.Provider)}
	for _, p := range providers {
		r.Register(p)
	}

	return r
}

// Register adds p, replacing any provider with the same name.
func (r *Registry) Register(p storage.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (storage.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, name)
	}

	return p, nil
}

// Names lists the registered storage names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
