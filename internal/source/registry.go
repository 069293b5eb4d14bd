package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// Registry maps kind names to their builders.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind. Panics on duplicate names to surface misconfiguration early.
func (r *Registry) Register(k Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name()]; exists {
		panic(fmt.Sprintf("source registry: duplicate kind %q", k.Name()))
	}
	r.kinds[k.Name()] = k
}

// Get returns the kind registered under name.
func (r *Registry) Get(name string) (Kind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("no source kind registered for %q", name)
	}
	return k, nil
}

// Validate checks params against the named kind.
func (r *Registry) Validate(name string, params map[string]interface{}) error {
	k, err := r.Get(name)
	if err != nil {
		return err
	}
	return k.Validate(params)
}

// New validates params and builds a source of the named kind.
func (r *Registry) New(name string, params map[string]interface{}) (relay.PowerSource, error) {
	k, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if err := k.Validate(params); err != nil {
		return nil, err
	}
	return k.New(params)
}

// Names returns all registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
