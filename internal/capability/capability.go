// Package capability tracks optional providers that extend the codec at run
// time. Availability is looked up on every call, so registering a provider
// after startup takes effect immediately.
package capability

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Name identifies a capability.
type Name string

const (
	// MultiHist is the multi-dimensional histogram object model.
	MultiHist Name = "multihist"
	// Native is the analysis-framework file reader.
	Native Name = "native"
)

// ErrMissing is returned when a required capability has no provider.
var ErrMissing = errors.New("capability not available")

// Registry maps capability names to providers. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[Name]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Name]any)}
}

// Register installs p as the provider of name, replacing any previous one.
// A nil provider removes the capability.
func (r *Registry) Register(name Name, p any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		delete(r.providers, name)
		return
	}
	r.providers[name] = p
}

// Lookup returns the provider of name.
func (r *Registry) Lookup(name Name) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Available lists the registered capability names, sorted.
func (r *Registry) Available() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Name, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Require returns the provider of name as a T, or ErrMissing.
func Require[T any](r *Registry, name Name) (T, error) {
	var zero T
	p, ok := r.Lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissing, name)
	}
	t, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s provider has type %T", ErrMissing, name, p)
	}
	return t, nil
}
