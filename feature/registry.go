package feature

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrStoreExists is returned when a store id is registered twice.
var ErrStoreExists = errors.New("feature: store already registered")

// Store looks up objects by id. *Context satisfies it, so a parsed
// document can serve as the target of cross-document references.
type Store interface {
	Object(id string) Object
}

// Registry maps store ids to stores. Registrations are insert-only and the
// registry is safe for concurrent use. Store ids are document URLs when the
// registry is used as a Resolver.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Register adds store under id.
func (r *Registry) Register(id string, store Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stores[id]; ok {
		return fmt.Errorf("%w: %q", ErrStoreExists, id)
	}
	r.stores[id] = store
	return nil
}

// Lookup returns the store registered under id.
func (r *Registry) Lookup(id string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	return s, ok
}

// GetObject implements Resolver. uri is split into document and fragment;
// the document part is resolved against baseURL and names the store.
func (r *Registry) GetObject(uri, baseURL string) (Object, error) {
	doc, id, ok := strings.Cut(uri, "#")
	if !ok || id == "" {
		return nil, &ResolveError{URI: uri, Err: ErrNotFound}
	}
	key := doc
	if base, err := url.Parse(baseURL); err == nil && baseURL != "" {
		if ref, err := url.Parse(doc); err == nil {
			key = base.ResolveReference(ref).String()
		}
	}
	store, found := r.Lookup(key)
	if !found {
		return nil, &ResolveError{URI: uri, Err: ErrNoResolver}
	}
	obj := store.Object(id)
	if obj == nil {
		return nil, &ResolveError{URI: uri, Err: ErrNotFound}
	}
	return obj, nil
}

// GetFeature implements Resolver.
func (r *Registry) GetFeature(uri, baseURL string) (*Feature, error) {
	obj, err := r.GetObject(uri, baseURL)
	if err != nil {
		return nil, err
	}
	f, ok := obj.(*Feature)
	if !ok {
		return nil, &ResolveError{URI: uri, Err: ErrWrongTarget}
	}
	return f, nil
}

// GetGeometry implements Resolver.
func (r *Registry) GetGeometry(uri, baseURL string) (*Geometry, error) {
	obj, err := r.GetObject(uri, baseURL)
	if err != nil {
		return nil, err
	}
	g, ok := obj.(*Geometry)
	if !ok {
		return nil, &ResolveError{URI: uri, Err: ErrWrongTarget}
	}
	return g, nil
}
