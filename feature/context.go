package feature

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateID is wrapped by *DuplicateIDError.
var ErrDuplicateID = errors.New("feature: object id not unique")

// DuplicateIDError reports a second registration of an id.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%v: %q", ErrDuplicateID, e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// Context is the per-document registry of identified objects and of the
// references awaiting resolution. It resolves local ("#id") references
// against its own objects and delegates everything else to the remote
// resolver. A Context is not safe for concurrent use.
type Context struct {
	objects map[string]Object
	refs    []Reference
	remote  Resolver
}

// NewContext returns an empty context. remote may be nil.
func NewContext(remote Resolver) *Context {
	return &Context{objects: make(map[string]Object), remote: remote}
}

// AddObject registers obj under its id. Objects without id are ignored.
func (c *Context) AddObject(obj Object) error {
	id := obj.ObjectID()
	if id == "" {
		return nil
	}
	if _, ok := c.objects[id]; ok {
		return &DuplicateIDError{ID: id}
	}
	c.objects[id] = obj
	return nil
}

// AddReference queues ref for the resolution pass.
func (c *Context) AddReference(ref Reference) {
	c.refs = append(c.refs, ref)
}

// Object returns the object registered under id, or nil.
func (c *Context) Object(id string) Object {
	return c.objects[id]
}

// References returns the queued references.
func (c *Context) References() []Reference {
	return c.refs
}

// Unresolved returns the queued references that are still unresolved.
func (c *Context) Unresolved() []Reference {
	var out []Reference
	for _, r := range c.refs {
		if !r.IsResolved() {
			out = append(out, r)
		}
	}
	return out
}

// ResolveLocalRefs resolves every queued local reference. References that
// fail stay unresolved and are reported in the returned (joined) error.
func (c *Context) ResolveLocalRefs() error {
	var errs []error
	for _, r := range c.refs {
		if !r.IsLocal() || r.IsResolved() {
			continue
		}
		if err := r.resolve(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetObject implements Resolver.
func (c *Context) GetObject(uri, baseURL string) (Object, error) {
	if !strings.HasPrefix(uri, "#") {
		if c.remote == nil {
			return nil, &ResolveError{URI: uri, Err: ErrRemoteUnsupported}
		}
		return c.remote.GetObject(uri, baseURL)
	}
	obj := c.objects[uri[1:]]
	if obj == nil {
		return nil, &ResolveError{URI: uri, Err: ErrNotFound}
	}
	return obj, nil
}

// GetFeature implements Resolver.
func (c *Context) GetFeature(uri, baseURL string) (*Feature, error) {
	if !strings.HasPrefix(uri, "#") && c.remote != nil {
		return c.remote.GetFeature(uri, baseURL)
	}
	obj, err := c.GetObject(uri, baseURL)
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
func (c *Context) GetGeometry(uri, baseURL string) (*Geometry, error) {
	if !strings.HasPrefix(uri, "#") && c.remote != nil {
		return c.remote.GetGeometry(uri, baseURL)
	}
	obj, err := c.GetObject(uri, baseURL)
	if err != nil {
		return nil, err
	}
	g, ok := obj.(*Geometry)
	if !ok {
		return nil, &ResolveError{URI: uri, Err: ErrWrongTarget}
	}
	return g, nil
}
