package feature

import (
	"errors"
	"fmt"
	"strings"
)

// Errors wrapped by *ResolveError.
var (
	ErrNotFound          = errors.New("feature: referenced object not found")
	ErrWrongTarget       = errors.New("feature: referenced object has unexpected type")
	ErrNoResolver        = errors.New("feature: no resolver for reference")
	ErrRemoteUnsupported = errors.New("feature: remote references are not supported")
)

// ResolveError reports a reference that could not be dereferenced.
type ResolveError struct {
	URI string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("unable to resolve reference %q: %v", e.URI, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolver looks up objects by xlink URI. baseURL is the system id of the
// document holding the reference, for resolving relative URIs.
type Resolver interface {
	GetFeature(uri, baseURL string) (*Feature, error)
	GetGeometry(uri, baseURL string) (*Geometry, error)
	GetObject(uri, baseURL string) (Object, error)
}

// Reference is an xlink reference awaiting resolution.
type Reference interface {
	Href() string
	IsLocal() bool
	IsResolved() bool
	resolve() error
}

type refBase struct {
	uri      string
	baseURL  string
	resolver Resolver
}

func (r *refBase) Href() string    { return r.uri }
func (r *refBase) BaseURL() string { return r.baseURL }

// IsLocal reports whether the reference points into the same document.
func (r *refBase) IsLocal() bool { return strings.HasPrefix(r.uri, "#") }

// ID returns the fragment identifier of the URI.
func (r *refBase) ID() string {
	if i := strings.IndexByte(r.uri, '#'); i >= 0 {
		return r.uri[i+1:]
	}
	return r.uri
}

// FeatureReference is an unresolved or resolved xlink reference to a
// feature. A successful resolution is cached; Resolve never queries the
// resolver again afterwards.
type FeatureReference struct {
	refBase
	target *Feature
}

// NewFeatureReference returns an unresolved reference.
func NewFeatureReference(uri, baseURL string, r Resolver) *FeatureReference {
	return &FeatureReference{refBase: refBase{uri: uri, baseURL: baseURL, resolver: r}}
}

// NewResolvedFeatureReference returns a reference already bound to f.
func NewResolvedFeatureReference(uri string, f *Feature) *FeatureReference {
	return &FeatureReference{refBase: refBase{uri: uri}, target: f}
}

func (*FeatureReference) isValue() {}

// IsResolved reports whether the target has been resolved.
func (r *FeatureReference) IsResolved() bool { return r.target != nil }

// Target returns the resolved feature, or nil when unresolved.
func (r *FeatureReference) Target() *Feature { return r.target }

// Resolve returns the referenced feature, resolving it on first call.
func (r *FeatureReference) Resolve() (*Feature, error) {
	if r.target != nil {
		return r.target, nil
	}
	if r.resolver == nil {
		return nil, &ResolveError{URI: r.uri, Err: ErrNoResolver}
	}
	f, err := r.resolver.GetFeature(r.uri, r.baseURL)
	if err != nil {
		return nil, wrapResolve(r.uri, err)
	}
	if f == nil {
		return nil, &ResolveError{URI: r.uri, Err: ErrNotFound}
	}
	r.target = f
	return f, nil
}

func (r *FeatureReference) resolve() error {
	_, err := r.Resolve()
	return err
}

// GeometryReference is an xlink reference to a geometry.
type GeometryReference struct {
	refBase
	target *Geometry
}

// NewGeometryReference returns an unresolved reference.
func NewGeometryReference(uri, baseURL string, r Resolver) *GeometryReference {
	return &GeometryReference{refBase: refBase{uri: uri, baseURL: baseURL, resolver: r}}
}

func (*GeometryReference) isValue() {}

// IsResolved reports whether the target has been resolved.
func (r *GeometryReference) IsResolved() bool { return r.target != nil }

// Target returns the resolved geometry, or nil when unresolved.
func (r *GeometryReference) Target() *Geometry { return r.target }

// Resolve returns the referenced geometry, resolving it on first call.
func (r *GeometryReference) Resolve() (*Geometry, error) {
	if r.target != nil {
		return r.target, nil
	}
	if r.resolver == nil {
		return nil, &ResolveError{URI: r.uri, Err: ErrNoResolver}
	}
	g, err := r.resolver.GetGeometry(r.uri, r.baseURL)
	if err != nil {
		return nil, wrapResolve(r.uri, err)
	}
	if g == nil {
		return nil, &ResolveError{URI: r.uri, Err: ErrNotFound}
	}
	r.target = g
	return g, nil
}

func (r *GeometryReference) resolve() error {
	_, err := r.Resolve()
	return err
}

func wrapResolve(uri string, err error) error {
	var re *ResolveError
	if errors.As(err, &re) {
		return err
	}
	return &ResolveError{URI: uri, Err: err}
}
