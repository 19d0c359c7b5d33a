// Package feature holds the in-memory feature graph produced by the GML and
// shapefile readers: features, typed property values, geometries, and the
// per-document reference context that links them.
package feature

import (
	"encoding/xml"

	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

// Object is anything addressable by a document-local id.
type Object interface {
	ObjectID() string
}

// Feature is an instance of a FeatureType. Properties are kept in document
// order. A collection additionally holds its inline member features.
type Feature struct {
	ID         string
	Type       *schema.FeatureType
	Properties []*Property
	Extra      []*Property
	Members    []*Feature
	Version    string

	envelope *orb.Bound
}

// New constructs a feature once its properties have been gathered.
func New(ft *schema.FeatureType, id string, props, extra []*Property, version string) *Feature {
	return &Feature{ID: id, Type: ft, Properties: props, Extra: extra, Version: version}
}

// ObjectID implements Object.
func (f *Feature) ObjectID() string { return f.ID }

func (*Feature) isValue() {}

// Name returns the feature type name.
func (f *Feature) Name() xml.Name {
	if f.Type == nil {
		return xml.Name{}
	}
	return f.Type.Name
}

// IsCollection reports whether f is a feature collection.
func (f *Feature) IsCollection() bool {
	return f.Type != nil && f.Type.Collection
}

// Property returns the first property called name, or nil.
func (f *Feature) Property(name xml.Name) *Property {
	for _, p := range f.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PropertiesNamed returns all properties called name, in document order.
func (f *Feature) PropertiesNamed(name xml.Name) []*Property {
	var out []*Property
	for _, p := range f.Properties {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out
}

// Geometries returns the inline geometries of f's geometry properties.
func (f *Feature) Geometries() []*Geometry {
	var out []*Geometry
	for _, p := range f.Properties {
		switch v := p.Value.(type) {
		case *Geometry:
			out = append(out, v)
		case *GeometryReference:
			if g := v.Target(); g != nil {
				out = append(out, g)
			}
		}
	}
	return out
}

// Envelope returns the bounding box of f. An explicit envelope property
// wins; otherwise the box is computed from the geometries of f and its
// members and cached.
func (f *Feature) Envelope() (orb.Bound, bool) {
	if f.envelope != nil {
		return *f.envelope, true
	}
	for _, p := range f.Properties {
		if ev, ok := p.Value.(EnvelopeValue); ok {
			f.envelope = &ev.Bound
			return ev.Bound, true
		}
	}

	var (
		b     orb.Bound
		found bool
	)
	extend := func(o orb.Bound) {
		if !found {
			b, found = o, true
			return
		}
		b = b.Union(o)
	}
	for _, g := range f.Geometries() {
		if g.Geometry != nil {
			extend(g.Geometry.Bound())
		}
	}
	for _, m := range f.Members {
		if mb, ok := m.Envelope(); ok {
			extend(mb)
		}
	}
	if found {
		f.envelope = &b
	}
	return b, found
}

// SetEnvelope overrides the cached envelope.
func (f *Feature) SetEnvelope(b orb.Bound) { f.envelope = &b }

// Property is one typed property value of a feature.
type Property struct {
	Name  xml.Name
	Type  *schema.PropertyType
	Nil   bool
	Attrs map[xml.Name]string
	Value Value // nil for nilled or empty properties
}

// Kind returns the declared kind, or infers it from the value when the
// property has no declaration.
func (p *Property) Kind() schema.Kind {
	if p.Type != nil {
		return p.Type.Kind
	}
	return KindOf(p.Value)
}

// KindOf infers the property kind carried by a value.
func KindOf(v Value) schema.Kind {
	switch v.(type) {
	case *Geometry, *GeometryReference:
		return schema.KindGeometry
	case *Feature, *FeatureReference:
		return schema.KindFeature
	case EnvelopeValue:
		return schema.KindEnvelope
	case CodeValue:
		return schema.KindCode
	case MeasureValue:
		return schema.KindMeasure
	case StringOrRefValue:
		return schema.KindStringOrRef
	case ArrayValue:
		return schema.KindArray
	case *CustomElement:
		return schema.KindCustom
	}
	return schema.KindSimple
}

// Geometry is an orb geometry with its GML identity and CRS.
type Geometry struct {
	ID       string
	SRS      string
	Geometry orb.Geometry
}

// ObjectID implements Object.
func (g *Geometry) ObjectID() string { return g.ID }

func (*Geometry) isValue() {}
