package schema

import "encoding/xml"

// Shape is the structure observed on the first occurrence of a property
// element when no schema is available.
type Shape int

const (
	// ShapeSimple is text content with attributes only.
	ShapeSimple Shape = iota
	// ShapeGeometry is a recognized geometry child element.
	ShapeGeometry
	// ShapeFeature is a nested feature element or an xlink reference.
	ShapeFeature
	// ShapeEnvelope is an envelope or null marker child.
	ShapeEnvelope
)

// Dynamic infers feature types and property declarations from the
// instance document. Each inference is frozen: later occurrences of the
// same element name within a feature type reuse the first declaration.
type Dynamic struct {
	schema *AppSchema
}

// NewDynamic returns a dynamic schema backed by an empty AppSchema.
func NewDynamic() *Dynamic {
	return &Dynamic{schema: NewAppSchema()}
}

// Schema exposes the feature types inferred so far.
func (d *Dynamic) Schema() *AppSchema { return d.schema }

// FeatureType returns the inferred feature type called name, creating it
// on first use.
func (d *Dynamic) FeatureType(name xml.Name) *FeatureType {
	if ft := d.schema.FeatureType(name); ft != nil {
		return ft
	}
	ft := &FeatureType{Name: name}
	// A fresh name can't collide.
	_ = d.schema.Add(ft)
	return ft
}

// Lookup returns the frozen declaration of name in ft, or nil.
func (d *Dynamic) Lookup(ft *FeatureType, name xml.Name) *PropertyType {
	return ft.Property(name)
}

// Infer returns the declaration of name in ft, creating it from shape on
// first occurrence.
func (d *Dynamic) Infer(ft *FeatureType, name xml.Name, shape Shape) *PropertyType {
	if pt := ft.Property(name); pt != nil {
		return pt
	}
	pt := &PropertyType{
		Name:      name,
		MinOccurs: 0,
		MaxOccurs: Unbounded,
	}
	switch shape {
	case ShapeSimple:
		pt.Kind = KindSimple
		pt.Primitive = String
	case ShapeGeometry:
		pt.Kind = KindGeometry
	case ShapeFeature:
		pt.Kind = KindFeature
	case ShapeEnvelope:
		pt.Kind = KindEnvelope
	}
	ft.Properties = append(ft.Properties, pt)
	return pt
}
