// Package schema models application schemas: feature types, their ordered
// property declarations with occurrence bounds, and substitution groups.
//
// The reader and writer in package gml use these declarations to match
// incoming elements against the expected property sequence and to dispatch
// on the kind of each property.
package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Unbounded is the MaxOccurs value for declarations without an upper bound.
const Unbounded = -1

// GMLNamespace is the GML 3.2 namespace, used when resolving the "gml"
// prefix in schema descriptions that don't declare it.
const GMLNamespace = "http://www.opengis.net/gml/3.2"

// Common errors returned by this package.
var (
	ErrDuplicateFeatureType = errors.New("schema: duplicate feature type")
	ErrUnknownKind          = errors.New("schema: unknown property kind")
	ErrUnknownPrimitive     = errors.New("schema: unknown primitive type")
	ErrUnknownGeometryType  = errors.New("schema: unknown geometry type")
)

// Kind tags the variant of a property declaration.
type Kind int

const (
	KindSimple Kind = iota
	KindGeometry
	KindFeature
	KindEnvelope
	KindCode
	KindMeasure
	KindStringOrRef
	KindArray
	KindCustom
)

var kindNames = [...]string{"simple", "geometry", "feature", "envelope", "code", "measure", "stringOrRef", "array", "custom"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind named s (case-insensitive).
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// PrimitiveKind is the declared base type of a simple property.
type PrimitiveKind int

const (
	String PrimitiveKind = iota
	Boolean
	Decimal
	Double
	Integer
	Date
	DateTime
	Time
)

var primitiveNames = [...]string{"string", "boolean", "decimal", "double", "integer", "date", "dateTime", "time"}

func (k PrimitiveKind) String() string {
	if k < 0 || int(k) >= len(primitiveNames) {
		return fmt.Sprintf("PrimitiveKind(%d)", int(k))
	}
	return primitiveNames[k]
}

// ParsePrimitiveKind returns the PrimitiveKind named s (case-insensitive).
// The XML Schema aliases "int", "long", "float" and "datetime" are accepted.
func ParsePrimitiveKind(s string) (PrimitiveKind, error) {
	switch strings.ToLower(s) {
	case "int", "long", "short":
		return Integer, nil
	case "float":
		return Double, nil
	}
	for i, n := range primitiveNames {
		if strings.EqualFold(n, s) {
			return PrimitiveKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPrimitive, s)
}

// GeometryType names a geometry class a geometry property may hold.
type GeometryType int

const (
	AnyGeometry GeometryType = iota
	Point
	LineString
	Polygon
	MultiPoint
	MultiLineString
	MultiPolygon
	GeometryCollection
	EnvelopeGeometry
)

var geometryTypeNames = [...]string{"Geometry", "Point", "LineString", "Polygon", "MultiPoint", "MultiLineString", "MultiPolygon", "GeometryCollection", "Envelope"}

func (g GeometryType) String() string {
	if g < 0 || int(g) >= len(geometryTypeNames) {
		return fmt.Sprintf("GeometryType(%d)", int(g))
	}
	return geometryTypeNames[g]
}

// ParseGeometryType returns the GeometryType named s (case-insensitive).
// "Curve" and "Surface" alias LineString and Polygon.
func ParseGeometryType(s string) (GeometryType, error) {
	switch strings.ToLower(s) {
	case "curve":
		return LineString, nil
	case "surface":
		return Polygon, nil
	case "multicurve":
		return MultiLineString, nil
	case "multisurface":
		return MultiPolygon, nil
	}
	for i, n := range geometryTypeNames {
		if strings.EqualFold(n, s) {
			return GeometryType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGeometryType, s)
}

// Accepts reports whether g is an instance of the geometry type.
func (g GeometryType) Accepts(geom orb.Geometry) bool {
	switch g {
	case AnyGeometry:
		return true
	case Point:
		_, ok := geom.(orb.Point)
		return ok
	case LineString:
		_, ok := geom.(orb.LineString)
		return ok
	case Polygon:
		switch geom.(type) {
		case orb.Polygon, orb.Ring:
			return true
		}
	case MultiPoint:
		_, ok := geom.(orb.MultiPoint)
		return ok
	case MultiLineString:
		_, ok := geom.(orb.MultiLineString)
		return ok
	case MultiPolygon:
		_, ok := geom.(orb.MultiPolygon)
		return ok
	case GeometryCollection:
		_, ok := geom.(orb.Collection)
		return ok
	case EnvelopeGeometry:
		_, ok := geom.(orb.Bound)
		return ok
	}
	return false
}

// ContentModel is the XSD content model of a custom element.
type ContentModel int

const (
	ContentEmpty ContentModel = iota
	ContentSimple
	ContentElement
	ContentMixed
)

var contentNames = [...]string{"empty", "simple", "element", "mixed"}

func (c ContentModel) String() string {
	if c < 0 || int(c) >= len(contentNames) {
		return fmt.Sprintf("ContentModel(%d)", int(c))
	}
	return contentNames[c]
}

// ElementDecl describes the admissible structure of a generic XML subtree
// held by a custom property.
type ElementDecl struct {
	Name        xml.Name
	Content     ContentModel
	Children    []*ElementDecl
	AnyChildren bool // element/mixed content admits any child element
}

// Child returns the declaration of the child element name, or nil when
// the content model doesn't admit it.
func (d *ElementDecl) Child(name xml.Name) *ElementDecl {
	if d == nil {
		return nil
	}
	if d.Content != ContentElement && d.Content != ContentMixed {
		return nil
	}
	for _, c := range d.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AllowsChild reports whether name may appear as a child element.
func (d *ElementDecl) AllowsChild(name xml.Name) bool {
	if d == nil {
		return true
	}
	if d.Content != ContentElement && d.Content != ContentMixed {
		return false
	}
	return d.AnyChildren || d.Child(name) != nil
}

// AllowsText reports whether non-whitespace character content is admitted.
func (d *ElementDecl) AllowsText() bool {
	return d == nil || d.Content == ContentSimple || d.Content == ContentMixed
}

// PropertyType declares one property of a feature type.
type PropertyType struct {
	Name          xml.Name
	Kind          Kind
	MinOccurs     int
	MaxOccurs     int // Unbounded for no limit
	Substitutions []xml.Name

	Primitive     PrimitiveKind  // KindSimple
	GeometryTypes []GeometryType // KindGeometry; empty admits any geometry
	ValueType     xml.Name       // KindFeature, KindArray; zero admits any feature type
	InlineOnly    bool           // KindFeature; remote references must be inlined on export
	TimeSlice     bool
	Element       *ElementDecl // KindCustom; nil admits any subtree
}

// FindConcrete returns the declaration if name is the declared element or
// one of its substitution group members, or nil.
func (pt *PropertyType) FindConcrete(name xml.Name) *PropertyType {
	if pt.Name == name {
		return pt
	}
	for _, s := range pt.Substitutions {
		if s == name {
			return pt
		}
	}
	return nil
}

// AcceptsGeometry reports whether geom matches the allowed geometry set.
func (pt *PropertyType) AcceptsGeometry(geom orb.Geometry) bool {
	if len(pt.GeometryTypes) == 0 {
		return true
	}
	for _, g := range pt.GeometryTypes {
		if g.Accepts(geom) {
			return true
		}
	}
	return false
}

// AllowedGeometries renders the allowed geometry set for messages.
func (pt *PropertyType) AllowedGeometries() string {
	if len(pt.GeometryTypes) == 0 {
		return AnyGeometry.String()
	}
	names := make([]string, len(pt.GeometryTypes))
	for i, g := range pt.GeometryTypes {
		names[i] = g.String()
	}
	return strings.Join(names, ", ")
}

// FeatureType is a named, ordered sequence of property declarations.
type FeatureType struct {
	Name       xml.Name
	Parent     xml.Name
	Abstract   bool
	Collection bool
	Properties []*PropertyType
}

// Property returns the declaration whose name or substitution group
// matches name, or nil.
func (ft *FeatureType) Property(name xml.Name) *PropertyType {
	for _, pt := range ft.Properties {
		if pt.FindConcrete(name) != nil {
			return pt
		}
	}
	return nil
}

// AppSchema holds the feature types of an application schema.
type AppSchema struct {
	types map[xml.Name]*FeatureType
	order []xml.Name
}

// NewAppSchema returns an empty schema.
func NewAppSchema() *AppSchema {
	return &AppSchema{types: make(map[xml.Name]*FeatureType)}
}

// Add registers ft.
func (s *AppSchema) Add(ft *FeatureType) error {
	if _, ok := s.types[ft.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFeatureType, QName(ft.Name))
	}
	s.types[ft.Name] = ft
	s.order = append(s.order, ft.Name)
	return nil
}

// FeatureType returns the feature type called name, or nil.
func (s *AppSchema) FeatureType(name xml.Name) *FeatureType {
	return s.types[name]
}

// FeatureTypes returns all feature types in registration order.
func (s *AppSchema) FeatureTypes() []*FeatureType {
	out := make([]*FeatureType, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.types[n])
	}
	return out
}

// IsSubType reports whether sub equals super or derives from it through
// the Parent chain.
func (s *AppSchema) IsSubType(sub, super xml.Name) bool {
	seen := make(map[xml.Name]bool)
	for n := sub; n.Local != ""; {
		if n == super {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		ft := s.types[n]
		if ft == nil {
			return false
		}
		n = ft.Parent
	}
	return false
}

// QName renders name as {namespace}local for messages.
func QName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return "{" + name.Space + "}" + name.Local
}
