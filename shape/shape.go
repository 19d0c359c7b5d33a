// Package shape encodes and decodes the geometry records of ESRI
// shapefiles.
//
// Every shape reads and writes its record content, starting with the
// little-endian shape type tag, at a byte offset of a caller-owned buffer
// and returns the offset just past the bytes it consumed or produced.
// Shapes convert to and from github.com/paulmach/orb geometries; Z and M
// values are kept on the shape but not carried into the 2D orb model.
package shape

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// Common errors returned by this package.
var (
	ErrShortBuffer         = errors.New("shape: buffer too short")
	ErrUnknownType         = errors.New("shape: unknown shape type")
	ErrTypeMismatch        = errors.New("shape: shape type mismatch")
	ErrInvalidParts        = errors.New("shape: invalid part index")
	ErrUnsupportedGeometry = errors.New("shape: unsupported geometry")
)

// Type is the shape type code of a record or file.
type Type int32

// Shape type codes.
const (
	Null        Type = 0
	Point       Type = 1
	PolyLine    Type = 3
	Polygon     Type = 5
	MultiPoint  Type = 8
	PointZ      Type = 11
	PolyLineZ   Type = 13
	PolygonZ    Type = 15
	MultiPointZ Type = 18
	PointM      Type = 21
	PolyLineM   Type = 23
	PolygonM    Type = 25
	MultiPointM Type = 28
	MultiPatch  Type = 31
)

var typeNames = map[Type]string{
	Null:        "NULL",
	Point:       "POINT",
	PolyLine:    "POLYLINE",
	Polygon:     "POLYGON",
	MultiPoint:  "MULTIPOINT",
	PointZ:      "POINTZ",
	PolyLineZ:   "POLYLINEZ",
	PolygonZ:    "POLYGONZ",
	MultiPointZ: "MULTIPOINTZ",
	PointM:      "POINTM",
	PolyLineM:   "POLYLINEM",
	PolygonM:    "POLYGONM",
	MultiPointM: "MULTIPOINTM",
	MultiPatch:  "MULTIPATCH",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// Valid reports whether t is one of the documented shape types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// HasZ reports whether records of type t carry a Z block.
func (t Type) HasZ() bool {
	switch t {
	case PointZ, PolyLineZ, PolygonZ, MultiPointZ, MultiPatch:
		return true
	}
	return false
}

// HasM reports whether records of type t may carry an M block.
func (t Type) HasM() bool {
	return t.HasZ() || t == PointM || t == PolyLineM || t == PolygonM || t == MultiPointM
}

// Base returns the 2D type of t: Point, PolyLine, Polygon, MultiPoint,
// MultiPatch or Null.
func (t Type) Base() Type {
	switch t {
	case PointZ, PointM:
		return Point
	case PolyLineZ, PolyLineM:
		return PolyLine
	case PolygonZ, PolygonM:
		return Polygon
	case MultiPointZ, MultiPointM:
		return MultiPoint
	}
	return t
}

// withDims returns the variant of the 2D type base carrying z and m.
func withDims(base Type, z, m bool) Type {
	switch {
	case z:
		return base + 10
	case m:
		return base + 20
	}
	return base
}

// Shape is one geometry record.
type Shape interface {
	// Type returns the shape type tag written by Write.
	Type() Type

	// Read decodes the record content starting at off and returns the
	// offset past the consumed bytes. The end of buf is the end of the
	// record.
	Read(buf []byte, off int) (int, error)

	// Write encodes the record content at off and returns the offset
	// past the written bytes.
	Write(buf []byte, off int) (int, error)

	// ByteLength is the number of bytes Write produces.
	ByteLength() int

	Envelope() Envelope
	ToGeometry() orb.Geometry
}

// New returns an empty shape that reads records of type t.
func New(t Type) (Shape, error) {
	switch t.Base() {
	case Null:
		return &NullShape{}, nil
	case Point:
		return &PointShape{}, nil
	case PolyLine:
		return &PolyLineShape{}, nil
	case Polygon:
		return &PolygonShape{}, nil
	case MultiPoint:
		return &MultiPointShape{}, nil
	case MultiPatch:
		return &MultiPatchShape{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownType, int32(t))
}

// Decode reads a record of any type at off, dispatching on its type tag.
func Decode(buf []byte, off int) (Shape, int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.need(4); err != nil {
		return nil, off, err
	}
	s, err := New(Type(c.int32()))
	if err != nil {
		return nil, off, err
	}
	end, err := s.Read(buf, off)
	return s, end, err
}

// NullShape is a record without geometry.
type NullShape struct{}

func (*NullShape) Type() Type { return Null }

func (*NullShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.tag(func(t Type) bool { return t == Null }); err != nil {
		return off, err
	}
	return c.off, nil
}

func (*NullShape) Write(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.need(4); err != nil {
		return off, err
	}
	c.putInt32(int32(Null))
	return c.off, nil
}

func (*NullShape) ByteLength() int { return 4 }

func (*NullShape) Envelope() Envelope { return Envelope{} }

func (*NullShape) ToGeometry() orb.Geometry { return nil }
