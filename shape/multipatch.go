package shape

import (
	"fmt"

	"github.com/paulmach/orb"
)

// PartType tags how the points of a multipatch part form surfaces.
type PartType int32

// Multipatch part types.
const (
	TriangleStrip PartType = 0
	TriangleFan   PartType = 1
	OuterRing     PartType = 2
	InnerRing     PartType = 3
	FirstRing     PartType = 4
	Ring          PartType = 5
)

func (p PartType) String() string {
	switch p {
	case TriangleStrip:
		return "TriangleStrip"
	case TriangleFan:
		return "TriangleFan"
	case OuterRing:
		return "OuterRing"
	case InnerRing:
		return "InnerRing"
	case FirstRing:
		return "FirstRing"
	case Ring:
		return "Ring"
	}
	return fmt.Sprintf("PartType(%d)", int32(p))
}

// MultiPatchShape is a MultiPatch record. Z values are always encoded;
// a nil Z is written as zeros.
type MultiPatchShape struct {
	multiPart
	PartTypes []PartType
}

func (*MultiPatchShape) Type() Type { return MultiPatch }

func (s *MultiPatchShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.tag(func(got Type) bool { return got == MultiPatch }); err != nil {
		return off, err
	}
	if err := c.need(EnvelopeLength + 8); err != nil {
		return off, err
	}
	c.off += EnvelopeLength
	np, n := int(c.int32()), int(c.int32())
	if np < 0 || n < 0 {
		return off, fmt.Errorf("%w: %d parts, %d points", ErrInvalidParts, np, n)
	}
	if err := c.need(8*np + 16*n); err != nil {
		return off, err
	}
	s.Parts = make([]int, np)
	for i := range s.Parts {
		s.Parts[i] = int(c.int32())
	}
	s.PartTypes = make([]PartType, np)
	for i := range s.PartTypes {
		pt := PartType(c.int32())
		if pt < TriangleStrip || pt > Ring {
			return off, fmt.Errorf("%w: part %d has type %d", ErrInvalidParts, i, int32(pt))
		}
		s.PartTypes[i] = pt
	}
	s.Points = make([]orb.Point, n)
	for i := range s.Points {
		s.Points[i] = orb.Point{c.float64(), c.float64()}
	}
	s.Z, s.M = nil, nil
	if err := s.readMeasures(&c, MultiPatch); err != nil {
		return off, err
	}
	return c.off, s.validate()
}

func (s *MultiPatchShape) Write(buf []byte, off int) (int, error) {
	if err := s.validate(); err != nil {
		return off, err
	}
	if len(s.PartTypes) != len(s.Parts) {
		return off, fmt.Errorf("%w: %d parts, %d part types", ErrInvalidParts, len(s.Parts), len(s.PartTypes))
	}
	c := cursor{buf: buf, off: off}
	if err := c.need(s.ByteLength()); err != nil {
		return off, err
	}
	c.putInt32(int32(MultiPatch))
	box := s.Envelope()
	box.Write(c.buf, c.off)
	c.off += EnvelopeLength
	c.putInt32(int32(len(s.Parts)))
	c.putInt32(int32(len(s.Points)))
	for _, p := range s.Parts {
		c.putInt32(int32(p))
	}
	for _, pt := range s.PartTypes {
		c.putInt32(int32(pt))
	}
	for _, p := range s.Points {
		c.putFloat64(p[0])
		c.putFloat64(p[1])
	}
	z := s.Z
	if z == nil {
		z = make([]float64, len(s.Points))
	}
	c.putMeasures(z, box.MinZ, box.MaxZ)
	if s.M != nil {
		c.putMeasures(s.M, box.MinM, box.MaxM)
	}
	return c.off, nil
}

func (s *MultiPatchShape) ByteLength() int {
	size := s.byteLength() + 4*len(s.Parts)
	if s.Z == nil {
		size += 16 + 8*len(s.Points)
	}
	return size
}

func (s *MultiPatchShape) Envelope() Envelope {
	e := s.envelope()
	e.HasZ = true
	return e
}

// ToGeometry expands the patch into an orb.MultiPolygon. Triangle strips
// and fans give one triangle per step. Ring parts are grouped into
// polygons: outer rings start a polygon and inner rings join it, while
// first and plain rings are classified by winding.
func (s *MultiPatchShape) ToGeometry() orb.Geometry {
	var (
		mp  orb.MultiPolygon
		cur orb.Polygon
	)
	flush := func() {
		if cur != nil {
			mp = append(mp, cur)
			cur = nil
		}
	}
	for i := range s.Parts {
		start, end := s.part(i)
		pts := s.Points[start:end]
		switch s.PartTypes[i] {
		case TriangleStrip:
			flush()
			for j := 2; j < len(pts); j++ {
				mp = append(mp, triangle(pts[j-2], pts[j-1], pts[j]))
			}
		case TriangleFan:
			flush()
			for j := 2; j < len(pts); j++ {
				mp = append(mp, triangle(pts[0], pts[j-1], pts[j]))
			}
		case OuterRing:
			flush()
			cur = orb.Polygon{closeRing(pts)}
		case InnerRing:
			if cur == nil {
				cur = orb.Polygon{closeRing(pts)}
			} else {
				cur = append(cur, closeRing(pts))
			}
		case FirstRing, Ring:
			ring := closeRing(pts)
			if cur == nil || clockwise(ring) {
				flush()
				cur = orb.Polygon{ring}
			} else {
				cur = append(cur, ring)
			}
		}
	}
	flush()
	return mp
}

func triangle(a, b, c orb.Point) orb.Polygon {
	return orb.Polygon{{a, b, c, a}}
}
