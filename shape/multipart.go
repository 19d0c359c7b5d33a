package shape

import (
	"fmt"

	"github.com/paulmach/orb"
)

// multiPart holds the parts of PolyLine and Polygon records. Parts are
// start indexes into Points; Z and M are nil when absent.
type multiPart struct {
	Parts  []int
	Points []orb.Point
	Z, M   []float64
}

// part returns the index range of part i.
func (mp *multiPart) part(i int) (start, end int) {
	start = mp.Parts[i]
	if i == len(mp.Parts)-1 {
		end = len(mp.Points)
	} else {
		end = mp.Parts[i+1]
	}
	return start, end
}

func (mp *multiPart) validate() error {
	n := len(mp.Points)
	for i, p := range mp.Parts {
		if p < 0 || p > n || (i == 0 && p != 0) || (i > 0 && p < mp.Parts[i-1]) {
			return fmt.Errorf("%w: part %d starts at %d of %d points", ErrInvalidParts, i, p, n)
		}
	}
	if (mp.Z != nil && len(mp.Z) != n) || (mp.M != nil && len(mp.M) != n) {
		return fmt.Errorf("%w: %d points, %d z values, %d m values", ErrInvalidParts, n, len(mp.Z), len(mp.M))
	}
	return nil
}

// readParts decodes box, counts, part starts and points.
func (mp *multiPart) readParts(c *cursor) error {
	if err := c.need(EnvelopeLength + 8); err != nil {
		return err
	}
	c.off += EnvelopeLength
	np, n := int(c.int32()), int(c.int32())
	if np < 0 || n < 0 {
		return fmt.Errorf("%w: %d parts, %d points", ErrInvalidParts, np, n)
	}
	if err := c.need(4*np + 16*n); err != nil {
		return err
	}
	mp.Parts = make([]int, np)
	for i := range mp.Parts {
		mp.Parts[i] = int(c.int32())
	}
	mp.Points = make([]orb.Point, n)
	for i := range mp.Points {
		mp.Points[i] = orb.Point{c.float64(), c.float64()}
	}
	mp.Z, mp.M = nil, nil
	return nil
}

// readMeasures decodes the Z and M blocks following the points. A record
// that ends before a complete M block has no M values; for M-only types
// they are filled with NoData so the type survives.
func (mp *multiPart) readMeasures(c *cursor, t Type) error {
	n := len(mp.Points)
	var err error
	if t.HasZ() {
		if mp.Z, err = c.measures(n); err != nil {
			return err
		}
	}
	if !t.HasM() {
		return nil
	}
	if c.remaining() >= 16+8*n {
		mp.M, err = c.measures(n)
		return err
	}
	if !t.HasZ() {
		mp.M = make([]float64, n)
		for i := range mp.M {
			mp.M[i] = NoData
		}
	}
	return nil
}

func (mp *multiPart) writeParts(c *cursor, t Type) {
	c.putInt32(int32(t))
	box := mp.envelope()
	box.Write(c.buf, c.off)
	c.off += EnvelopeLength
	c.putInt32(int32(len(mp.Parts)))
	c.putInt32(int32(len(mp.Points)))
	for _, p := range mp.Parts {
		c.putInt32(int32(p))
	}
	for _, p := range mp.Points {
		c.putFloat64(p[0])
		c.putFloat64(p[1])
	}
}

func (mp *multiPart) writeMeasures(c *cursor) {
	box := mp.envelope()
	if mp.Z != nil {
		c.putMeasures(mp.Z, box.MinZ, box.MaxZ)
	}
	if mp.M != nil {
		c.putMeasures(mp.M, box.MinM, box.MaxM)
	}
}

func (mp *multiPart) byteLength() int {
	n := len(mp.Points)
	size := 4 + EnvelopeLength + 8 + 4*len(mp.Parts) + 16*n
	if mp.Z != nil {
		size += 16 + 8*n
	}
	if mp.M != nil {
		size += 16 + 8*n
	}
	return size
}

func (mp *multiPart) envelope() Envelope {
	return pointsEnvelope(mp.Points, mp.Z, mp.M)
}

// reverse reverses the points of part i with their Z and M values.
func (mp *multiPart) reverse(i int) {
	start, end := mp.part(i)
	for a, b := start, end-1; a < b; a, b = a+1, b-1 {
		mp.Points[a], mp.Points[b] = mp.Points[b], mp.Points[a]
		if mp.Z != nil {
			mp.Z[a], mp.Z[b] = mp.Z[b], mp.Z[a]
		}
		if mp.M != nil {
			mp.M[a], mp.M[b] = mp.M[b], mp.M[a]
		}
	}
}

// PolyLineShape is a PolyLine, PolyLineZ or PolyLineM record.
type PolyLineShape struct {
	multiPart
}

func (s *PolyLineShape) Type() Type { return withDims(PolyLine, s.Z != nil, s.M != nil) }

func (s *PolyLineShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	var t Type
	if err := c.tag(func(got Type) bool { t = got; return got.Base() == PolyLine }); err != nil {
		return off, err
	}
	if err := s.readParts(&c); err != nil {
		return off, err
	}
	if err := s.readMeasures(&c, t); err != nil {
		return off, err
	}
	return c.off, s.validate()
}

func (s *PolyLineShape) Write(buf []byte, off int) (int, error) {
	if err := s.validate(); err != nil {
		return off, err
	}
	c := cursor{buf: buf, off: off}
	if err := c.need(s.ByteLength()); err != nil {
		return off, err
	}
	s.writeParts(&c, s.Type())
	s.writeMeasures(&c)
	return c.off, nil
}

func (s *PolyLineShape) ByteLength() int { return s.byteLength() }

func (s *PolyLineShape) Envelope() Envelope { return s.envelope() }

// ToGeometry returns an orb.MultiLineString with one line per part.
func (s *PolyLineShape) ToGeometry() orb.Geometry {
	mls := make(orb.MultiLineString, len(s.Parts))
	for i := range s.Parts {
		start, end := s.part(i)
		mls[i] = append(orb.LineString(nil), s.Points[start:end]...)
	}
	return mls
}

// PolygonShape is a Polygon, PolygonZ or PolygonM record. Outer marks
// the exterior rings when known; rings read from a file are classified by
// their winding instead.
type PolygonShape struct {
	multiPart
	Outer []bool

	normalized bool
}

func (s *PolygonShape) Type() Type { return withDims(Polygon, s.Z != nil, s.M != nil) }

func (s *PolygonShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	var t Type
	if err := c.tag(func(got Type) bool { t = got; return got.Base() == Polygon }); err != nil {
		return off, err
	}
	if err := s.readParts(&c); err != nil {
		return off, err
	}
	if err := s.readMeasures(&c, t); err != nil {
		return off, err
	}
	s.Outer, s.normalized = nil, true
	return c.off, s.validate()
}

// Normalize winds exterior rings clockwise and interior rings counter
// clockwise. It runs once; later calls are no-ops.
func (s *PolygonShape) Normalize() {
	if s.normalized {
		return
	}
	s.normalized = true
	if len(s.Outer) != len(s.Parts) {
		return
	}
	for i := range s.Parts {
		start, end := s.part(i)
		if clockwise(s.Points[start:end]) != s.Outer[i] {
			s.reverse(i)
		}
	}
}

// Write normalizes ring orientation before encoding.
func (s *PolygonShape) Write(buf []byte, off int) (int, error) {
	if err := s.validate(); err != nil {
		return off, err
	}
	c := cursor{buf: buf, off: off}
	if err := c.need(s.ByteLength()); err != nil {
		return off, err
	}
	s.Normalize()
	s.writeParts(&c, s.Type())
	s.writeMeasures(&c)
	return c.off, nil
}

func (s *PolygonShape) ByteLength() int { return s.byteLength() }

func (s *PolygonShape) Envelope() Envelope { return s.envelope() }

// ToGeometry groups the rings into polygons: a clockwise ring starts a
// polygon and the counter clockwise rings after it are its holes. The
// result is always an orb.MultiPolygon.
func (s *PolygonShape) ToGeometry() orb.Geometry {
	var mp orb.MultiPolygon
	for i := range s.Parts {
		start, end := s.part(i)
		ring := closeRing(s.Points[start:end])
		if len(mp) == 0 || clockwise(ring) {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		mp[len(mp)-1] = append(mp[len(mp)-1], ring)
	}
	return mp
}

// clockwise reports whether pts wind clockwise. Degenerate rings count as
// clockwise.
func clockwise(pts []orb.Point) bool {
	if len(pts) < 3 {
		return true
	}
	return orb.Ring(pts).Orientation() != orb.CCW
}

// closeRing copies pts, appending the first point when the ring is not
// closed.
func closeRing(pts []orb.Point) orb.Ring {
	ring := append(orb.Ring(nil), pts...)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}
