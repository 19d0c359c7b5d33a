package shape

import (
	"fmt"

	"github.com/paulmach/orb"
)

// MultiPointShape is a MultiPoint, MultiPointZ or MultiPointM record.
type MultiPointShape struct {
	Points []orb.Point
	Z, M   []float64
}

func (s *MultiPointShape) Type() Type { return withDims(MultiPoint, s.Z != nil, s.M != nil) }

func (s *MultiPointShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	var t Type
	if err := c.tag(func(got Type) bool { t = got; return got.Base() == MultiPoint }); err != nil {
		return off, err
	}
	if err := c.need(EnvelopeLength + 4); err != nil {
		return off, err
	}
	c.off += EnvelopeLength
	n := int(c.int32())
	if n < 0 {
		return off, fmt.Errorf("%w: %d points", ErrInvalidParts, n)
	}
	if err := c.need(16 * n); err != nil {
		return off, err
	}
	s.Points = make([]orb.Point, n)
	for i := range s.Points {
		s.Points[i] = orb.Point{c.float64(), c.float64()}
	}

	// Same Z/M layout as multi-part records.
	var mp multiPart
	mp.Points = s.Points
	if err := mp.readMeasures(&c, t); err != nil {
		return off, err
	}
	s.Z, s.M = mp.Z, mp.M
	return c.off, nil
}

func (s *MultiPointShape) Write(buf []byte, off int) (int, error) {
	n := len(s.Points)
	if (s.Z != nil && len(s.Z) != n) || (s.M != nil && len(s.M) != n) {
		return off, fmt.Errorf("%w: %d points, %d z values, %d m values", ErrInvalidParts, n, len(s.Z), len(s.M))
	}
	c := cursor{buf: buf, off: off}
	if err := c.need(s.ByteLength()); err != nil {
		return off, err
	}
	c.putInt32(int32(s.Type()))
	box := s.Envelope()
	box.Write(c.buf, c.off)
	c.off += EnvelopeLength
	c.putInt32(int32(n))
	for _, p := range s.Points {
		c.putFloat64(p[0])
		c.putFloat64(p[1])
	}
	if s.Z != nil {
		c.putMeasures(s.Z, box.MinZ, box.MaxZ)
	}
	if s.M != nil {
		c.putMeasures(s.M, box.MinM, box.MaxM)
	}
	return c.off, nil
}

func (s *MultiPointShape) ByteLength() int {
	n := len(s.Points)
	size := 4 + EnvelopeLength + 4 + 16*n
	if s.Z != nil {
		size += 16 + 8*n
	}
	if s.M != nil {
		size += 16 + 8*n
	}
	return size
}

func (s *MultiPointShape) Envelope() Envelope { return pointsEnvelope(s.Points, s.Z, s.M) }

func (s *MultiPointShape) ToGeometry() orb.Geometry {
	return append(orb.MultiPoint(nil), s.Points...)
}
