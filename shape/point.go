package shape

import "github.com/paulmach/orb"

// NoData is written for M values a PointZ record lacks. Values below
// noDataLimit are left out of envelopes.
const (
	NoData      = -1e39
	noDataLimit = -1e38
)

// PointShape is a Point, PointZ or PointM record.
type PointShape struct {
	X, Y float64
	Z, M float64
	HasZ bool
	HasM bool
}

func (p *PointShape) Type() Type { return withDims(Point, p.HasZ, p.HasM) }

func (p *PointShape) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	var t Type
	err := c.tag(func(got Type) bool { t = got; return got.Base() == Point })
	if err != nil {
		return off, err
	}
	if err := c.need(16); err != nil {
		return off, err
	}
	p.X, p.Y = c.float64(), c.float64()
	p.Z, p.M, p.HasZ, p.HasM = 0, 0, false, false

	switch t {
	case PointZ:
		if err := c.need(8); err != nil {
			return off, err
		}
		p.Z, p.HasZ = c.float64(), true
		// M is optional in PointZ records.
		if c.remaining() >= 8 {
			p.M, p.HasM = c.float64(), true
		}
	case PointM:
		if err := c.need(8); err != nil {
			return off, err
		}
		p.M, p.HasM = c.float64(), true
	}
	return c.off, nil
}

func (p *PointShape) Write(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.need(p.ByteLength()); err != nil {
		return off, err
	}
	t := p.Type()
	c.putInt32(int32(t))
	c.putFloat64(p.X)
	c.putFloat64(p.Y)
	switch t {
	case PointZ:
		c.putFloat64(p.Z)
		c.putFloat64(p.m())
	case PointM:
		c.putFloat64(p.m())
	}
	return c.off, nil
}

func (p *PointShape) m() float64 {
	if p.HasM {
		return p.M
	}
	return NoData
}

func (p *PointShape) ByteLength() int {
	switch p.Type() {
	case PointZ:
		return 4 + 32
	case PointM:
		return 4 + 24
	}
	return 4 + 16
}

func (p *PointShape) Envelope() Envelope {
	e := Envelope{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
	if p.HasZ {
		e.MinZ, e.MaxZ, e.HasZ = p.Z, p.Z, true
	}
	if p.HasM && p.M > noDataLimit {
		e.MinM, e.MaxM, e.HasM = p.M, p.M, true
	}
	return e
}

func (p *PointShape) ToGeometry() orb.Geometry { return orb.Point{p.X, p.Y} }
