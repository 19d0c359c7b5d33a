package shape

import (
	"math"

	"github.com/paulmach/orb"
)

// Envelope is the bounding box of a shape or file. The Z and M ranges are
// only meaningful when HasZ and HasM are set.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
	MinZ, MaxZ             float64
	MinM, MaxM             float64
	HasZ, HasM             bool
}

// EnvelopeLength is the encoded size of the x/y part of an envelope.
const EnvelopeLength = 32

// Bound returns the x/y range as an orb.Bound.
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.MinX, e.MinY}, Max: orb.Point{e.MaxX, e.MaxY}}
}

// Fit returns the envelope covering e and o. A dimension present in only
// one of them is taken from that one.
func (e Envelope) Fit(o Envelope) Envelope {
	e.MinX = math.Min(e.MinX, o.MinX)
	e.MinY = math.Min(e.MinY, o.MinY)
	e.MaxX = math.Max(e.MaxX, o.MaxX)
	e.MaxY = math.Max(e.MaxY, o.MaxY)

	switch {
	case e.HasZ && o.HasZ:
		e.MinZ = math.Min(e.MinZ, o.MinZ)
		e.MaxZ = math.Max(e.MaxZ, o.MaxZ)
	case o.HasZ:
		e.MinZ, e.MaxZ, e.HasZ = o.MinZ, o.MaxZ, true
	}
	switch {
	case e.HasM && o.HasM:
		e.MinM = math.Min(e.MinM, o.MinM)
		e.MaxM = math.Max(e.MaxM, o.MaxM)
	case o.HasM:
		e.MinM, e.MaxM, e.HasM = o.MinM, o.MaxM, true
	}
	return e
}

// Read decodes the x/y envelope at off.
func (e *Envelope) Read(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.need(EnvelopeLength); err != nil {
		return off, err
	}
	e.MinX, e.MinY = c.float64(), c.float64()
	e.MaxX, e.MaxY = c.float64(), c.float64()
	return c.off, nil
}

// Write encodes the x/y envelope at off.
func (e Envelope) Write(buf []byte, off int) (int, error) {
	c := cursor{buf: buf, off: off}
	if err := c.need(EnvelopeLength); err != nil {
		return off, err
	}
	c.putFloat64(e.MinX)
	c.putFloat64(e.MinY)
	c.putFloat64(e.MaxX)
	c.putFloat64(e.MaxY)
	return c.off, nil
}

func pointsEnvelope(pts []orb.Point, z, m []float64) Envelope {
	var e Envelope
	for i, p := range pts {
		if i == 0 {
			e.MinX, e.MaxX, e.MinY, e.MaxY = p[0], p[0], p[1], p[1]
			continue
		}
		e.MinX = math.Min(e.MinX, p[0])
		e.MinY = math.Min(e.MinY, p[1])
		e.MaxX = math.Max(e.MaxX, p[0])
		e.MaxY = math.Max(e.MaxY, p[1])
	}
	if z != nil {
		e.MinZ, e.MaxZ = valueRange(z)
		e.HasZ = true
	}
	if m != nil {
		e.MinM, e.MaxM, e.HasM = measureRange(m)
	}
	return e
}

// measureRange is the range of the M values that aren't NoData. Without
// any, both bounds are NoData and ok is false.
func measureRange(v []float64) (min, max float64, ok bool) {
	min, max = NoData, NoData
	for _, f := range v {
		if f <= noDataLimit {
			continue
		}
		if !ok || f < min {
			min = f
		}
		if !ok || f > max {
			max = f
		}
		ok = true
	}
	return min, max, ok
}

func valueRange(v []float64) (min, max float64) {
	for i, f := range v {
		if i == 0 || f < min {
			min = f
		}
		if i == 0 || f > max {
			max = f
		}
	}
	return min, max
}
