package shape

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cursor reads and writes little-endian values over a byte slice,
// advancing off.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) need(n int) error {
	if c.off < 0 || n < 0 || c.off+n > len(c.buf) {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, c.off, len(c.buf)-c.off)
	}
	return nil
}

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(c.buf[c.off:]))
	c.off += 4
	return v
}

func (c *cursor) float64() float64 {
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.buf[c.off:]))
	c.off += 8
	return v
}

func (c *cursor) putInt32(v int32) {
	binary.LittleEndian.PutUint32(c.buf[c.off:], uint32(v))
	c.off += 4
}

func (c *cursor) putFloat64(v float64) {
	binary.LittleEndian.PutUint64(c.buf[c.off:], math.Float64bits(v))
	c.off += 8
}

// tag reads the shape type tag and checks it with ok.
func (c *cursor) tag(ok func(Type) bool) error {
	if err := c.need(4); err != nil {
		return err
	}
	t := Type(c.int32())
	if !ok(t) {
		return fmt.Errorf("%w: unexpected %v", ErrTypeMismatch, t)
	}
	return nil
}

// float64s reads n values.
func (c *cursor) float64s(n int) ([]float64, error) {
	if err := c.need(8 * n); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = c.float64()
	}
	return out, nil
}

// measures reads a range followed by n values, the layout of Z and M
// blocks. The range is recomputed on write and discarded here.
func (c *cursor) measures(n int) ([]float64, error) {
	if err := c.need(16 + 8*n); err != nil {
		return nil, err
	}
	c.off += 16
	return c.float64s(n)
}

func (c *cursor) putMeasures(v []float64, min, max float64) {
	c.putFloat64(min)
	c.putFloat64(max)
	for _, f := range v {
		c.putFloat64(f)
	}
}
