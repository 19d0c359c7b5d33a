package shapefile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deegree/featurecodec/shape"
)

var (
	be = binary.BigEndian
	le = binary.LittleEndian
)

// Header is the 100-byte header shared by .shp and .shx files. The file
// code and length are big-endian, everything after them little-endian.
type Header struct {
	FileCode   int32
	FileLength int // in bytes, header included
	Version    int32
	Type       shape.Type
	Envelope   shape.Envelope
}

// NewHeader returns a header with the fixed file code and version.
func NewHeader(t shape.Type, env shape.Envelope, length int) Header {
	return Header{FileCode: FileCode, FileLength: length, Version: Version, Type: t, Envelope: env}
}

// Read decodes a header from the first 100 bytes of buf.
func (h *Header) Read(buf []byte) error {
	if len(buf) < HeaderLength {
		return ErrShortHeader
	}
	h.FileCode = int32(be.Uint32(buf[0:]))
	h.FileLength = 2 * int(be.Uint32(buf[24:]))
	h.Version = int32(le.Uint32(buf[28:]))
	h.Type = shape.Type(int32(le.Uint32(buf[32:])))

	f := func(off int) float64 { return math.Float64frombits(le.Uint64(buf[off:])) }
	h.Envelope = shape.Envelope{
		MinX: f(36), MinY: f(44), MaxX: f(52), MaxY: f(60),
		MinZ: f(68), MaxZ: f(76), MinM: f(84), MaxM: f(92),
		HasZ: h.Type.HasZ(), HasM: h.Type.HasM(),
	}
	return nil
}

// Write encodes the header into the first 100 bytes of buf. Unused fields
// and absent Z/M ranges are zero.
func (h Header) Write(buf []byte) error {
	if len(buf) < HeaderLength {
		return ErrShortHeader
	}
	for i := range buf[:HeaderLength] {
		buf[i] = 0
	}
	be.PutUint32(buf[0:], uint32(h.FileCode))
	be.PutUint32(buf[24:], uint32(h.FileLength/2))
	le.PutUint32(buf[28:], uint32(h.Version))
	le.PutUint32(buf[32:], uint32(h.Type))

	e := h.Envelope
	vals := []float64{e.MinX, e.MinY, e.MaxX, e.MaxY}
	if e.HasZ {
		vals = append(vals, e.MinZ, e.MaxZ)
	} else {
		vals = append(vals, 0, 0)
	}
	if e.HasM {
		vals = append(vals, e.MinM, e.MaxM)
	}
	for i, v := range vals {
		le.PutUint64(buf[36+8*i:], math.Float64bits(v))
	}
	return nil
}

// problems lists the ways h deviates from a conforming header. None of
// them stop a reader.
func (h Header) problems(size int) []string {
	var out []string
	if h.FileCode != FileCode {
		out = append(out, fmt.Sprintf("unexpected file code %d", h.FileCode))
	}
	if h.Version != Version {
		out = append(out, fmt.Sprintf("unexpected version %d", h.Version))
	}
	if h.FileLength != size {
		out = append(out, fmt.Sprintf("header declares %d bytes, file has %d", h.FileLength, size))
	}
	return out
}

// recordHeader is the big-endian prefix of each .shp record.
type recordHeader struct {
	Number int
	Length int // content bytes
}

const recordHeaderLength = 8

func (r *recordHeader) read(buf []byte, off int) {
	r.Number = int(int32(be.Uint32(buf[off:])))
	r.Length = 2 * int(int32(be.Uint32(buf[off+4:])))
}

func (r recordHeader) write(buf []byte, off int) {
	be.PutUint32(buf[off:], uint32(r.Number))
	be.PutUint32(buf[off+4:], uint32(r.Length/2))
}
