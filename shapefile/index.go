package shapefile

import (
	"fmt"
)

// IndexEntry locates one record of the main file: the byte offset of its
// record header and the length of its content.
type IndexEntry struct {
	Offset int
	Length int
}

const indexEntryLength = 8

// ReadIndex decodes a .shx file.
func ReadIndex(buf []byte) (Header, []IndexEntry, error) {
	var h Header
	if err := h.Read(buf); err != nil {
		return h, nil, err
	}
	body := buf[HeaderLength:]
	if len(body)%indexEntryLength != 0 {
		return h, nil, fmt.Errorf("%w: index body of %d bytes", ErrInvalidRecord, len(body))
	}
	entries := make([]IndexEntry, len(body)/indexEntryLength)
	for i := range entries {
		off := i * indexEntryLength
		entries[i] = IndexEntry{
			Offset: 2 * int(int32(be.Uint32(body[off:]))),
			Length: 2 * int(int32(be.Uint32(body[off+4:]))),
		}
	}
	return h, entries, nil
}

// WriteIndex encodes a .shx file for the given main file header.
func WriteIndex(h Header, entries []IndexEntry) []byte {
	buf := make([]byte, HeaderLength+indexEntryLength*len(entries))
	h.FileLength = len(buf)
	_ = h.Write(buf)
	for i, e := range entries {
		off := HeaderLength + i*indexEntryLength
		be.PutUint32(buf[off:], uint32(e.Offset/2))
		be.PutUint32(buf[off+4:], uint32(e.Length/2))
	}
	return buf
}
