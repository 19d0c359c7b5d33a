package shapefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/deegree/featurecodec/schema"
)

// dBASE III table layout: http://www.clicketyclick.dk/databases/xbase/format/dbf.html

// FieldType is the dBASE type code of a column.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	Float     FieldType = 'F'
	Logical   FieldType = 'L'
	Date      FieldType = 'D'
)

const (
	dbfVersion      = 0x03
	dbfHeaderEnd    = 0x0D
	dbfEOF          = 0x1A
	dbfDeleted      = 0x2A
	dbfLive         = 0x20
	dbfNameLength   = 11
	dbfFieldLength  = 32
	dbfMaxCharacter = 254
)

// Field describes one column of an attribute table.
type Field struct {
	Name     string
	Type     FieldType
	Length   int
	Decimals int
}

// Primitive returns the simple type values of the field are read as.
func (f Field) Primitive() schema.PrimitiveKind {
	switch f.Type {
	case Numeric, Float:
		if f.Decimals == 0 {
			return schema.Integer
		}
		return schema.Double
	case Logical:
		return schema.Boolean
	case Date:
		return schema.Date
	}
	return schema.String
}

// dbfHeader is the fixed 32-byte table header.
type dbfHeader struct {
	Version        byte
	LastUpdate     [3]uint8 // YY MM DD, YY = years since 1900
	NumRecords     uint32
	LenHeader      uint16
	LenRecord      uint16
	_              [2]byte
	IncompleteTx   byte
	EncFlag        byte
	FreeRecThread  uint32
	_              [8]byte
	MDXFlag        byte
	LanguageDriver byte
	_              [2]byte
}

type fieldDescriptor struct {
	Name          [dbfNameLength]byte
	Type          FieldType
	DataAddr      uint32
	Length        uint8
	DecimalCount  uint8
	_             [2]byte
	WorkAreaID    byte
	_             [2]byte
	FlagSetField  byte
	_             [7]byte
	IndexFieldFlg byte
}

func (fd *fieldDescriptor) name() string {
	n := bytes.IndexByte(fd.Name[:], 0)
	if n < 0 {
		n = len(fd.Name)
	}
	return strings.TrimSpace(string(fd.Name[:n]))
}

// DBFReader reads the rows of an attribute table in order.
type DBFReader struct {
	r      io.Reader
	header dbfHeader
	fields []Field
	row    []byte
	read   uint32
}

// NewDBFReader reads the table header and field descriptors.
func NewDBFReader(r io.Reader) (*DBFReader, error) {
	d := &DBFReader{r: r}
	if err := binary.Read(r, le, &d.header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidDBF, err)
	}
	if d.header.LenHeader < dbfFieldLength+1 {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidDBF, d.header.LenHeader)
	}

	// Descriptors run up to the terminator; anything after it up to
	// LenHeader is skipped.
	rest := make([]byte, int(d.header.LenHeader)-dbfFieldLength)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("%w: field descriptors: %v", ErrInvalidDBF, err)
	}
	width := 1
	for off := 0; off+dbfFieldLength <= len(rest) && rest[off] != dbfHeaderEnd; off += dbfFieldLength {
		var fd fieldDescriptor
		if err := binary.Read(bytes.NewReader(rest[off:off+dbfFieldLength]), le, &fd); err != nil {
			return nil, fmt.Errorf("%w: field descriptor: %v", ErrInvalidDBF, err)
		}
		d.fields = append(d.fields, Field{
			Name:     fd.name(),
			Type:     fd.Type,
			Length:   int(fd.Length),
			Decimals: int(fd.DecimalCount),
		})
		width += int(fd.Length)
	}
	if width > int(d.header.LenRecord) {
		return nil, fmt.Errorf("%w: fields need %d bytes, records have %d", ErrInvalidDBF, width, d.header.LenRecord)
	}
	d.row = make([]byte, d.header.LenRecord)
	return d, nil
}

// Fields returns the column descriptions.
func (d *DBFReader) Fields() []Field { return d.fields }

// Len returns the number of rows the header declares.
func (d *DBFReader) Len() int { return int(d.header.NumRecords) }

// Next returns the trimmed text of each field of the next row and whether
// the row is marked deleted. It returns io.EOF after the last row.
func (d *DBFReader) Next() (values []string, deleted bool, err error) {
	if d.read == d.header.NumRecords {
		return nil, false, io.EOF
	}
	if _, err := io.ReadFull(d.r, d.row); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, false, fmt.Errorf("%w: row %d: %v", ErrInvalidDBF, d.read+1, err)
	}
	d.read++

	values = make([]string, len(d.fields))
	off := 1
	for i, f := range d.fields {
		values[i] = strings.TrimSpace(string(d.row[off : off+f.Length]))
		off += f.Length
	}
	return values, d.row[0] == dbfDeleted, nil
}

// DBFWriter collects rows and writes the table on Close.
type DBFWriter struct {
	w       io.Writer
	fields  []Field
	rows    bytes.Buffer
	n       uint32
	width   int
	updated time.Time
}

// NewDBFWriter returns a writer for a table with the given fields. Names
// longer than ten bytes are truncated.
func NewDBFWriter(w io.Writer, fields []Field) (*DBFWriter, error) {
	d := &DBFWriter{w: w, width: 1, updated: time.Now()}
	for _, f := range fields {
		if f.Length <= 0 || f.Length > 255 {
			return nil, fmt.Errorf("%w: field %s has length %d", ErrInvalidDBF, f.Name, f.Length)
		}
		if len(f.Name) > dbfNameLength-1 {
			f.Name = f.Name[:dbfNameLength-1]
		}
		d.fields = append(d.fields, f)
		d.width += f.Length
	}
	if d.width > 0xFFFF {
		return nil, fmt.Errorf("%w: record width %d", ErrInvalidDBF, d.width)
	}
	return d, nil
}

// Fields returns the column descriptions as written.
func (d *DBFWriter) Fields() []Field { return d.fields }

// Write appends a row. Values are the field texts: character fields are
// left aligned, all others right aligned. A value longer than its field
// fails with ErrFieldOverflow.
func (d *DBFWriter) Write(values []string) error {
	if len(values) != len(d.fields) {
		return fmt.Errorf("%w: %d values for %d fields", ErrInvalidDBF, len(values), len(d.fields))
	}
	row := make([]byte, 0, d.width)
	row = append(row, dbfLive)
	for i, f := range d.fields {
		v := values[i]
		if len(v) > f.Length {
			return fmt.Errorf("%w: %q in %s(%d)", ErrFieldOverflow, v, f.Name, f.Length)
		}
		pad := strings.Repeat(" ", f.Length-len(v))
		if f.Type == Character {
			row = append(row, v...)
			row = append(row, pad...)
		} else {
			row = append(row, pad...)
			row = append(row, v...)
		}
	}
	d.rows.Write(row)
	d.n++
	return nil
}

// Close writes header, descriptors, rows and the end-of-file marker.
func (d *DBFWriter) Close() error {
	h := dbfHeader{
		Version:    dbfVersion,
		LastUpdate: [3]uint8{uint8(d.updated.Year() - 1900), uint8(d.updated.Month()), uint8(d.updated.Day())},
		NumRecords: d.n,
		LenHeader:  uint16(dbfFieldLength*(len(d.fields)+1) + 1),
		LenRecord:  uint16(d.width),
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, le, &h); err != nil {
		return err
	}
	for _, f := range d.fields {
		fd := fieldDescriptor{Type: f.Type, Length: uint8(f.Length), DecimalCount: uint8(f.Decimals)}
		copy(fd.Name[:], f.Name)
		if err := binary.Write(&buf, le, &fd); err != nil {
			return err
		}
	}
	buf.WriteByte(dbfHeaderEnd)
	d.rows.WriteByte(dbfEOF)

	if _, err := d.w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := d.w.Write(d.rows.Bytes())
	return err
}
