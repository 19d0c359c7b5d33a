package shapefile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/deegree/featurecodec/shape"
)

// Reader reads the records of a shapefile as features, in file order.
type Reader struct {
	opts     *Options
	header   Header
	buf      []byte
	index    []IndexEntry
	dbf      *DBFReader
	closer   io.Closer
	ft       *schema.FeatureType
	geomProp *schema.PropertyType

	off      int // offset of the next record header in buf
	end      int
	n        int // records read
	warnings []string
}

// Open reads <base>.shp from fsys. The .shx and .dbf companions are used
// when present.
func Open(fsys fs.FS, base string, opts *Options) (*Reader, error) {
	base = strings.TrimSuffix(base, ".shp")
	shp, err := fs.ReadFile(fsys, base+".shp")
	if err != nil {
		return nil, err
	}
	shx, err := fs.ReadFile(fsys, base+".shx")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var dbf fs.File
	if f, err := fsys.Open(base + ".dbf"); err == nil {
		dbf = f
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	o := opts.withDefaults(path.Base(base))
	var r *Reader
	if dbf != nil {
		r, err = NewReaderFromData(shp, shx, dbf, o)
		if err != nil {
			dbf.Close()
			return nil, err
		}
		r.closer = dbf
	} else {
		r, err = NewReaderFromData(shp, shx, nil, o)
		if err != nil {
			return nil, err
		}
	}
	if shx == nil {
		r.warn("no index file, reading records sequentially", "file", base+".shx")
	}
	if dbf == nil {
		r.warn("no attribute table, features carry geometry only", "file", base+".dbf")
	}
	return r, nil
}

// NewReader reads the main file from shp. The index and attribute table
// are optional and may be nil.
func NewReader(shp, shx, dbf io.Reader, opts *Options) (*Reader, error) {
	data, err := io.ReadAll(shp)
	if err != nil {
		return nil, err
	}
	var index []byte
	if shx != nil {
		if index, err = io.ReadAll(shx); err != nil {
			return nil, err
		}
	}
	return NewReaderFromData(data, index, dbf, opts)
}

// NewReaderFromData reads a main file and index held in memory. shx may be
// nil, as may dbf.
func NewReaderFromData(shp, shx []byte, dbf io.Reader, opts *Options) (*Reader, error) {
	r := &Reader{opts: opts.withDefaults(""), buf: shp, off: HeaderLength}
	if err := r.header.Read(shp); err != nil {
		return nil, err
	}
	for _, p := range r.header.problems(len(shp)) {
		r.warn("non-conforming main file header, continuing", "problem", p)
	}
	if !r.header.Type.Valid() {
		return nil, fmt.Errorf("%w: %d", shape.ErrUnknownType, int32(r.header.Type))
	}
	r.end = len(shp)
	if r.header.FileLength >= HeaderLength && r.header.FileLength < r.end {
		r.end = r.header.FileLength
	}

	if shx != nil {
		h, entries, err := ReadIndex(shx)
		if err != nil {
			r.warn("ignoring unreadable index", "error", err)
		} else {
			for _, p := range h.problems(len(shx)) {
				r.warn("non-conforming index header, continuing", "problem", p)
			}
			r.index = entries
		}
	}

	var fields []Field
	if dbf != nil {
		d, err := NewDBFReader(dbf)
		if err != nil {
			return nil, err
		}
		r.dbf = d
		fields = d.Fields()
		if r.index != nil && d.Len() != len(r.index) {
			r.warn("attribute table and index disagree on record count", "rows", d.Len(), "records", len(r.index))
		}
	}
	r.ft, r.geomProp = featureType(r.opts, fields, r.header.Type)
	return r, nil
}

// featureType derives the feature type of a shapefile: one simple
// property per attribute column followed by the geometry property.
func featureType(opts *Options, fields []Field, t shape.Type) (*schema.FeatureType, *schema.PropertyType) {
	ft := &schema.FeatureType{Name: xml.Name{Space: opts.Namespace, Local: opts.TypeName}}
	for _, f := range fields {
		ft.Properties = append(ft.Properties, &schema.PropertyType{
			Name:      xml.Name{Space: opts.Namespace, Local: f.Name},
			Kind:      schema.KindSimple,
			MinOccurs: 0,
			MaxOccurs: 1,
			Primitive: f.Primitive(),
		})
	}
	geom := &schema.PropertyType{
		Name:      xml.Name{Space: opts.Namespace, Local: opts.GeometryProperty},
		Kind:      schema.KindGeometry,
		MinOccurs: 0,
		MaxOccurs: 1,
	}
	switch t.Base() {
	case shape.Point:
		geom.GeometryTypes = []schema.GeometryType{schema.Point}
	case shape.MultiPoint:
		geom.GeometryTypes = []schema.GeometryType{schema.MultiPoint}
	case shape.PolyLine:
		geom.GeometryTypes = []schema.GeometryType{schema.MultiLineString}
	case shape.Polygon, shape.MultiPatch:
		geom.GeometryTypes = []schema.GeometryType{schema.MultiPolygon}
	}
	ft.Properties = append(ft.Properties, geom)
	return ft, geom
}

// Header returns the main file header.
func (r *Reader) Header() Header { return r.header }

// FeatureType returns the feature type of the features Read returns.
func (r *Reader) FeatureType() *schema.FeatureType { return r.ft }

// Warnings returns the anomalies met so far.
func (r *Reader) Warnings() []string { return r.warnings }

// Read returns the next record as a feature, or io.EOF after the last one.
func (r *Reader) Read() (*feature.Feature, error) {
	s, err := r.ReadShape()
	if err != nil {
		return nil, err
	}
	f := feature.New(r.ft, fmt.Sprintf("%s_%d", r.opts.TypeName, r.n), nil, nil, "")
	if r.dbf != nil {
		if err := r.attributes(f); err != nil {
			return nil, err
		}
	}
	gp := &feature.Property{Name: r.geomProp.Name, Type: r.geomProp}
	if g := s.ToGeometry(); g != nil {
		gp.Value = &feature.Geometry{SRS: r.opts.SRS, Geometry: g}
	}
	f.Properties = append(f.Properties, gp)
	return f, nil
}

// ReadAll reads the remaining records.
func (r *Reader) ReadAll() ([]*feature.Feature, error) {
	var out []*feature.Feature
	for {
		f, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

// ReadShape returns the shape of the next record without its attributes,
// or io.EOF after the last one.
func (r *Reader) ReadShape() (shape.Shape, error) {
	if r.index != nil && r.n < len(r.index) {
		switch e := r.index[r.n]; {
		case e.Offset == r.off:
		case e.Offset < HeaderLength || e.Offset+recordHeaderLength > r.end:
			r.warn("index offset out of range, reading sequentially", "record", r.n+1, "offset", r.off, "index", e.Offset)
		default:
			r.warn("record offset differs from index, following index", "record", r.n+1, "offset", r.off, "index", e.Offset)
			r.off = e.Offset
		}
	}
	if r.off+recordHeaderLength > r.end {
		if r.off < r.end {
			r.warn("trailing bytes after last record", "bytes", r.end-r.off)
		}
		return nil, io.EOF
	}

	var rh recordHeader
	rh.read(r.buf, r.off)
	start := r.off + recordHeaderLength
	if rh.Length < 0 {
		return nil, fmt.Errorf("%w: record %d declares %d bytes", ErrInvalidRecord, rh.Number, rh.Length)
	}
	end := start + rh.Length
	if end > r.end {
		r.warn("record extends past end of file", "record", rh.Number, "length", rh.Length)
		end = r.end
	}

	s, next, err := r.decode(r.buf[:end], start)
	if errors.Is(err, shape.ErrShortBuffer) {
		// The declared length is too small; trust the record content.
		s, next, err = r.decode(r.buf[:r.end], start)
	}
	if err != nil {
		return nil, fmt.Errorf("shapefile: record %d: %w", rh.Number, err)
	}
	if next != start+rh.Length {
		r.warn("record length differs from declared length", "record", rh.Number, "declared", rh.Length, "parsed", next-start)
	}
	if next < end {
		next = end
	}
	r.off = next
	r.n++
	return s, nil
}

// decode parses a record with the file's shape type. Null records may
// appear in files of any type.
func (r *Reader) decode(buf []byte, off int) (shape.Shape, int, error) {
	var s shape.Shape = &shape.NullShape{}
	if len(buf)-off < 4 || shape.Type(int32(le.Uint32(buf[off:]))) != shape.Null {
		var err error
		if s, err = shape.New(r.header.Type); err != nil {
			return nil, off, err
		}
	}
	end, err := s.Read(buf, off)
	return s, end, err
}

func (r *Reader) attributes(f *feature.Feature) error {
	values, deleted, err := r.dbf.Next()
	if err == io.EOF {
		r.warn("attribute table has fewer rows than records", "record", r.n)
		values = nil
	} else if err != nil {
		return err
	}
	if deleted {
		r.warn("attribute row marked deleted", "record", r.n)
	}
	fields := r.dbf.Fields()
	for i, pt := range r.ft.Properties[:len(fields)] {
		p := &feature.Property{Name: pt.Name, Type: pt}
		if i < len(values) && !deleted {
			p.Value = r.value(fields[i], values[i])
		}
		f.Properties = append(f.Properties, p)
	}
	return nil
}

// value converts a field text. Blank and unparsable texts give no value.
func (r *Reader) value(f Field, text string) feature.Value {
	switch f.Type {
	case Logical:
		switch text {
		case "T", "t", "Y", "y", "1":
			text = "true"
		case "F", "f", "N", "n", "0":
			text = "false"
		default:
			return nil
		}
	case Date:
		if len(text) == 8 {
			text = text[0:4] + "-" + text[4:6] + "-" + text[6:8]
		}
	}
	if text == "" {
		return nil
	}
	v, err := feature.ParseSimple(f.Primitive(), text)
	if err != nil {
		r.warn("unparsable attribute value", "record", r.n, "field", f.Name, "error", err)
		return nil
	}
	return v
}

// Close releases the attribute table opened by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) warn(msg string, args ...any) {
	r.opts.Logger.Warn(msg, args...)

	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	r.warnings = append(r.warnings, sb.String())
}
