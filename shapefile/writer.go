package shapefile

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/deegree/featurecodec/shape"
)

// Writer encodes features as a shapefile triple. Records are collected in
// memory; Close writes the three files.
type Writer struct {
	shp, shx, dbfOut io.Writer
	closers          []io.Closer
	opts             *Options

	ft       *schema.FeatureType
	columns  []*schema.PropertyType
	geomName xml.Name
	dbf      *DBFWriter

	typ     shape.Type
	typed   bool
	env     shape.Envelope
	hasEnv  bool
	records bytes.Buffer
	index   []IndexEntry
	closed  bool
}

// Create opens <dir>/<base>.shp, .shx and .dbf for writing.
func Create(dir, base string, ft *schema.FeatureType, opts *Options) (*Writer, error) {
	base = strings.TrimSuffix(base, ".shp")
	var files []*os.File
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		f, err := os.Create(filepath.Join(dir, base+ext))
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return nil, err
		}
		files = append(files, f)
	}
	w := NewWriter(files[0], files[1], files[2], ft, opts.withDefaults(base))
	for _, f := range files {
		w.closers = append(w.closers, f)
	}
	return w, nil
}

// NewWriter returns a writer for the three files. A nil ft is taken from
// the first feature written. The file type follows the first non-null
// geometry unless SetType was called.
func NewWriter(shp, shx, dbf io.Writer, ft *schema.FeatureType, opts *Options) *Writer {
	return &Writer{shp: shp, shx: shx, dbfOut: dbf, ft: ft, opts: opts.withDefaults("")}
}

// SetType fixes the shape type before the first record, for example to
// write Z or M variants or a file of null shapes.
func (w *Writer) SetType(t shape.Type) { w.typ, w.typed = t, true }

// FeatureType returns the feature type the attribute columns follow, nil
// before the first feature when none was given.
func (w *Writer) FeatureType() *schema.FeatureType { return w.ft }

func (w *Writer) init(f *feature.Feature) error {
	if w.ft == nil {
		w.ft = f.Type
	}
	if w.ft == nil {
		return fmt.Errorf("shapefile: feature %q has no type", f.ID)
	}

	var fields []Field
	for _, pt := range w.ft.Properties {
		if pt.Kind == schema.KindGeometry {
			if w.geomName.Local == "" || pt.Name.Local == w.opts.GeometryProperty {
				w.geomName = pt.Name
			}
			continue
		}
		fd, ok := fieldFor(pt)
		if !ok {
			continue
		}
		w.columns = append(w.columns, pt)
		fields = append(fields, fd)
	}
	d, err := NewDBFWriter(w.dbfOut, fields)
	if err != nil {
		return err
	}
	w.dbf = d
	return nil
}

// fieldFor maps a property declaration to a column. Properties that
// cannot be flattened into a column are left out.
func fieldFor(pt *schema.PropertyType) (Field, bool) {
	f := Field{Name: pt.Name.Local}
	switch pt.Kind {
	case schema.KindSimple:
		switch pt.Primitive {
		case schema.Boolean:
			f.Type, f.Length = Logical, 1
		case schema.Integer:
			f.Type, f.Length = Numeric, 18
		case schema.Decimal:
			f.Type, f.Length, f.Decimals = Numeric, 24, 15
		case schema.Double:
			f.Type, f.Length, f.Decimals = Float, 24, 15
		case schema.Date:
			f.Type, f.Length = Date, 8
		default:
			f.Type, f.Length = Character, dbfMaxCharacter
		}
	case schema.KindMeasure:
		f.Type, f.Length, f.Decimals = Float, 24, 15
	case schema.KindCode, schema.KindStringOrRef:
		f.Type, f.Length = Character, dbfMaxCharacter
	default:
		return f, false
	}
	return f, true
}

// Write appends f as one record and attribute row. Only the first value
// of a repeated property is kept.
func (w *Writer) Write(f *feature.Feature) error {
	if w.closed {
		return ErrClosed
	}
	if w.dbf == nil {
		if err := w.init(f); err != nil {
			return err
		}
	}

	s, err := w.shapeOf(f)
	if err != nil {
		return fmt.Errorf("shapefile: feature %q: %w", f.ID, err)
	}
	row := make([]string, len(w.columns))
	for i, pt := range w.columns {
		if p := f.Property(pt.Name); p != nil {
			if row[i], err = format(w.dbf.Fields()[i], p); err != nil {
				return fmt.Errorf("shapefile: feature %q: %w", f.ID, err)
			}
		}
	}
	if err := w.dbf.Write(row); err != nil {
		return fmt.Errorf("shapefile: feature %q: %w", f.ID, err)
	}

	content := make([]byte, recordHeaderLength+s.ByteLength())
	rh := recordHeader{Number: len(w.index) + 1, Length: s.ByteLength()}
	rh.write(content, 0)
	if _, err := s.Write(content, recordHeaderLength); err != nil {
		return fmt.Errorf("shapefile: feature %q: %w", f.ID, err)
	}
	w.index = append(w.index, IndexEntry{Offset: HeaderLength + w.records.Len(), Length: rh.Length})
	w.records.Write(content)

	if s.Type() != shape.Null {
		if w.hasEnv {
			w.env = w.env.Fit(s.Envelope())
		} else {
			w.env, w.hasEnv = s.Envelope(), true
		}
	}
	return nil
}

// shapeOf converts the geometry of f. Features without geometry become
// null records.
func (w *Writer) shapeOf(f *feature.Feature) (shape.Shape, error) {
	var g *feature.Geometry
	if w.geomName.Local != "" {
		if p := f.Property(w.geomName); p != nil {
			switch v := p.Value.(type) {
			case *feature.Geometry:
				g = v
			case *feature.GeometryReference:
				g = v.Target()
			}
		}
	} else if gs := f.Geometries(); len(gs) > 0 {
		g = gs[0]
	}
	if g == nil || g.Geometry == nil {
		return &shape.NullShape{}, nil
	}

	s, err := shape.FromGeometry(g.Geometry)
	if err != nil {
		return nil, err
	}
	if !w.typed {
		w.typ, w.typed = s.Type(), true
	}
	if s.Type() != w.typ.Base() {
		return nil, fmt.Errorf("%w: %v in %v file", ErrMixedShapeTypes, s.Type(), w.typ)
	}
	return withDims(s, w.typ), nil
}

// withDims gives a 2D shape the Z block (zeros) or M block (NoData) of t.
func withDims(s shape.Shape, t shape.Type) shape.Shape {
	fill := func(n int, v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	hasZ := t.HasZ()
	hasM := t.HasM() && !hasZ
	switch s := s.(type) {
	case *shape.PointShape:
		s.HasZ, s.HasM = hasZ, hasM
		if s.HasM {
			s.M = shape.NoData
		}
	case *shape.MultiPointShape:
		if hasZ {
			s.Z = fill(len(s.Points), 0)
		}
		if hasM {
			s.M = fill(len(s.Points), shape.NoData)
		}
	case *shape.PolyLineShape:
		if hasZ {
			s.Z = fill(len(s.Points), 0)
		}
		if hasM {
			s.M = fill(len(s.Points), shape.NoData)
		}
	case *shape.PolygonShape:
		if hasZ {
			s.Z = fill(len(s.Points), 0)
		}
		if hasM {
			s.M = fill(len(s.Points), shape.NoData)
		}
	}
	return s
}

// format renders a property as field text. Nil and empty properties give
// a blank field.
func format(f Field, p *feature.Property) (string, error) {
	if p.Nil || p.Value == nil {
		if f.Type == Logical {
			return "?", nil
		}
		return "", nil
	}
	var text string
	switch v := p.Value.(type) {
	case feature.SimpleValue:
		switch {
		case f.Type == Logical:
			text = "F"
			if v.Bool {
				text = "T"
			}
		case f.Type == Date && !v.Time.IsZero():
			text = v.Time.Format("20060102")
		case v.Integer != nil:
			text = v.Integer.String()
		case v.Number != nil:
			var ok bool
			if text, ok = fitNumber(v.Number, f); !ok {
				return "", fmt.Errorf("%w: %s in %s(%d)", ErrFieldOverflow, v.Number.FloatString(f.Decimals), f.Name, f.Length)
			}
		default:
			text = v.Text
		}
	case feature.CodeValue:
		text = v.Code
	case feature.MeasureValue:
		text = v.Value
	case feature.StringOrRefValue:
		text = v.Text
		if text == "" {
			text = v.Href
		}
	default:
		return "", fmt.Errorf("%w: %s holds %T", ErrFieldOverflow, f.Name, p.Value)
	}
	if len(text) > f.Length {
		return "", fmt.Errorf("%w: %q in %s(%d)", ErrFieldOverflow, text, f.Name, f.Length)
	}
	return text, nil
}

// fitNumber renders x in at most f.Length characters, dropping decimals
// until it fits. Float columns fall back to exponent notation.
func fitNumber(x *big.Rat, f Field) (string, bool) {
	for d := f.Decimals; d >= 0; d-- {
		if s := x.FloatString(d); len(s) <= f.Length {
			return s, true
		}
	}
	if f.Type != Float {
		return "", false
	}
	v, _ := x.Float64()
	for p := f.Length; p >= 0; p-- {
		if s := strconv.FormatFloat(v, 'e', p, 64); len(s) <= f.Length {
			return s, true
		}
	}
	return "", false
}

// Close writes the main file, index and attribute table, then closes any
// files opened by Create.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.flush()
	for _, c := range w.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *Writer) flush() error {
	if w.dbf == nil {
		d, err := NewDBFWriter(w.dbfOut, nil)
		if err != nil {
			return err
		}
		w.dbf = d
	}
	env := w.env
	env.HasZ, env.HasM = w.typ.HasZ(), w.typ.HasM()
	h := NewHeader(w.typ, env, HeaderLength+w.records.Len())

	head := make([]byte, HeaderLength)
	if err := h.Write(head); err != nil {
		return err
	}
	if _, err := w.shp.Write(head); err != nil {
		return err
	}
	if _, err := w.shp.Write(w.records.Bytes()); err != nil {
		return err
	}
	if _, err := w.shx.Write(WriteIndex(h, w.index)); err != nil {
		return err
	}
	return w.dbf.Close()
}
