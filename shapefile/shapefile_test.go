package shapefile

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/deegree/featurecodec/shape"
	"github.com/paulmach/orb"
)

func qname(local string) xml.Name { return xml.Name{Space: DefaultNamespace, Local: local} }

func roadType() *schema.FeatureType {
	simple := func(local string, kind schema.PrimitiveKind) *schema.PropertyType {
		return &schema.PropertyType{Name: qname(local), Kind: schema.KindSimple, Primitive: kind, MaxOccurs: 1}
	}
	return &schema.FeatureType{Name: qname("Road"), Properties: []*schema.PropertyType{
		simple("name", schema.String),
		simple("lanes", schema.Integer),
		simple("width", schema.Double),
		simple("open", schema.Boolean),
		simple("built", schema.Date),
		{Name: qname("geometry"), Kind: schema.KindGeometry, MaxOccurs: 1},
	}}
}

// road builds a feature of roadType; empty texts give nil properties.
func road(t *testing.T, ft *schema.FeatureType, id string, texts []string, g orb.Geometry) *feature.Feature {
	t.Helper()
	f := feature.New(ft, id, nil, nil, "")
	for i, text := range texts {
		pt := ft.Properties[i]
		p := &feature.Property{Name: pt.Name, Type: pt}
		if text == "" {
			p.Nil = true
		} else {
			v, err := feature.ParseSimple(pt.Primitive, text)
			if err != nil {
				t.Fatal(err)
			}
			p.Value = v
		}
		f.Properties = append(f.Properties, p)
	}
	gp := &feature.Property{Name: qname("geometry"), Type: ft.Properties[5]}
	if g != nil {
		gp.Value = &feature.Geometry{Geometry: g}
	}
	f.Properties = append(f.Properties, gp)
	return f
}

type triple struct {
	shp, shx, dbf bytes.Buffer
}

func writeRoads(t *testing.T) *triple {
	t.Helper()
	ft := roadType()
	var out triple
	w := NewWriter(&out.shp, &out.shx, &out.dbf, ft, nil)
	features := []*feature.Feature{
		road(t, ft, "r1", []string{"A1", "2", "3.5", "true", "2020-01-02"}, orb.LineString{{0, 0}, {1, 1}}),
		road(t, ft, "r2", []string{"B7", "4", "7.25", "false", "1999-12-31"}, orb.LineString{{5, 5}, {6, 8}}),
		road(t, ft, "r3", []string{"planned", "", "", "", ""}, nil),
	}
	for _, f := range features {
		if err := w.Write(f); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return &out
}

func (tr *triple) reader(t *testing.T, shp []byte, withIndex bool) *Reader {
	t.Helper()
	var shx []byte
	if withIndex {
		shx = tr.shx.Bytes()
	}
	r, err := NewReaderFromData(shp, shx, bytes.NewReader(tr.dbf.Bytes()), &Options{TypeName: "Road"})
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	return r
}

func simpleValue(t *testing.T, f *feature.Feature, local string) feature.Value {
	t.Helper()
	p := f.Property(qname(local))
	if p == nil {
		t.Fatalf("feature %s has no %s", f.ID, local)
	}
	return p.Value
}

func TestRoundTrip(t *testing.T) {
	out := writeRoads(t)
	r := out.reader(t, out.shp.Bytes(), true)

	h := r.Header()
	if h.Type != shape.PolyLine || h.FileLength != out.shp.Len() {
		t.Errorf("unexpected header %+v", h)
	}
	if h.Envelope.Bound() != (orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{6, 8}}) {
		t.Errorf("unexpected envelope %+v", h.Envelope)
	}

	ft := r.FeatureType()
	if ft.Name != qname("Road") || len(ft.Properties) != 6 {
		t.Fatalf("unexpected feature type %+v", ft)
	}
	wantKinds := []schema.PrimitiveKind{schema.String, schema.Integer, schema.Double, schema.Boolean, schema.Date}
	for i, k := range wantKinds {
		if ft.Properties[i].Primitive != k {
			t.Errorf("property %s: expected %v, got %v", ft.Properties[i].Name.Local, k, ft.Properties[i].Primitive)
		}
	}
	if gp := ft.Properties[5]; gp.Kind != schema.KindGeometry || gp.Name.Local != "geometry" {
		t.Errorf("unexpected geometry property %+v", gp)
	}

	features, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(features))
	}

	f := features[0]
	if f.ID != "Road_1" {
		t.Errorf("expected id Road_1, got %s", f.ID)
	}
	for local, text := range map[string]string{"name": "A1", "lanes": "2", "width": "3.5", "open": "true", "built": "2020-01-02"} {
		pt := ft.Property(qname(local))
		want, _ := feature.ParseSimple(pt.Primitive, text)
		got, ok := simpleValue(t, f, local).(feature.SimpleValue)
		if !ok || !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", local, want, got)
		}
	}
	g := f.Geometries()
	if len(g) != 1 || !orb.Equal(g[0].Geometry, orb.MultiLineString{{{0, 0}, {1, 1}}}) {
		t.Errorf("unexpected geometry %v", g)
	}

	last := features[2]
	if simpleValue(t, last, "lanes") != nil || simpleValue(t, last, "open") != nil {
		t.Error("blank fields should have no value")
	}
	if len(last.Geometries()) != 0 {
		t.Error("null record should have no geometry")
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", r.Warnings())
	}
}

func TestIndex(t *testing.T) {
	out := writeRoads(t)
	h, entries, err := ReadIndex(out.shx.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if h.FileLength != out.shx.Len() || h.Type != shape.PolyLine {
		t.Errorf("unexpected index header %+v", h)
	}
	want := []IndexEntry{{100, 80}, {188, 80}, {276, 4}}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestHeaderSoftValidation(t *testing.T) {
	out := writeRoads(t)
	shp := append([]byte(nil), out.shp.Bytes()...)
	be.PutUint32(shp[0:], 9999)
	le.PutUint32(shp[28:], 999)

	r := out.reader(t, shp, true)
	features, err := r.ReadAll()
	if err != nil {
		t.Fatalf("a non-conforming header must not stop reading: %v", err)
	}
	if len(features) != 3 {
		t.Errorf("expected 3 features, got %d", len(features))
	}
	if len(r.Warnings()) != 2 {
		t.Errorf("expected 2 warnings, got %v", r.Warnings())
	}
}

func TestRecordLengthRecovery(t *testing.T) {
	out := writeRoads(t)

	t.Run("declared too long, index", func(t *testing.T) {
		shp := append([]byte(nil), out.shp.Bytes()...)
		be.PutUint32(shp[104:], 44)
		r := out.reader(t, shp, true)
		features, err := r.ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(features) != 3 || features[1].Geometries()[0].Geometry.Bound().Max != (orb.Point{6, 8}) {
			t.Errorf("records after the bad one should be intact, got %d features", len(features))
		}
		if len(r.Warnings()) != 2 {
			t.Errorf("expected length and offset warnings, got %v", r.Warnings())
		}
	})

	t.Run("declared too short", func(t *testing.T) {
		shp := append([]byte(nil), out.shp.Bytes()...)
		be.PutUint32(shp[104:], 36)
		r := out.reader(t, shp, false)
		features, err := r.ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(features) != 3 {
			t.Errorf("expected 3 features, got %d", len(features))
		}
		if len(r.Warnings()) != 1 {
			t.Errorf("expected one length warning, got %v", r.Warnings())
		}
	})
}

func TestCorruptIndexOffsets(t *testing.T) {
	out := writeRoads(t)

	tests := []struct {
		name  string
		entry int
		words uint32
	}{
		{"negative", 1, 0x80000000},
		{"inside header", 1, 10},
		{"past end", 2, 0x7ffffff0},
		{"no room for record header", 2, uint32(out.shp.Len()/2 - 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shx := append([]byte(nil), out.shx.Bytes()...)
			be.PutUint32(shx[HeaderLength+tt.entry*indexEntryLength:], tt.words)

			r, err := NewReaderFromData(out.shp.Bytes(), shx, bytes.NewReader(out.dbf.Bytes()), &Options{TypeName: "Road"})
			if err != nil {
				t.Fatalf("NewReaderFromData failed: %v", err)
			}
			features, err := r.ReadAll()
			if err != nil {
				t.Fatalf("a corrupt index entry must not stop reading: %v", err)
			}
			if len(features) != 3 {
				t.Fatalf("expected 3 features, got %d", len(features))
			}
			if got := simpleValue(t, features[1], "name").(feature.SimpleValue).Text; got != "B7" {
				t.Errorf("expected second record B7, got %q", got)
			}
			if len(r.Warnings()) != 1 {
				t.Errorf("expected one offset warning, got %v", r.Warnings())
			}
		})
	}
}

func TestGeometryOnly(t *testing.T) {
	out := writeRoads(t)
	r, err := NewReader(bytes.NewReader(out.shp.Bytes()), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != "Feature_1" || len(f.Properties) != 1 {
		t.Errorf("expected a geometry-only feature, got %s with %d properties", f.ID, len(f.Properties))
	}
}

func TestMixedShapeTypes(t *testing.T) {
	ft := roadType()
	var out triple
	w := NewWriter(&out.shp, &out.shx, &out.dbf, ft, nil)
	texts := []string{"a", "1", "1", "true", "2020-01-01"}
	if err := w.Write(road(t, ft, "p", texts, orb.Point{1, 2})); err != nil {
		t.Fatal(err)
	}
	err := w.Write(road(t, ft, "l", texts, orb.LineString{{0, 0}, {1, 1}}))
	if !errors.Is(err, ErrMixedShapeTypes) {
		t.Errorf("expected mixed shape types, got %v", err)
	}
}

func TestMTypeHeaderRange(t *testing.T) {
	ft := roadType()
	var out triple
	w := NewWriter(&out.shp, &out.shx, &out.dbf, ft, nil)
	w.SetType(shape.PolyLineM)
	texts := []string{"m", "", "", "", ""}
	if err := w.Write(road(t, ft, "m", texts, orb.LineString{{0, 0}, {3, 4}})); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := out.reader(t, out.shp.Bytes(), true)
	if env := r.Header().Envelope; env.MinM != 0 || env.MaxM != 0 {
		t.Errorf("filled measures must stay out of the header range, got %v..%v", env.MinM, env.MaxM)
	}
	s, err := r.ReadShape()
	if err != nil {
		t.Fatal(err)
	}
	if s.Type() != shape.PolyLineM || s.Envelope().HasM {
		t.Errorf("expected a PolyLineM record without measures, got %v %+v", s.Type(), s.Envelope())
	}
}

func TestWideNumbers(t *testing.T) {
	ft := roadType()
	var out triple
	w := NewWriter(&out.shp, &out.shx, &out.dbf, ft, nil)
	widths := []string{"123456789.5", "-98765432101.25", "1e30"}
	for i, width := range widths {
		f := road(t, ft, fmt.Sprint("w", i), []string{"w", "", width, "", ""}, nil)
		if err := w.Write(f); err != nil {
			t.Fatalf("Write %s failed: %v", width, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := out.reader(t, out.shp.Bytes(), true)
	features, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != len(widths) {
		t.Fatalf("expected %d features, got %d", len(widths), len(features))
	}
	for i, width := range widths {
		want, _ := new(big.Rat).SetString(width)
		got, ok := simpleValue(t, features[i], "width").(feature.SimpleValue)
		if !ok || got.Number == nil {
			t.Errorf("%s: expected a number, got %#v", width, simpleValue(t, features[i], "width"))
			continue
		}
		wf, _ := want.Float64()
		gf, _ := got.Number.Float64()
		if math.Abs(wf-gf) > math.Abs(wf)*1e-12 {
			t.Errorf("%s: read back %v", width, gf)
		}
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings %v", r.Warnings())
	}
}

func TestZType(t *testing.T) {
	ft := roadType()
	var out triple
	w := NewWriter(&out.shp, &out.shx, &out.dbf, ft, nil)
	w.SetType(shape.PolygonZ)
	square := orb.Polygon{{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
	if err := w.Write(road(t, ft, "s", []string{"sq", "", "", "", ""}, square)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r := out.reader(t, out.shp.Bytes(), true)
	if r.Header().Type != shape.PolygonZ || !r.Header().Envelope.HasZ {
		t.Errorf("unexpected header %+v", r.Header())
	}
	s, err := r.ReadShape()
	if err != nil {
		t.Fatal(err)
	}
	if s.Type() != shape.PolygonZ {
		t.Errorf("expected PolygonZ record, got %v", s.Type())
	}
	if !orb.Equal(s.ToGeometry(), orb.MultiPolygon{square}) {
		t.Errorf("unexpected geometry %v", s.ToGeometry())
	}
}

func TestCreateOpen(t *testing.T) {
	dir := t.TempDir()
	ft := roadType()
	w, err := Create(dir, "roads", ft, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(road(t, ft, "r", []string{"x", "1", "2", "false", "2001-02-03"}, orb.Point{3, 4})); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(os.DirFS(dir), "roads.shp", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f, err := r.Read()
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if f.ID != "roads_1" || f.Name().Local != "roads" {
		t.Errorf("unexpected feature %s of %v", f.ID, f.Name())
	}
	if g := f.Geometries(); len(g) != 1 || g[0].Geometry != (orb.Point{3, 4}) {
		t.Errorf("unexpected geometry %v", g)
	}

	for _, ext := range []string{".shx", ".dbf"} {
		if err := os.Remove(filepath.Join(dir, "roads"+ext)); err != nil {
			t.Fatal(err)
		}
	}
	r, err = Open(os.DirFS(dir), "roads", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Warnings()) != 2 {
		t.Errorf("expected warnings for the missing companions, got %v", r.Warnings())
	}
}

func TestHeader(t *testing.T) {
	env := shape.Envelope{MinX: -1, MinY: -2, MaxX: 3, MaxY: 4, MinZ: 5, MaxZ: 6, MinM: 7, MaxM: 8, HasZ: true, HasM: true}
	h := NewHeader(shape.PolyLineZ, env, 1234)
	buf := make([]byte, HeaderLength)
	if err := h.Write(buf); err != nil {
		t.Fatal(err)
	}
	if be.Uint32(buf[0:]) != FileCode || le.Uint32(buf[28:]) != Version || be.Uint32(buf[24:]) != 617 {
		t.Errorf("unexpected fixed fields % x", buf[:36])
	}

	var got Header
	if err := got.Read(buf); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("expected %+v, got %+v", h, got)
	}
	if err := got.Read(buf[:99]); !errors.Is(err, ErrShortHeader) {
		t.Errorf("expected short header, got %v", err)
	}
}
