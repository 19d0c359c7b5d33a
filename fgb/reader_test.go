package fgb

import (
	"bytes"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

func qname(local string) xml.Name { return xml.Name{Space: DefaultNamespace, Local: local} }

func parcelType() *schema.FeatureType {
	simple := func(local string, kind schema.PrimitiveKind) *schema.PropertyType {
		return &schema.PropertyType{Name: qname(local), Kind: schema.KindSimple, Primitive: kind, MaxOccurs: 1}
	}
	return &schema.FeatureType{Name: qname("Parcel"), Properties: []*schema.PropertyType{
		simple("name", schema.String),
		simple("area", schema.Double),
		simple("owners", schema.Integer),
		simple("public", schema.Boolean),
		simple("surveyed", schema.Date),
		{Name: qname("tag"), Kind: schema.KindSimple, Primitive: schema.String, MaxOccurs: -1},
		{Name: qname("geometry"), Kind: schema.KindGeometry, MaxOccurs: 1},
	}}
}

// parcel builds a feature of parcelType; empty texts leave the property out.
func parcel(t *testing.T, ft *schema.FeatureType, texts []string, tags []string, g orb.Geometry) *feature.Feature {
	t.Helper()
	f := feature.New(ft, "", nil, nil, "")
	for i, text := range texts {
		if text == "" {
			continue
		}
		pt := ft.Properties[i]
		v, err := feature.ParseSimple(pt.Primitive, text)
		if err != nil {
			t.Fatal(err)
		}
		f.Properties = append(f.Properties, &feature.Property{Name: pt.Name, Type: pt, Value: v})
	}
	for _, tag := range tags {
		f.Properties = append(f.Properties, &feature.Property{Name: qname("tag"), Type: ft.Properties[5], Value: feature.StringValue(tag)})
	}
	if g != nil {
		f.Properties = append(f.Properties, &feature.Property{
			Name:  qname("geometry"),
			Type:  ft.Properties[6],
			Value: &feature.Geometry{SRS: "urn:ogc:def:crs:EPSG::25832", Geometry: g},
		})
	}
	return f
}

func writeParcels(t *testing.T, opts *Options) string {
	t.Helper()
	ft := parcelType()
	features := []*feature.Feature{
		parcel(t, ft, []string{"north", "120.5", "2", "true", "2021-05-04"}, []string{"farm", "meadow"},
			orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}),
		parcel(t, ft, []string{"south", "", "1", "false", ""}, nil,
			orb.Polygon{{{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20}}}),
		parcel(t, ft, []string{"unmapped"}, nil, nil),
	}

	path := filepath.Join(t.TempDir(), "parcels.fgb")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	err = Write(file, features, opts)
	_ = file.Close()
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return path
}

func byName(t *testing.T, features []*feature.Feature) map[string]*feature.Feature {
	t.Helper()
	out := make(map[string]*feature.Feature)
	for _, f := range features {
		p := f.Property(qname("name"))
		if p == nil || p.Value == nil {
			t.Fatalf("feature %s has no name", f.ID)
		}
		out[p.Value.(feature.SimpleValue).Text] = f
	}
	return out
}

func TestNewReaderFromData_Invalid(t *testing.T) {
	if _, err := NewReaderFromData([]byte("not a flatgeobuf"), nil); err == nil {
		t.Error("expected error for invalid data")
	}
	if _, err := NewReaderFromData([]byte{}, nil); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestNewReader_NonExistent(t *testing.T) {
	if _, err := NewReader("/nonexistent/path/file.fgb", nil); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestRoundTrip(t *testing.T) {
	path := writeParcels(t, nil)

	reader, err := NewReader(path, nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer func() { _ = reader.Close() }()

	header := reader.Header()
	if header.Name != "Parcel" {
		t.Errorf("expected name 'Parcel', got %q", header.Name)
	}
	if header.GeometryType != "Polygon" {
		t.Errorf("expected geometry type 'Polygon', got %q", header.GeometryType)
	}
	if header.FeaturesCount != 2 {
		t.Errorf("expected 2 features, got %d", header.FeaturesCount)
	}
	if header.CRS == nil || header.CRS.Code != 25832 {
		t.Errorf("expected EPSG 25832, got %+v", header.CRS)
	}

	features, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}
	named := byName(t, features)

	north := named["north"]
	if north == nil {
		t.Fatal("missing feature 'north'")
	}
	want := map[string]feature.SimpleValue{}
	for local, text := range map[string]string{"area": "120.5", "owners": "2", "public": "true", "surveyed": "2021-05-04"} {
		pt := parcelType().Property(qname(local))
		v, _ := feature.ParseSimple(pt.Primitive, text)
		want[local] = v
	}
	for local, w := range want {
		p := north.Property(qname(local))
		if p == nil || p.Value == nil {
			t.Errorf("north: missing %s", local)
			continue
		}
		if got := p.Value.(feature.SimpleValue); !got.Equal(w) {
			t.Errorf("north %s: expected %q, got %q", local, w.Text, got.Text)
		}
	}
	if tag := north.Property(qname("tag")); tag == nil || tag.Value.(feature.SimpleValue).Text != `["farm","meadow"]` {
		t.Errorf("unexpected tags %+v", tag)
	}

	geoms := north.Geometries()
	if len(geoms) != 1 || geoms[0].SRS != "EPSG:25832" {
		t.Fatalf("unexpected geometries %+v", geoms)
	}
	if poly, ok := geoms[0].Geometry.(orb.Polygon); !ok || len(poly) != 1 || len(poly[0]) != 5 {
		t.Errorf("unexpected geometry %v", geoms[0].Geometry)
	}

	south := named["south"]
	if south == nil {
		t.Fatal("missing feature 'south'")
	}
	if p := south.Property(qname("area")); p == nil || p.Value != nil {
		t.Errorf("expected nil area, got %+v", p)
	}
	if p := south.Property(qname("public")); p == nil || p.Value.(feature.SimpleValue).Bool {
		t.Errorf("expected public=false, got %+v", p)
	}
}

func TestFeatureType(t *testing.T) {
	reader, err := NewReader(writeParcels(t, nil), &Options{Name: "Lot", Namespace: "urn:lots"})
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	ft := reader.FeatureType()
	if ft.Name != (xml.Name{Space: "urn:lots", Local: "Lot"}) {
		t.Errorf("unexpected type name %v", ft.Name)
	}
	want := []schema.PrimitiveKind{schema.String, schema.Double, schema.Integer, schema.Boolean, schema.DateTime, schema.String}
	if len(ft.Properties) != len(want)+1 {
		t.Fatalf("expected %d properties, got %d", len(want)+1, len(ft.Properties))
	}
	for i, kind := range want {
		if ft.Properties[i].Primitive != kind {
			t.Errorf("property %s: expected %v, got %v", ft.Properties[i].Name.Local, kind, ft.Properties[i].Primitive)
		}
	}
	if last := ft.Properties[len(want)]; last.Kind != schema.KindGeometry {
		t.Errorf("expected trailing geometry property, got %v", last.Kind)
	}

	features, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range features {
		if f.Name().Local != "Lot" || len(f.ID) < 5 || f.ID[:4] != "Lot_" {
			t.Errorf("unexpected feature %s of %v", f.ID, f.Name())
		}
	}
}

func TestHeaderColumns(t *testing.T) {
	reader, err := NewReader(writeParcels(t, &Options{Name: "parcels", Description: "test parcels", IncludeIndex: true}), nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	header := reader.Header()
	if header.Name != "parcels" || header.Description != "test parcels" {
		t.Errorf("unexpected header %q %q", header.Name, header.Description)
	}
	want := []ColumnInfo{
		{Name: "name", Type: "String"},
		{Name: "area", Type: "Double"},
		{Name: "owners", Type: "Long"},
		{Name: "public", Type: "Bool"},
		{Name: "surveyed", Type: "DateTime"},
		{Name: "tag", Type: "Json"},
	}
	if len(header.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(header.Columns))
	}
	for i, w := range want {
		c := header.Columns[i]
		if c.Name != w.Name || c.Type != w.Type || !c.Nullable {
			t.Errorf("column %d: expected %s/%s, got %+v", i, w.Name, w.Type, c)
		}
	}
}

func TestSearch(t *testing.T) {
	reader, err := NewReader(writeParcels(t, nil), nil)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	features, err := reader.Search(orb.Bound{Min: orb.Point{25, 25}, Max: orb.Point{40, 40}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	if _, ok := byName(t, features)["south"]; !ok {
		t.Error("expected feature 'south'")
	}

	features, err = reader.Search(orb.Bound{Min: orb.Point{100, 100}, Max: orb.Point{200, 200}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("expected no features, got %d", len(features))
	}
}

func TestNoIndex(t *testing.T) {
	var buf bytes.Buffer
	ft := parcelType()
	features := []*feature.Feature{parcel(t, ft, []string{"a"}, nil, orb.Point{1, 2})}
	if err := Write(&buf, features, &Options{IncludeIndex: false}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader, err := NewReaderFromData(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	if reader.Header().HasIndex {
		t.Error("expected no index")
	}
	if _, err := reader.ReadAll(); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex from ReadAll, got %v", err)
	}
	if _, err := reader.Search(orb.Bound{Max: orb.Point{10, 10}}); !errors.Is(err, ErrNoIndex) {
		t.Errorf("expected ErrNoIndex from Search, got %v", err)
	}
}
