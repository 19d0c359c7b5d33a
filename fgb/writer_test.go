package fgb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

func TestWrite_Magic(t *testing.T) {
	ft := parcelType()
	features := []*feature.Feature{
		parcel(t, ft, []string{"a"}, nil, orb.Point{1, 2}),
		parcel(t, ft, []string{"b"}, nil, orb.Point{3, 4}),
	}

	var buf bytes.Buffer
	if err := Write(&buf, features, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatal("output too short")
	}
	expectedMagic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	for i, b := range expectedMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, nil); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}

	ft := parcelType()
	noGeometry := []*feature.Feature{parcel(t, ft, []string{"a"}, nil, nil)}
	if err := Write(&buf, noGeometry, nil); !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures without geometries, got %v", err)
	}
}

func TestWrite_Collection(t *testing.T) {
	ft := parcelType()
	collection := feature.New(&schema.FeatureType{Name: qname("Parcels"), Collection: true}, "c", nil, nil, "")
	collection.Members = []*feature.Feature{
		parcel(t, ft, []string{"a"}, nil, orb.Point{1, 2}),
		parcel(t, ft, []string{"b"}, nil, orb.LineString{{0, 0}, {1, 1}}),
	}

	var buf bytes.Buffer
	if err := Write(&buf, []*feature.Feature{collection}, &Options{Name: "mixed", IncludeIndex: true}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reader, err := NewReaderFromData(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	header := reader.Header()
	if header.GeometryType != "Unknown" {
		t.Errorf("expected geometry type 'Unknown' for mixed members, got %q", header.GeometryType)
	}
	if header.FeaturesCount != 2 {
		t.Errorf("expected 2 features, got %d", header.FeaturesCount)
	}
	if len(header.Columns) != 6 {
		t.Errorf("expected columns of the member type, got %d", len(header.Columns))
	}
}

func TestWrite_ExplicitCRS(t *testing.T) {
	ft := parcelType()
	features := []*feature.Feature{parcel(t, ft, []string{"a"}, nil, orb.Point{1, 2})}

	var buf bytes.Buffer
	if err := Write(&buf, features, &Options{IncludeIndex: true, CRS: WGS84()}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	reader, err := NewReaderFromData(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	crs := reader.Header().CRS
	if crs == nil {
		t.Fatal("expected non-nil CRS")
	}
	if crs.Code != 4326 || crs.Name != "WGS 84" {
		t.Errorf("unexpected CRS %+v", crs)
	}

	found, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Geometries()[0].SRS != "EPSG:4326" {
		t.Errorf("expected geometry in EPSG:4326, got %+v", found)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts == nil {
		t.Fatal("expected non-nil options")
	}
	if !opts.IncludeIndex {
		t.Error("expected IncludeIndex to be true by default")
	}
	if opts.Namespace != DefaultNamespace {
		t.Errorf("expected default namespace, got %q", opts.Namespace)
	}
}

func TestWGS84(t *testing.T) {
	crs := WGS84()
	if crs == nil {
		t.Fatal("expected non-nil CRS")
	}
	if crs.Code != 4326 {
		t.Errorf("expected code 4326, got %d", crs.Code)
	}
	if crs.Name != "WGS 84" {
		t.Errorf("expected name 'WGS 84', got %q", crs.Name)
	}
}

func TestCRSFromSRS(t *testing.T) {
	tests := []struct {
		srs  string
		code int
	}{
		{"EPSG:4326", 4326},
		{"epsg:31467", 31467},
		{"urn:ogc:def:crs:EPSG::25832", 25832},
		{"urn:x-ogc:def:crs:EPSG:6.11:4258", 0},
		{"http://www.opengis.net/def/crs/EPSG/0/3857", 3857},
		{"http://www.opengis.net/gml/srs/epsg.xml#4326", 4326},
		{"CRS:84", 0},
	}
	for _, tt := range tests {
		crs := CRSFromSRS(tt.srs)
		if crs == nil {
			t.Errorf("%s: expected CRS", tt.srs)
			continue
		}
		if crs.Code != tt.code || crs.Name != tt.srs {
			t.Errorf("%s: expected code %d, got %+v", tt.srs, tt.code, crs)
		}
	}
	if CRSFromSRS("") != nil {
		t.Error("expected nil CRS for empty name")
	}
}
