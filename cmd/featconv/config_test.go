package main

import (
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deegree/featurecodec/gml"
)

const testConfig = `
log:
  level: debug
  format: json
gml:
  version: "3.1"
  traverseXlinkDepth: 0
  remoteXlinkTemplate: "http://example.com/features/{}"
  generateBoundedBy: true
  indent: ""
  prefixes:
    app: http://www.deegree.org/app
  requestedProperties: [app:name, "{http://www.deegree.org/app}lanes"]
shapefile:
  typeName: Road
  srs: EPSG:4326
flatgeobuf:
  includeIndex: false
  epsg: 25832
`

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("expected default serve address, got %q", cfg.Serve.Addr)
	}

	opts, err := cfg.writerOptions(slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if opts.Version != gml.GML31 || opts.TraverseXlinkDepth != 0 || opts.Indent != "" || !opts.GenerateBoundedBy {
		t.Errorf("unexpected writer options %+v", opts)
	}
	if opts.RemoteXlinkTemplate != "http://example.com/features/{}" {
		t.Errorf("unexpected template %q", opts.RemoteXlinkTemplate)
	}
	want := []xml.Name{
		{Space: "http://www.deegree.org/app", Local: "name"},
		{Space: "http://www.deegree.org/app", Local: "lanes"},
	}
	if len(opts.RequestedProperties) != 2 || opts.RequestedProperties[0] != want[0] || opts.RequestedProperties[1] != want[1] {
		t.Errorf("unexpected requested properties %v", opts.RequestedProperties)
	}

	sopts := cfg.shapefileOptions(slog.Default())
	if sopts.TypeName != "Road" || sopts.SRS != "EPSG:4326" || sopts.GeometryProperty != "geometry" {
		t.Errorf("unexpected shapefile options %+v", sopts)
	}

	fopts := cfg.flatGeobufOptions()
	if fopts.IncludeIndex || fopts.CRS == nil || fopts.CRS.Code != 25832 {
		t.Errorf("unexpected flatgeobuf options %+v", fopts)
	}

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected a JSON debug record, got %q", buf.String())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty config should load: %v", err)
	}
	opts, err := cfg.writerOptions(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Version != gml.GML32 || opts.TraverseXlinkDepth != -1 || opts.RemoteXlinkTemplate != "#{}" {
		t.Errorf("unexpected default writer options %+v", opts)
	}
	if !cfg.flatGeobufOptions().IncludeIndex {
		t.Error("expected index by default")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	bad := []string{
		"unknown: true",
		"log: [1, 2]",
	}
	for _, doc := range bad {
		if _, err := LoadConfig(strings.NewReader(doc)); err == nil {
			t.Errorf("%q: expected error", doc)
		}
	}

	cfg := DefaultConfig()
	cfg.Log.Format = "xml"
	if _, err := cfg.Logger(&bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown log format")
	}
	cfg = DefaultConfig()
	cfg.Log.Level = "loud"
	if _, err := cfg.Logger(&bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown log level")
	}
	cfg = DefaultConfig()
	cfg.GML.Version = "4"
	if _, err := cfg.writerOptions(nil); err == nil {
		t.Error("expected error for unknown version")
	}
	cfg = DefaultConfig()
	cfg.GML.RequestedProperties = []string{"x:name"}
	if _, err := cfg.writerOptions(nil); err == nil {
		t.Error("expected error for unbound prefix")
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		in   string
		want xml.Name
		ok   bool
	}{
		{"{urn:a}b", xml.Name{Space: "urn:a", Local: "b"}, true},
		{"name", xml.Name{Local: "name"}, true},
		{"app:name", xml.Name{Space: "urn:app", Local: "name"}, true},
		{"{urn:a}", xml.Name{}, false},
		{"{urn:a", xml.Name{}, false},
	}
	for _, tt := range tests {
		got, err := parseName(tt.in, map[string]string{"app": "urn:app"})
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("%q: expected %v (ok=%v), got %v, %v", tt.in, tt.want, tt.ok, got, err)
		}
	}
}

const roadXSD = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" xmlns:gml="http://www.opengis.net/gml/3.2"
    targetNamespace="http://www.deegree.org/app" elementFormDefault="qualified">
  <xs:element name="Road" substitutionGroup="gml:AbstractFeature">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="name" type="xs:string"/>
      </xs:sequence>
    </xs:complexType>
  </xs:element>
</xs:schema>`

const roadYAML = `
namespaces:
  app: http://www.deegree.org/app
featureTypes:
  - name: app:Road
    properties:
      - {name: app:name, type: string}
`

func TestReaderOptionsSchema(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"roads.xsd": roadXSD, "roads.yaml": roadYAML}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	road := xml.Name{Space: "http://www.deegree.org/app", Local: "Road"}

	for name := range files {
		cfg := DefaultConfig()
		cfg.Schema = filepath.Join(dir, name)
		opts, err := cfg.readerOptions("in.gml", logger)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if opts.Schema == nil || opts.Schema.FeatureType(road) == nil {
			t.Errorf("%s: expected the Road feature type", name)
		}
	}

	cfg := DefaultConfig()
	cfg.Schema = filepath.Join(dir, "missing.xsd")
	if _, err := cfg.readerOptions("in.gml", logger); err == nil {
		t.Error("expected an error for a missing schema")
	}

	cfg = DefaultConfig()
	cfg.SchemaDir = dir
	opts, err := cfg.readerOptions("in.gml", logger)
	if err != nil {
		t.Fatal(err)
	}
	s, err := opts.SchemaLoader([]gml.SchemaLocation{{Namespace: road.Space, URL: "roads.xsd"}})
	if err != nil || s.FeatureType(road) == nil {
		t.Errorf("schema directory loader: %v", err)
	}
}
