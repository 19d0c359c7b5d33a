package schema

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

const roadsXSD = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" xmlns:gml="http://www.opengis.net/gml/3.2"
    xmlns:app="http://www.deegree.org/app" targetNamespace="http://www.deegree.org/app"
    elementFormDefault="qualified">
  <xs:import namespace="http://www.opengis.net/gml/3.2" schemaLocation="http://schemas.opengis.net/gml/3.2.1/gml.xsd"/>
  <xs:include schemaLocation="types/common.xsd"/>

  <xs:element name="Road" type="app:RoadType" substitutionGroup="gml:AbstractFeature"/>
  <xs:complexType name="RoadType">
    <xs:complexContent>
      <xs:extension base="gml:AbstractFeatureType">
        <xs:sequence>
          <xs:element name="name" type="xs:string"/>
          <xs:element name="lanes" type="xs:int" minOccurs="0"/>
          <xs:element name="width" type="app:WidthType" minOccurs="0"/>
          <xs:element name="geom" type="gml:CurvePropertyType" minOccurs="0"/>
          <xs:element name="category" type="gml:CodeType" minOccurs="0"/>
          <xs:element name="length" type="gml:LengthType" minOccurs="0"/>
          <xs:element name="next" minOccurs="0" maxOccurs="unbounded">
            <xs:complexType>
              <xs:sequence minOccurs="0">
                <xs:element ref="app:Road"/>
              </xs:sequence>
              <xs:attributeGroup ref="gml:AssociationAttributeGroup"/>
            </xs:complexType>
          </xs:element>
          <xs:element name="owner" minOccurs="0">
            <xs:complexType>
              <xs:sequence>
                <xs:element ref="app:Person"/>
              </xs:sequence>
            </xs:complexType>
          </xs:element>
          <xs:element ref="app:marker" minOccurs="0"/>
          <xs:element name="note" minOccurs="0">
            <xs:complexType mixed="true">
              <xs:sequence>
                <xs:element name="em" type="xs:string" minOccurs="0"/>
              </xs:sequence>
            </xs:complexType>
          </xs:element>
        </xs:sequence>
      </xs:extension>
    </xs:complexContent>
  </xs:complexType>

  <xs:element name="Motorway" substitutionGroup="app:Road">
    <xs:annotation><xs:documentation>A road with <b>exits</b>.</xs:documentation></xs:annotation>
    <xs:complexType>
      <xs:complexContent>
        <xs:extension base="app:RoadType">
          <xs:sequence>
            <xs:element name="exits" type="xs:integer" maxOccurs="unbounded"/>
          </xs:sequence>
        </xs:extension>
      </xs:complexContent>
    </xs:complexType>
  </xs:element>

  <xs:element name="Network" substitutionGroup="gml:AbstractFeatureCollection">
    <xs:complexType>
      <xs:complexContent>
        <xs:extension base="gml:AbstractFeatureCollectionType"/>
      </xs:complexContent>
    </xs:complexType>
  </xs:element>

  <xs:element name="marker" abstract="true" type="xs:string"/>
  <xs:element name="milestone" substitutionGroup="app:marker" type="xs:string"/>
  <xs:element name="kilometre" substitutionGroup="app:milestone" type="xs:string"/>
</xs:schema>`

const commonXSD = `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" xmlns:gml="http://www.opengis.net/gml/3.2"
    targetNamespace="http://www.deegree.org/app" elementFormDefault="qualified">
  <xs:simpleType name="WidthType">
    <xs:restriction base="xs:decimal"><xs:minInclusive value="0"/></xs:restriction>
  </xs:simpleType>
  <xs:element name="Person" substitutionGroup="gml:AbstractFeature">
    <xs:complexType>
      <xs:complexContent>
        <xs:extension base="gml:AbstractFeatureType">
          <xs:sequence>
            <xs:choice>
              <xs:element name="fullName" type="xs:string"/>
              <xs:element name="alias" type="xs:string"/>
            </xs:choice>
            <xs:element name="born" type="xs:date" minOccurs="0"/>
          </xs:sequence>
        </xs:extension>
      </xs:complexContent>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func roadsFS() fstest.MapFS {
	return fstest.MapFS{
		"xsd/roads.xsd":            {Data: []byte(roadsXSD)},
		"xsd/types/common.xsd":     {Data: []byte(commonXSD)},
		"xsd/unrelated/broken.xsd": {Data: []byte("<not-a-schema/>")},
	}
}

func TestLoadXSD(t *testing.T) {
	s, err := LoadXSD(roadsFS(), "xsd/roads.xsd")
	if err != nil {
		t.Fatalf("LoadXSD failed: %v", err)
	}

	var names []string
	for _, ft := range s.FeatureTypes() {
		names = append(names, ft.Name.Local)
	}
	if strings.Join(names, ",") != "Person,Road,Motorway,Network" {
		t.Fatalf("unexpected feature types %v", names)
	}

	road := s.FeatureType(appName("Road"))
	tests := []struct {
		local    string
		kind     Kind
		min, max int
	}{
		{"name", KindSimple, 1, 1},
		{"lanes", KindSimple, 0, 1},
		{"width", KindSimple, 0, 1},
		{"geom", KindGeometry, 0, 1},
		{"category", KindCode, 0, 1},
		{"length", KindMeasure, 0, 1},
		{"next", KindFeature, 0, Unbounded},
		{"owner", KindFeature, 0, 1},
		{"marker", KindSimple, 0, 1},
		{"note", KindCustom, 0, 1},
	}
	if len(road.Properties) != len(tests) {
		t.Fatalf("expected %d properties, got %d", len(tests), len(road.Properties))
	}
	for i, tt := range tests {
		pt := road.Properties[i]
		if pt.Name != appName(tt.local) || pt.Kind != tt.kind || pt.MinOccurs != tt.min || pt.MaxOccurs != tt.max {
			t.Errorf("property %d: expected %s %v [%d,%d], got %s %v [%d,%d]",
				i, tt.local, tt.kind, tt.min, tt.max, pt.Name.Local, pt.Kind, pt.MinOccurs, pt.MaxOccurs)
		}
	}

	if p := road.Property(appName("lanes")); p.Primitive != Integer {
		t.Errorf("lanes: expected integer, got %v", p.Primitive)
	}
	if p := road.Property(appName("width")); p.Primitive != Decimal {
		t.Errorf("width: expected decimal from the restriction base, got %v", p.Primitive)
	}
	if p := road.Property(appName("geom")); len(p.GeometryTypes) != 1 || p.GeometryTypes[0] != LineString {
		t.Errorf("geom: expected LineString, got %v", p.GeometryTypes)
	}
	next := road.Property(appName("next"))
	if next.ValueType != appName("Road") || next.InlineOnly {
		t.Errorf("next: unexpected declaration %+v", next)
	}
	if owner := road.Property(appName("owner")); owner.ValueType != appName("Person") || !owner.InlineOnly {
		t.Errorf("owner without association attributes should be inline only, got %+v", owner)
	}
	marker := road.Property(appName("milestone"))
	if marker == nil || marker.Name != appName("marker") || marker.FindConcrete(appName("kilometre")) == nil {
		t.Errorf("marker should admit its substitution group, got %+v", marker)
	}
	note := road.Property(appName("note"))
	if note.Element == nil || note.Element.Content != ContentMixed || note.Element.Child(appName("em")) == nil {
		t.Errorf("note: unexpected element declaration %+v", note.Element)
	}

	motorway := s.FeatureType(appName("Motorway"))
	if motorway.Parent != appName("Road") || !s.IsSubType(appName("Motorway"), appName("Road")) {
		t.Errorf("Motorway should derive from Road, parent %v", motorway.Parent)
	}
	if n := len(motorway.Properties); n != len(tests)+1 || motorway.Properties[n-1].Name != appName("exits") {
		t.Errorf("Motorway should extend the Road properties, got %d", n)
	}

	person := s.FeatureType(appName("Person"))
	if person.Properties[0].MinOccurs != 0 || person.Properties[1].MinOccurs != 0 {
		t.Error("choice alternatives should be optional")
	}
	if person.Property(appName("born")).Primitive != Date {
		t.Error("born should be a date")
	}

	if !s.FeatureType(appName("Network")).Collection {
		t.Error("Network should be a collection")
	}
}

func TestParseXSD(t *testing.T) {
	s, err := ParseXSD(strings.NewReader(commonXSD))
	if err != nil {
		t.Fatal(err)
	}
	if s.FeatureType(appName("Person")) == nil {
		t.Error("expected Person")
	}
}

func TestLoadXSDErrors(t *testing.T) {
	fsys := roadsFS()
	if _, err := LoadXSD(fsys, "xsd/missing.xsd"); err == nil {
		t.Error("expected an error for a missing document")
	}
	if _, err := LoadXSD(fsys, "xsd/unrelated/broken.xsd"); !errors.Is(err, ErrNotSchema) {
		t.Errorf("expected ErrNotSchema, got %v", err)
	}

	missingInclude := fstest.MapFS{"a.xsd": {Data: []byte(
		`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"><xs:include schemaLocation="b.xsd"/></xs:schema>`)}}
	if _, err := LoadXSD(missingInclude, "a.xsd"); err == nil {
		t.Error("expected an error for a missing include")
	}

	unbound := `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema" targetNamespace="urn:x">
  <xs:element name="F" substitutionGroup="foo:AbstractFeature"/></xs:schema>`
	if _, err := ParseXSD(strings.NewReader(unbound)); !errors.Is(err, ErrUnknownPrefix) {
		t.Errorf("expected ErrUnknownPrefix, got %v", err)
	}
}

func TestGMLPropertyTypes(t *testing.T) {
	tests := []struct {
		local string
		kind  Kind
		geom  []GeometryType
	}{
		{"PointPropertyType", KindGeometry, []GeometryType{Point}},
		{"SurfacePropertyType", KindGeometry, []GeometryType{Polygon}},
		{"MultiSurfacePropertyType", KindGeometry, []GeometryType{MultiPolygon}},
		{"MultiCurvePropertyType", KindGeometry, []GeometryType{MultiLineString}},
		{"GeometryPropertyType", KindGeometry, nil},
		{"FeaturePropertyType", KindFeature, nil},
		{"ReferenceType", KindFeature, nil},
		{"FeatureArrayPropertyType", KindArray, nil},
		{"BoundingShapeType", KindEnvelope, nil},
		{"CodeWithAuthorityType", KindCode, nil},
		{"MeasureType", KindMeasure, nil},
		{"StringOrRefType", KindStringOrRef, nil},
		{"TimeInstantPropertyType", KindCustom, nil},
	}
	for _, tt := range tests {
		pt := &PropertyType{}
		gmlPropertyType(tt.local, pt)
		if pt.Kind != tt.kind || len(pt.GeometryTypes) != len(tt.geom) {
			t.Errorf("%s: expected %v %v, got %v %v", tt.local, tt.kind, tt.geom, pt.Kind, pt.GeometryTypes)
			continue
		}
		for i := range tt.geom {
			if pt.GeometryTypes[i] != tt.geom[i] {
				t.Errorf("%s: expected %v, got %v", tt.local, tt.geom, pt.GeometryTypes)
			}
		}
	}
}
