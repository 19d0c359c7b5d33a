package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownPrefix is returned when a qualified name uses an undeclared prefix.
var ErrUnknownPrefix = errors.New("schema: undeclared namespace prefix")

// Occurs is a maxOccurs value that also accepts "unbounded" in YAML.
type Occurs int

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Occurs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("schema: line %d: occurs must be a scalar", value.Line)
	}
	if strings.EqualFold(value.Value, "unbounded") || value.Value == "*" {
		*o = Unbounded
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil {
		return fmt.Errorf("schema: line %d: invalid occurs %q", value.Line, value.Value)
	}
	*o = Occurs(n)
	return nil
}

type yamlDocument struct {
	Namespaces   map[string]string `yaml:"namespaces"`
	FeatureTypes []yamlFeatureType `yaml:"featureTypes"`
}

type yamlFeatureType struct {
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent"`
	Abstract   bool           `yaml:"abstract"`
	Collection bool           `yaml:"collection"`
	Properties []yamlProperty `yaml:"properties"`
}

type yamlProperty struct {
	Name          string       `yaml:"name"`
	Kind          string       `yaml:"kind"`
	Type          string       `yaml:"type"`
	MinOccurs     *int         `yaml:"minOccurs"`
	MaxOccurs     *Occurs      `yaml:"maxOccurs"`
	Substitutions []string     `yaml:"substitutions"`
	GeometryTypes []string     `yaml:"geometryTypes"`
	ValueType     string       `yaml:"valueType"`
	InlineOnly    bool         `yaml:"inlineOnly"`
	TimeSlice     bool         `yaml:"timeSlice"`
	Element       *yamlElement `yaml:"element"`
}

type yamlElement struct {
	Name        string         `yaml:"name"`
	Content     string         `yaml:"content"`
	AnyChildren bool           `yaml:"anyChildren"`
	Children    []*yamlElement `yaml:"children"`
}

// LoadYAML builds an AppSchema from a YAML description:
//
//	namespaces:
//	  app: http://www.deegree.org/app
//	featureTypes:
//	  - name: app:Road
//	    properties:
//	      - {name: app:name, kind: simple, type: string, minOccurs: 1}
//	      - {name: app:geom, kind: geometry, geometryTypes: [LineString]}
//	      - {name: app:next, kind: feature, valueType: app:Road, maxOccurs: unbounded}
//
// minOccurs and maxOccurs default to 1.
func LoadYAML(r io.Reader) (*AppSchema, error) {
	var doc yamlDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}

	ns := map[string]string{"gml": GMLNamespace}
	for p, uri := range doc.Namespaces {
		ns[p] = uri
	}

	s := NewAppSchema()
	for _, yft := range doc.FeatureTypes {
		ft, err := yft.build(ns)
		if err != nil {
			return nil, err
		}
		if err := s.Add(ft); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (y yamlFeatureType) build(ns map[string]string) (*FeatureType, error) {
	name, err := resolveQName(y.Name, ns)
	if err != nil {
		return nil, err
	}
	ft := &FeatureType{Name: name, Abstract: y.Abstract, Collection: y.Collection}
	if y.Parent != "" {
		if ft.Parent, err = resolveQName(y.Parent, ns); err != nil {
			return nil, err
		}
	}
	for _, yp := range y.Properties {
		pt, err := yp.build(ns)
		if err != nil {
			return nil, fmt.Errorf("feature type %s: %w", y.Name, err)
		}
		ft.Properties = append(ft.Properties, pt)
	}
	return ft, nil
}

func (y yamlProperty) build(ns map[string]string) (*PropertyType, error) {
	name, err := resolveQName(y.Name, ns)
	if err != nil {
		return nil, err
	}
	pt := &PropertyType{
		Name:       name,
		MinOccurs:  1,
		MaxOccurs:  1,
		InlineOnly: y.InlineOnly,
		TimeSlice:  y.TimeSlice,
	}
	if y.MinOccurs != nil {
		pt.MinOccurs = *y.MinOccurs
	}
	if y.MaxOccurs != nil {
		pt.MaxOccurs = int(*y.MaxOccurs)
	}
	kind := y.Kind
	if kind == "" {
		kind = "simple"
	}
	if pt.Kind, err = ParseKind(kind); err != nil {
		return nil, err
	}
	if pt.Kind == KindSimple && y.Type != "" {
		if pt.Primitive, err = ParsePrimitiveKind(y.Type); err != nil {
			return nil, err
		}
	}
	for _, s := range y.Substitutions {
		sn, err := resolveQName(s, ns)
		if err != nil {
			return nil, err
		}
		pt.Substitutions = append(pt.Substitutions, sn)
	}
	for _, g := range y.GeometryTypes {
		gt, err := ParseGeometryType(g)
		if err != nil {
			return nil, err
		}
		pt.GeometryTypes = append(pt.GeometryTypes, gt)
	}
	if y.ValueType != "" {
		if pt.ValueType, err = resolveQName(y.ValueType, ns); err != nil {
			return nil, err
		}
	}
	if y.Element != nil {
		if pt.Element, err = y.Element.build(ns, name); err != nil {
			return nil, err
		}
	}
	return pt, nil
}

func (y *yamlElement) build(ns map[string]string, fallback xml.Name) (*ElementDecl, error) {
	d := &ElementDecl{Name: fallback, AnyChildren: y.AnyChildren}
	if y.Name != "" {
		n, err := resolveQName(y.Name, ns)
		if err != nil {
			return nil, err
		}
		d.Name = n
	}
	switch strings.ToLower(y.Content) {
	case "", "element":
		d.Content = ContentElement
	case "empty":
		d.Content = ContentEmpty
	case "simple":
		d.Content = ContentSimple
	case "mixed":
		d.Content = ContentMixed
	default:
		return nil, fmt.Errorf("schema: unknown content model %q", y.Content)
	}
	for _, c := range y.Children {
		cd, err := c.build(ns, xml.Name{})
		if err != nil {
			return nil, err
		}
		d.Children = append(d.Children, cd)
	}
	return d, nil
}

func resolveQName(s string, ns map[string]string) (xml.Name, error) {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return xml.Name{Local: s}, nil
	}
	uri, ok := ns[prefix]
	if !ok {
		return xml.Name{}, fmt.Errorf("%w %q in %q", ErrUnknownPrefix, prefix, s)
	}
	return xml.Name{Space: uri, Local: local}, nil
}
