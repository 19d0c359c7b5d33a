package schema

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// XSDNamespace is the XML Schema namespace.
const XSDNamespace = "http://www.w3.org/2001/XMLSchema"

// gml31Namespace is the GML 3.1 (and GML 2) namespace. Schemas built on
// either GML version are understood.
const gml31Namespace = "http://www.opengis.net/gml"

// ErrNotSchema is returned when a document's root is not xs:schema.
var ErrNotSchema = errors.New("schema: not an XML Schema document")

// xsdDoc holds the settings of one schema document.
type xsdDoc struct {
	path      string
	target    string
	qualified bool
}

// xsdNode is an element of a schema document together with the prefix
// bindings in scope.
type xsdNode struct {
	name     xml.Name
	attrs    map[string]string
	ns       map[string]string
	children []*xsdNode
	doc      *xsdDoc
}

func (n *xsdNode) is(local string) bool {
	return n.name.Space == XSDNamespace && n.name.Local == local
}

func (n *xsdNode) child(local string) *xsdNode {
	for _, c := range n.children {
		if c.is(local) {
			return c
		}
	}
	return nil
}

// qname resolves the QName held by attribute attr.
func (n *xsdNode) qname(attr string) (xml.Name, bool, error) {
	v, ok := n.attrs[attr]
	if !ok {
		return xml.Name{}, false, nil
	}
	prefix, local, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found {
		prefix, local = "", prefix
	}
	uri, bound := n.ns[prefix]
	if !bound && prefix != "" {
		return xml.Name{}, false, fmt.Errorf("%s: %w %q in %q", n.doc.path, ErrUnknownPrefix, prefix, v)
	}
	return xml.Name{Space: uri, Local: local}, true, nil
}

// parseXSD reads the element tree of a schema document. Only elements of
// the XML Schema namespace are kept; annotations are dropped.
func parseXSD(r io.Reader, p string) (*xsdNode, error) {
	doc := &xsdDoc{path: p}
	dec := xml.NewDecoder(r)
	var (
		root  *xsdNode
		stack []*xsdNode
		skip  int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if skip > 0 || t.Name.Space != XSDNamespace || t.Name.Local == "annotation" {
				skip++
				continue
			}
			n := &xsdNode{name: t.Name, attrs: make(map[string]string), ns: make(map[string]string), doc: doc}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				for k, v := range parent.ns {
					n.ns[k] = v
				}
				parent.children = append(parent.children, n)
			} else if root == nil {
				root = n
			}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					n.ns[a.Name.Local] = a.Value
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					n.ns[""] = a.Value
				case a.Name.Space == "":
					n.attrs[a.Name.Local] = a.Value
				}
			}
			stack = append(stack, n)
		case xml.EndElement:
			if skip > 0 {
				skip--
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	if root == nil || !root.is("schema") {
		return nil, fmt.Errorf("%w: %s", ErrNotSchema, p)
	}
	doc.target = root.attrs["targetNamespace"]
	doc.qualified = root.attrs["elementFormDefault"] == "qualified"
	return root, nil
}

// xsdLoader collects the global declarations of a set of schema documents.
type xsdLoader struct {
	fsys     fs.FS
	loaded   map[string]bool
	elements map[xml.Name]*xsdNode
	order    []xml.Name
	types    map[xml.Name]*xsdNode
	simple   map[xml.Name]*xsdNode
}

// LoadXSD builds an AppSchema from the schema document at name in fsys and
// the documents it includes or imports. Imports of the GML, XLink and other
// namespaces that aren't present in fsys are skipped; their types are known
// by name.
//
// Every global element whose substitution group or type derives from a GML
// feature becomes a feature type. Its properties are the element particles
// of its content, base types first. GML property types map to property
// kinds (gml:PointPropertyType to a Point geometry, gml:CodeType to a code
// and so on), XML Schema built-ins to simple properties, and anonymous
// types holding a single feature or geometry element to feature and
// geometry properties. Other content becomes a custom property.
func LoadXSD(fsys fs.FS, name string) (*AppSchema, error) {
	l := &xsdLoader{
		fsys:     fsys,
		loaded:   make(map[string]bool),
		elements: make(map[xml.Name]*xsdNode),
		types:    make(map[xml.Name]*xsdNode),
		simple:   make(map[xml.Name]*xsdNode),
	}
	if err := l.load(path.Clean(name), true); err != nil {
		return nil, err
	}
	return l.build()
}

// ParseXSD builds an AppSchema from a single schema document.
// Includes and imports are ignored.
func ParseXSD(r io.Reader) (*AppSchema, error) {
	l := &xsdLoader{
		loaded:   make(map[string]bool),
		elements: make(map[xml.Name]*xsdNode),
		types:    make(map[xml.Name]*xsdNode),
		simple:   make(map[xml.Name]*xsdNode),
	}
	root, err := parseXSD(r, "schema")
	if err != nil {
		return nil, err
	}
	if err := l.register(root); err != nil {
		return nil, err
	}
	return l.build()
}

func (l *xsdLoader) load(p string, required bool) error {
	if l.loaded[p] {
		return nil
	}
	l.loaded[p] = true
	f, err := l.fsys.Open(p)
	if err != nil {
		if required {
			return err
		}
		return nil
	}
	defer f.Close()
	root, err := parseXSD(f, p)
	if err != nil {
		return err
	}

	for _, c := range root.children {
		if !c.is("include") && !c.is("import") && !c.is("redefine") {
			continue
		}
		loc := c.attrs["schemaLocation"]
		if loc == "" || isGMLNamespace(c.attrs["namespace"]) {
			continue
		}
		if u, err := url.Parse(loc); err != nil || u.IsAbs() {
			continue
		}
		next := path.Clean(path.Join(path.Dir(p), loc))
		if err := l.load(next, !c.is("import")); err != nil {
			return err
		}
	}
	return l.register(root)
}

func (l *xsdLoader) register(root *xsdNode) error {
	tns := root.doc.target
	for _, c := range root.children {
		name := xml.Name{Space: tns, Local: c.attrs["name"]}
		if name.Local == "" {
			continue
		}
		switch {
		case c.is("element"):
			if _, dup := l.elements[name]; !dup {
				l.order = append(l.order, name)
			}
			l.elements[name] = c
		case c.is("complexType"):
			l.types[name] = c
		case c.is("simpleType"):
			l.simple[name] = c
		}
	}
	return nil
}

func isGMLNamespace(ns string) bool {
	return ns == GMLNamespace || ns == gml31Namespace
}

// gmlHead classifies the GML heads of substitution groups and the GML
// base types of feature content.
func gmlHead(n xml.Name) (feature, collection bool) {
	if !isGMLNamespace(n.Space) {
		return false, false
	}
	switch n.Local {
	case "AbstractFeature", "_Feature", "AbstractFeatureType":
		return true, false
	case "AbstractFeatureCollection", "_FeatureCollection", "FeatureCollection",
		"AbstractFeatureCollectionType", "FeatureCollectionType":
		return true, true
	}
	return false, false
}

// classify reports whether the global element name is a feature, and a
// collection, following substitution groups and then type derivation.
func (l *xsdLoader) classify(name xml.Name) (feature, collection bool, err error) {
	seen := make(map[xml.Name]bool)
	for n := name; !seen[n]; {
		seen[n] = true
		if f, c := gmlHead(n); f {
			return f, c, nil
		}
		el := l.elements[n]
		if el == nil {
			break
		}
		head, ok, err := el.qname("substitutionGroup")
		if err != nil {
			return false, false, err
		}
		if !ok {
			break
		}
		n = head
	}

	el := l.elements[name]
	if el == nil {
		return false, false, nil
	}
	t, ok, err := el.qname("type")
	if err != nil {
		return false, false, err
	}
	if !ok {
		if ct := el.child("complexType"); ct != nil {
			base, err := l.baseOf(ct)
			if err != nil || base.Local == "" {
				return false, false, err
			}
			t = base
		}
	}
	seenTypes := make(map[xml.Name]bool)
	for t.Local != "" && !seenTypes[t] {
		seenTypes[t] = true
		if f, c := gmlHead(t); f {
			return f, c, nil
		}
		ct := l.types[t]
		if ct == nil {
			break
		}
		if t, err = l.baseOf(ct); err != nil {
			return false, false, err
		}
	}
	return false, false, nil
}

// baseOf returns the base type of a complexContent extension or
// restriction, or the zero name.
func (l *xsdLoader) baseOf(ct *xsdNode) (xml.Name, error) {
	cc := ct.child("complexContent")
	if cc == nil {
		return xml.Name{}, nil
	}
	for _, d := range cc.children {
		if d.is("extension") || d.is("restriction") {
			base, _, err := d.qname("base")
			return base, err
		}
	}
	return xml.Name{}, nil
}

func (l *xsdLoader) build() (*AppSchema, error) {
	s := NewAppSchema()
	for _, name := range l.order {
		isFeature, collection, err := l.classify(name)
		if err != nil {
			return nil, err
		}
		if !isFeature {
			continue
		}
		el := l.elements[name]
		ft := &FeatureType{
			Name:       name,
			Abstract:   el.attrs["abstract"] == "true",
			Collection: collection,
		}
		if head, ok, err := el.qname("substitutionGroup"); err != nil {
			return nil, err
		} else if ok && !isGMLNamespace(head.Space) {
			ft.Parent = head
		}
		if ft.Properties, err = l.elementContent(el); err != nil {
			return nil, fmt.Errorf("feature type %s: %w", QName(name), err)
		}
		if err := s.Add(ft); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// elementContent returns the properties declared by the type of a global
// feature element.
func (l *xsdLoader) elementContent(el *xsdNode) ([]*PropertyType, error) {
	t, ok, err := el.qname("type")
	if err != nil {
		return nil, err
	}
	if ok {
		return l.typeContent(t, make(map[xml.Name]bool))
	}
	if ct := el.child("complexType"); ct != nil {
		return l.complexContent(ct, make(map[xml.Name]bool))
	}
	return nil, nil
}

func (l *xsdLoader) typeContent(t xml.Name, seen map[xml.Name]bool) ([]*PropertyType, error) {
	ct := l.types[t]
	if ct == nil || seen[t] {
		return nil, nil
	}
	seen[t] = true
	return l.complexContent(ct, seen)
}

// complexContent lists the element particles of ct, those of its base type
// first.
func (l *xsdLoader) complexContent(ct *xsdNode, seen map[xml.Name]bool) ([]*PropertyType, error) {
	var props []*PropertyType
	model := ct
	if cc := ct.child("complexContent"); cc != nil {
		for _, d := range cc.children {
			if !d.is("extension") && !d.is("restriction") {
				continue
			}
			base, _, err := d.qname("base")
			if err != nil {
				return nil, err
			}
			if d.is("extension") {
				if props, err = l.typeContent(base, seen); err != nil {
					return nil, err
				}
			}
			model = d
		}
	}
	for _, c := range model.children {
		if c.is("sequence") || c.is("choice") || c.is("all") {
			own, err := l.particles(c, occurs{min: 1, max: 1})
			if err != nil {
				return nil, err
			}
			props = append(props, own...)
		}
	}
	return props, nil
}

type occurs struct{ min, max int }

func readOccurs(n *xsdNode) (occurs, error) {
	o := occurs{min: 1, max: 1}
	if v, ok := n.attrs["minOccurs"]; ok {
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return o, fmt.Errorf("%s: invalid minOccurs %q", n.doc.path, v)
		}
		o.min = i
	}
	if v, ok := n.attrs["maxOccurs"]; ok {
		if strings.TrimSpace(v) == "unbounded" {
			o.max = Unbounded
		} else {
			i, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return o, fmt.Errorf("%s: invalid maxOccurs %q", n.doc.path, v)
			}
			o.max = i
		}
	}
	return o, nil
}

// particles flattens a model group into property declarations. Bounds of
// the enclosing groups widen those of the elements: an optional group makes
// its elements optional, a repeated one makes them unbounded, and the
// alternatives of a choice are optional.
func (l *xsdLoader) particles(group *xsdNode, outer occurs) ([]*PropertyType, error) {
	o, err := readOccurs(group)
	if err != nil {
		return nil, err
	}
	if outer.min == 0 || o.min == 0 || group.is("choice") {
		o.min = 0
	}
	if outer.max != 1 || o.max != 1 {
		o.max = Unbounded
	}

	var props []*PropertyType
	for _, c := range group.children {
		switch {
		case c.is("sequence") || c.is("choice") || c.is("all"):
			nested, err := l.particles(c, o)
			if err != nil {
				return nil, err
			}
			props = append(props, nested...)
		case c.is("element"):
			pt, err := l.property(c)
			if err != nil {
				return nil, err
			}
			if o.min == 0 {
				pt.MinOccurs = 0
			}
			if o.max != 1 {
				pt.MaxOccurs = Unbounded
			}
			props = append(props, pt)
		}
	}
	return props, nil
}

// property builds the declaration of a local element particle.
func (l *xsdLoader) property(el *xsdNode) (*PropertyType, error) {
	o, err := readOccurs(el)
	if err != nil {
		return nil, err
	}
	pt := &PropertyType{MinOccurs: o.min, MaxOccurs: o.max}

	decl := el
	if ref, ok, err := el.qname("ref"); err != nil {
		return nil, err
	} else if ok {
		pt.Name = ref
		if g := l.elements[ref]; g != nil {
			decl = g
		}
		if pt.Substitutions, err = l.substitutes(ref); err != nil {
			return nil, err
		}
	} else {
		pt.Name = xml.Name{Local: el.attrs["name"]}
		if el.doc.qualified || el.attrs["form"] == "qualified" {
			pt.Name.Space = el.doc.target
		}
	}
	if decl == el && el.attrs["ref"] != "" {
		pt.Kind = KindCustom
		return pt, nil
	}
	return pt, l.valueOf(decl, pt)
}

// substitutes lists the non-abstract global elements that may replace
// head, directly or transitively.
func (l *xsdLoader) substitutes(head xml.Name) ([]xml.Name, error) {
	var out []xml.Name
	for _, name := range l.order {
		if name == head {
			continue
		}
		seen := map[xml.Name]bool{}
		for n := name; !seen[n]; {
			seen[n] = true
			el := l.elements[n]
			if el == nil {
				break
			}
			sg, ok, err := el.qname("substitutionGroup")
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if sg == head {
				if l.elements[name].attrs["abstract"] != "true" {
					out = append(out, name)
				}
				break
			}
			n = sg
		}
	}
	return out, nil
}

// valueOf sets the kind of pt from the type or anonymous content of el.
func (l *xsdLoader) valueOf(el *xsdNode, pt *PropertyType) error {
	t, ok, err := el.qname("type")
	if err != nil {
		return err
	}
	if !ok {
		switch {
		case el.child("simpleType") != nil:
			pt.Kind = KindSimple
			pt.Primitive, err = l.simplePrimitive(el.child("simpleType"))
			return err
		case el.child("complexType") != nil:
			return l.complexValue(el.child("complexType"), pt)
		}
		pt.Kind = KindCustom
		return nil
	}

	switch {
	case t.Space == XSDNamespace:
		pt.Kind, pt.Primitive = KindSimple, builtinPrimitive(t.Local)
		if t.Local == "anyType" {
			pt.Kind = KindCustom
		}
	case isGMLNamespace(t.Space):
		gmlPropertyType(t.Local, pt)
	case l.simple[t] != nil:
		pt.Kind = KindSimple
		pt.Primitive, err = l.simplePrimitive(l.simple[t])
	case l.types[t] != nil:
		return l.complexValue(l.types[t], pt)
	default:
		pt.Kind = KindCustom
	}
	return err
}

// complexValue recognizes the GML property patterns of a complex type: a
// group holding one feature element (a feature property, by reference only
// when the association attributes are present), one geometry element, or
// simple content. Anything else is a custom property.
func (l *xsdLoader) complexValue(ct *xsdNode, pt *PropertyType) error {
	if base, err := l.baseOf(ct); err != nil {
		return err
	} else if isGMLNamespace(base.Space) {
		gmlPropertyType(base.Local, pt)
		if pt.Kind != KindCustom {
			return nil
		}
	}

	if sc := ct.child("simpleContent"); sc != nil {
		for _, d := range sc.children {
			if !d.is("extension") && !d.is("restriction") {
				continue
			}
			base, _, err := d.qname("base")
			if err != nil {
				return err
			}
			switch {
			case base.Space == XSDNamespace:
				pt.Kind, pt.Primitive = KindSimple, builtinPrimitive(base.Local)
				return nil
			case isGMLNamespace(base.Space):
				gmlPropertyType(base.Local, pt)
				return nil
			case l.simple[base] != nil:
				pt.Kind = KindSimple
				pt.Primitive, err = l.simplePrimitive(l.simple[base])
				return err
			}
		}
	}

	if ref, ok, err := l.singleRef(ct); err != nil {
		return err
	} else if ok {
		if isGMLNamespace(ref.Space) {
			if g, err := geometryElement(ref.Local); err == nil {
				pt.Kind = KindGeometry
				if g != AnyGeometry {
					pt.GeometryTypes = []GeometryType{g}
				}
				return nil
			}
		}
		if feature, _, err := l.classify(ref); err != nil {
			return err
		} else if feature {
			pt.Kind = KindFeature
			if f, _ := gmlHead(ref); !f {
				pt.ValueType = ref
			}
			pt.InlineOnly = !hasAssociation(ct)
			return nil
		}
	}

	pt.Kind = KindCustom
	pt.Element = l.elementDecl(ct, pt.Name, 0)
	return nil
}

// singleRef returns the referenced element when ct's content is a group
// holding exactly one element reference.
func (l *xsdLoader) singleRef(ct *xsdNode) (xml.Name, bool, error) {
	var group *xsdNode
	for _, c := range ct.children {
		if c.is("sequence") || c.is("choice") {
			group = c
		}
	}
	if group == nil || len(group.children) != 1 || !group.children[0].is("element") {
		return xml.Name{}, false, nil
	}
	return group.children[0].qname("ref")
}

func hasAssociation(ct *xsdNode) bool {
	for _, c := range ct.children {
		if !c.is("attributeGroup") {
			continue
		}
		ref, ok, err := c.qname("ref")
		if err == nil && ok && isGMLNamespace(ref.Space) &&
			(ref.Local == "AssociationAttributeGroup" || ref.Local == "AssociationAttributes") {
			return true
		}
	}
	return false
}

const maxDeclDepth = 8

// elementDecl derives the content model of a custom property from ct.
func (l *xsdLoader) elementDecl(ct *xsdNode, name xml.Name, depth int) *ElementDecl {
	if ct == nil || depth > maxDeclDepth {
		return nil
	}
	d := &ElementDecl{Name: name, Content: ContentEmpty}
	if ct.child("simpleContent") != nil {
		d.Content = ContentSimple
		return d
	}
	model := ct
	if cc := ct.child("complexContent"); cc != nil {
		for _, c := range cc.children {
			if c.is("extension") || c.is("restriction") {
				model = c
			}
		}
	}
	var walk func(n *xsdNode)
	walk = func(n *xsdNode) {
		for _, c := range n.children {
			switch {
			case c.is("sequence") || c.is("choice") || c.is("all"):
				d.Content = ContentElement
				walk(c)
			case c.is("any"):
				d.Content = ContentElement
				d.AnyChildren = true
			case c.is("element"):
				d.Content = ContentElement
				d.Children = append(d.Children, l.childDecl(c, depth+1))
			}
		}
	}
	walk(model)
	if ct.attrs["mixed"] == "true" {
		d.Content = ContentMixed
	}
	if model.is("extension") {
		// content inherited from the base type isn't expanded
		if d.Content == ContentEmpty {
			d.Content = ContentElement
		}
		d.AnyChildren = true
	}
	return d
}

func (l *xsdLoader) childDecl(el *xsdNode, depth int) *ElementDecl {
	name := xml.Name{Local: el.attrs["name"]}
	if el.doc.qualified || el.attrs["form"] == "qualified" {
		name.Space = el.doc.target
	}
	decl := el
	if ref, ok, err := el.qname("ref"); err == nil && ok {
		name = ref
		if g := l.elements[ref]; g != nil {
			decl = g
		} else {
			return &ElementDecl{Name: name, Content: ContentMixed, AnyChildren: true}
		}
	}
	if ct := decl.child("complexType"); ct != nil {
		if d := l.elementDecl(ct, name, depth); d != nil {
			return d
		}
	}
	if t, ok, err := decl.qname("type"); err == nil && ok {
		if ct := l.types[t]; ct != nil {
			if d := l.elementDecl(ct, name, depth); d != nil {
				return d
			}
		}
		if t.Space == XSDNamespace && t.Local == "anyType" || isGMLNamespace(t.Space) {
			return &ElementDecl{Name: name, Content: ContentMixed, AnyChildren: true}
		}
	}
	return &ElementDecl{Name: name, Content: ContentSimple}
}

// simplePrimitive follows the restriction bases of a simple type down to an
// XML Schema built-in. Lists and unions are strings.
func (l *xsdLoader) simplePrimitive(st *xsdNode) (PrimitiveKind, error) {
	seen := make(map[*xsdNode]bool)
	for st != nil && !seen[st] {
		seen[st] = true
		r := st.child("restriction")
		if r == nil {
			return String, nil
		}
		base, ok, err := r.qname("base")
		if err != nil {
			return String, err
		}
		if !ok {
			st = r.child("simpleType")
			continue
		}
		if base.Space == XSDNamespace {
			return builtinPrimitive(base.Local), nil
		}
		st = l.simple[base]
	}
	return String, nil
}

func builtinPrimitive(local string) PrimitiveKind {
	switch local {
	case "boolean":
		return Boolean
	case "decimal":
		return Decimal
	case "double", "float":
		return Double
	case "integer", "int", "long", "short", "byte",
		"nonNegativeInteger", "positiveInteger", "nonPositiveInteger", "negativeInteger",
		"unsignedLong", "unsignedInt", "unsignedShort", "unsignedByte":
		return Integer
	case "date":
		return Date
	case "dateTime":
		return DateTime
	case "time":
		return Time
	}
	return String
}

// geometryElement maps a GML geometry element name to a geometry type.
func geometryElement(local string) (GeometryType, error) {
	switch local {
	case "AbstractGeometry", "_Geometry", "AbstractGeometricPrimitive", "_GeometricPrimitive",
		"MultiGeometry", "AbstractGeometricAggregate", "_GeometricAggregate":
		return AnyGeometry, nil
	case "AbstractCurve", "_Curve":
		return LineString, nil
	case "AbstractSurface", "_Surface":
		return Polygon, nil
	case "Envelope", "Box", "Polyhedron", "Solid", "TriangulatedSurface", "Tin":
		return 0, ErrUnknownGeometryType
	}
	return ParseGeometryType(local)
}

// gmlPropertyType sets the kind of pt for a GML property type.
func gmlPropertyType(local string, pt *PropertyType) {
	if g, ok := strings.CutSuffix(local, "PropertyType"); ok {
		switch g {
		case "Geometry", "GeometricPrimitive", "MultiGeometry", "GeometricComplex":
			pt.Kind = KindGeometry
			return
		case "Feature":
			pt.Kind = KindFeature
			return
		case "FeatureArray":
			pt.Kind = KindArray
			return
		case "Envelope":
			pt.Kind = KindEnvelope
			return
		}
		if gt, err := geometryElement(g); err == nil {
			pt.Kind = KindGeometry
			if gt != AnyGeometry {
				pt.GeometryTypes = []GeometryType{gt}
			}
			return
		}
	}
	switch local {
	case "ReferenceType", "FeatureAssociationType":
		pt.Kind = KindFeature
	case "BoundingShapeType":
		pt.Kind = KindEnvelope
	case "CodeType", "CodeWithAuthorityType", "CodeOrNilReasonListType":
		pt.Kind = KindCode
	case "MeasureType", "LengthType", "AngleType", "AreaType", "VolumeType",
		"SpeedType", "ScaleType", "GridLengthType", "TimeType":
		pt.Kind = KindMeasure
	case "StringOrRefType":
		pt.Kind = KindStringOrRef
	default:
		pt.Kind = KindCustom
	}
}
