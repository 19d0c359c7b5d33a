package gml

import (
	"encoding/xml"
	"errors"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

// standardProps declares the properties every GML feature may carry. They
// are matched outside the feature type's own sequence.
var standardProps = func() map[xml.Name]*schema.PropertyType {
	m := make(map[xml.Name]*schema.PropertyType)
	add := func(name xml.Name, kind schema.Kind, max int) {
		m[name] = &schema.PropertyType{Name: name, Kind: kind, MaxOccurs: max}
	}
	for _, ns := range []string{NamespaceGML32, NamespaceGML} {
		add(xml.Name{Space: ns, Local: "metaDataProperty"}, schema.KindCustom, schema.Unbounded)
		add(xml.Name{Space: ns, Local: "description"}, schema.KindStringOrRef, 1)
		add(xml.Name{Space: ns, Local: "descriptionReference"}, schema.KindStringOrRef, 1)
		add(xml.Name{Space: ns, Local: "identifier"}, schema.KindCode, 1)
		add(xml.Name{Space: ns, Local: "name"}, schema.KindCode, schema.Unbounded)
		add(xml.Name{Space: ns, Local: "boundedBy"}, schema.KindEnvelope, 1)
		add(xml.Name{Space: ns, Local: "location"}, schema.KindGeometry, 1)
		add(xml.Name{Space: ns, Local: "featureMember"}, schema.KindFeature, schema.Unbounded)
		add(xml.Name{Space: ns, Local: "member"}, schema.KindFeature, schema.Unbounded)
		add(xml.Name{Space: ns, Local: "featureMembers"}, schema.KindArray, 1)
	}
	add(xml.Name{Space: NamespaceWFS20, Local: "member"}, schema.KindFeature, schema.Unbounded)
	return m
}()

func standardProperty(name xml.Name) *schema.PropertyType {
	return standardProps[name]
}

func isBoundedBy(name xml.Name) bool {
	return name.Local == "boundedBy" && isGML(name.Space)
}

// featureState collects the properties of one feature element while
// tracking its position in the declared property sequence.
type featureState struct {
	r       *Reader
	ft      *schema.FeatureType
	sm      *schema.StateMachine // nil in dynamic mode
	srs     string
	props   []*feature.Property
	extra   []*feature.Property
	members []*feature.Feature
}

func (r *Reader) newFeatureState(ft *schema.FeatureType, srs string) *featureState {
	st := &featureState{r: r, ft: ft, srs: srs}
	if r.dynamic == nil {
		st.sm = schema.NewStateMachine(ft)
	}
	return st
}

// property parses one property element of the feature.
func (st *featureState) property(start xml.StartElement) error {
	r := st.r
	if start.Name.Space == NamespaceExtraProps {
		el, err := r.readCustom(start, nil)
		if err != nil {
			return err
		}
		st.extra = append(st.extra, &feature.Property{Name: start.Name, Attrs: el.Attrs, Value: el})
		return nil
	}

	pt, err := st.declaration(start)
	if err != nil {
		return err
	}
	p, err := r.readProperty(start, pt, st.srs)
	if err != nil {
		return err
	}
	if isBoundedBy(start.Name) {
		if ev, ok := p.Value.(feature.EnvelopeValue); ok && ev.SRS != "" {
			st.srs = ev.SRS
		}
	}
	st.props = append(st.props, p)
	return nil
}

func (st *featureState) declaration(start xml.StartElement) (*schema.PropertyType, error) {
	r := st.r
	if isGML(start.Name.Space) && st.ft.Property(start.Name) == nil {
		if pt := standardProperty(start.Name); pt != nil {
			return pt, nil
		}
	}
	if st.sm != nil {
		pt, err := st.sm.Advance(start.Name)
		if err != nil {
			return nil, r.sequenceError(err, start.Name)
		}
		return pt, nil
	}
	shape, err := r.inferShape(start)
	if err != nil {
		return nil, err
	}
	return r.dynamic.Infer(st.ft, start.Name, shape), nil
}

// inferShape looks at the first content of start without consuming it.
func (r *Reader) inferShape(start xml.StartElement) (schema.Shape, error) {
	if _, ok := href(start); ok {
		return schema.ShapeFeature, nil
	}
	tok, err := r.ts.peekContent()
	if err != nil {
		return 0, r.xmlError(err)
	}
	child, ok := tok.(xml.StartElement)
	if !ok {
		return schema.ShapeSimple, nil
	}
	if isGML(child.Name.Space) {
		switch {
		case isEnvelopeElement(child.Name.Local), strings.EqualFold(child.Name.Local, "null"):
			return schema.ShapeEnvelope, nil
		case isGeometryElement(child.Name.Local):
			return schema.ShapeGeometry, nil
		}
	}
	return schema.ShapeFeature, nil
}

// readProperty parses the property element start per the kind of its
// declaration.
func (r *Reader) readProperty(start xml.StartElement, pt *schema.PropertyType, srs string) (*feature.Property, error) {
	p := &feature.Property{Name: start.Name, Type: pt, Attrs: attrs(start)}
	if isNil(start) {
		p.Nil = true
		return p, r.skip()
	}

	var err error
	switch pt.Kind {
	case schema.KindSimple:
		p.Value, err = r.simpleValue(start, pt)
	case schema.KindGeometry:
		p.Value, err = r.geometryValue(start, pt, srs)
	case schema.KindFeature:
		p.Value, err = r.featureValue(start, pt, srs)
	case schema.KindEnvelope:
		p.Value, err = r.envelopeValue(start, srs)
	case schema.KindCode:
		var text string
		if text, err = r.text(start); err == nil {
			cs, _ := attr(start, "", "codeSpace")
			p.Value = feature.CodeValue{Code: strings.TrimSpace(text), CodeSpace: cs}
		}
	case schema.KindMeasure:
		var text string
		if text, err = r.text(start); err == nil {
			uom, _ := attr(start, "", "uom")
			p.Value = feature.MeasureValue{Value: strings.TrimSpace(text), UOM: uom}
		}
	case schema.KindStringOrRef:
		var text string
		if text, err = r.text(start); err == nil {
			ref, _ := href(start)
			p.Value = feature.StringOrRefValue{Text: strings.TrimSpace(text), Href: ref}
		}
	case schema.KindArray:
		p.Value, err = r.arrayValue(start, pt, srs)
	case schema.KindCustom:
		var el *feature.CustomElement
		if el, err = r.readCustom(start, pt.Element); err == nil {
			p.Value = el
		}
	default:
		err = r.fail(ErrUnexpectedContent, start.Name, "gml.unexpected_content", schema.QName(start.Name), pt.Kind.String())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Reader) simpleValue(start xml.StartElement, pt *schema.PropertyType) (feature.Value, error) {
	text, err := r.text(start)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" && pt.Primitive != schema.String {
		return nil, nil
	}
	v, err := feature.ParseSimple(pt.Primitive, text)
	if err != nil {
		var ve *feature.ValueError
		if errors.As(err, &ve) {
			code, params := valueCode(ve, start.Name)
			return nil, r.fail(ve, start.Name, code, params...)
		}
		return nil, r.fail(err, start.Name, "gml.invalid_number", pt.Primitive.String(), text, schema.QName(start.Name))
	}
	return v, nil
}

func (r *Reader) geometryValue(start xml.StartElement, pt *schema.PropertyType, srs string) (feature.Value, error) {
	if uri, ok := href(start); ok {
		ref := feature.NewGeometryReference(uri, r.opts.SystemID, r.ctx)
		r.ctx.AddReference(ref)
		return ref, r.skip()
	}
	tok, err := r.nextTag(start.Name)
	if err != nil {
		return nil, err
	}
	child, ok := tok.(xml.StartElement)
	if !ok {
		return nil, nil
	}
	g, err := r.readGeometry(child, srs)
	if err != nil {
		return nil, err
	}
	if !pt.AcceptsGeometry(g.Geometry) {
		return nil, r.fail(ErrInvalidGeometry, child.Name, "gml.invalid_geometry", child.Name.Local, schema.QName(start.Name), pt.AllowedGeometries())
	}
	if err := r.register(g, child.Name); err != nil {
		return nil, err
	}
	return g, r.endOf(start.Name)
}

func (r *Reader) featureValue(start xml.StartElement, pt *schema.PropertyType, srs string) (feature.Value, error) {
	if uri, ok := href(start); ok {
		ref := feature.NewFeatureReference(uri, r.opts.SystemID, r.featureResolver())
		r.ctx.AddReference(ref)
		return ref, r.skip()
	}
	tok, err := r.nextTag(start.Name)
	if err != nil {
		return nil, err
	}
	child, ok := tok.(xml.StartElement)
	if !ok {
		return nil, nil
	}
	f, err := r.readNested(child, pt, start.Name, srs)
	if err != nil {
		return nil, err
	}
	return f, r.endOf(start.Name)
}

func (r *Reader) arrayValue(start xml.StartElement, pt *schema.PropertyType, srs string) (feature.Value, error) {
	var features []*feature.Feature
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return nil, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			return feature.ArrayValue{Features: features}, nil
		}
		f, err := r.readNested(child, pt, start.Name, srs)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
}

// readNested parses a feature held by a property and checks it against
// the declared value type.
func (r *Reader) readNested(start xml.StartElement, pt *schema.PropertyType, prop xml.Name, srs string) (*feature.Feature, error) {
	f, err := r.readFeature(start, srs)
	if err != nil {
		return nil, err
	}
	if pt.ValueType.Local != "" && !r.isSubType(f.Name(), pt.ValueType) {
		return nil, r.fail(ErrWrongFeatureType, start.Name, "gml.wrong_feature_type",
			schema.QName(f.Name()), schema.QName(prop), schema.QName(pt.ValueType))
	}
	return f, nil
}

func (r *Reader) envelopeValue(start xml.StartElement, srs string) (feature.Value, error) {
	tok, err := r.nextTag(start.Name)
	if err != nil {
		return nil, err
	}
	child, ok := tok.(xml.StartElement)
	if !ok {
		return nil, nil
	}
	if isGML(child.Name.Space) && strings.EqualFold(child.Name.Local, "null") {
		if err := r.skip(); err != nil {
			return nil, err
		}
		return nil, r.endOf(start.Name)
	}
	g, err := r.readGeometry(child, srs)
	if err != nil {
		return nil, err
	}
	b, ok := g.Geometry.(orb.Bound)
	if !ok {
		return nil, r.fail(ErrInvalidGeometry, child.Name, "gml.invalid_geometry", child.Name.Local, schema.QName(start.Name), schema.EnvelopeGeometry.String())
	}
	return feature.EnvelopeValue{Bound: b, SRS: g.SRS}, r.endOf(start.Name)
}
