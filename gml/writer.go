package gml

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/i18n"
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb/encoding/wkt"
)

// Writer serializes feature graphs to GML. Every object id written is
// remembered so that later occurrences of the same feature or geometry are
// written as xlink references. A Writer is not safe for concurrent use.
type Writer struct {
	enc       *xml.Encoder
	opts      WriterOptions
	gmlNS     string
	prefixes  map[string]string // namespace -> prefix
	taken     map[string]bool   // prefixes in use
	order     []string          // namespaces in binding order
	scopes    [][]string        // namespaces declared per open element
	inScope   map[string]int
	exported  map[string]bool
	requested map[xml.Name]bool
	started   bool
	warnings  []string
}

// NewWriter creates a writer that writes to w.
func NewWriter(w io.Writer, opts *WriterOptions) *Writer {
	if opts == nil {
		opts = DefaultWriterOptions()
	}
	o := *opts
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.RemoteXlinkTemplate == "" {
		o.RemoteXlinkTemplate = "#{}"
	}
	if o.Translator == nil {
		o.Translator = i18n.Default()
	}

	enc := xml.NewEncoder(w)
	if o.Indent != "" {
		enc.Indent("", o.Indent)
	}
	wr := &Writer{
		enc:      enc,
		opts:     o,
		gmlNS:    o.Version.Namespace(),
		prefixes: make(map[string]string),
		taken:    make(map[string]bool),
		inScope:  make(map[string]int),
		exported: make(map[string]bool),
	}
	wr.bind("gml", wr.gmlNS)
	wr.bind("xlink", NamespaceXLink)
	wr.bind("xsi", NamespaceXSI)

	prefixes := make([]string, 0, len(o.Prefixes))
	for p := range o.Prefixes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		wr.bind(p, o.Prefixes[p])
	}

	if len(o.RequestedProperties) > 0 {
		wr.requested = make(map[xml.Name]bool, len(o.RequestedProperties))
		for _, n := range o.RequestedProperties {
			wr.requested[n] = true
		}
	}
	return wr
}

// Warnings returns the degrading conditions met so far.
func (w *Writer) Warnings() []string { return w.warnings }

// Exported reports whether the object with the given id has been written.
func (w *Writer) Exported(id string) bool { return w.exported[id] }

// Export writes f, a feature or feature collection, with all its
// properties as one top-level element.
func (w *Writer) Export(f *feature.Feature) error {
	if !w.started {
		w.started = true
		if err := w.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
			return err
		}
	}
	return w.exportFeature(f, 0)
}

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	return w.enc.Flush()
}

// exportFeature writes f. level counts the feature properties inlined
// above f.
func (w *Writer) exportFeature(f *feature.Feature, level int) error {
	var attrs []xml.Attr
	if f.ID != "" {
		w.exported[f.ID] = true
		attrs = append(attrs, xml.Attr{Name: w.idName(), Value: f.ID})
	}
	if len(w.scopes) == 0 && w.opts.SchemaLocation != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Space: NamespaceXSI, Local: "schemaLocation"}, Value: w.opts.SchemaLocation})
	}
	if err := w.start(f.Name(), attrs...); err != nil {
		return err
	}
	for _, p := range f.Extra {
		if err := w.exportProperty(p, level); err != nil {
			return err
		}
	}
	// Member references follow the inline members.
	var memberRefs []*feature.Property
	for _, p := range w.properties(f) {
		if isMember(p.Name) {
			memberRefs = append(memberRefs, p)
			continue
		}
		if err := w.exportProperty(p, level); err != nil {
			return err
		}
	}
	for _, m := range f.Members {
		if err := w.exportMember(m, level); err != nil {
			return err
		}
	}
	for _, p := range memberRefs {
		if err := w.exportProperty(p, level); err != nil {
			return err
		}
	}
	return w.end(f.Name())
}

func (w *Writer) exportMember(m *feature.Feature, level int) error {
	name := xml.Name{Space: w.gmlNS, Local: "featureMember"}
	if m.ID != "" && w.exported[m.ID] {
		return w.empty(name, w.hrefAttr("#"+m.ID))
	}
	if err := w.start(name); err != nil {
		return err
	}
	if err := w.exportFeature(m, level); err != nil {
		return err
	}
	return w.end(name)
}

func (w *Writer) idName() xml.Name {
	if w.opts.Version == GML2 {
		return xml.Name{Local: "fid"}
	}
	return xml.Name{Space: w.gmlNS, Local: "id"}
}

// properties returns the properties of f in output order, with a
// synthesized boundedBy when configured and missing. The envelope goes
// before the first property that isn't a leading GML standard property.
func (w *Writer) properties(f *feature.Feature) []*feature.Property {
	props := f.Properties
	if !w.opts.GenerateBoundedBy {
		return props
	}
	for _, p := range props {
		if isBoundedBy(p.Name) {
			return props
		}
	}
	b, ok := f.Envelope()
	if !ok {
		return props
	}
	var srs string
	for _, g := range f.Geometries() {
		if g.SRS != "" {
			srs = g.SRS
			break
		}
	}
	name := xml.Name{Space: w.gmlNS, Local: "boundedBy"}
	bb := &feature.Property{
		Name:  name,
		Type:  standardProperty(name),
		Value: feature.EnvelopeValue{Bound: b, SRS: srs},
	}

	i := 0
	for ; i < len(props); i++ {
		if !leadingStandard(props[i].Name) {
			break
		}
	}
	out := make([]*feature.Property, 0, len(props)+1)
	out = append(out, props[:i]...)
	out = append(out, bb)
	return append(out, props[i:]...)
}

func leadingStandard(name xml.Name) bool {
	if !isGML(name.Space) {
		return false
	}
	switch name.Local {
	case "metaDataProperty", "description", "descriptionReference", "identifier", "name":
		return true
	}
	return false
}

// skipProperty applies the requested-properties list and the time-slice
// filter. A failing filter keeps the property.
func (w *Writer) skipProperty(p *feature.Property) bool {
	if w.requested != nil && !isGML(p.Name.Space) && !w.requested[p.Name] {
		if p.Type == nil || p.Type.MinOccurs == 0 {
			return true
		}
	}
	if p.Type != nil && p.Type.TimeSlice && w.opts.TimeSliceFilter != nil {
		exclude, err := w.opts.TimeSliceFilter(p)
		if err != nil {
			w.warn("time slice filter failed, keeping property", "property", schema.QName(p.Name), "error", err)
			return false
		}
		return exclude
	}
	return false
}

func (w *Writer) exportProperty(p *feature.Property, level int) error {
	if w.skipProperty(p) {
		return nil
	}
	attrs := w.propertyAttrs(p)
	if p.Nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Space: NamespaceXSI, Local: "nil"}, Value: "true"})
		return w.empty(p.Name, attrs...)
	}

	switch v := p.Value.(type) {
	case nil:
		if p.Kind() == schema.KindEnvelope {
			return w.nullEnvelope(p.Name, attrs)
		}
		return w.empty(p.Name, attrs...)
	case feature.SimpleValue:
		return w.textElement(p.Name, v.Text, attrs...)
	case *feature.Geometry:
		return w.exportGeometryProperty(p.Name, v, attrs)
	case *feature.GeometryReference:
		return w.empty(p.Name, append(attrs, w.hrefAttr(v.Href()))...)
	case *feature.Feature, *feature.FeatureReference:
		return w.exportFeatureProperty(p, attrs, level)
	case feature.EnvelopeValue:
		if err := w.start(p.Name, attrs...); err != nil {
			return err
		}
		if err := w.writeEnvelope(v.Bound, v.SRS); err != nil {
			return err
		}
		return w.end(p.Name)
	case feature.CodeValue:
		if v.CodeSpace != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "codeSpace"}, Value: v.CodeSpace})
		}
		return w.textElement(p.Name, v.Code, attrs...)
	case feature.MeasureValue:
		if v.UOM != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "uom"}, Value: v.UOM})
		}
		return w.textElement(p.Name, v.Value, attrs...)
	case feature.StringOrRefValue:
		if v.Href != "" {
			attrs = append(attrs, w.hrefAttr(v.Href))
		}
		return w.textElement(p.Name, v.Text, attrs...)
	case feature.ArrayValue:
		if err := w.start(p.Name, attrs...); err != nil {
			return err
		}
		for _, f := range v.Features {
			if err := w.exportFeature(f, level); err != nil {
				return err
			}
		}
		return w.end(p.Name)
	case *feature.CustomElement:
		return w.writeCustom(v)
	}
	return fmt.Errorf("gml: unsupported value %T for property %s", p.Value, schema.QName(p.Name))
}

// exportFeatureProperty decides between writing the value inline and
// writing a reference to it.
func (w *Writer) exportFeatureProperty(p *feature.Property, attrs []xml.Attr, level int) error {
	var (
		target *feature.Feature
		id     string
	)
	switch v := p.Value.(type) {
	case *feature.Feature:
		target, id = v, v.ID
	case *feature.FeatureReference:
		if !v.IsLocal() {
			if p.Type != nil && p.Type.InlineOnly {
				return w.inlineRemote(p, v, attrs, level)
			}
			return w.empty(p.Name, append(attrs, w.hrefAttr(v.Href()))...)
		}
		id = v.ID()
		target = v.Target()
		if target == nil {
			if t, err := v.Resolve(); err == nil {
				target = t
			}
		}
		if target == nil {
			return w.empty(p.Name, append(attrs, w.hrefAttr(v.Href()))...)
		}
	}

	if id != "" && w.exported[id] {
		return w.empty(p.Name, append(attrs, w.hrefAttr("#"+id))...)
	}
	if id == "" || w.opts.TraverseXlinkDepth < 0 || level < w.opts.TraverseXlinkDepth {
		if err := w.start(p.Name, attrs...); err != nil {
			return err
		}
		if err := w.exportFeature(target, level+1); err != nil {
			return err
		}
		return w.end(p.Name)
	}
	uri := strings.ReplaceAll(w.opts.RemoteXlinkTemplate, "{}", id)
	return w.empty(p.Name, append(attrs, w.hrefAttr(uri))...)
}

// inlineRemote handles remote references that must be written inline.
// Fetching remote features is not implemented: a resolved target is
// inlined, otherwise the reference is kept, in both cases with a comment.
func (w *Writer) inlineRemote(p *feature.Property, ref *feature.FeatureReference, attrs []xml.Attr, level int) error {
	msg := w.opts.Translator.Message("gml.remote_inline", ref.Href())
	w.warn(msg, "property", schema.QName(p.Name))

	target := ref.Target()
	if target == nil {
		attrs = append(attrs, w.hrefAttr(ref.Href()))
	}
	if err := w.start(p.Name, attrs...); err != nil {
		return err
	}
	if err := w.comment(msg); err != nil {
		return err
	}
	if target != nil {
		if err := w.exportFeature(target, level+1); err != nil {
			return err
		}
	}
	return w.end(p.Name)
}

func (w *Writer) exportGeometryProperty(name xml.Name, g *feature.Geometry, attrs []xml.Attr) error {
	if g.ID != "" && w.exported[g.ID] {
		return w.empty(name, append(attrs, w.hrefAttr("#"+g.ID))...)
	}
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if g.ID != "" {
		w.exported[g.ID] = true
		if err := w.comment(fmt.Sprintf("geometry %s: %s", g.ID, abbreviate(wkt.MarshalString(g.Geometry), 80))); err != nil {
			return err
		}
	}
	if err := w.writeGeometry(g.Geometry, g.SRS, g.ID); err != nil {
		return err
	}
	return w.end(name)
}

func (w *Writer) nullEnvelope(name xml.Name, attrs []xml.Attr) error {
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if err := w.textElement(xml.Name{Space: w.gmlNS, Local: w.opts.Version.nullName()}, "missing"); err != nil {
		return err
	}
	return w.end(name)
}

func (w *Writer) writeCustom(el *feature.CustomElement) error {
	if err := w.start(el.Name, sortedAttrs(el.Attrs, nil)...); err != nil {
		return err
	}
	if el.Text != "" {
		if err := w.enc.EncodeToken(xml.CharData(el.Text)); err != nil {
			return err
		}
	}
	for _, c := range el.Children {
		if err := w.writeCustom(c); err != nil {
			return err
		}
	}
	return w.end(el.Name)
}

// propertyAttrs returns the stored attributes of p except those the
// writer derives from the value.
func (w *Writer) propertyAttrs(p *feature.Property) []xml.Attr {
	return sortedAttrs(p.Attrs, func(n xml.Name) bool {
		switch {
		case n.Space == NamespaceXSI && n.Local == "nil",
			n.Space == NamespaceXLink && n.Local == "href",
			n.Space == "" && (n.Local == "codeSpace" || n.Local == "uom"):
			return true
		}
		return false
	})
}

func sortedAttrs(m map[xml.Name]string, drop func(xml.Name) bool) []xml.Attr {
	if len(m) == 0 {
		return nil
	}
	out := make([]xml.Attr, 0, len(m))
	for n, v := range m {
		if drop != nil && drop(n) {
			continue
		}
		out = append(out, xml.Attr{Name: n, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name.Space != out[j].Name.Space {
			return out[i].Name.Space < out[j].Name.Space
		}
		return out[i].Name.Local < out[j].Name.Local
	})
	return out
}

func (w *Writer) hrefAttr(uri string) xml.Attr {
	return xml.Attr{Name: xml.Name{Space: NamespaceXLink, Local: "href"}, Value: uri}
}

func (w *Writer) textElement(name xml.Name, text string, attrs ...xml.Attr) error {
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if text != "" {
		if err := w.enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return w.end(name)
}

func (w *Writer) empty(name xml.Name, attrs ...xml.Attr) error {
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	return w.end(name)
}

func (w *Writer) comment(text string) error {
	text = strings.ReplaceAll(text, "--", "- -")
	return w.enc.EncodeToken(xml.Comment(" " + text + " "))
}

// start writes a start tag, declaring the namespaces it uses that are not
// yet in scope. Top-level elements declare every bound namespace.
func (w *Writer) start(name xml.Name, attrs ...xml.Attr) error {
	se := xml.StartElement{Name: xml.Name{Local: w.qname(name)}}
	qattrs := make([]xml.Attr, len(attrs))
	for i, a := range attrs {
		qattrs[i] = xml.Attr{Name: xml.Name{Local: w.qname(a.Name)}, Value: a.Value}
	}

	var decl []string
	declare := func(ns string) {
		if ns == "" || w.inScope[ns] > 0 {
			return
		}
		for _, d := range decl {
			if d == ns {
				return
			}
		}
		decl = append(decl, ns)
	}
	if len(w.scopes) == 0 {
		for _, ns := range w.order {
			declare(ns)
		}
	}
	declare(name.Space)
	for _, a := range attrs {
		declare(a.Name.Space)
	}

	for _, ns := range decl {
		se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: "xmlns:" + w.prefixes[ns]}, Value: ns})
		w.inScope[ns]++
	}
	se.Attr = append(se.Attr, qattrs...)
	w.scopes = append(w.scopes, decl)
	return w.enc.EncodeToken(se)
}

func (w *Writer) end(name xml.Name) error {
	decl := w.scopes[len(w.scopes)-1]
	w.scopes = w.scopes[:len(w.scopes)-1]
	for _, ns := range decl {
		w.inScope[ns]--
	}
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: w.qname(name)}})
}

func (w *Writer) qname(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return w.prefix(name.Space) + ":" + name.Local
}

// prefix returns the prefix bound to ns, binding a generated one first
// if needed.
func (w *Writer) prefix(ns string) string {
	if p, ok := w.prefixes[ns]; ok {
		return p
	}
	return w.bind("app", ns)
}

func (w *Writer) bind(prefix, ns string) string {
	if p, ok := w.prefixes[ns]; ok {
		return p
	}
	p := prefix
	for i := 1; w.taken[p]; i++ {
		p = prefix + strconv.Itoa(i)
	}
	w.prefixes[ns] = p
	w.taken[p] = true
	w.order = append(w.order, ns)
	return p
}

func (w *Writer) warn(msg string, args ...any) {
	w.opts.Logger.Warn(msg, args...)
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	w.warnings = append(w.warnings, sb.String())
}

func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
