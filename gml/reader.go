package gml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/i18n"
	"github.com/deegree/featurecodec/schema"
)

// Reader reads the features of one GML document. All objects with an id
// are registered in the reader's Context, which is also the default
// resolver of the references found in the document. A Reader is not safe
// for concurrent use.
type Reader struct {
	ts       *tokenStream
	opts     ReaderOptions
	schema   *schema.AppSchema
	dynamic  *schema.Dynamic
	builtin  map[xml.Name]*schema.FeatureType
	ctx      *feature.Context
	version  Version
	started  bool
	warnings []string
}

// NewReader creates a reader for the document read from r.
func NewReader(r io.Reader, opts *ReaderOptions) *Reader {
	if opts == nil {
		opts = DefaultReaderOptions()
	}
	o := *opts
	if o.Translator == nil {
		o.Translator = i18n.Default()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Reader{
		ts:      newTokenStream(r),
		opts:    o,
		schema:  o.Schema,
		builtin: make(map[xml.Name]*schema.FeatureType),
		ctx:     feature.NewContext(o.RemoteResolver),
	}
}

// Context returns the document's reference context.
func (r *Reader) Context() *feature.Context { return r.ctx }

// Version returns the GML version in effect. It is only meaningful after
// the root element has been read.
func (r *Reader) Version() Version { return r.version }

// Schema returns the application schema in effect: the configured or
// loaded one, or the types inferred so far in dynamic mode.
func (r *Reader) Schema() *schema.AppSchema {
	if r.dynamic != nil {
		return r.dynamic.Schema()
	}
	return r.schema
}

// Dynamic reports whether the reader infers the schema from the document.
func (r *Reader) Dynamic() bool { return r.dynamic != nil }

// Warnings returns the degrading conditions met so far.
func (r *Reader) Warnings() []string { return r.warnings }

// ResolveLocalRefs runs the local reference resolution pass again. The
// pass already runs once at the end of the document; references that
// failed stay unresolved and are reported here.
func (r *Reader) ResolveLocalRefs() error {
	return r.ctx.ResolveLocalRefs()
}

// ReadFeature reads the document's root element, a feature or a feature
// collection with all its members, and resolves local references. It
// returns io.EOF when called again.
func (r *Reader) ReadFeature() (*feature.Feature, error) {
	if r.started {
		return nil, io.EOF
	}
	start, err := r.rootElement()
	if err != nil {
		return nil, err
	}
	f, err := r.readFeature(start, "")
	if err != nil {
		return nil, err
	}
	r.resolve()
	return f, nil
}

func (r *Reader) resolve() {
	if err := r.ctx.ResolveLocalRefs(); err != nil {
		r.warn("unresolved local references", "error", err)
	}
}

func (r *Reader) rootElement() (xml.StartElement, error) {
	r.started = true
	for {
		tok, err := r.ts.next()
		if err == io.EOF {
			return xml.StartElement{}, r.fail(ErrNoRoot, xml.Name{}, "gml.no_root")
		}
		if err != nil {
			return xml.StartElement{}, r.xmlError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			r.init(t)
			return t, nil
		case xml.CharData:
			if !isSpace(t) {
				return xml.StartElement{}, r.fail(ErrUnexpectedContent, xml.Name{}, "gml.unexpected_content", "document", strings.TrimSpace(string(t)))
			}
		}
	}
}

// init settles version and schema from the root element.
func (r *Reader) init(root xml.StartElement) {
	if r.opts.Version != nil {
		r.version = *r.opts.Version
	} else {
		r.version = detectVersion(root)
	}
	if r.schema == nil {
		r.schema = r.loadSchema(root)
	}
	if r.schema == nil {
		r.dynamic = schema.NewDynamic()
	}
}

func (r *Reader) loadSchema(root xml.StartElement) *schema.AppSchema {
	value, ok := attr(root, NamespaceXSI, "schemaLocation")
	if !ok {
		r.opts.Logger.Debug("no schema location, inferring schema from document")
		return nil
	}
	locs, err := ParseSchemaLocation(value, r.opts.SystemID)
	if err != nil {
		r.warn("ignoring schema location, inferring schema from document", "error", err)
		return nil
	}
	if r.opts.SchemaLoader == nil {
		r.warn("no schema loader configured, inferring schema from document", "schemaLocation", value)
		return nil
	}
	s, err := r.opts.SchemaLoader(locs)
	if err != nil {
		r.warn("unable to load application schema, inferring schema from document", "schemaLocation", value, "error", err)
		return nil
	}
	return s
}

func detectVersion(root xml.StartElement) Version {
	if root.Name.Space == NamespaceGML32 {
		return GML32
	}
	old := root.Name.Space == NamespaceGML
	for _, a := range root.Attr {
		if a.Name.Space != "xmlns" && !(a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		switch a.Value {
		case NamespaceGML32:
			return GML32
		case NamespaceGML:
			old = true
		}
	}
	if !old {
		return GML32
	}
	if _, ok := attr(root, "", "fid"); ok {
		return GML2
	}
	return GML31
}

// readFeature parses the feature element start up to its end tag. srs is
// the CRS inherited by geometries without srsName.
func (r *Reader) readFeature(start xml.StartElement, srs string) (*feature.Feature, error) {
	ft, err := r.featureType(start)
	if err != nil {
		return nil, err
	}
	id, err := r.readID(start)
	if err != nil {
		return nil, err
	}
	st := r.newFeatureState(ft, srs)
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return nil, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			break
		}
		if isMember(child.Name) {
			err = r.readMembers(child, st)
		} else {
			err = st.property(child)
		}
		if err != nil {
			return nil, err
		}
	}
	return r.finishFeature(start, id, st)
}

func (r *Reader) finishFeature(start xml.StartElement, id string, st *featureState) (*feature.Feature, error) {
	if st.sm != nil {
		if err := st.sm.Finish(); err != nil {
			return nil, r.sequenceError(err, start.Name)
		}
	}
	f := feature.New(st.ft, id, st.props, st.extra, r.version.String())
	f.Members = st.members
	if err := r.register(f, start.Name); err != nil {
		return nil, err
	}
	return f, nil
}

// readMembers reads a featureMember, featureMembers or member element.
// Inline features become members; a reference becomes a property.
func (r *Reader) readMembers(start xml.StartElement, st *featureState) error {
	if r.dynamic != nil {
		st.ft.Collection = true
	}
	if uri, ok := href(start); ok {
		st.props = append(st.props, r.memberReference(start, uri))
		return r.skip()
	}
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			return nil
		}
		f, err := r.readFeature(child, st.srs)
		if err != nil {
			return err
		}
		st.members = append(st.members, f)
	}
}

func (r *Reader) memberReference(start xml.StartElement, uri string) *feature.Property {
	ref := feature.NewFeatureReference(uri, r.opts.SystemID, r.featureResolver())
	r.ctx.AddReference(ref)
	return &feature.Property{
		Name:  start.Name,
		Type:  standardProperty(start.Name),
		Attrs: attrs(start),
		Value: ref,
	}
}

func (r *Reader) featureResolver() feature.Resolver {
	if r.opts.FeatureResolver != nil {
		return r.opts.FeatureResolver
	}
	return r.ctx
}

func (r *Reader) featureType(start xml.StartElement) (*schema.FeatureType, error) {
	if r.schema != nil {
		if ft := r.schema.FeatureType(start.Name); ft != nil {
			return ft, nil
		}
	}
	if isCollectionName(start.Name) {
		ft := r.builtin[start.Name]
		if ft == nil {
			ft = &schema.FeatureType{Name: start.Name, Collection: true}
			r.builtin[start.Name] = ft
		}
		return ft, nil
	}
	if r.dynamic != nil {
		return r.dynamic.FeatureType(start.Name), nil
	}
	return nil, r.fail(ErrUnknownFeatureType, start.Name, "gml.unknown_feature_type", schema.QName(start.Name))
}

func (r *Reader) isSubType(sub, super xml.Name) bool {
	if sub == super {
		return true
	}
	if r.schema != nil {
		return r.schema.IsSubType(sub, super)
	}
	return false
}

// readID returns the gml:id (or GML 2 fid) of start. Ids must be NCNames.
func (r *Reader) readID(start xml.StartElement) (string, error) {
	id, ok := attr(start, NamespaceGML32, "id")
	if !ok {
		id, ok = attr(start, NamespaceGML, "id")
	}
	if !ok {
		id, ok = attr(start, "", "fid")
	}
	if !ok {
		return "", nil
	}
	if !validID(id) {
		return "", r.fail(&IDFormatError{ID: id}, start.Name, "gml.invalid_id", id)
	}
	return id, nil
}

func (r *Reader) register(obj feature.Object, elem xml.Name) error {
	if err := r.ctx.AddObject(obj); err != nil {
		return r.fail(err, elem, "gml.feature_id_not_unique", obj.ObjectID())
	}
	return nil
}

// nextTag returns the next start or end element inside parent. Character
// content is an error.
func (r *Reader) nextTag(parent xml.Name) (xml.Token, error) {
	tok, err := r.ts.nextTag()
	if err != nil {
		return nil, r.xmlError(err)
	}
	if cd, ok := tok.(xml.CharData); ok {
		return nil, r.fail(ErrUnexpectedContent, parent, "gml.unexpected_content", schema.QName(parent), strings.TrimSpace(string(cd)))
	}
	return tok, nil
}

// endOf consumes the end tag of parent, failing on any other content.
func (r *Reader) endOf(parent xml.Name) error {
	tok, err := r.nextTag(parent)
	if err != nil {
		return err
	}
	if se, ok := tok.(xml.StartElement); ok {
		return r.fail(ErrUnexpectedContent, parent, "gml.unexpected_content", schema.QName(parent), "element "+schema.QName(se.Name))
	}
	return nil
}

// text reads the character content of start, which must not contain
// child elements.
func (r *Reader) text(start xml.StartElement) (string, error) {
	s, child, err := r.ts.text()
	if err != nil {
		return "", r.xmlError(err)
	}
	if child != nil {
		return "", r.fail(ErrUnexpectedContent, start.Name, "gml.unexpected_content", schema.QName(start.Name), "element "+schema.QName(child.Name))
	}
	return s, nil
}

func (r *Reader) skip() error {
	if err := r.ts.skip(); err != nil {
		return r.xmlError(err)
	}
	return nil
}

func (r *Reader) fail(err error, elem xml.Name, code string, params ...any) *ParseError {
	line, col := r.ts.pos()
	return &ParseError{
		Code:    code,
		Params:  params,
		Line:    line,
		Column:  col,
		Element: elem,
		Err:     err,
		tr:      r.opts.Translator,
	}
}

func (r *Reader) xmlError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return r.fail(fmt.Errorf("%w: %w", ErrMalformedXML, err), xml.Name{}, "gml.xml", err.Error())
}

func (r *Reader) sequenceError(err error, elem xml.Name) error {
	var se *schema.SequenceError
	if errors.As(err, &se) {
		code, params := sequenceCode(se)
		return r.fail(se, elem, code, params...)
	}
	return r.fail(err, elem, "gml.unexpected_property", schema.QName(elem), "")
}

func (r *Reader) warn(msg string, args ...any) {
	line, col := r.ts.pos()
	r.opts.Logger.Warn(msg, append([]any{"line", line, "column", col}, args...)...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "line %d, column %d: %s", line, col, msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	r.warnings = append(r.warnings, sb.String())
}

func isMember(name xml.Name) bool {
	switch name.Local {
	case "featureMember", "featureMembers":
		return isGML(name.Space)
	case "member":
		return isGML(name.Space) || name.Space == NamespaceWFS20
	}
	return false
}

func isCollectionName(name xml.Name) bool {
	if name.Local != "FeatureCollection" {
		return false
	}
	return isGML(name.Space) || name.Space == NamespaceWFS20 || name.Space == "http://www.opengis.net/wfs"
}
