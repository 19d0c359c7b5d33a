package gml

import (
	"encoding/xml"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
)

// readCustom parses a generic XML subtree. Child elements and character
// content are checked against decl; a nil decl admits anything.
func (r *Reader) readCustom(start xml.StartElement, decl *schema.ElementDecl) (*feature.CustomElement, error) {
	el := &feature.CustomElement{Name: start.Name, Attrs: attrs(start), Decl: decl}
	var sb strings.Builder
	for {
		tok, err := r.ts.next()
		if err != nil {
			return nil, r.xmlError(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			if !isSpace(t) && !decl.AllowsText() {
				return nil, r.fail(ErrTextNotAllowed, start.Name, "gml.text_not_allowed", schema.QName(start.Name))
			}
			sb.Write(t)
		case xml.StartElement:
			if !decl.AllowsChild(t.Name) {
				return nil, r.fail(ErrElementNotAllowed, t.Name, "gml.element_not_allowed", schema.QName(t.Name), schema.QName(start.Name))
			}
			child, err := r.readCustom(t, decl.Child(t.Name))
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			el.Text = strings.TrimSpace(sb.String())
			return el, nil
		}
	}
}
