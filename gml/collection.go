package gml

import (
	"encoding/xml"
	"io"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
)

// StreamFeatureCollection reads the members of a feature collection one at
// a time. Iteration is forward only.
type StreamFeatureCollection struct {
	r      *Reader
	start  xml.StartElement
	id     string
	st     *featureState
	member *xml.StartElement // open member container
	coll   *feature.Feature
	done   bool
}

// ReadCollection reads the root element of the document, which must be a
// feature collection, and returns an iterator over its members.
func (r *Reader) ReadCollection() (*StreamFeatureCollection, error) {
	if r.started {
		return nil, io.EOF
	}
	start, err := r.rootElement()
	if err != nil {
		return nil, err
	}
	ft, err := r.featureType(start)
	if err != nil {
		return nil, err
	}
	if !ft.Collection && r.dynamic == nil {
		return nil, r.fail(ErrNotCollection, start.Name, "gml.not_collection", schema.QName(start.Name))
	}
	id, err := r.readID(start)
	if err != nil {
		return nil, err
	}
	return &StreamFeatureCollection{r: r, start: start, id: id, st: r.newFeatureState(ft, "")}, nil
}

// Read returns the next member feature. After the collection's end tag
// the local reference pass runs and Read returns io.EOF. Member references
// and other collection properties are collected into Feature.
func (c *StreamFeatureCollection) Read() (*feature.Feature, error) {
	if c.done {
		return nil, io.EOF
	}
	r := c.r
	for {
		if c.member != nil {
			tok, err := r.nextTag(c.member.Name)
			if err != nil {
				return nil, err
			}
			child, ok := tok.(xml.StartElement)
			if !ok {
				c.member = nil
				continue
			}
			return r.readFeature(child, c.st.srs)
		}

		tok, err := r.nextTag(c.start.Name)
		if err != nil {
			return nil, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			return nil, c.finish()
		}
		switch {
		case isMember(child.Name):
			if r.dynamic != nil {
				c.st.ft.Collection = true
			}
			if uri, ok := href(child); ok {
				c.st.props = append(c.st.props, r.memberReference(child, uri))
				if err := r.skip(); err != nil {
					return nil, err
				}
				continue
			}
			c.member = &child
		default:
			if err := c.st.property(child); err != nil {
				return nil, err
			}
		}
	}
}

func (c *StreamFeatureCollection) finish() error {
	c.done = true
	f, err := c.r.finishFeature(c.start, c.id, c.st)
	if err != nil {
		return err
	}
	c.coll = f
	c.r.resolve()
	return io.EOF
}

// Feature returns the collection with its non-member properties once Read
// has returned io.EOF, or nil before. Streamed members are not retained.
func (c *StreamFeatureCollection) Feature() *feature.Feature { return c.coll }

// Close releases nothing; it exists for symmetry with other readers.
func (c *StreamFeatureCollection) Close() error { return nil }
