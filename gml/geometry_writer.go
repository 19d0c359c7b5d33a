package gml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// writeGeometry writes g as a GML geometry of the writer's version. srs
// and id go on the outermost element only.
func (w *Writer) writeGeometry(g orb.Geometry, srs, id string) error {
	var attrs []xml.Attr
	if id != "" {
		if w.opts.Version == GML2 {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "gid"}, Value: id})
		} else {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Space: w.gmlNS, Local: "id"}, Value: id})
		}
	}
	if srs != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "srsName"}, Value: srs})
	}

	switch v := g.(type) {
	case orb.Point:
		return w.element("Point", attrs, func() error { return w.writePos(v) })
	case orb.LineString:
		return w.element("LineString", attrs, func() error { return w.writePosList([]orb.Point(v)) })
	case orb.Ring:
		return w.writePolygon(orb.Polygon{v}, attrs)
	case orb.Polygon:
		return w.writePolygon(v, attrs)
	case orb.MultiPoint:
		return w.element("MultiPoint", attrs, func() error {
			for _, p := range v {
				if err := w.member("pointMember", p); err != nil {
					return err
				}
			}
			return nil
		})
	case orb.MultiLineString:
		multi, member := "MultiCurve", "curveMember"
		if w.opts.Version == GML2 {
			multi, member = "MultiLineString", "lineStringMember"
		}
		return w.element(multi, attrs, func() error {
			for _, ls := range v {
				if err := w.member(member, ls); err != nil {
					return err
				}
			}
			return nil
		})
	case orb.MultiPolygon:
		multi, member := "MultiSurface", "surfaceMember"
		if w.opts.Version == GML2 {
			multi, member = "MultiPolygon", "polygonMember"
		}
		return w.element(multi, attrs, func() error {
			for _, p := range v {
				if err := w.member(member, p); err != nil {
					return err
				}
			}
			return nil
		})
	case orb.Collection:
		return w.element("MultiGeometry", attrs, func() error {
			for _, c := range v {
				if err := w.member("geometryMember", c); err != nil {
					return err
				}
			}
			return nil
		})
	case orb.Bound:
		return w.writeEnvelope(v, srs)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
}

func (w *Writer) member(local string, g orb.Geometry) error {
	return w.element(local, nil, func() error { return w.writeGeometry(g, "", "") })
}

func (w *Writer) writePolygon(p orb.Polygon, attrs []xml.Attr) error {
	outer, inner := "exterior", "interior"
	if w.opts.Version == GML2 {
		outer, inner = "outerBoundaryIs", "innerBoundaryIs"
	}
	return w.element("Polygon", attrs, func() error {
		for i, ring := range p {
			boundary := inner
			if i == 0 {
				boundary = outer
			}
			ring := ring
			err := w.element(boundary, nil, func() error {
				return w.element("LinearRing", nil, func() error { return w.writePosList([]orb.Point(ring)) })
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// writeEnvelope writes a gml:Envelope, or a gml:Box for GML 2.
func (w *Writer) writeEnvelope(b orb.Bound, srs string) error {
	var attrs []xml.Attr
	if srs != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "srsName"}, Value: srs})
	}
	if w.opts.Version == GML2 {
		return w.element("Box", attrs, func() error { return w.writePosList([]orb.Point{b.Min, b.Max}) })
	}
	return w.element("Envelope", attrs, func() error {
		if err := w.textElement(w.gml("lowerCorner"), formatPoint(b.Min, " ")); err != nil {
			return err
		}
		return w.textElement(w.gml("upperCorner"), formatPoint(b.Max, " "))
	})
}

func (w *Writer) writePos(p orb.Point) error {
	if w.opts.Version == GML2 {
		return w.textElement(w.gml("coordinates"), formatPoint(p, ","))
	}
	return w.textElement(w.gml("pos"), formatPoint(p, " "))
}

func (w *Writer) writePosList(pts []orb.Point) error {
	var sb strings.Builder
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if w.opts.Version == GML2 {
			sb.WriteString(formatPoint(p, ","))
		} else {
			sb.WriteString(formatPoint(p, " "))
		}
	}
	if w.opts.Version == GML2 {
		return w.textElement(w.gml("coordinates"), sb.String())
	}
	return w.textElement(w.gml("posList"), sb.String())
}

func (w *Writer) element(local string, attrs []xml.Attr, body func() error) error {
	name := w.gml(local)
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}
	return w.end(name)
}

func (w *Writer) gml(local string) xml.Name {
	return xml.Name{Space: w.gmlNS, Local: local}
}

func formatPoint(p orb.Point, sep string) string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + sep + strconv.FormatFloat(p[1], 'f', -1, 64)
}
