package gml

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

var geometryElements = map[string]bool{
	"Point":           true,
	"LineString":      true,
	"LinearRing":      true,
	"Polygon":         true,
	"MultiPoint":      true,
	"MultiLineString": true,
	"MultiCurve":      true,
	"MultiPolygon":    true,
	"MultiSurface":    true,
	"MultiGeometry":   true,
	"Envelope":        true,
	"Box":             true,
}

func isGeometryElement(local string) bool { return geometryElements[local] }

func isEnvelopeElement(local string) bool { return local == "Envelope" || local == "Box" }

// readGeometry parses a geometry element into an orb geometry. srs is the
// CRS in effect when the element carries no srsName. Coordinates beyond
// the first two dimensions are dropped.
func (r *Reader) readGeometry(start xml.StartElement, srs string) (*feature.Geometry, error) {
	if s, ok := attr(start, "", "srsName"); ok && s != "" {
		srs = s
	}
	id, err := r.readID(start)
	if err != nil {
		return nil, err
	}
	g, err := r.geometry(start, srsDimension(start, 2))
	if err != nil {
		return nil, err
	}
	return &feature.Geometry{ID: id, SRS: srs, Geometry: g}, nil
}

func (r *Reader) geometry(start xml.StartElement, dim int) (orb.Geometry, error) {
	if !isGML(start.Name.Space) || !isGeometryElement(start.Name.Local) {
		return nil, r.fail(ErrUnsupportedGeometry, start.Name, "gml.unsupported_geometry", schema.QName(start.Name))
	}
	dim = srsDimension(start, dim)
	switch start.Name.Local {
	case "Point":
		pts, err := r.positions(start, dim)
		if err != nil {
			return nil, err
		}
		if len(pts) != 1 {
			return nil, r.fail(ErrInvalidCoordinates, start.Name, "gml.invalid_coordinates", schema.QName(start.Name), "expected one position")
		}
		return pts[0], nil
	case "LineString":
		pts, err := r.positions(start, dim)
		if err != nil {
			return nil, err
		}
		return orb.LineString(pts), nil
	case "LinearRing":
		pts, err := r.positions(start, dim)
		if err != nil {
			return nil, err
		}
		return orb.Ring(pts), nil
	case "Polygon":
		return r.polygon(start, dim)
	case "Envelope", "Box":
		pts, err := r.positions(start, dim)
		if err != nil {
			return nil, err
		}
		if len(pts) != 2 {
			return nil, r.fail(ErrInvalidCoordinates, start.Name, "gml.invalid_coordinates", schema.QName(start.Name), "expected two corners")
		}
		return orb.Bound{Min: pts[0], Max: pts[0]}.Extend(pts[1]), nil
	}

	parts, err := r.members(start, dim)
	if err != nil {
		return nil, err
	}
	switch start.Name.Local {
	case "MultiPoint":
		mp := make(orb.MultiPoint, 0, len(parts))
		for _, g := range parts {
			p, ok := g.(orb.Point)
			if !ok {
				return nil, r.wrongMember(start, g, schema.Point)
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "MultiLineString", "MultiCurve":
		mls := make(orb.MultiLineString, 0, len(parts))
		for _, g := range parts {
			ls, ok := g.(orb.LineString)
			if !ok {
				return nil, r.wrongMember(start, g, schema.LineString)
			}
			mls = append(mls, ls)
		}
		return mls, nil
	case "MultiPolygon", "MultiSurface":
		mp := make(orb.MultiPolygon, 0, len(parts))
		for _, g := range parts {
			p, ok := g.(orb.Polygon)
			if !ok {
				return nil, r.wrongMember(start, g, schema.Polygon)
			}
			mp = append(mp, p)
		}
		return mp, nil
	}
	return orb.Collection(parts), nil
}

func (r *Reader) wrongMember(start xml.StartElement, g orb.Geometry, want schema.GeometryType) error {
	return r.fail(ErrInvalidGeometry, start.Name, "gml.invalid_geometry", g.GeoJSONType(), schema.QName(start.Name), want.String())
}

// polygon reads exterior and interior rings (GML 3) or outer and inner
// boundaries (GML 2). The exterior ring is always first.
func (r *Reader) polygon(start xml.StartElement, dim int) (orb.Polygon, error) {
	var poly orb.Polygon
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return nil, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			return poly, nil
		}
		exterior := false
		switch child.Name.Local {
		case "exterior", "outerBoundaryIs":
			exterior = true
		case "interior", "innerBoundaryIs":
		default:
			return nil, r.fail(ErrUnexpectedContent, start.Name, "gml.unexpected_content", schema.QName(start.Name), "element "+schema.QName(child.Name))
		}
		ring, err := r.ring(child, dim)
		if err != nil {
			return nil, err
		}
		if exterior {
			poly = append(orb.Polygon{ring}, poly...)
		} else {
			poly = append(poly, ring)
		}
	}
}

func (r *Reader) ring(boundary xml.StartElement, dim int) (orb.Ring, error) {
	tok, err := r.nextTag(boundary.Name)
	if err != nil {
		return nil, err
	}
	child, ok := tok.(xml.StartElement)
	if !ok || child.Name.Local != "LinearRing" {
		return nil, r.fail(ErrUnsupportedGeometry, boundary.Name, "gml.unsupported_geometry", schema.QName(boundary.Name))
	}
	g, err := r.geometry(child, dim)
	if err != nil {
		return nil, err
	}
	return g.(orb.Ring), r.endOf(boundary.Name)
}

// members reads the geometries of the *Member and *Members children of a
// multi geometry.
func (r *Reader) members(start xml.StartElement, dim int) ([]orb.Geometry, error) {
	var out []orb.Geometry
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return nil, err
		}
		member, ok := tok.(xml.StartElement)
		if !ok {
			return out, nil
		}
		if !strings.HasSuffix(member.Name.Local, "Member") && !strings.HasSuffix(member.Name.Local, "Members") {
			return nil, r.fail(ErrUnexpectedContent, start.Name, "gml.unexpected_content", schema.QName(start.Name), "element "+schema.QName(member.Name))
		}
		if _, ok := href(member); ok {
			return nil, r.fail(ErrUnsupportedGeometry, member.Name, "gml.unsupported_geometry", "xlink:href in "+schema.QName(member.Name))
		}
		for {
			tok, err := r.nextTag(member.Name)
			if err != nil {
				return nil, err
			}
			child, ok := tok.(xml.StartElement)
			if !ok {
				break
			}
			g, err := r.geometry(child, dim)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
	}
}

// positions collects the positions of a geometry element from pos,
// posList, coordinates, coord, lowerCorner/upperCorner and nested point
// properties.
func (r *Reader) positions(start xml.StartElement, dim int) ([]orb.Point, error) {
	var pts []orb.Point
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return nil, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			return pts, nil
		}
		switch child.Name.Local {
		case "pos", "lowerCorner", "upperCorner", "posList":
			text, err := r.text(child)
			if err != nil {
				return nil, err
			}
			d := srsDimension(child, dim)
			if v, ok := attr(child, "", "dimension"); ok {
				if n, err := strconv.Atoi(v); err == nil && n >= 2 {
					d = n
				}
			}
			list, err := r.parsePosList(child, text, d)
			if err != nil {
				return nil, err
			}
			if child.Name.Local != "posList" && len(list) != 1 {
				return nil, r.fail(ErrInvalidCoordinates, child.Name, "gml.invalid_coordinates", schema.QName(child.Name), text)
			}
			pts = append(pts, list...)
		case "coordinates":
			text, err := r.text(child)
			if err != nil {
				return nil, err
			}
			list, err := r.parseCoordinates(child, text)
			if err != nil {
				return nil, err
			}
			pts = append(pts, list...)
		case "coord":
			p, err := r.coord(child)
			if err != nil {
				return nil, err
			}
			pts = append(pts, p)
		case "pointProperty", "pointRep":
			tok, err := r.nextTag(child.Name)
			if err != nil {
				return nil, err
			}
			pt, ok := tok.(xml.StartElement)
			if !ok || pt.Name.Local != "Point" {
				return nil, r.fail(ErrUnsupportedGeometry, child.Name, "gml.unsupported_geometry", schema.QName(child.Name))
			}
			g, err := r.geometry(pt, dim)
			if err != nil {
				return nil, err
			}
			pts = append(pts, g.(orb.Point))
			if err := r.endOf(child.Name); err != nil {
				return nil, err
			}
		default:
			return nil, r.fail(ErrUnexpectedContent, start.Name, "gml.unexpected_content", schema.QName(start.Name), "element "+schema.QName(child.Name))
		}
	}
}

func (r *Reader) parsePosList(elem xml.StartElement, text string, dim int) ([]orb.Point, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields)%dim != 0 {
		return nil, r.fail(ErrInvalidCoordinates, elem.Name, "gml.invalid_coordinates", schema.QName(elem.Name), text)
	}
	pts := make([]orb.Point, 0, len(fields)/dim)
	for i := 0; i < len(fields); i += dim {
		x, err1 := strconv.ParseFloat(fields[i], 64)
		y, err2 := strconv.ParseFloat(fields[i+1], 64)
		if err1 != nil || err2 != nil {
			return nil, r.fail(ErrInvalidCoordinates, elem.Name, "gml.invalid_coordinates", schema.QName(elem.Name), text)
		}
		pts = append(pts, orb.Point{x, y})
	}
	return pts, nil
}

// parseCoordinates reads GML 2 style tuples, honoring the cs, ts and
// decimal separator attributes.
func (r *Reader) parseCoordinates(elem xml.StartElement, text string) ([]orb.Point, error) {
	cs, ts, dec := ",", " ", "."
	if v, ok := attr(elem, "", "cs"); ok && v != "" {
		cs = v
	}
	if v, ok := attr(elem, "", "ts"); ok && v != "" {
		ts = v
	}
	if v, ok := attr(elem, "", "decimal"); ok && v != "" {
		dec = v
	}

	var tuples []string
	if strings.TrimSpace(ts) == "" {
		tuples = strings.Fields(text)
	} else {
		for _, t := range strings.Split(text, ts) {
			if t = strings.TrimSpace(t); t != "" {
				tuples = append(tuples, t)
			}
		}
	}
	if len(tuples) == 0 {
		return nil, r.fail(ErrInvalidCoordinates, elem.Name, "gml.invalid_coordinates", schema.QName(elem.Name), text)
	}

	pts := make([]orb.Point, 0, len(tuples))
	for _, t := range tuples {
		parts := strings.Split(t, cs)
		if len(parts) < 2 {
			return nil, r.fail(ErrInvalidCoordinates, elem.Name, "gml.invalid_coordinates", schema.QName(elem.Name), text)
		}
		var xy [2]float64
		for i := 0; i < 2; i++ {
			s := strings.TrimSpace(parts[i])
			if dec != "." {
				s = strings.ReplaceAll(s, dec, ".")
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, r.fail(ErrInvalidCoordinates, elem.Name, "gml.invalid_coordinates", schema.QName(elem.Name), text)
			}
			xy[i] = v
		}
		pts = append(pts, orb.Point(xy))
	}
	return pts, nil
}

// coord reads a GML 2 coord element with X, Y and optional Z children.
func (r *Reader) coord(start xml.StartElement) (orb.Point, error) {
	var (
		p    orb.Point
		seen int
	)
	for {
		tok, err := r.nextTag(start.Name)
		if err != nil {
			return p, err
		}
		child, ok := tok.(xml.StartElement)
		if !ok {
			break
		}
		text, err := r.text(child)
		if err != nil {
			return p, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return p, r.fail(ErrInvalidCoordinates, child.Name, "gml.invalid_coordinates", schema.QName(child.Name), text)
		}
		switch child.Name.Local {
		case "X":
			p[0] = v
			seen |= 1
		case "Y":
			p[1] = v
			seen |= 2
		}
	}
	if seen != 3 {
		return p, r.fail(ErrInvalidCoordinates, start.Name, "gml.invalid_coordinates", schema.QName(start.Name), "missing X or Y")
	}
	return p, nil
}

func srsDimension(start xml.StartElement, def int) int {
	if v, ok := attr(start, "", "srsDimension"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 2 {
			return n
		}
	}
	return def
}
