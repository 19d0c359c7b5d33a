package shape

import (
	"fmt"

	"github.com/paulmach/orb"
)

// NewPolyLine returns a PolyLine with one part per line.
func NewPolyLine(lines ...orb.LineString) *PolyLineShape {
	s := &PolyLineShape{}
	for _, ls := range lines {
		s.Parts = append(s.Parts, len(s.Points))
		s.Points = append(s.Points, ls...)
	}
	return s
}

// NewPolygon returns a Polygon holding the rings of polys. The first ring
// of each polygon is marked exterior; orientation is fixed on first write.
func NewPolygon(polys ...orb.Polygon) *PolygonShape {
	s := &PolygonShape{}
	for _, poly := range polys {
		for i, ring := range poly {
			s.Parts = append(s.Parts, len(s.Points))
			s.Points = append(s.Points, ring...)
			s.Outer = append(s.Outer, i == 0)
		}
	}
	return s
}

// FromGeometry converts an orb geometry to a 2D shape. A nil geometry
// gives a NullShape.
func FromGeometry(g orb.Geometry) (Shape, error) {
	switch v := g.(type) {
	case nil:
		return &NullShape{}, nil
	case orb.Point:
		return &PointShape{X: v[0], Y: v[1]}, nil
	case orb.MultiPoint:
		return &MultiPointShape{Points: append([]orb.Point(nil), v...)}, nil
	case orb.LineString:
		return NewPolyLine(v), nil
	case orb.MultiLineString:
		return NewPolyLine(v...), nil
	case orb.Ring:
		return NewPolygon(orb.Polygon{v}), nil
	case orb.Polygon:
		return NewPolygon(v), nil
	case orb.MultiPolygon:
		return NewPolygon(v...), nil
	case orb.Bound:
		return NewPolygon(v.ToPolygon()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
}

// TypeOf returns the 2D shape type that FromGeometry produces for g.
func TypeOf(g orb.Geometry) (Type, error) {
	switch g.(type) {
	case nil:
		return Null, nil
	case orb.Point:
		return Point, nil
	case orb.MultiPoint:
		return MultiPoint, nil
	case orb.LineString, orb.MultiLineString:
		return PolyLine, nil
	case orb.Ring, orb.Polygon, orb.MultiPolygon, orb.Bound:
		return Polygon, nil
	}
	return Null, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
}
