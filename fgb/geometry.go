package fgb

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type an orb geometry is written as.
func geometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	}
	return flattypes.GeometryTypeUnknown
}

// commonType returns the type shared by all geometries, or Unknown.
func commonType(geoms []orb.Geometry) flattypes.GeometryType {
	if len(geoms) == 0 {
		return flattypes.GeometryTypeUnknown
	}
	t := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// encodeGeometry builds the FlatGeobuf form of g, or nil when g has no
// FlatGeobuf equivalent.
func encodeGeometry(g orb.Geometry, b *flatbuffers.Builder) *writer.Geometry {
	if bound, ok := g.(orb.Bound); ok {
		g = bound.ToPolygon()
	}
	out := writer.NewGeometry(b)
	out.SetType(geometryType(g))

	switch v := g.(type) {
	case orb.Point:
		out.SetXY([]float64{v[0], v[1]})
	case orb.MultiPoint:
		xy, _ := flatten(v)
		out.SetXY(xy)
	case orb.LineString:
		xy, _ := flatten(v)
		out.SetXY(xy)
	case orb.MultiLineString:
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flatten(parts...)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.Ring:
		xy, ends := flatten(v)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.Polygon:
		xy, ends := flatten(rings(v)...)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			parts = append(parts, *encodeGeometry(poly, b))
		}
		out.SetParts(parts)
	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if pg := encodeGeometry(child, b); pg != nil {
				parts = append(parts, *pg)
			}
		}
		out.SetParts(parts)
	default:
		return nil
	}
	return out
}

func rings(p orb.Polygon) [][]orb.Point {
	out := make([][]orb.Point, len(p))
	for i, r := range p {
		out[i] = r
	}
	return out
}

// flatten interleaves the coordinates of parts and records the running
// point count at the end of each part.
func flatten(parts ...[]orb.Point) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(parts))
	for _, part := range parts {
		for _, p := range part {
			xy = append(xy, p[0], p[1])
		}
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

// decodeGeometry converts a FlatGeobuf geometry to orb, or nil for types
// orb cannot hold.
func decodeGeometry(g *flattypes.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	switch g.Type() {
	case flattypes.GeometryTypePoint:
		if pts := points(g, 0, g.XyLength()/2); len(pts) > 0 {
			return pts[0]
		}
		return orb.Point{}
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(points(g, 0, g.XyLength()/2))
	case flattypes.GeometryTypeLineString:
		return orb.LineString(points(g, 0, g.XyLength()/2))
	case flattypes.GeometryTypeMultiLineString:
		var mls orb.MultiLineString
		for _, part := range split(g) {
			mls = append(mls, part)
		}
		return mls
	case flattypes.GeometryTypePolygon:
		return polygon(g)
	case flattypes.GeometryTypeMultiPolygon:
		if g.PartsLength() == 0 {
			return orb.MultiPolygon{polygon(g)}
		}
		var mp orb.MultiPolygon
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				mp = append(mp, polygon(&part))
			}
		}
		return mp
	case flattypes.GeometryTypeGeometryCollection:
		var c orb.Collection
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := decodeGeometry(&part); child != nil {
					c = append(c, child)
				}
			}
		}
		return c
	}
	return nil
}

func polygon(g *flattypes.Geometry) orb.Polygon {
	var p orb.Polygon
	for _, part := range split(g) {
		p = append(p, part)
	}
	return p
}

// split cuts the coordinates at the recorded ends. Without ends the
// coordinates form a single part.
func split(g *flattypes.Geometry) [][]orb.Point {
	n := g.XyLength() / 2
	if g.EndsLength() == 0 {
		if n == 0 {
			return nil
		}
		return [][]orb.Point{points(g, 0, n)}
	}
	out := make([][]orb.Point, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := int(g.Ends(i))
		if end > n {
			end = n
		}
		out = append(out, points(g, start, end))
		start = end
	}
	return out
}

// points returns the points with index in [from, to).
func points(g *flattypes.Geometry, from, to int) []orb.Point {
	if from >= to {
		return nil
	}
	pts := make([]orb.Point, 0, to-from)
	for i := from; i < to; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}
