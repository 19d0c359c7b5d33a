package fgb

import (
	"io"

	"github.com/deegree/featurecodec/feature"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// Write writes features to FlatGeobuf. Collections are replaced by their
// members. The columns come from the type of the first feature; features
// of other types keep only the properties named like a column.
// Features without a geometry are skipped.
func Write(w io.Writer, features []*feature.Feature, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	features = flattenMembers(features)
	if len(features) == 0 {
		return ErrNoFeatures
	}

	var geoms []orb.Geometry
	srs := ""
	for _, f := range features {
		if g := firstGeometry(f); g != nil {
			geoms = append(geoms, g.Geometry)
			if srs == "" {
				srs = g.SRS
			}
		}
	}
	if len(geoms) == 0 {
		return ErrNoFeatures
	}
	geomType := commonType(geoms)
	if geomType == flattypes.GeometryTypeUnknown && geometryType(geoms[0]) == flattypes.GeometryTypeUnknown {
		return ErrUnsupportedType
	}

	ft := features[0].Type
	cols := columnsFor(ft, features)

	builder := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(builder)
	header.SetGeometryType(geomType)

	name := opts.Name
	if name == "" && ft != nil {
		name = ft.Name.Local
	}
	if name != "" {
		header.SetName(name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(cols) > 0 {
		header.SetColumns(buildColumns(cols, builder))
	}

	crs := opts.CRS
	if crs == nil {
		crs = CRSFromSRS(srs)
	}
	if crs != nil {
		c := writer.NewCrs(builder)
		c.SetOrg("EPSG")
		if crs.Code > 0 {
			c.SetCode(int32(crs.Code))
		}
		if crs.Name != "" {
			c.SetName(crs.Name)
		}
		switch {
		case crs.Description != "":
			c.SetDescription(crs.Description)
		case crs.WKT != "":
			c.SetDescription(crs.WKT)
		}
		header.SetCrs(c)
	}

	gen := &featureGenerator{features: features, columns: cols}
	_, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w)
	return err
}

func flattenMembers(features []*feature.Feature) []*feature.Feature {
	var out []*feature.Feature
	for _, f := range features {
		if f == nil {
			continue
		}
		if f.IsCollection() {
			out = append(out, flattenMembers(f.Members)...)
			continue
		}
		out = append(out, f)
	}
	return out
}

func firstGeometry(f *feature.Feature) *feature.Geometry {
	for _, g := range f.Geometries() {
		if g.Geometry != nil {
			return g
		}
	}
	return nil
}

// featureGenerator feeds features to the FlatGeobuf writer.
type featureGenerator struct {
	features []*feature.Feature
	columns  []column
	index    int
}

func (g *featureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) {
		f := g.features[g.index]
		g.index++

		geom := firstGeometry(f)
		if geom == nil {
			continue
		}
		builder := flatbuffers.NewBuilder(1024)
		fg := encodeGeometry(geom.Geometry, builder)
		if fg == nil {
			continue
		}
		out := writer.NewFeature(builder)
		out.SetGeometry(fg)
		if props := encodeProperties(f, g.columns); len(props) > 0 {
			out.SetProperties(props)
		}
		return out
	}
	return nil
}
