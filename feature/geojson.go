package feature

import (
	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON flattens f into a geojson.Feature: the first geometry becomes
// the feature geometry and scalar-like properties become properties keyed
// by local name. Nested features, arrays and custom elements are dropped.
func (f *Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(nil)
	if f.ID != "" {
		gf.ID = f.ID
	}
	for _, g := range f.Geometries() {
		if g.Geometry != nil {
			gf.Geometry = g.Geometry
			break
		}
	}
	for _, p := range f.Properties {
		if p.Nil || p.Value == nil {
			continue
		}
		key := p.Name.Local
		if _, dup := gf.Properties[key]; dup {
			continue
		}
		switch v := p.Value.(type) {
		case SimpleValue:
			gf.Properties[key] = v.native()
		case CodeValue:
			gf.Properties[key] = v.Code
		case MeasureValue:
			gf.Properties[key] = v.Value
		case StringOrRefValue:
			if v.Text != "" {
				gf.Properties[key] = v.Text
			} else {
				gf.Properties[key] = v.Href
			}
		case *FeatureReference:
			gf.Properties[key] = v.Href()
		}
	}
	return gf
}

// ToGeoJSON converts features into a collection, expanding feature
// collections into their members.
func ToGeoJSON(features []*Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		if f.IsCollection() {
			for _, m := range f.Members {
				fc.Append(m.GeoJSON())
			}
			continue
		}
		fc.Append(f.GeoJSON())
	}
	return fc
}

func (v SimpleValue) native() interface{} {
	switch {
	case v.Integer != nil:
		if v.Integer.IsInt64() {
			return v.Integer.Int64()
		}
	case v.Number != nil:
		f, _ := v.Number.Float64()
		return f
	}
	if v.Kind == schema.Boolean {
		return v.Bool
	}
	return v.Text
}
