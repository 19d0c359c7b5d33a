package fgb

import (
	"fmt"
	"strconv"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

// Reader provides read access to a FlatGeobuf file as features.
type Reader struct {
	fgb  *flatgeobuf.FlatGeoBuf
	opts *Options
	ft   *schema.FeatureType
	srs  string
}

// NewReader creates a reader from a file path.
// The file is memory-mapped for efficient access.
func NewReader(path string, opts *Options) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, err
	}
	return newReader(fgb, opts), nil
}

// NewReaderFromData creates a reader from byte data.
func NewReaderFromData(data []byte, opts *Options) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return newReader(fgb, opts), nil
}

func newReader(fgb *flatgeobuf.FlatGeoBuf, opts *Options) *Reader {
	if opts == nil {
		opts = DefaultOptions()
	}
	r := &Reader{fgb: fgb, opts: opts}

	h := fgb.Header()
	name := opts.Name
	if name == "" {
		name = string(h.Name())
	}
	if name == "" {
		name = "Feature"
	}
	ns := opts.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	r.ft = featureType(h, ns, name)

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		switch {
		case crs.Code() > 0:
			r.srs = "EPSG:" + strconv.Itoa(int(crs.Code()))
		default:
			r.srs = string(crs.Name())
		}
	}
	return r
}

// Header returns metadata about the FlatGeobuf file.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}
	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, ColumnInfo{
				Name:        string(col.Name()),
				Type:        flattypes.EnumNamesColumnType[col.Type()],
				Title:       string(col.Title()),
				Description: string(col.Description()),
				Nullable:    col.Nullable(),
			})
		}
	}
	return header
}

// FeatureType returns the feature type built from the file's columns. Its
// last property is the geometry.
func (r *Reader) FeatureType() *schema.FeatureType { return r.ft }

// ReadAll reads every feature. Without a spatial index the features can
// not be enumerated and ErrNoIndex is returned.
func (r *Reader) ReadAll() ([]*feature.Feature, error) {
	h := r.fgb.Header()
	if h.FeaturesCount() == 0 {
		return nil, nil
	}
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, ErrNoIndex
	}
	found, err := r.fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return nil, err
	}
	return r.convert(found), nil
}

// Search returns the features whose bounding boxes intersect bounds.
func (r *Reader) Search(bounds orb.Bound) ([]*feature.Feature, error) {
	if r.fgb.Header().IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	found, err := r.fgb.Search(bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
	if err != nil {
		return nil, err
	}
	return r.convert(found), nil
}

// Close releases the reader. The underlying mapping is reclaimed by the
// garbage collector.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

func (r *Reader) convert(found []*flattypes.Feature) []*feature.Feature {
	h := r.fgb.Header()
	out := make([]*feature.Feature, 0, len(found))
	for _, ff := range found {
		if f := r.convertFeature(ff, h, len(out)+1); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (r *Reader) convertFeature(ff *flattypes.Feature, h *flattypes.Header, n int) *feature.Feature {
	if ff == nil {
		return nil
	}
	var geomObj flattypes.Geometry
	geom := ff.Geometry(&geomObj)
	if geom == nil {
		return nil
	}
	g := decodeGeometry(geom)
	if g == nil {
		return nil
	}

	var data []byte
	if l := ff.PropertiesLength(); l > 0 && h.ColumnsLength() > 0 {
		data = make([]byte, l)
		for i := 0; i < l; i++ {
			data[i] = byte(ff.Properties(i))
		}
	}
	props := decodeProperties(data, h, r.ft)

	gp := r.ft.Properties[len(r.ft.Properties)-1]
	props = append(props, &feature.Property{
		Name:  gp.Name,
		Type:  gp,
		Value: &feature.Geometry{SRS: r.srs, Geometry: g},
	})
	id := fmt.Sprintf("%s_%d", r.ft.Name.Local, n)
	return feature.New(r.ft, id, props, nil, "")
}
