// Package shapefile reads and writes ESRI shapefile triples: the .shp
// geometry file, its .shx record index and the .dbf attribute table.
// Records are joined positionally with attribute rows and surface as
// features whose geometry sits in a designated geometry property.
package shapefile

import (
	"errors"
	"log/slog"
)

// Common errors returned by this package.
var (
	ErrShortHeader     = errors.New("shapefile: header shorter than 100 bytes")
	ErrInvalidRecord   = errors.New("shapefile: invalid record")
	ErrFieldOverflow   = errors.New("shapefile: value does not fit field")
	ErrInvalidDBF      = errors.New("shapefile: invalid dbf")
	ErrMixedShapeTypes = errors.New("shapefile: shape type differs from file type")
	ErrClosed          = errors.New("shapefile: writer closed")
)

// Fixed values of the main file and index headers.
const (
	FileCode     = 9994
	Version      = 1000
	HeaderLength = 100
)

// DefaultNamespace is the namespace of feature types derived from a
// shapefile.
const DefaultNamespace = "http://www.deegree.org/app"

// Options configures reading and writing.
type Options struct {
	Namespace        string // namespace of the feature type and its properties
	TypeName         string // local feature type name (default: base file name, or "Feature")
	GeometryProperty string // local name of the geometry property (default: "geometry")
	SRS              string // srsName attached to read geometries (optional)
	Logger           *slog.Logger
}

// DefaultOptions returns default options.
func DefaultOptions() *Options {
	return &Options{
		Namespace:        DefaultNamespace,
		GeometryProperty: "geometry",
		Logger:           slog.Default(),
	}
}

func (o *Options) withDefaults(base string) *Options {
	out := DefaultOptions()
	if o != nil {
		*out = *o
	}
	if out.Namespace == "" {
		out.Namespace = DefaultNamespace
	}
	if out.GeometryProperty == "" {
		out.GeometryProperty = "geometry"
	}
	if out.TypeName == "" {
		out.TypeName = base
	}
	if out.TypeName == "" {
		out.TypeName = "Feature"
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}
