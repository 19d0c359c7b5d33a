// Package fgb exports decoded features to FlatGeobuf and reads them back.
// Columns follow the simple-valued properties of the feature type, and the
// first geometry of a feature becomes its FlatGeobuf geometry.
package fgb

import (
	"errors"
	"regexp"
	"strconv"
)

// Common errors returned by this package.
var (
	ErrNoFeatures      = errors.New("fgb: no features")
	ErrUnsupportedType = errors.New("fgb: unsupported geometry type")
	ErrNoIndex         = errors.New("fgb: file has no spatial index")
)

// DefaultNamespace is the namespace of feature types read from a file.
const DefaultNamespace = "http://www.deegree.org/app"

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
	WKT         string // Well-Known Text representation
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

var epsgPattern = regexp.MustCompile(`(?i)epsg(?::+|/0/|\.xml#)(\d+)$`)

// CRSFromSRS derives a CRS from a GML srsName in one of the EPSG notations
// (EPSG:4326, urn:ogc:def:crs:EPSG::4326, http://www.opengis.net/def/crs/EPSG/0/4326,
// http://www.opengis.net/gml/srs/epsg.xml#4326). Other names give a CRS
// carrying only the name, and an empty name gives nil.
func CRSFromSRS(srs string) *CRS {
	if srs == "" {
		return nil
	}
	crs := &CRS{Name: srs}
	if m := epsgPattern.FindStringSubmatch(srs); m != nil {
		crs.Code, _ = strconv.Atoi(m[1])
	}
	return crs
}

// Options configures FlatGeobuf writing and reading.
type Options struct {
	Name         string // Layer name (default: local name of the feature type)
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (default: from the first srsName)
	Namespace    string // Namespace of feature types built when reading
}

// DefaultOptions returns default options for writing FlatGeobuf files.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
		Namespace:    DefaultNamespace,
	}
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name        string // Column name
	Type        string // Column type ("Bool", "Long", "Double", "String", "DateTime", etc.)
	Title       string // Column title (human-readable)
	Description string // Column description
	Nullable    bool   // Whether the column can contain null values
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string       // Layer name
	Description   string       // Layer description
	GeometryType  string       // Geometry type ("Point", "Polygon", "Unknown", etc.)
	FeaturesCount uint64       // Number of features in the file
	Envelope      [4]float64   // Bounding box [minX, minY, maxX, maxY]
	CRS           *CRS         // Coordinate reference system
	HasIndex      bool         // Whether the file has a spatial index
	Columns       []ColumnInfo // Property column schema
}
