package main

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/fgb"
	"github.com/deegree/featurecodec/gml"
	"github.com/deegree/featurecodec/schema"
	"github.com/deegree/featurecodec/shapefile"
	json "github.com/goccy/go-json"
	"github.com/paulmach/orb/encoding/wkt"
)

// Format names a file format known to the converter.
type Format string

const (
	FormatGML        Format = "gml"
	FormatShapefile  Format = "shp"
	FormatGeoJSON    Format = "geojson"
	FormatFlatGeobuf Format = "fgb"
	FormatWKT        Format = "wkt"
)

var errUnknownFormat = errors.New("unknown format")

// formatOf derives the format from a file extension.
func formatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gml", ".xml":
		return FormatGML, nil
	case ".shp":
		return FormatShapefile, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".fgb":
		return FormatFlatGeobuf, nil
	case ".wkt", ".txt":
		return FormatWKT, nil
	}
	return "", fmt.Errorf("%s: %w", path, errUnknownFormat)
}

func parseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatGML, FormatShapefile, FormatGeoJSON, FormatFlatGeobuf, FormatWKT:
		return f, nil
	}
	return "", fmt.Errorf("%q: %w", s, errUnknownFormat)
}

// converter reads features in one format and writes them in another.
type converter struct {
	cfg    *Config
	logger *slog.Logger
	stdout io.Writer
	create func(path string) (io.WriteCloser, error) // os.Create when nil
}

// read returns the top-level features of the input file.
func (c *converter) read(path string, format Format) ([]*feature.Feature, error) {
	switch format {
	case FormatGML:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		opts, err := c.cfg.readerOptions(path, c.logger)
		if err != nil {
			return nil, err
		}
		r := gml.NewReader(bufio.NewReader(f), opts)
		root, err := r.ReadFeature()
		if err != nil {
			return nil, err
		}
		c.logger.Debug("read gml", "path", path, "version", r.Version(), "dynamic", r.Dynamic(), "warnings", len(r.Warnings()))
		return []*feature.Feature{root}, nil

	case FormatShapefile:
		dir, base := filepath.Split(path)
		if dir == "" {
			dir = "."
		}
		r, err := shapefile.Open(os.DirFS(dir), strings.TrimSuffix(base, filepath.Ext(base)), c.cfg.shapefileOptions(c.logger))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.ReadAll()

	case FormatFlatGeobuf:
		r, err := fgb.NewReader(path, c.cfg.flatGeobufOptions())
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.ReadAll()
	}
	return nil, fmt.Errorf("%s: cannot read %s", path, format)
}

// write stores features at path; "-" writes text formats to stdout.
func (c *converter) write(path string, format Format, features []*feature.Feature) (err error) {
	if format == FormatShapefile {
		return c.writeShapefile(path, features)
	}

	var w io.Writer = c.stdout
	if path != "-" {
		create := c.create
		if create == nil {
			create = func(path string) (io.WriteCloser, error) { return os.Create(path) }
		}
		f, err := create(path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := c.encode(bw, format, features); err != nil {
		return err
	}
	return bw.Flush()
}

func (c *converter) encode(w io.Writer, format Format, features []*feature.Feature) error {
	switch format {
	case FormatGML:
		opts, err := c.cfg.writerOptions(c.logger)
		if err != nil {
			return err
		}
		gw := gml.NewWriter(w, opts)
		if err := gw.Export(document(features, opts.Version)); err != nil {
			return err
		}
		return gw.Flush()

	case FormatGeoJSON:
		data, err := json.Marshal(feature.ToGeoJSON(features))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err

	case FormatFlatGeobuf:
		return fgb.Write(w, features, c.cfg.flatGeobufOptions())

	case FormatWKT:
		return writeWKT(w, members(features))
	}
	return fmt.Errorf("cannot write %s", format)
}

func (c *converter) writeShapefile(path string, features []*feature.Feature) error {
	features = members(features)
	if len(features) == 0 {
		return errors.New("no features to write")
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	w, err := shapefile.Create(dir, strings.TrimSuffix(base, filepath.Ext(base)), features[0].Type, c.cfg.shapefileOptions(c.logger))
	if err != nil {
		return err
	}
	for _, f := range features {
		if err := w.Write(f); err != nil {
			w.Close()
			return fmt.Errorf("feature %s: %w", f.ID, err)
		}
	}
	return w.Close()
}

// document returns the single root element for features: the feature
// itself or a collection around all of them.
func document(features []*feature.Feature, v gml.Version) *feature.Feature {
	if len(features) == 1 {
		return features[0]
	}
	ft := &schema.FeatureType{
		Name:       xml.Name{Space: v.Namespace(), Local: "FeatureCollection"},
		Collection: true,
	}
	coll := feature.New(ft, "", nil, nil, "")
	coll.Members = features
	return coll
}

// members expands collections into their member features.
func members(features []*feature.Feature) []*feature.Feature {
	var out []*feature.Feature
	for _, f := range features {
		if f.IsCollection() {
			out = append(out, members(f.Members)...)
			continue
		}
		out = append(out, f)
	}
	return out
}

// writeWKT writes one line per feature: id, a tab, then the WKT of the
// first geometry.
func writeWKT(w io.Writer, features []*feature.Feature) error {
	for _, f := range features {
		text := "EMPTY"
		for _, g := range f.Geometries() {
			if g.Geometry != nil {
				text = wkt.MarshalString(g.Geometry)
				break
			}
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", f.ID, text); err != nil {
			return err
		}
	}
	return nil
}
