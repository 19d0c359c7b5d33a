package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deegree/featurecodec/fgb"
	"github.com/deegree/featurecodec/gml"
	"github.com/deegree/featurecodec/schema"
	"github.com/deegree/featurecodec/shapefile"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of a conversion run.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Schema     string           `yaml:"schema"`    // application schema (.xsd, .yaml) used for every GML input
	SchemaDir  string           `yaml:"schemaDir"` // directory xsi:schemaLocation paths are looked up in
	GML        GMLConfig        `yaml:"gml"`
	Shapefile  ShapefileConfig  `yaml:"shapefile"`
	FlatGeobuf FlatGeobufConfig `yaml:"flatgeobuf"`
	Serve      ServeConfig      `yaml:"serve"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

type GMLConfig struct {
	InputVersion        string            `yaml:"inputVersion"` // empty: detect
	Version             string            `yaml:"version"`
	TraverseXlinkDepth  *int              `yaml:"traverseXlinkDepth"`
	RemoteXlinkTemplate string            `yaml:"remoteXlinkTemplate"`
	GenerateBoundedBy   bool              `yaml:"generateBoundedBy"`
	RequestedProperties []string          `yaml:"requestedProperties"` // {namespace}local or prefix:local
	Prefixes            map[string]string `yaml:"prefixes"`
	SchemaLocation      string            `yaml:"schemaLocation"`
	Indent              *string           `yaml:"indent"`
}

type ShapefileConfig struct {
	Namespace        string `yaml:"namespace"`
	TypeName         string `yaml:"typeName"`
	GeometryProperty string `yaml:"geometryProperty"`
	SRS              string `yaml:"srs"`
}

type FlatGeobufConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	IncludeIndex *bool  `yaml:"includeIndex"`
	EPSG         int    `yaml:"epsg"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		GML:   GMLConfig{Version: "3.2"},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

// LoadConfig reads a YAML configuration. Settings missing from the file
// keep their defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads the configuration at path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

// Logger builds the logger described by the log section.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if c.Log.Level != "" {
		if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return nil, fmt.Errorf("config: log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Log.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("config: unknown log format %q", c.Log.Format)
}

func (c *Config) readerOptions(systemID string, logger *slog.Logger) (*gml.ReaderOptions, error) {
	opts := gml.DefaultReaderOptions()
	opts.SystemID = systemID
	opts.Logger = logger
	if c.GML.InputVersion != "" {
		v, err := gml.ParseVersion(c.GML.InputVersion)
		if err != nil {
			return nil, err
		}
		opts.Version = &v
	}
	if c.Schema != "" {
		s, err := loadSchema(c.Schema)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Schema, err)
		}
		opts.Schema = s
	}
	if c.SchemaDir != "" {
		opts.SchemaLoader = gml.FSSchemaLoader(os.DirFS(c.SchemaDir))
	}
	return opts, nil
}

// loadSchema reads an application schema file: YAML for .yaml and .yml,
// XML Schema otherwise.
func loadSchema(p string) (*schema.AppSchema, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return schema.LoadYAML(f)
	}
	dir, base := filepath.Split(p)
	if dir == "" {
		dir = "."
	}
	return schema.LoadXSD(os.DirFS(dir), base)
}

func (c *Config) writerOptions(logger *slog.Logger) (*gml.WriterOptions, error) {
	opts := gml.DefaultWriterOptions()
	opts.Logger = logger
	if c.GML.Version != "" {
		v, err := gml.ParseVersion(c.GML.Version)
		if err != nil {
			return nil, err
		}
		opts.Version = v
	}
	if c.GML.TraverseXlinkDepth != nil {
		opts.TraverseXlinkDepth = *c.GML.TraverseXlinkDepth
	}
	if c.GML.RemoteXlinkTemplate != "" {
		opts.RemoteXlinkTemplate = c.GML.RemoteXlinkTemplate
	}
	if c.GML.Indent != nil {
		opts.Indent = *c.GML.Indent
	}
	opts.GenerateBoundedBy = c.GML.GenerateBoundedBy
	opts.Prefixes = c.GML.Prefixes
	opts.SchemaLocation = c.GML.SchemaLocation
	for _, s := range c.GML.RequestedProperties {
		name, err := parseName(s, c.GML.Prefixes)
		if err != nil {
			return nil, err
		}
		opts.RequestedProperties = append(opts.RequestedProperties, name)
	}
	return opts, nil
}

// parseName reads a property name in Clark notation or with a configured
// prefix.
func parseName(s string, prefixes map[string]string) (xml.Name, error) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 || end == len(s)-1 {
			return xml.Name{}, fmt.Errorf("config: malformed name %q", s)
		}
		return xml.Name{Space: s[1:end], Local: s[end+1:]}, nil
	}
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return xml.Name{Local: s}, nil
	}
	ns, found := prefixes[prefix]
	if !found {
		return xml.Name{}, fmt.Errorf("config: unbound prefix in %q", s)
	}
	return xml.Name{Space: ns, Local: local}, nil
}

func (c *Config) shapefileOptions(logger *slog.Logger) *shapefile.Options {
	opts := shapefile.DefaultOptions()
	if c.Shapefile.Namespace != "" {
		opts.Namespace = c.Shapefile.Namespace
	}
	if c.Shapefile.GeometryProperty != "" {
		opts.GeometryProperty = c.Shapefile.GeometryProperty
	}
	opts.TypeName = c.Shapefile.TypeName
	opts.SRS = c.Shapefile.SRS
	opts.Logger = logger
	return opts
}

func (c *Config) flatGeobufOptions() *fgb.Options {
	opts := fgb.DefaultOptions()
	opts.Name = c.FlatGeobuf.Name
	opts.Description = c.FlatGeobuf.Description
	if c.FlatGeobuf.IncludeIndex != nil {
		opts.IncludeIndex = *c.FlatGeobuf.IncludeIndex
	}
	if c.FlatGeobuf.EPSG > 0 {
		opts.CRS = &fgb.CRS{Code: c.FlatGeobuf.EPSG, Name: fmt.Sprintf("EPSG:%d", c.FlatGeobuf.EPSG)}
	}
	return opts
}
