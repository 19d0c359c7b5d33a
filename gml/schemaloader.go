package gml

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/deegree/featurecodec/schema"
)

// ErrMalformedSchemaLocation is returned for xsi:schemaLocation values that
// don't consist of namespace/URL pairs.
var ErrMalformedSchemaLocation = errors.New("gml: malformed xsi:schemaLocation")

// SchemaLocation is one namespace/URL pair of xsi:schemaLocation. URL is
// resolved against the document's system id.
type SchemaLocation struct {
	Namespace string
	URL       string
}

// SchemaLoader builds an application schema from the schema locations
// announced by a document.
type SchemaLoader func(locations []SchemaLocation) (*schema.AppSchema, error)

// ParseSchemaLocation splits an xsi:schemaLocation value into pairs and
// resolves each URL against systemID.
func ParseSchemaLocation(value, systemID string) ([]SchemaLocation, error) {
	tokens := strings.Fields(value)
	if len(tokens) == 0 || len(tokens)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSchemaLocation, value)
	}
	var base *url.URL
	if systemID != "" {
		if u, err := url.Parse(systemID); err == nil {
			base = u
		}
	}
	locs := make([]SchemaLocation, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		loc := tokens[i+1]
		if base != nil {
			ref, err := url.Parse(loc)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedSchemaLocation, err)
			}
			loc = base.ResolveReference(ref).String()
		}
		locs = append(locs, SchemaLocation{Namespace: tokens[i], URL: loc})
	}
	return locs, nil
}

// YAMLSchemaLoader loads schema descriptions in the YAML format read by
// schema.LoadYAML from fsys. Location URLs are taken as slash-separated
// paths into fsys; the feature types of all locations are merged.
func YAMLSchemaLoader(fsys fs.FS) SchemaLoader {
	return fsLoader(fsys, func(p string) (*schema.AppSchema, error) {
		f, err := fsys.Open(p)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return schema.LoadYAML(f)
	})
}

// XSDSchemaLoader loads XML Schema documents with schema.LoadXSD. Includes
// and imports are followed inside fsys.
func XSDSchemaLoader(fsys fs.FS) SchemaLoader {
	return fsLoader(fsys, func(p string) (*schema.AppSchema, error) {
		return schema.LoadXSD(fsys, p)
	})
}

// FSSchemaLoader loads each location by its extension: .yaml and .yml
// files as YAML descriptions, everything else as XML Schema.
func FSSchemaLoader(fsys fs.FS) SchemaLoader {
	return fsLoader(fsys, func(p string) (*schema.AppSchema, error) {
		switch strings.ToLower(path.Ext(p)) {
		case ".yaml", ".yml":
			f, err := fsys.Open(p)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return schema.LoadYAML(f)
		}
		return schema.LoadXSD(fsys, p)
	})
}

func fsLoader(fsys fs.FS, load func(p string) (*schema.AppSchema, error)) SchemaLoader {
	return func(locations []SchemaLocation) (*schema.AppSchema, error) {
		merged := schema.NewAppSchema()
		for _, loc := range locations {
			p := loc.URL
			if u, err := url.Parse(loc.URL); err == nil && (u.Scheme == "" || u.Scheme == "file") {
				p = u.Path
			}
			p = strings.TrimPrefix(path.Clean(p), "/")
			s, err := load(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", loc.URL, err)
			}
			for _, ft := range s.FeatureTypes() {
				if merged.FeatureType(ft.Name) != nil {
					continue
				}
				if err := merged.Add(ft); err != nil {
					return nil, err
				}
			}
		}
		return merged, nil
	}
}
