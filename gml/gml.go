// Package gml reads and writes GML feature documents.
//
// The Reader pull-parses a feature or feature collection into the graph
// defined by package feature. Property elements are matched against the
// ordered declarations of the application schema, or inferred on the fly
// when no schema is available. The Writer serializes a graph back to GML,
// deciding per feature property whether to inline the value or emit an
// xlink reference.
package gml

import (
	"errors"
	"fmt"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
)

// Namespaces recognized by the codec.
const (
	NamespaceGML32      = "http://www.opengis.net/gml/3.2"
	NamespaceGML        = "http://www.opengis.net/gml" // GML 2 and 3.1
	NamespaceXLink      = "http://www.w3.org/1999/xlink"
	NamespaceXSI        = "http://www.w3.org/2001/XMLSchema-instance"
	NamespaceWFS20      = "http://www.opengis.net/wfs/2.0"
	NamespaceExtraProps = "http://www.deegree.org/extraprops"
)

// Version selects the GML dialect.
type Version int

const (
	GML32 Version = iota
	GML31
	GML2
)

func (v Version) String() string {
	switch v {
	case GML32:
		return "3.2"
	case GML31:
		return "3.1"
	case GML2:
		return "2"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// ParseVersion returns the version named s ("2", "3.1" or "3.2", with an
// optional "GML" prefix).
func ParseVersion(s string) (Version, error) {
	switch s {
	case "3.2", "GML32", "GML3.2", "gml32":
		return GML32, nil
	case "3.1", "GML31", "GML3.1", "gml31":
		return GML31, nil
	case "2", "GML2", "gml2":
		return GML2, nil
	}
	return 0, fmt.Errorf("gml: unknown version %q", s)
}

// Namespace returns the GML namespace of the version.
func (v Version) Namespace() string {
	if v == GML32 {
		return NamespaceGML32
	}
	return NamespaceGML
}

func (v Version) nullName() string {
	if v == GML32 {
		return "Null"
	}
	return "null"
}

func isGML(ns string) bool {
	return ns == NamespaceGML32 || ns == NamespaceGML
}

// Common errors returned by this package. Parse failures are reported as
// *ParseError values that match these with errors.Is.
var (
	ErrUnexpectedProperty = schema.ErrUnexpectedProperty
	ErrTooManyOccurrences = schema.ErrTooManyOccurrences
	ErrTooFewOccurrences  = schema.ErrTooFewOccurrences
	ErrMandatoryMissing   = schema.ErrMandatoryMissing
	ErrDuplicateID        = feature.ErrDuplicateID

	ErrInvalidID           = errors.New("gml: invalid object id")
	ErrInvalidValue        = errors.New("gml: invalid property value")
	ErrInvalidGeometry     = errors.New("gml: invalid geometry value")
	ErrUnsupportedGeometry = errors.New("gml: unsupported geometry")
	ErrInvalidCoordinates  = errors.New("gml: invalid coordinates")
	ErrWrongFeatureType    = errors.New("gml: wrong feature type")
	ErrUnknownFeatureType  = errors.New("gml: unknown feature type")
	ErrElementNotAllowed   = errors.New("gml: element not allowed")
	ErrTextNotAllowed      = errors.New("gml: text not allowed")
	ErrUnexpectedContent   = errors.New("gml: unexpected content")
	ErrNoRoot              = errors.New("gml: no root element")
	ErrMalformedXML        = errors.New("gml: malformed XML")
	ErrNotCollection       = errors.New("gml: root element is not a feature collection")
)
