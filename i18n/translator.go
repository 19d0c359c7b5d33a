// Package i18n resolves message keys carried by codec errors into
// human-readable text.
package i18n

import (
	"fmt"
	"sync"
)

// Translator retrieves localized messages for error codes. args are the
// positional parameters recorded with the error.
type Translator interface {
	Message(code string, args ...any) string
}

// Catalog is a dictionary-based Translator. Unknown codes render as the
// code followed by its parameters.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewCatalog returns a catalog seeded with the given code -> format pairs.
func NewCatalog(messages map[string]string) *Catalog {
	c := &Catalog{messages: make(map[string]string, len(messages))}
	for k, v := range messages {
		c.messages[k] = v
	}
	return c
}

// Set adds or replaces a message format.
func (c *Catalog) Set(code, format string) {
	c.mu.Lock()
	c.messages[code] = format
	c.mu.Unlock()
}

// Message implements Translator.
func (c *Catalog) Message(code string, args ...any) string {
	c.mu.RLock()
	format, ok := c.messages[code]
	c.mu.RUnlock()
	if !ok {
		if len(args) == 0 {
			return code
		}
		return fmt.Sprintf("%s %v", code, args)
	}
	return fmt.Sprintf(format, args...)
}

var english = NewCatalog(map[string]string{
	"gml.unexpected_property":        "unexpected element %s: not a valid property of feature type %s",
	"gml.too_many_occurrences":       "too many occurrences of property %s in feature type %s (maxOccurs=%d)",
	"gml.too_few_occurrences":        "too few occurrences of property %s in feature type %s: found %d, minOccurs=%d",
	"gml.mandatory_property_missing": "mandatory property %s missing in feature type %s",
	"gml.feature_id_not_unique":      "feature id %q is not unique within the document",
	"gml.invalid_id":                 "invalid object id %q: ids must be NCNames",
	"gml.invalid_boolean":            "invalid boolean value %q for property %s",
	"gml.invalid_temporal":           "invalid %s value %q for property %s",
	"gml.invalid_number":             "invalid %s value %q for property %s",
	"gml.invalid_geometry":           "invalid geometry value %s for property %s, allowed: %s",
	"gml.unsupported_geometry":       "unsupported geometry element %s",
	"gml.invalid_coordinates":        "invalid coordinates in %s: %s",
	"gml.wrong_feature_type":         "feature type %s is not a valid value for property %s (expected %s)",
	"gml.unknown_feature_type":       "unknown feature type %s",
	"gml.element_not_allowed":        "element %s is not allowed at this position in %s",
	"gml.text_not_allowed":           "character content is not allowed in element %s",
	"gml.unexpected_content":         "unexpected content in %s: %s",
	"gml.no_root":                    "document has no root element",
	"gml.not_collection":             "root element %s is not a feature collection",
	"gml.xml":                        "malformed XML: %s",
	"gml.remote_inline":              "inlining of remote reference %s is not implemented",
})

// Default returns the built-in English catalog.
func Default() *Catalog { return english }
