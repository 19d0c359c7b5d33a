package gml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/i18n"
	"github.com/deegree/featurecodec/schema"
)

// ParseError is a fatal error raised while reading a document. Code is a
// message key of the i18n catalog and Params its positional arguments;
// Line and Column locate the stream position where parsing stopped.
type ParseError struct {
	Code    string
	Params  []any
	Line    int
	Column  int
	Element xml.Name
	Err     error

	tr i18n.Translator
}

// Message renders the error text through tr, or through the translator
// the reader was configured with when tr is nil.
func (e *ParseError) Message(tr i18n.Translator) string {
	if tr == nil {
		tr = e.tr
	}
	if tr == nil {
		tr = i18n.Default()
	}
	return tr.Message(e.Code, e.Params...)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gml: line %d, column %d: %s", e.Line, e.Column, e.Message(nil))
}

func (e *ParseError) Unwrap() error { return e.Err }

// IDFormatError reports an object id that is not an NCName.
type IDFormatError struct {
	ID string
}

func (e *IDFormatError) Error() string {
	return fmt.Sprintf("%v: %q", ErrInvalidID, e.ID)
}

func (e *IDFormatError) Unwrap() error { return ErrInvalidID }

// validID reports whether id is an NCName: a letter or underscore followed
// by letters, digits, '.', '-' and '_'. Colons are never accepted.
func validID(id string) bool {
	if id == "" {
		return false
	}
	first, size := utf8.DecodeRuneInString(id)
	if !unicode.IsLetter(first) && first != '_' {
		return false
	}
	for _, r := range id[size:] {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '.', r == '-', r == '_':
		case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
		default:
			return false
		}
	}
	return true
}

// sequenceCode maps a state machine failure to its message key and
// parameters.
func sequenceCode(se *schema.SequenceError) (string, []any) {
	prop, ft := schema.QName(se.Property), schema.QName(se.FeatureType)
	switch se.Err {
	case schema.ErrTooManyOccurrences:
		return "gml.too_many_occurrences", []any{prop, ft, se.MaxOccurs}
	case schema.ErrTooFewOccurrences:
		return "gml.too_few_occurrences", []any{prop, ft, se.Count, se.MinOccurs}
	case schema.ErrMandatoryMissing:
		return "gml.mandatory_property_missing", []any{prop, ft}
	}
	return "gml.unexpected_property", []any{prop, ft}
}

// valueCode maps a simple value conversion failure to its message key.
func valueCode(ve *feature.ValueError, prop xml.Name) (string, []any) {
	switch {
	case errors.Is(ve, feature.ErrInvalidBoolean):
		return "gml.invalid_boolean", []any{ve.Text, schema.QName(prop)}
	case errors.Is(ve, feature.ErrInvalidTemporal):
		return "gml.invalid_temporal", []any{ve.Kind.String(), ve.Text, schema.QName(prop)}
	}
	return "gml.invalid_number", []any{ve.Kind.String(), ve.Text, schema.QName(prop)}
}
