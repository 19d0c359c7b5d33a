package feature

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/deegree/featurecodec/schema"
	"github.com/paulmach/orb"
)

// Value is the closed set of property values. The implementations are
// SimpleValue, *Geometry, *GeometryReference, *Feature, *FeatureReference,
// EnvelopeValue, CodeValue, MeasureValue, StringOrRefValue, ArrayValue and
// *CustomElement.
type Value interface {
	isValue()
}

// Errors returned by ParseSimple, wrapped in a *ValueError.
var (
	ErrInvalidBoolean  = errors.New("invalid boolean")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrInvalidTemporal = errors.New("invalid temporal value")
)

// ValueError reports a lexical value that doesn't match its primitive type.
type ValueError struct {
	Kind schema.PrimitiveKind
	Text string
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%v %s %q", e.Err, e.Kind, e.Text)
}

func (e *ValueError) Unwrap() error { return e.Err }

// SimpleValue is a primitive scalar. Text holds the trimmed lexical form;
// the typed field matching Kind holds the parsed value.
type SimpleValue struct {
	Kind    schema.PrimitiveKind
	Text    string
	Bool    bool
	Number  *big.Rat // Decimal, finite Double
	Special float64  // INF, -INF or NaN of a Double; Number is nil then
	Integer *big.Int
	Time    time.Time
}

func (SimpleValue) isValue() {}

// String returns the lexical form.
func (v SimpleValue) String() string { return v.Text }

// Equal compares values per primitive semantics.
func (v SimpleValue) Equal(o SimpleValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case schema.Boolean:
		return v.Bool == o.Bool
	case schema.Decimal, schema.Double:
		if v.Number == nil || o.Number == nil {
			if math.IsNaN(v.Special) {
				return math.IsNaN(o.Special)
			}
			return v.Number == nil && o.Number == nil && v.Special != 0 && v.Special == o.Special
		}
		return v.Number.Cmp(o.Number) == 0
	case schema.Integer:
		return v.Integer != nil && o.Integer != nil && v.Integer.Cmp(o.Integer) == 0
	case schema.Date, schema.DateTime, schema.Time:
		return v.Time.Equal(o.Time)
	}
	return v.Text == o.Text
}

// StringValue returns a string-typed SimpleValue.
func StringValue(s string) SimpleValue {
	return SimpleValue{Kind: schema.String, Text: s}
}

var (
	dateLayouts     = []string{"2006-01-02Z07:00", "2006-01-02"}
	dateTimeLayouts = []string{"2006-01-02T15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999"}
	timeLayouts     = []string{"15:04:05.999999999Z07:00", "15:04:05.999999999"}

	decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	doublePattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// ParseSimple converts lexical text (already trimmed) per the primitive
// kind. Booleans accept true/1 and false/0, temporal and numeric values
// follow the XML Schema lexical forms. Numbers keep arbitrary precision.
func ParseSimple(kind schema.PrimitiveKind, text string) (SimpleValue, error) {
	v := SimpleValue{Kind: kind, Text: text}
	switch kind {
	case schema.String:
	case schema.Boolean:
		switch text {
		case "true", "1":
			v.Bool = true
		case "false", "0":
		default:
			return v, &ValueError{Kind: kind, Text: text, Err: ErrInvalidBoolean}
		}
	case schema.Decimal:
		if !decimalPattern.MatchString(text) {
			return v, &ValueError{Kind: kind, Text: text, Err: ErrInvalidNumber}
		}
		v.Number, _ = new(big.Rat).SetString(text)
	case schema.Double:
		switch text {
		case "INF", "+INF":
			v.Special = math.Inf(1)
			return v, nil
		case "-INF":
			v.Special = math.Inf(-1)
			return v, nil
		case "NaN":
			v.Special = math.NaN()
			return v, nil
		}
		if !doublePattern.MatchString(text) {
			return v, &ValueError{Kind: kind, Text: text, Err: ErrInvalidNumber}
		}
		v.Number, _ = new(big.Rat).SetString(text)
	case schema.Integer:
		i, ok := new(big.Int).SetString(strings.TrimPrefix(text, "+"), 10)
		if !ok {
			return v, &ValueError{Kind: kind, Text: text, Err: ErrInvalidNumber}
		}
		v.Integer = i
	case schema.Date:
		return parseTemporal(v, dateLayouts)
	case schema.DateTime:
		return parseTemporal(v, dateTimeLayouts)
	case schema.Time:
		return parseTemporal(v, timeLayouts)
	}
	return v, nil
}

func parseTemporal(v SimpleValue, layouts []string) (SimpleValue, error) {
	for _, l := range layouts {
		if t, err := time.Parse(l, v.Text); err == nil {
			v.Time = t
			return v, nil
		}
	}
	return v, &ValueError{Kind: v.Kind, Text: v.Text, Err: ErrInvalidTemporal}
}

// EnvelopeValue is a bounding box with an optional CRS name.
type EnvelopeValue struct {
	Bound orb.Bound
	SRS   string
}

func (EnvelopeValue) isValue() {}

// CodeValue is a code with an optional code space.
type CodeValue struct {
	Code      string
	CodeSpace string
}

func (CodeValue) isValue() {}

// MeasureValue is a lexical number with its unit of measure URI.
type MeasureValue struct {
	Value string
	UOM   string
}

func (MeasureValue) isValue() {}

// StringOrRefValue is text with an optional xlink reference.
type StringOrRefValue struct {
	Text string
	Href string
}

func (StringOrRefValue) isValue() {}

// ArrayValue is an ordered sequence of features held by one property.
type ArrayValue struct {
	Features []*Feature
}

func (ArrayValue) isValue() {}

// CustomElement is a generic XML subtree.
type CustomElement struct {
	Name     xml.Name
	Attrs    map[xml.Name]string
	Text     string
	Children []*CustomElement
	Decl     *schema.ElementDecl
}

func (*CustomElement) isValue() {}
