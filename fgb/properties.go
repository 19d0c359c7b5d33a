package fgb

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"math"
	"strconv"

	"github.com/deegree/featurecodec/feature"
	"github.com/deegree/featurecodec/schema"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	json "github.com/goccy/go-json"
)

// column binds a property declaration to a FlatGeobuf column.
type column struct {
	prop xml.Name
	typ  flattypes.ColumnType
}

// columnsFor lists the columns of ft: one per simple, code, measure or
// string-or-reference property, in declaration order. Structured
// properties, and properties some feature repeats, go into a JSON column.
func columnsFor(ft *schema.FeatureType, features []*feature.Feature) []column {
	if ft == nil {
		return nil
	}
	var cols []column
	for _, pt := range ft.Properties {
		repeated := pt.MaxOccurs != 1 && repeats(features, pt.Name)
		if t, ok := columnType(pt, repeated); ok {
			cols = append(cols, column{prop: pt.Name, typ: t})
		}
	}
	return cols
}

func repeats(features []*feature.Feature, name xml.Name) bool {
	for _, f := range features {
		if len(f.PropertiesNamed(name)) > 1 {
			return true
		}
	}
	return false
}

func columnType(pt *schema.PropertyType, repeated bool) (flattypes.ColumnType, bool) {
	if repeated && pt.Kind != schema.KindGeometry && pt.Kind != schema.KindEnvelope {
		return flattypes.ColumnTypeJson, true
	}
	switch pt.Kind {
	case schema.KindSimple:
		switch pt.Primitive {
		case schema.Boolean:
			return flattypes.ColumnTypeBool, true
		case schema.Integer:
			return flattypes.ColumnTypeLong, true
		case schema.Decimal, schema.Double:
			return flattypes.ColumnTypeDouble, true
		case schema.Date, schema.DateTime, schema.Time:
			return flattypes.ColumnTypeDateTime, true
		}
		return flattypes.ColumnTypeString, true
	case schema.KindMeasure:
		return flattypes.ColumnTypeDouble, true
	case schema.KindCode, schema.KindStringOrRef:
		return flattypes.ColumnTypeString, true
	case schema.KindCustom, schema.KindArray, schema.KindFeature:
		return flattypes.ColumnTypeJson, true
	}
	return 0, false
}

func buildColumns(cols []column, b *flatbuffers.Builder) []*writer.Column {
	out := make([]*writer.Column, 0, len(cols))
	for _, c := range cols {
		col := writer.NewColumn(b)
		col.SetName(c.prop.Local)
		col.SetTitle(c.prop.Local)
		col.SetType(c.typ)
		col.SetNullable(true)
		out = append(out, col)
	}
	return out
}

// encodeProperties writes [uint16 column index][value] for every column
// f has a value for. Values that don't fit their column are left out.
func encodeProperties(f *feature.Feature, cols []column) []byte {
	var buf bytes.Buffer
	for i, c := range cols {
		props := f.PropertiesNamed(c.prop)
		if len(props) == 0 {
			continue
		}
		var value bytes.Buffer
		if !encodeValue(&value, c.typ, props) {
			continue
		}
		var idx [2]byte
		binary.LittleEndian.PutUint16(idx[:], uint16(i))
		buf.Write(idx[:])
		buf.Write(value.Bytes())
	}
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, t flattypes.ColumnType, props []*feature.Property) bool {
	if t == flattypes.ColumnTypeJson {
		var vals []interface{}
		for _, p := range props {
			if v := jsonValue(p.Value); v != nil && !p.Nil {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			return false
		}
		var doc interface{} = vals
		if len(vals) == 1 {
			doc = vals[0]
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return false
		}
		writeBytes(buf, data)
		return true
	}

	p := props[0]
	if p.Nil || p.Value == nil {
		return false
	}
	text, ok := lexical(p.Value)
	if !ok {
		return false
	}
	switch t {
	case flattypes.ColumnTypeBool:
		sv, ok := p.Value.(feature.SimpleValue)
		if !ok {
			return false
		}
		if sv.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case flattypes.ColumnTypeLong:
		sv, ok := p.Value.(feature.SimpleValue)
		if !ok || sv.Integer == nil || !sv.Integer.IsInt64() {
			return false
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(sv.Integer.Int64()))
		buf.Write(b[:])
	case flattypes.ColumnTypeDouble:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false
		}
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	default:
		writeBytes(buf, []byte(text))
	}
	return true
}

// writeBytes writes a variable-length value: a uint32 byte count, then
// the bytes.
func writeBytes(buf *bytes.Buffer, data []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(data)))
	buf.Write(n[:])
	buf.Write(data)
}

// lexical returns the text form of scalar-like values.
func lexical(v feature.Value) (string, bool) {
	switch v := v.(type) {
	case feature.SimpleValue:
		return v.Text, true
	case feature.CodeValue:
		return v.Code, true
	case feature.MeasureValue:
		return v.Value, true
	case feature.StringOrRefValue:
		if v.Text == "" {
			return v.Href, true
		}
		return v.Text, true
	}
	return "", false
}

// jsonValue renders structured values for JSON columns.
func jsonValue(v feature.Value) interface{} {
	if text, ok := lexical(v); ok {
		return text
	}
	switch v := v.(type) {
	case *feature.FeatureReference:
		return v.Href()
	case *feature.Feature:
		return v.GeoJSON()
	case *feature.CustomElement:
		return customJSON(v)
	case feature.ArrayValue:
		out := make([]interface{}, 0, len(v.Features))
		for _, f := range v.Features {
			out = append(out, f.GeoJSON())
		}
		return out
	}
	return nil
}

func customJSON(e *feature.CustomElement) map[string]interface{} {
	m := map[string]interface{}{"name": e.Name.Local}
	if e.Text != "" {
		m["text"] = e.Text
	}
	if len(e.Children) > 0 {
		children := make([]interface{}, len(e.Children))
		for i, c := range e.Children {
			children[i] = customJSON(c)
		}
		m["children"] = children
	}
	return m
}

// featureType builds the feature type of a file from its columns.
func featureType(h *flattypes.Header, ns, name string) *schema.FeatureType {
	ft := &schema.FeatureType{Name: xml.Name{Space: ns, Local: name}}
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if !h.Columns(&col, i) {
			continue
		}
		pt := &schema.PropertyType{
			Name:      xml.Name{Space: ns, Local: string(col.Name())},
			Kind:      schema.KindSimple,
			MaxOccurs: 1,
		}
		switch col.Type() {
		case flattypes.ColumnTypeBool:
			pt.Primitive = schema.Boolean
		case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte, flattypes.ColumnTypeShort,
			flattypes.ColumnTypeUShort, flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt,
			flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
			pt.Primitive = schema.Integer
		case flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
			pt.Primitive = schema.Double
		case flattypes.ColumnTypeDateTime:
			pt.Primitive = schema.DateTime
		default:
			pt.Primitive = schema.String
		}
		ft.Properties = append(ft.Properties, pt)
	}
	ft.Properties = append(ft.Properties, &schema.PropertyType{
		Name:      xml.Name{Space: ns, Local: "geometry"},
		Kind:      schema.KindGeometry,
		MaxOccurs: 1,
	})
	return ft
}

// decodeProperties reads the encoded values into one property per
// declared column, in column order. Columns without a value are nil.
func decodeProperties(data []byte, h *flattypes.Header, ft *schema.FeatureType) []*feature.Property {
	n := h.ColumnsLength()
	props := make([]*feature.Property, n)
	for i := 0; i < n; i++ {
		props[i] = &feature.Property{Name: ft.Properties[i].Name, Type: ft.Properties[i]}
	}

	for off := 0; off+2 <= len(data); {
		i := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if i >= n {
			break
		}
		var col flattypes.Column
		if !h.Columns(&col, i) {
			break
		}
		text, size := readValue(data[off:], col.Type())
		if size == 0 {
			break
		}
		off += size
		props[i].Value = simpleValue(ft.Properties[i].Primitive, text)
	}
	return props
}

// simpleValue parses text per kind. Date-time columns also hold plain
// dates and times, which keep their own kind.
func simpleValue(kind schema.PrimitiveKind, text string) feature.Value {
	v, err := feature.ParseSimple(kind, text)
	if err == nil {
		return v
	}
	if kind == schema.DateTime {
		for _, k := range []schema.PrimitiveKind{schema.Date, schema.Time} {
			if v, err := feature.ParseSimple(k, text); err == nil {
				return v
			}
		}
	}
	return feature.StringValue(text)
}

// readValue decodes one value to its lexical form and returns the number
// of bytes used, 0 when data is too short.
func readValue(data []byte, t flattypes.ColumnType) (string, int) {
	fixed := func(n int) bool { return len(data) >= n }
	switch t {
	case flattypes.ColumnTypeBool:
		if !fixed(1) {
			return "", 0
		}
		return strconv.FormatBool(data[0] != 0), 1
	case flattypes.ColumnTypeByte:
		if !fixed(1) {
			return "", 0
		}
		return strconv.Itoa(int(int8(data[0]))), 1
	case flattypes.ColumnTypeUByte:
		if !fixed(1) {
			return "", 0
		}
		return strconv.Itoa(int(data[0])), 1
	case flattypes.ColumnTypeShort:
		if !fixed(2) {
			return "", 0
		}
		return strconv.Itoa(int(int16(binary.LittleEndian.Uint16(data)))), 2
	case flattypes.ColumnTypeUShort:
		if !fixed(2) {
			return "", 0
		}
		return strconv.Itoa(int(binary.LittleEndian.Uint16(data))), 2
	case flattypes.ColumnTypeInt:
		if !fixed(4) {
			return "", 0
		}
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(data))), 10), 4
	case flattypes.ColumnTypeUInt:
		if !fixed(4) {
			return "", 0
		}
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(data)), 10), 4
	case flattypes.ColumnTypeLong:
		if !fixed(8) {
			return "", 0
		}
		return strconv.FormatInt(int64(binary.LittleEndian.Uint64(data)), 10), 8
	case flattypes.ColumnTypeULong:
		if !fixed(8) {
			return "", 0
		}
		return strconv.FormatUint(binary.LittleEndian.Uint64(data), 10), 8
	case flattypes.ColumnTypeFloat:
		if !fixed(4) {
			return "", 0
		}
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 'g', -1, 32), 4
	case flattypes.ColumnTypeDouble:
		if !fixed(8) {
			return "", 0
		}
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(data)), 'g', -1, 64), 8
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime, flattypes.ColumnTypeJson, flattypes.ColumnTypeBinary:
		if !fixed(4) {
			return "", 0
		}
		n := int(binary.LittleEndian.Uint32(data))
		if len(data) < 4+n {
			return "", 0
		}
		return string(data[4 : 4+n]), 4 + n
	}
	return "", 0
}
