package transcode

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Parameter is a named free-text metadata value (an element with a "name"
// attribute).
type Parameter struct {
	Name  string
	Value string
}

// formatDouble renders a float64 with shortest-round-trip precision, so
// decode(encode(v)) is bit-exact at 64-bit float precision.
func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'G', -1, 64)
}

func parseDouble(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// clearElem removes an element's text, attributes, and children before
// re-encoding. The tag and namespace declaration attributes survive only on
// ancestors, which transcoders never touch.
func clearElem(elem *etree.Element) {
	elem.Child = nil
	elem.Attr = elem.Attr[:0]
}

// decodeNamedChildren decodes a fixed list of child element texts as doubles.
func decodeNamedChildren(elem *etree.Element, names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		child := findChild(elem, Seg{Space: Wildcard, Name: name})
		if child == nil {
			return nil, fmt.Errorf("element %s missing child %s", elem.Tag, name)
		}
		v, err := parseDouble(child.Text())
		if err != nil {
			return nil, fmt.Errorf("element %s/%s: %w", elem.Tag, name, err)
		}
		out[i] = v
	}

	return out, nil
}

func encodeNamedChildren(elem *etree.Element, names []string, vals []float64) {
	clearElem(elem)
	for i, name := range names {
		createChild(elem, name).SetText(formatDouble(vals[i]))
	}
}

func wrongType(elem *etree.Element, want string, got any) error {
	return fmt.Errorf("element %s: expected %s value, got %T", elem.Tag, want, got)
}

// TextType transcodes free text. Value type: string.
type TextType struct{}

func (TextType) DecodeElem(elem *etree.Element) (any, error) {
	return elem.Text(), nil
}

func (TextType) EncodeElem(elem *etree.Element, v any) error {
	s, ok := v.(string)
	if !ok {
		return wrongType(elem, "string", v)
	}
	clearElem(elem)
	elem.SetText(s)

	return nil
}

// IntType transcodes decimal integers. Value type: int64.
type IntType struct{}

func (IntType) DecodeElem(elem *etree.Element) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(elem.Text()), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", elem.Tag, err)
	}

	return n, nil
}

func (IntType) EncodeElem(elem *etree.Element, v any) error {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	default:
		return wrongType(elem, "int64", v)
	}
	clearElem(elem)
	elem.SetText(strconv.FormatInt(n, 10))

	return nil
}

// DoubleType transcodes 64-bit floats. Value type: float64.
type DoubleType struct{}

func (DoubleType) DecodeElem(elem *etree.Element) (any, error) {
	v, err := parseDouble(elem.Text())
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", elem.Tag, err)
	}

	return v, nil
}

func (DoubleType) EncodeElem(elem *etree.Element, v any) error {
	f, ok := v.(float64)
	if !ok {
		return wrongType(elem, "float64", v)
	}
	clearElem(elem)
	elem.SetText(formatDouble(f))

	return nil
}

// BoolType transcodes xs:boolean text. Value type: bool.
type BoolType struct{}

func (BoolType) DecodeElem(elem *etree.Element) (any, error) {
	switch strings.TrimSpace(elem.Text()) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}

	return nil, fmt.Errorf("element %s: invalid boolean %q", elem.Tag, elem.Text())
}

func (BoolType) EncodeElem(elem *etree.Element, v any) error {
	b, ok := v.(bool)
	if !ok {
		return wrongType(elem, "bool", v)
	}
	clearElem(elem)
	elem.SetText(strconv.FormatBool(b))

	return nil
}

// dateTimeLayouts are accepted on decode, most specific first.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

// DateTimeType transcodes ISO 8601 date-times at microsecond text precision.
// Value type: time.Time (UTC). Zone-less text is interpreted as UTC.
type DateTimeType struct{}

func (DateTimeType) DecodeElem(elem *etree.Element) (any, error) {
	text := strings.TrimSpace(elem.Text())
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), nil
		}
	}

	return nil, fmt.Errorf("element %s: invalid date-time %q", elem.Tag, text)
}

func (DateTimeType) EncodeElem(elem *etree.Element, v any) error {
	ts, ok := v.(time.Time)
	if !ok {
		return wrongType(elem, "time.Time", v)
	}
	clearElem(elem)
	elem.SetText(ts.UTC().Format("2006-01-02T15:04:05.000000Z"))

	return nil
}

// ComplexType transcodes a Real/Imag child pair. Value type: complex128.
type ComplexType struct{}

func (ComplexType) DecodeElem(elem *etree.Element) (any, error) {
	parts, err := decodeNamedChildren(elem, []string{"Real", "Imag"})
	if err != nil {
		return nil, err
	}

	return complex(parts[0], parts[1]), nil
}

func (ComplexType) EncodeElem(elem *etree.Element, v any) error {
	c, ok := v.(complex128)
	if !ok {
		return wrongType(elem, "complex128", v)
	}
	encodeNamedChildren(elem, []string{"Real", "Imag"}, []float64{real(c), imag(c)})

	return nil
}

// HexType transcodes hexadecimal byte strings. Value type: []byte.
type HexType struct{}

func (HexType) DecodeElem(elem *etree.Element) (any, error) {
	b, err := hex.DecodeString(strings.TrimSpace(elem.Text()))
	if err != nil {
		return nil, fmt.Errorf("element %s: %w", elem.Tag, err)
	}

	return b, nil
}

func (HexType) EncodeElem(elem *etree.Element, v any) error {
	b, ok := v.([]byte)
	if !ok {
		return wrongType(elem, "[]byte", v)
	}
	clearElem(elem)
	elem.SetText(hex.EncodeToString(b))

	return nil
}

// ParameterType transcodes a named free-text parameter. Value type: Parameter.
type ParameterType struct{}

func (ParameterType) DecodeElem(elem *etree.Element) (any, error) {
	return Parameter{
		Name:  elem.SelectAttrValue("name", ""),
		Value: elem.Text(),
	}, nil
}

func (ParameterType) EncodeElem(elem *etree.Element, v any) error {
	p, ok := v.(Parameter)
	if !ok {
		return wrongType(elem, "transcode.Parameter", v)
	}
	clearElem(elem)
	elem.CreateAttr("name", p.Name)
	elem.SetText(p.Value)

	return nil
}

// vec3Type is the shared implementation of 3-component double vectors.
type vec3Type struct {
	names [3]string
}

func (t vec3Type) DecodeElem(elem *etree.Element) (any, error) {
	parts, err := decodeNamedChildren(elem, t.names[:])
	if err != nil {
		return nil, err
	}

	return [3]float64{parts[0], parts[1], parts[2]}, nil
}

func (t vec3Type) EncodeElem(elem *etree.Element, v any) error {
	vec, ok := v.([3]float64)
	if !ok {
		return wrongType(elem, "[3]float64", v)
	}
	encodeNamedChildren(elem, t.names[:], vec[:])

	return nil
}

// vec2Type is the shared implementation of 2-component double vectors.
type vec2Type struct {
	names [2]string
}

func (t vec2Type) DecodeElem(elem *etree.Element) (any, error) {
	parts, err := decodeNamedChildren(elem, t.names[:])
	if err != nil {
		return nil, err
	}

	return [2]float64{parts[0], parts[1]}, nil
}

func (t vec2Type) EncodeElem(elem *etree.Element, v any) error {
	vec, ok := v.([2]float64)
	if !ok {
		return wrongType(elem, "[2]float64", v)
	}
	encodeNamedChildren(elem, t.names[:], vec[:])

	return nil
}

// XYZType transcodes X/Y/Z vectors (ECEF meters). Value type: [3]float64.
type XYZType struct{ vec3Type }

// NewXYZType creates an XYZType.
func NewXYZType() XYZType {
	return XYZType{vec3Type{names: [3]string{"X", "Y", "Z"}}}
}

// LatLonType transcodes Lat/Lon pairs in degrees. Value type: [2]float64.
type LatLonType struct{ vec2Type }

// NewLatLonType creates a LatLonType.
func NewLatLonType() LatLonType {
	return LatLonType{vec2Type{names: [2]string{"Lat", "Lon"}}}
}

// LatLonHAEType transcodes Lat/Lon/HAE triples. Value type: [3]float64.
type LatLonHAEType struct{ vec3Type }

// NewLatLonHAEType creates a LatLonHAEType.
func NewLatLonHAEType() LatLonHAEType {
	return LatLonHAEType{vec3Type{names: [3]string{"Lat", "Lon", "HAE"}}}
}

// XYType transcodes X/Y pairs. Value type: [2]float64.
type XYType struct{ vec2Type }

// NewXYType creates an XYType.
func NewXYType() XYType {
	return XYType{vec2Type{names: [2]string{"X", "Y"}}}
}

// LineSampType transcodes Line/Sample pairs. Value type: [2]float64.
type LineSampType struct{ vec2Type }

// NewLineSampType creates a LineSampType.
func NewLineSampType() LineSampType {
	return LineSampType{vec2Type{names: [2]string{"Line", "Sample"}}}
}

// RowColType transcodes Row/Col integer pairs. Value type: [2]int64.
type RowColType struct{}

func (RowColType) DecodeElem(elem *etree.Element) (any, error) {
	var out [2]int64
	for i, name := range [2]string{"Row", "Col"} {
		child := findChild(elem, Seg{Space: Wildcard, Name: name})
		if child == nil {
			return nil, fmt.Errorf("element %s missing child %s", elem.Tag, name)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(child.Text()), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("element %s/%s: %w", elem.Tag, name, err)
		}
		out[i] = n
	}

	return out, nil
}

func (RowColType) EncodeElem(elem *etree.Element, v any) error {
	rc, ok := v.([2]int64)
	if !ok {
		return wrongType(elem, "[2]int64", v)
	}
	clearElem(elem)
	for i, name := range [2]string{"Row", "Col"} {
		createChild(elem, name).SetText(strconv.FormatInt(rc[i], 10))
	}

	return nil
}
