package transcode

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

// newElem creates a detached element for direct transcoder tests.
func newElem(tag string) *etree.Element {
	doc := etree.NewDocument()
	root := doc.CreateElement("Root")

	return root.CreateElement(tag)
}

func TestPrimitiveRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tc   Transcoder
		val  any
	}{
		{name: "text", tc: TextType{}, val: "RMA"},
		{name: "text empty", tc: TextType{}, val: ""},
		{name: "int", tc: IntType{}, val: int64(-5727)},
		{name: "double", tc: DoubleType{}, val: 0.1},
		{name: "double negative", tc: DoubleType{}, val: -1.25e-9},
		{name: "bool true", tc: BoolType{}, val: true},
		{name: "bool false", tc: BoolType{}, val: false},
		{name: "datetime", tc: DateTimeType{}, val: time.Date(2023, 10, 26, 9, 30, 15, 123456000, time.UTC)},
		{name: "complex", tc: ComplexType{}, val: complex(1.5, -0.25)},
		{name: "hex", tc: HexType{}, val: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "parameter", tc: ParameterType{}, val: Parameter{Name: "PROCESSOR", Value: "sario 1.0"}},
		{name: "xyz", tc: NewXYZType(), val: [3]float64{6378137.0, -42.5, 0.001}},
		{name: "latlon", tc: NewLatLonType(), val: [2]float64{38.88, -77.03}},
		{name: "latlonhae", tc: NewLatLonHAEType(), val: [3]float64{38.88, -77.03, 120.5}},
		{name: "xy", tc: NewXYType(), val: [2]float64{1.5, -2.5}},
		{name: "linesamp", tc: NewLineSampType(), val: [2]float64{100.5, 200.25}},
		{name: "rowcol", tc: RowColType{}, val: [2]int64{5727, 2362}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elem := newElem("Field")
			require.NoError(t, tt.tc.EncodeElem(elem, tt.val))

			got, err := tt.tc.DecodeElem(elem)
			require.NoError(t, err)
			require.Equal(t, tt.val, got)
		})
	}
}

func TestEncodeRejectsWrongType(t *testing.T) {
	tests := []struct {
		name string
		tc   Transcoder
		val  any
	}{
		{name: "text", tc: TextType{}, val: 5},
		{name: "int", tc: IntType{}, val: "5"},
		{name: "double", tc: DoubleType{}, val: int64(5)},
		{name: "bool", tc: BoolType{}, val: "true"},
		{name: "datetime", tc: DateTimeType{}, val: "2023-10-26"},
		{name: "xyz", tc: NewXYZType(), val: []float64{1, 2, 3}},
		{name: "rowcol", tc: RowColType{}, val: [2]float64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.tc.EncodeElem(newElem("Field"), tt.val))
		})
	}
}

func TestIntEncodeAcceptsInt(t *testing.T) {
	elem := newElem("NumRows")
	require.NoError(t, IntType{}.EncodeElem(elem, 5727))
	require.Equal(t, "5727", elem.Text())
}

func TestDoubleShortestRoundTrip(t *testing.T) {
	// 0.1 has no exact binary representation; the shortest-round-trip text
	// form must still decode to the identical bit pattern.
	elem := newElem("SCPTime")
	require.NoError(t, DoubleType{}.EncodeElem(elem, 0.1))
	require.Equal(t, "0.1", elem.Text())
}

func TestBoolDecodeAcceptsDigits(t *testing.T) {
	elem := newElem("Flag")
	elem.SetText("1")

	v, err := BoolType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, true, v)

	elem.SetText("0")
	v, err = BoolType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, false, v)

	elem.SetText("yes")
	_, err = BoolType{}.DecodeElem(elem)
	require.Error(t, err)
}

func TestDateTimeDecodeVariants(t *testing.T) {
	want := time.Date(2023, 10, 26, 9, 30, 15, 0, time.UTC)

	tests := []string{
		"2023-10-26T09:30:15Z",
		"2023-10-26T09:30:15",
		"2023-10-26T09:30:15.000000Z",
		"2023-10-26T09:30:15.000000",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			elem := newElem("CollectStart")
			elem.SetText(text)

			v, err := DateTimeType{}.DecodeElem(elem)
			require.NoError(t, err)
			require.True(t, want.Equal(v.(time.Time)))
		})
	}
}

func TestVectorDecodeMissingChild(t *testing.T) {
	elem := newElem("SCP")
	elem.CreateElement("X").SetText("1.0")
	elem.CreateElement("Y").SetText("2.0")

	_, err := NewXYZType().DecodeElem(elem)
	require.ErrorContains(t, err, "missing child Z")
}
