package transcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPoly1DRoundTrip(t *testing.T) {
	coefs := []float64{1.5, 0, -0.25, 3e-7}

	elem := newElem("TimeCOAPoly")
	require.NoError(t, Poly1DType{}.EncodeElem(elem, coefs))
	require.Equal(t, "3", elem.SelectAttrValue("order1", ""))
	require.Len(t, elem.ChildElements(), 4)

	got, err := Poly1DType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, coefs, got)
}

func TestPoly1DDecodeSparse(t *testing.T) {
	// missing exponents decode as zero coefficients
	elem := newElem("Poly")
	elem.CreateAttr("order1", "3")
	c := elem.CreateElement("Coef")
	c.CreateAttr("exponent1", "3")
	c.SetText("2.5")

	got, err := Poly1DType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 0, 2.5}, got)
}

func TestPoly1DDecodeObservedExponentWins(t *testing.T) {
	// a Coef beyond the declared order still grows the result
	elem := newElem("Poly")
	elem.CreateAttr("order1", "0")
	c := elem.CreateElement("Coef")
	c.CreateAttr("exponent1", "2")
	c.SetText("1.0")

	got, err := Poly1DType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0, 1.0}, got)
}

func TestPoly1DRejectsBadInput(t *testing.T) {
	require.Error(t, Poly1DType{}.EncodeElem(newElem("Poly"), []float64{}))
	require.Error(t, Poly1DType{}.EncodeElem(newElem("Poly"), "not a poly"))

	elem := newElem("Poly")
	elem.CreateElement("Coef").SetText("1.0") // no exponent1
	_, err := Poly1DType{}.DecodeElem(elem)
	require.ErrorContains(t, err, "exponent1")
}

func TestPoly2DRoundTrip(t *testing.T) {
	coefs := [][]float64{
		{1.0, 0.5},
		{0, -2.25},
		{3e-4, 0},
	}

	elem := newElem("ARPPoly")
	require.NoError(t, Poly2DType{}.EncodeElem(elem, coefs))
	require.Equal(t, "2", elem.SelectAttrValue("order1", ""))
	require.Equal(t, "1", elem.SelectAttrValue("order2", ""))

	got, err := Poly2DType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, coefs, got)
}

func TestPoly2DRejectsRaggedRows(t *testing.T) {
	err := Poly2DType{}.EncodeElem(newElem("Poly"), [][]float64{{1, 2}, {3}})
	require.ErrorContains(t, err, "ragged")
}

func TestXYZPolyRoundTrip(t *testing.T) {
	poly := XYZPoly{
		X: []float64{1.0, 2.0, 3.0},
		Y: []float64{-1.0, 0, 0.5},
		Z: []float64{0, 0, 1e-6},
	}

	elem := newElem("ARPPoly")
	require.NoError(t, XYZPolyType{}.EncodeElem(elem, poly))

	got, err := XYZPolyType{}.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, poly, got)
}

func TestXYZPolyRejectsUnequalOrders(t *testing.T) {
	poly := XYZPoly{X: []float64{1, 2}, Y: []float64{1}, Z: []float64{1, 2}}
	require.Error(t, XYZPolyType{}.EncodeElem(newElem("Poly"), poly))
}

func TestMatrixRoundTrip(t *testing.T) {
	mtx := [][]float64{
		{1.0, 0.5, 0},
		{0.5, 2.0, -0.1},
	}
	tc := MatrixType{Rows: 2, Cols: 3}

	elem := newElem("ErrorCovariance")
	require.NoError(t, tc.EncodeElem(elem, mtx))
	require.Equal(t, "2", elem.SelectAttrValue("size1", ""))
	require.Equal(t, "3", elem.SelectAttrValue("size2", ""))

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, mtx, got)
}

func TestMatrixRejectsShapeMismatch(t *testing.T) {
	tc := MatrixType{Rows: 2, Cols: 2}

	require.Error(t, tc.EncodeElem(newElem("Mtx"), [][]float64{{1, 2}}))

	elem := newElem("Mtx")
	require.NoError(t, (MatrixType{Rows: 3, Cols: 3}).EncodeElem(elem, [][]float64{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	}))
	_, err := tc.DecodeElem(elem)
	require.ErrorContains(t, err, "expected 2x2")
}

func TestListRoundTrip(t *testing.T) {
	tc := ListType{SubTag: "ICP", Sub: NewLatLonType(), IndexStart: 1}
	corners := []any{
		[2]float64{38.0, -77.0},
		[2]float64{38.0, -76.9},
		[2]float64{37.9, -76.9},
		[2]float64{37.9, -77.0},
	}

	elem := newElem("ImageCorners")
	require.NoError(t, tc.EncodeElem(elem, corners))
	require.Equal(t, "4", elem.SelectAttrValue("size", ""))
	require.Equal(t, "1", elem.ChildElements()[0].SelectAttrValue("index", ""))

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, corners, got)
}

func TestListDecodeOrdersByIndex(t *testing.T) {
	tc := ListType{SubTag: "Item", Sub: TextType{}, IndexStart: 1}

	elem := newElem("List")
	for _, pair := range [][2]string{{"3", "c"}, {"1:FRFC", "a"}, {"2", "b"}} {
		child := elem.CreateElement("Item")
		child.CreateAttr("index", pair[0])
		child.SetText(pair[1])
	}

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", "c"}, got)
}

func TestListZeroLength(t *testing.T) {
	tc := ListType{SubTag: "Item", Sub: TextType{}, IndexStart: 0}

	elem := newElem("List")
	require.NoError(t, tc.EncodeElem(elem, []any{}))
	require.Equal(t, "0", elem.SelectAttrValue("size", ""))

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestListDecodeRejectsMissingIndex(t *testing.T) {
	tc := ListType{SubTag: "Item", Sub: TextType{}}

	elem := newElem("List")
	elem.CreateElement("Item").SetText("a")

	_, err := tc.DecodeElem(elem)
	require.ErrorContains(t, err, "missing index")
}

func TestSequenceRoundTrip(t *testing.T) {
	tc := SequenceType{
		Names: []string{"Line", "Sample"},
		Subs:  map[string]Transcoder{"Line": IntType{}, "Sample": IntType{}},
	}
	vals := map[string]any{"Line": int64(100), "Sample": int64(200)}

	elem := newElem("FirstRowCol")
	require.NoError(t, tc.EncodeElem(elem, vals))

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, vals, got)
}

func TestSequenceOmitsAbsentChildren(t *testing.T) {
	tc := SequenceType{
		Names: []string{"A", "B"},
		Subs:  map[string]Transcoder{"A": TextType{}, "B": TextType{}},
	}

	elem := newElem("Seq")
	require.NoError(t, tc.EncodeElem(elem, map[string]any{"A": "present"}))
	require.Len(t, elem.ChildElements(), 1)

	got, err := tc.DecodeElem(elem)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"A": "present"}, got)
}
