package transcode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// XYZPoly is a triple of 1-D polynomials describing a time-parameterized
// position, one polynomial per ECEF axis. All three share one order.
type XYZPoly struct {
	X []float64
	Y []float64
	Z []float64
}

func attrInt(elem *etree.Element, key string) (int, bool, error) {
	attr := elem.SelectAttr(key)
	if attr == nil {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(attr.Value))
	if err != nil {
		return 0, false, fmt.Errorf("element %s: invalid %s attribute %q", elem.Tag, key, attr.Value)
	}

	return n, true, nil
}

// Poly1DType transcodes a 1-D polynomial: Coef children carrying an
// "exponent1" attribute under a parent with an "order1" attribute.
// Value type: []float64, indexed by exponent.
//
// Encode writes every coefficient densely; decode builds a dense slice sized
// by the maximum exponent observed (or the declared order, whichever is
// larger), with implicit zeros for unobserved exponents.
type Poly1DType struct{}

func (Poly1DType) DecodeElem(elem *etree.Element) (any, error) {
	size := 0
	if order, ok, err := attrInt(elem, "order1"); err != nil {
		return nil, err
	} else if ok {
		size = order + 1
	}

	type coef struct {
		exp int
		val float64
	}
	var coefs []coef
	for _, child := range elem.ChildElements() {
		if child.Tag != "Coef" {
			continue
		}
		exp, ok, err := attrInt(child, "exponent1")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("element %s: Coef missing exponent1 attribute", elem.Tag)
		}
		if exp < 0 {
			return nil, fmt.Errorf("element %s: negative exponent1 %d", elem.Tag, exp)
		}
		v, err := parseDouble(child.Text())
		if err != nil {
			return nil, fmt.Errorf("element %s/Coef: %w", elem.Tag, err)
		}
		coefs = append(coefs, coef{exp: exp, val: v})
		if exp+1 > size {
			size = exp + 1
		}
	}

	out := make([]float64, size)
	for _, c := range coefs {
		out[c.exp] = c.val
	}

	return out, nil
}

func (Poly1DType) EncodeElem(elem *etree.Element, v any) error {
	coefs, ok := v.([]float64)
	if !ok {
		return wrongType(elem, "[]float64", v)
	}
	if len(coefs) == 0 {
		return fmt.Errorf("element %s: polynomial must have at least one coefficient", elem.Tag)
	}

	clearElem(elem)
	elem.CreateAttr("order1", strconv.Itoa(len(coefs)-1))
	for exp, c := range coefs {
		child := createChild(elem, "Coef")
		child.SetText(formatDouble(c))
		child.CreateAttr("exponent1", strconv.Itoa(exp))
	}

	return nil
}

func (Poly1DType) ChildTranscoders() map[string]Transcoder {
	return map[string]Transcoder{"Coef": DoubleType{}}
}

// Poly2DType transcodes a 2-D polynomial: Coef children carrying
// "exponent1"/"exponent2" attribute pairs. Value type: [][]float64 indexed
// [exponent1][exponent2]; rows must be of equal length.
type Poly2DType struct{}

func (Poly2DType) DecodeElem(elem *etree.Element) (any, error) {
	rows, cols := 0, 0
	if order, ok, err := attrInt(elem, "order1"); err != nil {
		return nil, err
	} else if ok {
		rows = order + 1
	}
	if order, ok, err := attrInt(elem, "order2"); err != nil {
		return nil, err
	} else if ok {
		cols = order + 1
	}

	type coef struct {
		exp1, exp2 int
		val        float64
	}
	var coefs []coef
	for _, child := range elem.ChildElements() {
		if child.Tag != "Coef" {
			continue
		}
		exp1, ok1, err := attrInt(child, "exponent1")
		if err != nil {
			return nil, err
		}
		exp2, ok2, err := attrInt(child, "exponent2")
		if err != nil {
			return nil, err
		}
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("element %s: Coef missing exponent attributes", elem.Tag)
		}
		if exp1 < 0 || exp2 < 0 {
			return nil, fmt.Errorf("element %s: negative exponent (%d,%d)", elem.Tag, exp1, exp2)
		}
		v, err := parseDouble(child.Text())
		if err != nil {
			return nil, fmt.Errorf("element %s/Coef: %w", elem.Tag, err)
		}
		coefs = append(coefs, coef{exp1: exp1, exp2: exp2, val: v})
		if exp1+1 > rows {
			rows = exp1 + 1
		}
		if exp2+1 > cols {
			cols = exp2 + 1
		}
	}

	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	for _, c := range coefs {
		out[c.exp1][c.exp2] = c.val
	}

	return out, nil
}

func (Poly2DType) EncodeElem(elem *etree.Element, v any) error {
	coefs, ok := v.([][]float64)
	if !ok {
		return wrongType(elem, "[][]float64", v)
	}
	if len(coefs) == 0 || len(coefs[0]) == 0 {
		return fmt.Errorf("element %s: polynomial must have at least one coefficient", elem.Tag)
	}
	cols := len(coefs[0])
	for _, row := range coefs {
		if len(row) != cols {
			return fmt.Errorf("element %s: ragged coefficient rows", elem.Tag)
		}
	}

	clearElem(elem)
	elem.CreateAttr("order1", strconv.Itoa(len(coefs)-1))
	elem.CreateAttr("order2", strconv.Itoa(cols-1))
	for exp1, row := range coefs {
		for exp2, c := range row {
			child := createChild(elem, "Coef")
			child.SetText(formatDouble(c))
			child.CreateAttr("exponent1", strconv.Itoa(exp1))
			child.CreateAttr("exponent2", strconv.Itoa(exp2))
		}
	}

	return nil
}

func (Poly2DType) ChildTranscoders() map[string]Transcoder {
	return map[string]Transcoder{"Coef": DoubleType{}}
}

// XYZPolyType transcodes X/Y/Z children, each a 1-D polynomial of the same
// order. Value type: XYZPoly.
type XYZPolyType struct{}

func (XYZPolyType) DecodeElem(elem *etree.Element) (any, error) {
	var out XYZPoly
	for _, axis := range []struct {
		name string
		dst  *[]float64
	}{{"X", &out.X}, {"Y", &out.Y}, {"Z", &out.Z}} {
		child := findChild(elem, Seg{Space: Wildcard, Name: axis.name})
		if child == nil {
			return nil, fmt.Errorf("element %s missing child %s", elem.Tag, axis.name)
		}
		v, err := Poly1DType{}.DecodeElem(child)
		if err != nil {
			return nil, err
		}
		*axis.dst = v.([]float64)
	}

	if len(out.X) != len(out.Y) || len(out.Y) != len(out.Z) {
		return nil, fmt.Errorf("element %s: X/Y/Z polynomial orders differ", elem.Tag)
	}

	return out, nil
}

func (XYZPolyType) EncodeElem(elem *etree.Element, v any) error {
	poly, ok := v.(XYZPoly)
	if !ok {
		return wrongType(elem, "transcode.XYZPoly", v)
	}
	if len(poly.X) != len(poly.Y) || len(poly.Y) != len(poly.Z) {
		return fmt.Errorf("element %s: X/Y/Z polynomial orders differ", elem.Tag)
	}

	clearElem(elem)
	for _, axis := range []struct {
		name  string
		coefs []float64
	}{{"X", poly.X}, {"Y", poly.Y}, {"Z", poly.Z}} {
		child := createChild(elem, axis.name)
		if err := (Poly1DType{}).EncodeElem(child, axis.coefs); err != nil {
			return err
		}
	}

	return nil
}

func (XYZPolyType) ChildTranscoders() map[string]Transcoder {
	return map[string]Transcoder{"X": Poly1DType{}, "Y": Poly1DType{}, "Z": Poly1DType{}}
}

// MatrixType transcodes a fixed-shape matrix: "size1"/"size2" attributes on
// the parent and Entry children carrying one-based "index1"/"index2"
// attribute pairs. Value type: [][]float64.
//
// Decode fails if the declared sizes disagree with the expected shape;
// unobserved index pairs decode as zero.
type MatrixType struct {
	Rows int
	Cols int
}

func (m MatrixType) DecodeElem(elem *etree.Element) (any, error) {
	size1, ok1, err := attrInt(elem, "size1")
	if err != nil {
		return nil, err
	}
	size2, ok2, err := attrInt(elem, "size2")
	if err != nil {
		return nil, err
	}
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("element %s: missing size attributes", elem.Tag)
	}
	if size1 != m.Rows || size2 != m.Cols {
		return nil, fmt.Errorf("element %s: matrix is %dx%d, expected %dx%d",
			elem.Tag, size1, size2, m.Rows, m.Cols)
	}

	out := make([][]float64, m.Rows)
	for i := range out {
		out[i] = make([]float64, m.Cols)
	}
	for _, child := range elem.ChildElements() {
		if child.Tag != "Entry" {
			continue
		}
		idx1, ok1, err := attrInt(child, "index1")
		if err != nil {
			return nil, err
		}
		idx2, ok2, err := attrInt(child, "index2")
		if err != nil {
			return nil, err
		}
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("element %s: Entry missing index attributes", elem.Tag)
		}
		if idx1 < 1 || idx1 > m.Rows || idx2 < 1 || idx2 > m.Cols {
			return nil, fmt.Errorf("element %s: Entry index (%d,%d) outside %dx%d",
				elem.Tag, idx1, idx2, m.Rows, m.Cols)
		}
		v, err := parseDouble(child.Text())
		if err != nil {
			return nil, fmt.Errorf("element %s/Entry: %w", elem.Tag, err)
		}
		out[idx1-1][idx2-1] = v
	}

	return out, nil
}

func (m MatrixType) EncodeElem(elem *etree.Element, v any) error {
	mtx, ok := v.([][]float64)
	if !ok {
		return wrongType(elem, "[][]float64", v)
	}
	if len(mtx) != m.Rows {
		return fmt.Errorf("element %s: matrix has %d rows, expected %d", elem.Tag, len(mtx), m.Rows)
	}
	for _, row := range mtx {
		if len(row) != m.Cols {
			return fmt.Errorf("element %s: matrix has %d cols, expected %d", elem.Tag, len(row), m.Cols)
		}
	}

	clearElem(elem)
	elem.CreateAttr("size1", strconv.Itoa(m.Rows))
	elem.CreateAttr("size2", strconv.Itoa(m.Cols))
	for i, row := range mtx {
		for j, val := range row {
			child := createChild(elem, "Entry")
			child.SetText(formatDouble(val))
			child.CreateAttr("index1", strconv.Itoa(i+1))
			child.CreateAttr("index2", strconv.Itoa(j+1))
		}
	}

	return nil
}

func (MatrixType) ChildTranscoders() map[string]Transcoder {
	return map[string]Transcoder{"Entry": DoubleType{}}
}

// ListType transcodes an indexed list of identically-typed children.
// Value type: []any of the sub-transcoder's value type.
//
// Children carry an "index" attribute; decode orders by index regardless of
// document order. Indexes may carry a trailing label ("1:FRFC") — only the
// leading integer participates in ordering.
type ListType struct {
	// SubTag is the child element name.
	SubTag string
	// Sub transcodes each child.
	Sub Transcoder
	// IndexStart is the index of the first child (0 or 1).
	IndexStart int
	// OmitSizeAttr suppresses the "size" attribute on the parent.
	OmitSizeAttr bool
}

func listIndex(child *etree.Element) (int, error) {
	raw := child.SelectAttrValue("index", "")
	if raw == "" {
		return 0, fmt.Errorf("element %s missing index attribute", child.Tag)
	}
	head, _, _ := strings.Cut(raw, ":")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, fmt.Errorf("element %s: invalid index attribute %q", child.Tag, raw)
	}

	return n, nil
}

func (l ListType) DecodeElem(elem *etree.Element) (any, error) {
	type item struct {
		index int
		elem  *etree.Element
	}
	var items []item
	for _, child := range elem.ChildElements() {
		if child.Tag != l.SubTag {
			continue
		}
		idx, err := listIndex(child)
		if err != nil {
			return nil, err
		}
		items = append(items, item{index: idx, elem: child})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].index < items[j].index })

	out := make([]any, 0, len(items))
	for _, it := range items {
		v, err := l.Sub.DecodeElem(it.elem)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (l ListType) EncodeElem(elem *etree.Element, v any) error {
	items, ok := v.([]any)
	if !ok {
		return wrongType(elem, "[]any", v)
	}

	clearElem(elem)
	if !l.OmitSizeAttr {
		elem.CreateAttr("size", strconv.Itoa(len(items)))
	}
	for i, item := range items {
		child := createChild(elem, l.SubTag)
		if err := l.Sub.EncodeElem(child, item); err != nil {
			return err
		}
		// after Sub.EncodeElem: encoding clears child attributes
		child.CreateAttr("index", strconv.Itoa(l.IndexStart+i))
	}

	return nil
}

func (l ListType) ChildTranscoders() map[string]Transcoder {
	return map[string]Transcoder{l.SubTag: l.Sub}
}

// SequenceType transcodes a fixed set of named, individually-typed children.
// Value type: map[string]any keyed by child name; absent children are
// omitted from the map on decode and skipped on encode.
type SequenceType struct {
	// Names fixes the encode order of children.
	Names []string
	// Subs transcodes each named child.
	Subs map[string]Transcoder
}

func (s SequenceType) DecodeElem(elem *etree.Element) (any, error) {
	out := make(map[string]any, len(s.Names))
	for _, name := range s.Names {
		child := findChild(elem, Seg{Space: Wildcard, Name: name})
		if child == nil {
			continue
		}
		v, err := s.Subs[name].DecodeElem(child)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}

	return out, nil
}

func (s SequenceType) EncodeElem(elem *etree.Element, v any) error {
	vals, ok := v.(map[string]any)
	if !ok {
		return wrongType(elem, "map[string]any", v)
	}

	clearElem(elem)
	for _, name := range s.Names {
		val, present := vals[name]
		if !present {
			continue
		}
		child := createChild(elem, name)
		if err := s.Subs[name].EncodeElem(child, val); err != nil {
			return err
		}
	}

	return nil
}

func (s SequenceType) ChildTranscoders() map[string]Transcoder {
	return s.Subs
}
