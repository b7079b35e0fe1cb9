package dtype

import (
	"fmt"
	"math"

	"github.com/arloliu/sario/endian"
	"github.com/arloliu/sario/errs"
)

// fileOrder is the byte order of payload bytes in every supported container.
var fileOrder = endian.GetBigEndianEngine()

// Array is a dense array of elements in file byte order (big-endian).
//
// The backing bytes are exactly what a payload segment stores, so an Array
// moves between file and memory without re-encoding. Typed accessors decode
// on demand and fail with errs.ErrPayloadMismatch when the element dtype does
// not match the requested Go type.
type Array struct {
	dt    Dtype
	shape []int
	data  []byte
}

// New creates a zero-filled Array with the given element dtype and shape.
//
// Returns:
//   - *Array: Newly allocated array
//   - error: errs.ErrLayout if the dtype is unsupported or any dimension is
//     not positive
func New(dt Dtype, shape ...int) (*Array, error) {
	if err := dt.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("%w: array shape is empty", errs.ErrLayout)
	}

	n := 1
	for _, dim := range shape {
		if dim <= 0 {
			return nil, fmt.Errorf("%w: non-positive dimension %d in shape %v", errs.ErrLayout, dim, shape)
		}
		n *= dim
	}

	return &Array{
		dt:    dt,
		shape: append([]int(nil), shape...),
		data:  make([]byte, n*dt.ItemSize()),
	}, nil
}

// FromBytes creates an Array over a copy of raw file-order bytes.
//
// Returns:
//   - *Array: Newly allocated array holding a copy of data
//   - error: errs.ErrLayout on an invalid dtype/shape,
//     errs.ErrPayloadMismatch if len(data) disagrees with dtype and shape
func FromBytes(dt Dtype, data []byte, shape ...int) (*Array, error) {
	arr, err := New(dt, shape...)
	if err != nil {
		return nil, err
	}
	if err := arr.SetBytes(data); err != nil {
		return nil, err
	}

	return arr, nil
}

// Dtype returns the element dtype.
func (a *Array) Dtype() Dtype { return a.dt }

// Shape returns a copy of the array shape.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// NumElems returns the total element count.
func (a *Array) NumElems() int {
	n := 1
	for _, dim := range a.shape {
		n *= dim
	}

	return n
}

// Size returns the byte length of the array in file order.
func (a *Array) Size() int64 {
	return int64(len(a.data))
}

// Bytes returns the backing file-order bytes. The slice is shared with the
// Array; callers that mutate it mutate the array.
func (a *Array) Bytes() []byte { return a.data }

// SetBytes replaces the array contents with raw file-order bytes.
func (a *Array) SetBytes(data []byte) error {
	if len(data) != len(a.data) {
		return fmt.Errorf("%w: expected %d bytes for dtype %s shape %v, got %d",
			errs.ErrPayloadMismatch, len(a.data), a.dt, a.shape, len(data))
	}
	copy(a.data, data)

	return nil
}

func (a *Array) checkScalar(kind Kind, size int) error {
	if a.dt.Kind != kind || a.dt.Size != size {
		want := Dtype{Kind: kind, Size: size}

		return fmt.Errorf("%w: array dtype is %s, accessor expects %s", errs.ErrPayloadMismatch, a.dt, want)
	}

	return nil
}

func (a *Array) checkLen(n int) error {
	if n != a.NumElems() {
		return fmt.Errorf("%w: %d values for %d elements", errs.ErrPayloadMismatch, n, a.NumElems())
	}

	return nil
}

// Complex64s decodes the array as CF8 elements.
func (a *Array) Complex64s() ([]complex64, error) {
	if err := a.checkScalar(KindComplexFloat, 8); err != nil {
		return nil, err
	}

	out := make([]complex64, a.NumElems())
	for i := range out {
		re := math.Float32frombits(fileOrder.Uint32(a.data[i*8:]))
		im := math.Float32frombits(fileOrder.Uint32(a.data[i*8+4:]))
		out[i] = complex(re, im)
	}

	return out, nil
}

// SetComplex64s encodes vals into a CF8 array.
func (a *Array) SetComplex64s(vals []complex64) error {
	if err := a.checkScalar(KindComplexFloat, 8); err != nil {
		return err
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	for i, v := range vals {
		fileOrder.PutUint32(a.data[i*8:], math.Float32bits(real(v)))
		fileOrder.PutUint32(a.data[i*8+4:], math.Float32bits(imag(v)))
	}

	return nil
}

// Complex128s decodes the array as CF16 elements.
func (a *Array) Complex128s() ([]complex128, error) {
	if err := a.checkScalar(KindComplexFloat, 16); err != nil {
		return nil, err
	}

	out := make([]complex128, a.NumElems())
	for i := range out {
		re := math.Float64frombits(fileOrder.Uint64(a.data[i*16:]))
		im := math.Float64frombits(fileOrder.Uint64(a.data[i*16+8:]))
		out[i] = complex(re, im)
	}

	return out, nil
}

// SetComplex128s encodes vals into a CF16 array.
func (a *Array) SetComplex128s(vals []complex128) error {
	if err := a.checkScalar(KindComplexFloat, 16); err != nil {
		return err
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	for i, v := range vals {
		fileOrder.PutUint64(a.data[i*16:], math.Float64bits(real(v)))
		fileOrder.PutUint64(a.data[i*16+8:], math.Float64bits(imag(v)))
	}

	return nil
}

// Float32s decodes the array as F4 elements.
func (a *Array) Float32s() ([]float32, error) {
	if err := a.checkScalar(KindFloat, 4); err != nil {
		return nil, err
	}

	out := make([]float32, a.NumElems())
	for i := range out {
		out[i] = math.Float32frombits(fileOrder.Uint32(a.data[i*4:]))
	}

	return out, nil
}

// SetFloat32s encodes vals into an F4 array.
func (a *Array) SetFloat32s(vals []float32) error {
	if err := a.checkScalar(KindFloat, 4); err != nil {
		return err
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	for i, v := range vals {
		fileOrder.PutUint32(a.data[i*4:], math.Float32bits(v))
	}

	return nil
}

// Float64s decodes the array as F8 elements.
func (a *Array) Float64s() ([]float64, error) {
	if err := a.checkScalar(KindFloat, 8); err != nil {
		return nil, err
	}

	out := make([]float64, a.NumElems())
	for i := range out {
		out[i] = math.Float64frombits(fileOrder.Uint64(a.data[i*8:]))
	}

	return out, nil
}

// SetFloat64s encodes vals into an F8 array.
func (a *Array) SetFloat64s(vals []float64) error {
	if err := a.checkScalar(KindFloat, 8); err != nil {
		return err
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	for i, v := range vals {
		fileOrder.PutUint64(a.data[i*8:], math.Float64bits(v))
	}

	return nil
}

// Ints decodes a signed integer array of any supported width to int64.
func (a *Array) Ints() ([]int64, error) {
	if a.dt.Kind != KindInt {
		return nil, fmt.Errorf("%w: array dtype is %s, accessor expects a signed integer", errs.ErrPayloadMismatch, a.dt)
	}

	out := make([]int64, a.NumElems())
	for i := range out {
		out[i] = getInt(a.data[i*a.dt.Size:], a.dt.Size)
	}

	return out, nil
}

// SetInts encodes vals into a signed integer array of any supported width.
// Values outside the element range fail with errs.ErrPayloadMismatch.
func (a *Array) SetInts(vals []int64) error {
	if a.dt.Kind != KindInt {
		return fmt.Errorf("%w: array dtype is %s, accessor expects a signed integer", errs.ErrPayloadMismatch, a.dt)
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	bits := a.dt.Size * 8
	for i, v := range vals {
		if bits < 64 && (v < -(1<<(bits-1)) || v >= 1<<(bits-1)) {
			return fmt.Errorf("%w: value %d out of range for %s", errs.ErrPayloadMismatch, v, a.dt)
		}
		putUint(a.data[i*a.dt.Size:], uint64(v), a.dt.Size)
	}

	return nil
}

// Uints decodes an unsigned integer array of any supported width to uint64.
func (a *Array) Uints() ([]uint64, error) {
	if a.dt.Kind != KindUint {
		return nil, fmt.Errorf("%w: array dtype is %s, accessor expects an unsigned integer", errs.ErrPayloadMismatch, a.dt)
	}

	out := make([]uint64, a.NumElems())
	for i := range out {
		out[i] = getUint(a.data[i*a.dt.Size:], a.dt.Size)
	}

	return out, nil
}

// SetUints encodes vals into an unsigned integer array of any supported width.
// Values outside the element range fail with errs.ErrPayloadMismatch.
func (a *Array) SetUints(vals []uint64) error {
	if a.dt.Kind != KindUint {
		return fmt.Errorf("%w: array dtype is %s, accessor expects an unsigned integer", errs.ErrPayloadMismatch, a.dt)
	}
	if err := a.checkLen(len(vals)); err != nil {
		return err
	}

	bits := a.dt.Size * 8
	for i, v := range vals {
		if bits < 64 && v >= 1<<bits {
			return fmt.Errorf("%w: value %d out of range for %s", errs.ErrPayloadMismatch, v, a.dt)
		}
		putUint(a.data[i*a.dt.Size:], v, a.dt.Size)
	}

	return nil
}

// Field extracts the named record field as a new scalar Array with the same
// shape.
//
// Returns:
//   - *Array: Newly allocated scalar array
//   - error: errs.ErrPayloadMismatch if the array is not a record dtype or
//     the field does not exist
func (a *Array) Field(name string) (*Array, error) {
	offset, ft, ok := a.dt.FieldIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: dtype %s has no field %q", errs.ErrPayloadMismatch, a.dt, name)
	}

	out, err := New(ft, a.shape...)
	if err != nil {
		return nil, err
	}

	stride := a.dt.ItemSize()
	for i := 0; i < a.NumElems(); i++ {
		copy(out.data[i*ft.Size:(i+1)*ft.Size], a.data[i*stride+offset:])
	}

	return out, nil
}

// SetField overwrites the named record field from a scalar Array of the same
// shape.
func (a *Array) SetField(name string, col *Array) error {
	offset, ft, ok := a.dt.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%w: dtype %s has no field %q", errs.ErrPayloadMismatch, a.dt, name)
	}
	if !col.dt.Equal(ft) {
		return fmt.Errorf("%w: field %q is %s, got %s", errs.ErrPayloadMismatch, name, ft, col.dt)
	}
	if col.NumElems() != a.NumElems() {
		return fmt.Errorf("%w: field %q expects %d elements, got %d",
			errs.ErrPayloadMismatch, name, a.NumElems(), col.NumElems())
	}

	stride := a.dt.ItemSize()
	for i := 0; i < a.NumElems(); i++ {
		copy(a.data[i*stride+offset:i*stride+offset+ft.Size], col.data[i*ft.Size:])
	}

	return nil
}

func getUint(b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(fileOrder.Uint16(b))
	case 4:
		return uint64(fileOrder.Uint32(b))
	default:
		return fileOrder.Uint64(b)
	}
}

func getInt(b []byte, size int) int64 {
	u := getUint(b, size)
	// sign-extend
	shift := uint(64 - size*8)

	return int64(u<<shift) >> shift
}

func putUint(b []byte, v uint64, size int) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		fileOrder.PutUint16(b, uint16(v))
	case 4:
		fileOrder.PutUint32(b, uint32(v))
	default:
		fileOrder.PutUint64(b, v)
	}
}
