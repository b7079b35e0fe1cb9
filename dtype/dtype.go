// Package dtype describes the element types of payload segments.
//
// A container's metadata declares the byte layout of each payload segment as
// an element type (Dtype) plus a shape; the payload bytes themselves carry no
// type information. Dtype covers the scalar kinds used by the supported
// standards (unsigned/signed integers, IEEE floats, complex pairs, raw byte
// strings) and named-field records built from them.
//
// Dtypes round-trip through the textual binary format strings used by CPHD
// metadata (table 10-2): "U1".."U8", "I1".."I8", "F4", "F8", "CI2".."CI16",
// "CF8", "CF16", "Sn", and record forms such as "X=F8;Y=F8;Z=F8;".
package dtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a scalar element kind.
type Kind uint8

const (
	KindUint         Kind = 0x1 // unsigned integer
	KindInt          Kind = 0x2 // two's-complement signed integer
	KindFloat        Kind = 0x3 // IEEE 754 binary float
	KindComplexFloat Kind = 0x4 // real/imaginary float pair
	KindComplexInt   Kind = 0x5 // real/imaginary signed integer pair
	KindBytes        Kind = 0x6 // fixed-width byte string
	KindRecord       Kind = 0x7 // named scalar fields
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "Uint"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindComplexFloat:
		return "ComplexFloat"
	case KindComplexInt:
		return "ComplexInt"
	case KindBytes:
		return "Bytes"
	case KindRecord:
		return "Record"
	default:
		return "Unknown"
	}
}

// Field is one named scalar component of a record Dtype.
type Field struct {
	Name string
	Type Dtype
}

// Dtype is the element type of a payload segment.
//
// Scalar dtypes have a Kind other than KindRecord and a Size in bytes.
// Record dtypes have Kind KindRecord and a list of named scalar Fields laid
// out back to back; their Size is derived from the fields.
type Dtype struct {
	Kind   Kind
	Size   int
	Fields []Field
}

// Well-known scalar dtypes.
var (
	U1 = Dtype{Kind: KindUint, Size: 1}
	U2 = Dtype{Kind: KindUint, Size: 2}
	U4 = Dtype{Kind: KindUint, Size: 4}
	U8 = Dtype{Kind: KindUint, Size: 8}

	I1 = Dtype{Kind: KindInt, Size: 1}
	I2 = Dtype{Kind: KindInt, Size: 2}
	I4 = Dtype{Kind: KindInt, Size: 4}
	I8 = Dtype{Kind: KindInt, Size: 8}

	F4 = Dtype{Kind: KindFloat, Size: 4}
	F8 = Dtype{Kind: KindFloat, Size: 8}

	CI2  = Dtype{Kind: KindComplexInt, Size: 2}
	CI4  = Dtype{Kind: KindComplexInt, Size: 4}
	CI8  = Dtype{Kind: KindComplexInt, Size: 8}
	CI16 = Dtype{Kind: KindComplexInt, Size: 16}

	CF8  = Dtype{Kind: KindComplexFloat, Size: 8}
	CF16 = Dtype{Kind: KindComplexFloat, Size: 16}
)

// Bytes returns a fixed-width byte-string dtype of n bytes ("Sn").
func Bytes(n int) Dtype {
	return Dtype{Kind: KindBytes, Size: n}
}

// Record builds a record dtype from named scalar fields.
// Field order is the byte layout order.
func Record(fields ...Field) Dtype {
	size := 0
	for _, f := range fields {
		size += f.Type.Size
	}

	return Dtype{Kind: KindRecord, Size: size, Fields: fields}
}

// XYZ returns the 3-component record of element dtype elem with fields
// X, Y, Z ("X=F8;Y=F8;Z=F8;" for elem F8).
func XYZ(elem Dtype) Dtype {
	return Record(Field{"X", elem}, Field{"Y", elem}, Field{"Z", elem})
}

// DCXY returns the 2-component record of element dtype elem with fields
// DCX, DCY ("DCX=F8;DCY=F8;").
func DCXY(elem Dtype) Dtype {
	return Record(Field{"DCX", elem}, Field{"DCY", elem})
}

// ItemSize returns the element size in bytes.
func (d Dtype) ItemSize() int {
	return d.Size
}

// Validate reports whether the dtype describes a usable element layout.
func (d Dtype) Validate() error {
	switch d.Kind {
	case KindUint, KindInt:
		switch d.Size {
		case 1, 2, 4, 8:
			return nil
		}
	case KindFloat:
		switch d.Size {
		case 4, 8:
			return nil
		}
	case KindComplexFloat:
		switch d.Size {
		case 8, 16:
			return nil
		}
	case KindComplexInt:
		switch d.Size {
		case 2, 4, 8, 16:
			return nil
		}
	case KindBytes:
		if d.Size > 0 {
			return nil
		}
	case KindRecord:
		if len(d.Fields) == 0 {
			return fmt.Errorf("record dtype has no fields")
		}
		for _, f := range d.Fields {
			if f.Name == "" {
				return fmt.Errorf("record dtype has an unnamed field")
			}
			if f.Type.Kind == KindRecord {
				return fmt.Errorf("record field %s: nested records are not supported", f.Name)
			}
			if err := f.Type.Validate(); err != nil {
				return fmt.Errorf("record field %s: %w", f.Name, err)
			}
		}

		return nil
	}

	return fmt.Errorf("unsupported element size %d for kind %s", d.Size, d.Kind)
}

// Equal reports whether two dtypes describe the same element layout.
func (d Dtype) Equal(other Dtype) bool {
	if d.Kind != other.Kind || d.Size != other.Size || len(d.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range d.Fields {
		o := other.Fields[i]
		if f.Name != o.Name || !f.Type.Equal(o.Type) {
			return false
		}
	}

	return true
}

// FieldIndex returns the byte offset and dtype of the named record field.
func (d Dtype) FieldIndex(name string) (offset int, ft Dtype, ok bool) {
	if d.Kind != KindRecord {
		return 0, Dtype{}, false
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return offset, f.Type, true
		}
		offset += f.Type.Size
	}

	return 0, Dtype{}, false
}

// String returns the binary format string for the dtype.
func (d Dtype) String() string {
	switch d.Kind {
	case KindUint:
		return fmt.Sprintf("U%d", d.Size)
	case KindInt:
		return fmt.Sprintf("I%d", d.Size)
	case KindFloat:
		return fmt.Sprintf("F%d", d.Size)
	case KindComplexFloat:
		return fmt.Sprintf("CF%d", d.Size)
	case KindComplexInt:
		return fmt.Sprintf("CI%d", d.Size)
	case KindBytes:
		return fmt.Sprintf("S%d", d.Size)
	case KindRecord:
		var sb strings.Builder
		for _, f := range d.Fields {
			sb.WriteString(f.Name)
			sb.WriteByte('=')
			sb.WriteString(f.Type.String())
			sb.WriteByte(';')
		}

		return sb.String()
	default:
		return "Unknown"
	}
}

// Parse converts a binary format string to a Dtype.
//
// Both scalar forms ("F8", "CI4", "S12") and record forms
// ("X=F8;Y=F8;Z=F8;") are accepted.
func Parse(format string) (Dtype, error) {
	if format == "" {
		return Dtype{}, fmt.Errorf("empty binary format string")
	}

	if !strings.Contains(format, "=") {
		return parseScalar(strings.TrimSuffix(format, ";"))
	}

	var fields []Field
	for _, comp := range strings.Split(format, ";") {
		if comp == "" {
			continue
		}
		name, scalar, found := strings.Cut(comp, "=")
		if !found || name == "" {
			return Dtype{}, fmt.Errorf("invalid binary format component %q in %q", comp, format)
		}
		ft, err := parseScalar(scalar)
		if err != nil {
			return Dtype{}, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Type: ft})
	}
	if len(fields) == 0 {
		return Dtype{}, fmt.Errorf("invalid binary format string %q", format)
	}

	return Record(fields...), nil
}

func parseScalar(s string) (Dtype, error) {
	var kind Kind
	var digits string
	switch {
	case strings.HasPrefix(s, "CI"):
		kind, digits = KindComplexInt, s[2:]
	case strings.HasPrefix(s, "CF"):
		kind, digits = KindComplexFloat, s[2:]
	case strings.HasPrefix(s, "U"):
		kind, digits = KindUint, s[1:]
	case strings.HasPrefix(s, "I"):
		kind, digits = KindInt, s[1:]
	case strings.HasPrefix(s, "F"):
		kind, digits = KindFloat, s[1:]
	case strings.HasPrefix(s, "S"):
		kind, digits = KindBytes, s[1:]
	default:
		return Dtype{}, fmt.Errorf("unknown binary format %q", s)
	}

	size, err := strconv.Atoi(digits)
	if err != nil {
		return Dtype{}, fmt.Errorf("invalid size in binary format %q", s)
	}

	d := Dtype{Kind: kind, Size: size}
	if err := d.Validate(); err != nil {
		return Dtype{}, fmt.Errorf("binary format %q: %w", s, err)
	}

	return d, nil
}
