// Package nitf implements the fixed-width text header codec and container
// structure of NITF 2.1 files.
//
// Header fields are described by plain data tables ([]FieldSpec); the codec
// itself is table-driven and stateless. Counted groups (image segments,
// comments, data extension segments) and conditional fields are assembled
// into tables dynamically by the container, never special-cased inside the
// codec.
package nitf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/sario/errs"
)

// Class is the character class of a header field.
type Class uint8

const (
	// ClassBCSA is printable basic character set text, left-justified and
	// space-filled.
	ClassBCSA Class = iota + 1
	// ClassBCSN is numeric text, right-justified and zero-filled.
	ClassBCSN
	// ClassBinary is raw bytes, passed through unvalidated.
	ClassBinary
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassBCSA:
		return "BCS-A"
	case ClassBCSN:
		return "BCS-N"
	case ClassBinary:
		return "binary"
	default:
		return "Unknown"
	}
}

// FieldSpec describes one fixed-width header field.
type FieldSpec struct {
	// Name is the field identifier, unique within a table.
	Name string
	// Width is the exact serialized byte width.
	Width int
	// Class is the character class, which also fixes fill and justification.
	Class Class
	// Default is the initial value of the field.
	Default string
}

// Fields is an ordered name-to-value view over one decoded or under-
// construction header field table.
type Fields struct {
	specs []FieldSpec
	index map[string]int
	vals  []string
}

// NewFields creates a Fields view initialized with each field's default.
func NewFields(table []FieldSpec) *Fields {
	f := &Fields{
		specs: table,
		index: make(map[string]int, len(table)),
		vals:  make([]string, len(table)),
	}
	for i, spec := range table {
		f.index[spec.Name] = i
		f.vals[i] = spec.Default
	}

	return f
}

// Names returns the field names in table order.
func (f *Fields) Names() []string {
	names := make([]string, len(f.specs))
	for i, spec := range f.specs {
		names[i] = spec.Name
	}

	return names
}

// Has reports whether the table contains the named field.
func (f *Fields) Has(name string) bool {
	_, ok := f.index[name]

	return ok
}

// Str returns the field's value, or "" for an unknown field.
func (f *Fields) Str(name string) string {
	i, ok := f.index[name]
	if !ok {
		return ""
	}

	return f.vals[i]
}

// Int returns the field's value parsed as a decimal integer.
//
// Returns:
//   - int64: Parsed value
//   - error: Unknown field, or non-numeric content
func (f *Fields) Int(name string) (int64, error) {
	i, ok := f.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown header field %q", name)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(f.vals[i]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("header field %s: %w", name, err)
	}

	return n, nil
}

// SetStr sets the field's value.
//
// Returns:
//   - error: Unknown field, or errs.ErrFieldOverflow if the value is wider
//     than the field
func (f *Fields) SetStr(name, val string) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("unknown header field %q", name)
	}
	if len(val) > f.specs[i].Width {
		return fmt.Errorf("%w: field %s holds %d bytes, value %q needs %d",
			errs.ErrFieldOverflow, name, f.specs[i].Width, val, len(val))
	}
	f.vals[i] = val

	return nil
}

// SetInt sets the field's value from a decimal integer.
//
// Returns:
//   - error: Unknown field, or errs.ErrFieldOverflow if the digits do not fit
func (f *Fields) SetInt(name string, val int64) error {
	return f.SetStr(name, strconv.FormatInt(val, 10))
}

func validClass(b byte, class Class) bool {
	switch class {
	case ClassBCSA:
		return b >= 0x20 && b <= 0x7e
	case ClassBCSN:
		return (b >= '0' && b <= '9') || b == '+' || b == '-' || b == '.' || b == ' '
	default:
		return true
	}
}

// DecodeFields decodes one field table from the front of b.
//
// Decoded values are stored trimmed: BCS-A fields lose trailing fill spaces,
// BCS-N fields lose surrounding spaces (leading zeros are kept), binary
// fields are stored raw.
//
// Returns:
//   - *Fields: Decoded view
//   - int: Bytes consumed
//   - error: errs.ErrMalformedHeader naming the field and offset on a short
//     buffer or a character class violation
func DecodeFields(b []byte, table []FieldSpec) (*Fields, int, error) {
	f := NewFields(table)
	offset := 0
	for i, spec := range table {
		if offset+spec.Width > len(b) {
			return nil, 0, fmt.Errorf("%w: field %s at offset %d needs %d bytes, %d remain",
				errs.ErrMalformedHeader, spec.Name, offset, spec.Width, len(b)-offset)
		}
		raw := b[offset : offset+spec.Width]
		for j, c := range raw {
			if !validClass(c, spec.Class) {
				return nil, 0, fmt.Errorf("%w: field %s has invalid %s byte 0x%02x at offset %d",
					errs.ErrMalformedHeader, spec.Name, spec.Class, c, offset+j)
			}
		}

		switch spec.Class {
		case ClassBCSA:
			f.vals[i] = strings.TrimRight(string(raw), " ")
		case ClassBCSN:
			f.vals[i] = strings.TrimSpace(string(raw))
		default:
			f.vals[i] = string(raw)
		}
		offset += spec.Width
	}

	return f, offset, nil
}

// EncodeFields serializes the field table to its exact total width.
//
// BCS-A values are left-justified and space-filled, BCS-N values are
// right-justified and zero-filled, binary values must already be exact.
//
// Returns:
//   - []byte: Serialized fields
//   - error: errs.ErrFieldOverflow naming the field, width, and value when a
//     value is wider than its field; a binary value of the wrong width is
//     errs.ErrMalformedHeader
func EncodeFields(f *Fields) ([]byte, error) {
	total := 0
	for _, spec := range f.specs {
		total += spec.Width
	}

	out := make([]byte, 0, total)
	for i, spec := range f.specs {
		val := f.vals[i]
		if len(val) > spec.Width {
			return nil, fmt.Errorf("%w: field %s holds %d bytes, value %q needs %d",
				errs.ErrFieldOverflow, spec.Name, spec.Width, val, len(val))
		}

		switch spec.Class {
		case ClassBCSA:
			out = append(out, val...)
			for j := len(val); j < spec.Width; j++ {
				out = append(out, ' ')
			}
		case ClassBCSN:
			for j := len(val); j < spec.Width; j++ {
				out = append(out, '0')
			}
			out = append(out, val...)
		default:
			if len(val) != spec.Width {
				return nil, fmt.Errorf("%w: binary field %s needs exactly %d bytes, got %d",
					errs.ErrMalformedHeader, spec.Name, spec.Width, len(val))
			}
			out = append(out, val...)
		}
	}

	return out, nil
}

// EncodedWidth returns the total serialized width of the table.
func (f *Fields) EncodedWidth() int {
	total := 0
	for _, spec := range f.specs {
		total += spec.Width
	}

	return total
}
