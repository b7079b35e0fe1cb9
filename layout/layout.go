// Package layout models the segment structure of a container file.
//
// A Plan is the ordered list of contiguous byte regions (Segments) that make
// up a file, with final offsets and lengths fixed before any payload byte is
// written. Plans are value-computed from a metadata model and never patched
// afterward: planning the same model twice yields an identical Plan.
package layout

import (
	"fmt"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
)

// Kind identifies what a segment holds.
type Kind uint8

const (
	KindHeader   Kind = 0x1 // fixed/variable header fields
	KindMetadata Kind = 0x2 // serialized XML metadata
	KindData     Kind = 0x3 // payload bytes with a declared dtype/shape
	KindPadding  Kind = 0x4 // alignment or terminator bytes
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "Header"
	case KindMetadata:
		return "Metadata"
	case KindData:
		return "Data"
	case KindPadding:
		return "Padding"
	default:
		return "Unknown"
	}
}

// Segment is one contiguous named byte region of a container file.
//
// Data segments additionally carry the declared element dtype and shape used
// to validate payload reads and writes.
type Segment struct {
	Kind   Kind
	Name   string
	Offset int64
	Length int64

	// Dtype and Shape are set for KindData segments only.
	Dtype dtype.Dtype
	Shape []int
}

// End returns the offset one past the last byte of the segment.
func (s Segment) End() int64 {
	return s.Offset + s.Length
}

// Plan is the computed, ordered set of segments for one container file.
type Plan struct {
	Segments []Segment
	Total    int64
}

// Validate checks the plan invariants: segments are ordered, contiguous
// without overlap, have non-negative lengths, and sum exactly to Total.
//
// Returns:
//   - error: errs.ErrLayout describing the first violated invariant
func (p *Plan) Validate() error {
	var cursor int64
	var sum int64

	for i, seg := range p.Segments {
		if seg.Length < 0 {
			return fmt.Errorf("%w: segment %s has negative length %d", errs.ErrLayout, seg.Name, seg.Length)
		}
		if seg.Offset < cursor {
			prev := p.Segments[i-1]

			return fmt.Errorf("%w: segment %s at offset %d overlaps %s ending at %d",
				errs.ErrLayout, seg.Name, seg.Offset, prev.Name, cursor)
		}
		if seg.Offset > cursor {
			return fmt.Errorf("%w: gap of %d bytes before segment %s at offset %d",
				errs.ErrLayout, seg.Offset-cursor, seg.Name, seg.Offset)
		}
		cursor = seg.End()
		sum += seg.Length
	}

	if sum != p.Total {
		return fmt.Errorf("%w: segment lengths sum to %d, plan total is %d", errs.ErrLayout, sum, p.Total)
	}
	if cursor != p.Total {
		return fmt.Errorf("%w: last segment ends at %d, plan total is %d", errs.ErrLayout, cursor, p.Total)
	}

	return nil
}

// Find returns the first segment with the given name.
func (p *Plan) Find(name string) (Segment, bool) {
	for _, seg := range p.Segments {
		if seg.Name == name {
			return seg, true
		}
	}

	return Segment{}, false
}

// DataSegments returns the payload segments in plan order.
func (p *Plan) DataSegments() []Segment {
	var out []Segment
	for _, seg := range p.Segments {
		if seg.Kind == KindData {
			out = append(out, seg)
		}
	}

	return out
}

// DataSegmentLength computes rows*cols*itemsize for a declared dtype/shape
// pair, validating both.
//
// Returns:
//   - int64: Payload byte length
//   - error: errs.ErrLayout for a non-positive dimension or unsupported dtype
func DataSegmentLength(dt dtype.Dtype, shape []int) (int64, error) {
	if err := dt.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrLayout, err)
	}
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", errs.ErrLayout)
	}

	length := int64(dt.ItemSize())
	for _, dim := range shape {
		if dim <= 0 {
			return 0, fmt.Errorf("%w: non-positive dimension %d in shape %v", errs.ErrLayout, dim, shape)
		}
		length *= int64(dim)
	}

	return length, nil
}
