package sicd

import (
	"fmt"
	"io"
	"os"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/layout"
)

// Writer produces one product. Construction plans the full byte layout and
// writes every header and the XML metadata immediately; WriteImage fills the
// planned pixel segments; Close verifies completeness.
//
// The metadata model is treated as immutable: the XML is serialized once at
// construction, so later tree mutation cannot corrupt the planned offsets.
type Writer struct {
	dst     io.WriteSeeker
	file    *os.File // non-nil when the Writer owns the handle
	plan    *containerPlan
	written bool
	closed  bool
}

// NewWriter plans and opens a product over an existing byte sink. The caller
// retains ownership of dst; Close does not release it.
//
// Returns:
//   - *Writer: Opened writer with headers and metadata already written
//   - error: errs.ErrLayout for planning violations; an I/O error otherwise
func NewWriter(dst io.WriteSeeker, meta *Metadata) (*Writer, error) {
	plan, err := planContainer(meta)
	if err != nil {
		return nil, err
	}

	w := &Writer{dst: dst, plan: plan}
	if err := w.writeHeaders(); err != nil {
		return nil, err
	}

	return w, nil
}

// CreateWriter plans and opens a product file. The returned Writer owns the
// handle and releases it on Close.
func CreateWriter(path string, meta *Metadata) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w, err := NewWriter(f, meta)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f

	return w, nil
}

func (w *Writer) writeHeaders() error {
	if err := w.plan.container.Dump(w.dst); err != nil {
		return err
	}

	xmlSeg, ok := w.plan.plan.Find("XML")
	if !ok {
		return fmt.Errorf("%w: plan has no metadata segment", errs.ErrLayout)
	}
	if _, err := w.dst.Seek(xmlSeg.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek metadata segment: %w", err)
	}
	if _, err := w.dst.Write(w.plan.xml); err != nil {
		return fmt.Errorf("write metadata segment: %w", err)
	}

	return nil
}

// Plan returns the committed byte layout.
func (w *Writer) Plan() *layout.Plan {
	return w.plan.plan
}

// WriteImage writes the full pixel array, splitting it across the planned
// image segments. The array's element type and shape must match the
// metadata exactly; on mismatch nothing is written.
//
// Returns:
//   - error: errs.ErrPayloadMismatch on a dtype or shape mismatch;
//     errs.ErrClosedSource after Close; an I/O error otherwise
func (w *Writer) WriteImage(arr *dtype.Array) error {
	if w.closed {
		return fmt.Errorf("%w: payload write after Close", errs.ErrClosedSource)
	}

	if !arr.Dtype().Equal(w.plan.pixel.dt) {
		return fmt.Errorf("%w: image element type %s, plan requires %s",
			errs.ErrPayloadMismatch, arr.Dtype(), w.plan.pixel.dt)
	}
	shape := arr.Shape()
	if len(shape) != 2 || int64(shape[0]) != w.plan.nrows || int64(shape[1]) != w.plan.ncols {
		return fmt.Errorf("%w: image shape %v, plan requires [%d %d]",
			errs.ErrPayloadMismatch, shape, w.plan.nrows, w.plan.ncols)
	}

	buf := arr.Bytes()
	at := int64(0)
	for i, seg := range w.plan.container.Images {
		if _, err := w.dst.Seek(seg.DataOffset, io.SeekStart); err != nil {
			return fmt.Errorf("seek image segment %d: %w", i+1, err)
		}
		if _, err := w.dst.Write(buf[at : at+seg.DataLength]); err != nil {
			return fmt.Errorf("write image segment %d: %w", i+1, err)
		}
		at += seg.DataLength
	}
	w.written = true

	return nil
}

// Close finalizes the product and releases the handle if the Writer owns it.
// Close is idempotent; the first call reports the outcome.
//
// Returns:
//   - error: errs.ErrIncompleteWrite naming the unwritten pixel segments if
//     WriteImage never succeeded
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if !w.written {
		names := make([]string, 0, len(w.plan.segRows))
		for i := range w.plan.container.Images {
			names = append(names, fmt.Sprintf("Image%03d", i+1))
		}
		err = fmt.Errorf("%w: unwritten segments %v", errs.ErrIncompleteWrite, names)
	}

	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
