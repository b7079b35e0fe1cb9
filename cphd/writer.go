package cphd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arloliu/sario/compress"
	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/internal/digest"
	"github.com/arloliu/sario/internal/options"
	"github.com/arloliu/sario/layout"
)

// Writer produces one product. Construction plans the full byte layout and
// writes the text header and the XML block immediately; the payload write
// methods fill the planned block segments; Close verifies completeness and
// back-patches pending header values.
//
// The metadata model is treated as immutable: the XML is serialized once at
// construction, so later tree mutation cannot corrupt the planned offsets.
type Writer struct {
	dst  io.WriteSeeker
	file *os.File // non-nil when the Writer owns the handle
	plan *containerPlan

	withDigests bool
	extraKVPs   map[string]string

	writtenSignal  map[string]bool
	writtenPVP     map[string]bool
	writtenSupport map[string]bool
	closed         bool
}

// WriterOption configures a Writer at construction.
type WriterOption = options.Option[*Writer]

// WithBlockDigests writes xxHash64 block digest key-value pairs into the
// header at Close. The destination must also implement io.Reader so the
// payload blocks can be read back for digesting.
func WithBlockDigests() WriterOption {
	return options.New(func(w *Writer) error {
		if _, ok := w.dst.(io.Reader); !ok {
			return fmt.Errorf("block digests require a readable destination")
		}
		w.withDigests = true

		return nil
	})
}

// WithAdditionalKVP carries one extra key-value pair in the text header,
// overriding a same-named pair from the metadata model.
func WithAdditionalKVP(key, value string) WriterOption {
	return options.New(func(w *Writer) error {
		if _, defined := definedHeaderKeys[key]; defined || isDigestKey(key) {
			return fmt.Errorf("header key %s is reserved", key)
		}
		if key == "" || strings.ContainsAny(key, "\n\f") || strings.Contains(key, " := ") {
			return fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\n\f") {
			return fmt.Errorf("invalid header value %q", value)
		}
		w.extraKVPs[key] = value

		return nil
	})
}

// NewWriter plans and opens a product over an existing byte sink. The caller
// retains ownership of dst; Close does not release it.
//
// Returns:
//   - *Writer: Opened writer with the header and XML block already written
//   - error: errs.ErrLayout for planning violations; an option or I/O error
//     otherwise
func NewWriter(dst io.WriteSeeker, meta *Metadata, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:            dst,
		extraKVPs:      make(map[string]string),
		writtenSignal:  make(map[string]bool),
		writtenPVP:     make(map[string]bool),
		writtenSupport: make(map[string]bool),
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	plan, err := planContainer(meta, w.withDigests, w.extraKVPs)
	if err != nil {
		return nil, err
	}
	w.plan = plan

	if err := w.writeSkeleton(); err != nil {
		return nil, err
	}

	return w, nil
}

// CreateWriter plans and opens a product file. The returned Writer owns the
// handle and releases it on Close.
func CreateWriter(path string, meta *Metadata, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w, err := NewWriter(f, meta, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.file = f

	return w, nil
}

// writeSkeleton writes the header area and the XML block. Digest values, if
// enabled, are zero until Close.
func (w *Writer) writeSkeleton() error {
	hdr := w.plan.header(false, nil).serialize()

	if _, err := w.dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek file start: %w", err)
	}
	if _, err := w.dst.Write(hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.dst.Write([]byte(sectionTerminator)); err != nil {
		return fmt.Errorf("write header terminator: %w", err)
	}

	// zero-fill the rest of the aligned header area
	pad := w.plan.xmlOffset - int64(len(hdr)) - int64(len(sectionTerminator))
	if pad < 0 {
		return fmt.Errorf("%w: header exceeds its planned area", errs.ErrLayout)
	}
	if _, err := w.dst.Write(make([]byte, pad)); err != nil {
		return fmt.Errorf("pad header area: %w", err)
	}

	if _, err := w.dst.Write(w.plan.xml); err != nil {
		return fmt.Errorf("write XML block: %w", err)
	}
	if _, err := w.dst.Write([]byte(sectionTerminator)); err != nil {
		return fmt.Errorf("write XML terminator: %w", err)
	}

	return nil
}

// Plan returns the committed byte layout.
func (w *Writer) Plan() *layout.Plan {
	return w.plan.plan
}

func (w *Writer) writeAt(offset int64, buf []byte, what string) error {
	if _, err := w.dst.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", what, err)
	}
	if _, err := w.dst.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}

	return nil
}

// checkArray validates an array's element type and shape against a planned
// segment; on mismatch nothing is written.
func checkArray(arr *dtype.Array, dt dtype.Dtype, shape []int64, what string) error {
	if !arr.Dtype().Equal(dt) {
		return fmt.Errorf("%w: %s element type %s, plan requires %s",
			errs.ErrPayloadMismatch, what, arr.Dtype(), dt)
	}
	got := arr.Shape()
	if len(got) != len(shape) {
		return fmt.Errorf("%w: %s shape %v, plan requires %v",
			errs.ErrPayloadMismatch, what, got, shape)
	}
	for i, dim := range shape {
		if int64(got[i]) != dim {
			return fmt.Errorf("%w: %s shape %v, plan requires %v",
				errs.ErrPayloadMismatch, what, got, shape)
		}
	}

	return nil
}

// WriteSignal writes the signal array of one channel. Compressed channels
// compress through the codec named by Data/SignalCompressionID; the result
// must fill the declared CompressedSignalSize exactly.
//
// Returns:
//   - error: errs.ErrOutOfRange for an unknown identifier;
//     errs.ErrPayloadMismatch on a dtype, shape, or compressed size mismatch;
//     errs.ErrClosedSource after Close
func (w *Writer) WriteSignal(identifier string, arr *dtype.Array) error {
	if w.closed {
		return fmt.Errorf("%w: payload write after Close", errs.ErrClosedSource)
	}
	ch, err := w.plan.channel(identifier)
	if err != nil {
		return err
	}

	what := "signal array " + identifier
	if err := checkArray(arr, w.plan.signalDtype, []int64{ch.NumVectors, ch.NumSamples}, what); err != nil {
		return err
	}

	buf := arr.Bytes()
	if w.plan.compressionID != "" {
		codec, err := compress.Lookup(w.plan.compressionID)
		if err != nil {
			return fmt.Errorf("channel %s: %w", identifier, err)
		}
		buf, err = codec.Compress(buf)
		if err != nil {
			return fmt.Errorf("compress channel %s: %w", identifier, err)
		}
		if int64(len(buf)) != ch.CompressedSignalSize {
			return fmt.Errorf("%w: channel %s compressed to %d bytes, metadata declares %d",
				errs.ErrPayloadMismatch, identifier, len(buf), ch.CompressedSignalSize)
		}
	}

	if err := w.writeAt(w.plan.signalOffset+ch.SignalArrayByteOffset, buf, what); err != nil {
		return err
	}
	w.writtenSignal[identifier] = true

	return nil
}

// WriteCompressedSignal writes pre-compressed signal bytes of one channel.
// The byte count must equal the declared CompressedSignalSize exactly.
func (w *Writer) WriteCompressedSignal(identifier string, compressed []byte) error {
	if w.closed {
		return fmt.Errorf("%w: payload write after Close", errs.ErrClosedSource)
	}
	ch, err := w.plan.channel(identifier)
	if err != nil {
		return err
	}
	if w.plan.compressionID == "" {
		return fmt.Errorf("%w: channel %s is not compressed", errs.ErrPayloadMismatch, identifier)
	}
	if int64(len(compressed)) != ch.CompressedSignalSize {
		return fmt.Errorf("%w: channel %s given %d compressed bytes, metadata declares %d",
			errs.ErrPayloadMismatch, identifier, len(compressed), ch.CompressedSignalSize)
	}

	if err := w.writeAt(w.plan.signalOffset+ch.SignalArrayByteOffset, compressed,
		"signal array "+identifier); err != nil {
		return err
	}
	w.writtenSignal[identifier] = true

	return nil
}

// WritePVP writes the per-vector parameter array of one channel. The array's
// dtype must match PVPDtype exactly.
func (w *Writer) WritePVP(identifier string, arr *dtype.Array) error {
	if w.closed {
		return fmt.Errorf("%w: payload write after Close", errs.ErrClosedSource)
	}
	ch, err := w.plan.channel(identifier)
	if err != nil {
		return err
	}

	what := "PVP array " + identifier
	if err := checkArray(arr, w.plan.pvpDtype, []int64{ch.NumVectors}, what); err != nil {
		return err
	}
	if err := w.writeAt(w.plan.pvpOffset+ch.PVPArrayByteOffset, arr.Bytes(), what); err != nil {
		return err
	}
	w.writtenPVP[identifier] = true

	return nil
}

// WriteSupportArray writes one support array.
func (w *Writer) WriteSupportArray(identifier string, arr *dtype.Array) error {
	if w.closed {
		return fmt.Errorf("%w: payload write after Close", errs.ErrClosedSource)
	}
	sa, err := w.plan.support(identifier)
	if err != nil {
		return err
	}

	what := "support array " + identifier
	if err := checkArray(arr, sa.dt, []int64{sa.NumRows, sa.NumCols}, what); err != nil {
		return err
	}
	if err := w.writeAt(w.plan.supportOffset+sa.ArrayByteOffset, arr.Bytes(), what); err != nil {
		return err
	}
	w.writtenSupport[identifier] = true

	return nil
}

// missingSegments lists the planned payload segments never written, in plan
// order.
func (w *Writer) missingSegments() []string {
	var missing []string
	for _, sa := range w.plan.supports {
		if !w.writtenSupport[sa.Identifier] {
			missing = append(missing, "Support:"+sa.Identifier)
		}
	}
	for _, ch := range w.plan.channels {
		if !w.writtenPVP[ch.Identifier] {
			missing = append(missing, "PVP:"+ch.Identifier)
		}
	}
	for _, ch := range w.plan.channels {
		if !w.writtenSignal[ch.Identifier] {
			missing = append(missing, "Signal:"+ch.Identifier)
		}
	}

	return missing
}

// patchDigests reads the payload blocks back, computes their digests, and
// rewrites the header in place. The rewritten header has the same width as
// the skeleton header since digest values are fixed width.
func (w *Writer) patchDigests() error {
	src, ok := w.dst.(io.Reader)
	if !ok {
		return fmt.Errorf("block digests require a readable destination")
	}

	readBlock := func(offset, size int64, what string) ([]byte, error) {
		buf := make([]byte, size)
		if _, err := w.dst.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek %s: %w", what, err)
		}
		if _, err := io.ReadFull(src, buf); err != nil {
			return nil, fmt.Errorf("read back %s: %w", what, err)
		}

		return buf, nil
	}

	digests := map[string]string{keyXMLDigest: digest.Sum(w.plan.xml)}
	if len(w.plan.supports) > 0 {
		buf, err := readBlock(w.plan.supportOffset, w.plan.supportSize, "support block")
		if err != nil {
			return err
		}
		digests[keySupportDigest] = digest.Sum(buf)
	}
	pvp, err := readBlock(w.plan.pvpOffset, w.plan.pvpSize, "PVP block")
	if err != nil {
		return err
	}
	digests[keyPVPDigest] = digest.Sum(pvp)
	signal, err := readBlock(w.plan.signalOffset, w.plan.signalSize, "signal block")
	if err != nil {
		return err
	}
	digests[keySignalDigest] = digest.Sum(signal)

	hdr := w.plan.header(false, digests).serialize()
	if err := w.writeAt(0, hdr, "header"); err != nil {
		return err
	}
	if _, err := w.dst.Write([]byte(sectionTerminator)); err != nil {
		return fmt.Errorf("write header terminator: %w", err)
	}

	return nil
}

// Close finalizes the product and releases the handle if the Writer owns it.
// Close is idempotent; the first call reports the outcome.
//
// Returns:
//   - error: errs.ErrIncompleteWrite naming every planned payload segment
//     that was never written
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if missing := w.missingSegments(); len(missing) > 0 {
		err = fmt.Errorf("%w: unwritten segments %v", errs.ErrIncompleteWrite, missing)
	} else if w.withDigests {
		err = w.patchDigests()
	}

	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}

	return err
}
