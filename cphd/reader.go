package cphd

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/arloliu/sario/compress"
	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/internal/digest"
)

// Reader provides lazy access to one product: the text header and XML
// metadata block are parsed at construction, payload blocks are read only on
// request.
//
// A Reader is not safe for concurrent use; open independent Readers over the
// same immutable file instead.
type Reader struct {
	src    io.ReadSeeker
	file   *os.File // non-nil when the Reader owns the handle
	hdr    *fileHeader
	meta   *Metadata
	closed bool

	signalDtype dtype.Dtype
	pvpDtype    dtype.Dtype
	numBytesPVP int64
}

// NewReader opens a product over an existing byte source. The caller retains
// ownership of src; Close does not release it.
//
// Only the text header and the XML block are read. No payload bytes are
// touched until a payload accessor is called.
//
// Returns:
//   - *Reader: Opened reader
//   - error: errs.ErrMalformedHeader for header or metadata violations
func NewReader(src io.ReadSeeker) (*Reader, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek file start: %w", err)
	}
	hdr, err := readFileHeader(src)
	if err != nil {
		return nil, err
	}

	r := &Reader{src: src, hdr: hdr}
	if err := r.loadMetadata(); err != nil {
		return nil, err
	}
	if r.signalDtype, err = r.meta.SignalDtype(); err != nil {
		return nil, err
	}
	if r.pvpDtype, err = r.meta.PVPDtype(); err != nil {
		return nil, err
	}
	if r.numBytesPVP, err = r.meta.NumBytesPVP(); err != nil {
		return nil, err
	}

	return r, nil
}

// OpenReader opens a product file. The returned Reader owns the handle and
// releases it on Close.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f

	return r, nil
}

func (r *Reader) loadMetadata() error {
	offset, err := r.hdr.getInt("XML_BLOCK_BYTE_OFFSET")
	if err != nil {
		return err
	}
	size, err := r.hdr.getInt("XML_BLOCK_SIZE")
	if err != nil {
		return err
	}

	raw := make([]byte, size)
	if _, err := r.src.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek XML block: %w", err)
	}
	if _, err := io.ReadFull(r.src, raw); err != nil {
		return fmt.Errorf("%w: XML block truncated: %s", errs.ErrMalformedHeader, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return fmt.Errorf("%w: XML block: %s", errs.ErrMalformedHeader, err)
	}
	meta, err := NewMetadata(doc)
	if err != nil {
		return err
	}

	if r.hdr.version != meta.Version().Version {
		Logger().Warn("file type line version disagrees with metadata namespace",
			zap.String("header", r.hdr.version),
			zap.String("metadata", meta.Version().Version))
	}

	classification, ok := r.hdr.get("CLASSIFICATION")
	if !ok {
		return fmt.Errorf("%w: missing header key CLASSIFICATION", errs.ErrMalformedHeader)
	}
	releaseInfo, ok := r.hdr.get("RELEASE_INFO")
	if !ok {
		return fmt.Errorf("%w: missing header key RELEASE_INFO", errs.ErrMalformedHeader)
	}
	meta.Header = HeaderFields{
		Classification: classification,
		ReleaseInfo:    releaseInfo,
		AdditionalKVPs: r.hdr.additional(),
	}
	r.meta = meta

	return nil
}

// Metadata returns the parsed metadata model. It remains valid after Close.
func (r *Reader) Metadata() *Metadata {
	return r.meta
}

// Block size and offset getters, valid after Close. The support block
// getters report absence for products without support arrays.

func (r *Reader) XMLBlockSize() int64       { v, _ := r.hdr.getInt("XML_BLOCK_SIZE"); return v }
func (r *Reader) XMLBlockByteOffset() int64 { v, _ := r.hdr.getInt("XML_BLOCK_BYTE_OFFSET"); return v }
func (r *Reader) PVPBlockSize() int64       { v, _ := r.hdr.getInt("PVP_BLOCK_SIZE"); return v }
func (r *Reader) PVPBlockByteOffset() int64 { v, _ := r.hdr.getInt("PVP_BLOCK_BYTE_OFFSET"); return v }
func (r *Reader) SignalBlockSize() int64    { v, _ := r.hdr.getInt("SIGNAL_BLOCK_SIZE"); return v }
func (r *Reader) SignalBlockByteOffset() int64 {
	v, _ := r.hdr.getInt("SIGNAL_BLOCK_BYTE_OFFSET")
	return v
}

func (r *Reader) SupportBlockSize() (int64, bool) {
	if _, ok := r.hdr.get("SUPPORT_BLOCK_SIZE"); !ok {
		return 0, false
	}
	v, _ := r.hdr.getInt("SUPPORT_BLOCK_SIZE")

	return v, true
}

func (r *Reader) SupportBlockByteOffset() (int64, bool) {
	if _, ok := r.hdr.get("SUPPORT_BLOCK_BYTE_OFFSET"); !ok {
		return 0, false
	}
	v, _ := r.hdr.getInt("SUPPORT_BLOCK_BYTE_OFFSET")

	return v, true
}

// readRange reads exactly length bytes at an absolute offset.
func (r *Reader) readRange(offset, length int64, what string) ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("%w: payload access after Close", errs.ErrClosedSource)
	}

	buf := make([]byte, length)
	if _, err := r.src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", what, err)
	}
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}

	return buf, nil
}

// ReadRawSignal reads the stored signal bytes of one channel without
// decoding: the raw array for uncompressed products, the compressed byte run
// otherwise.
//
// Returns:
//   - []byte: Stored bytes
//   - error: errs.ErrOutOfRange for an unknown identifier;
//     errs.ErrClosedSource after Close
func (r *Reader) ReadRawSignal(identifier string) ([]byte, error) {
	ch, err := r.meta.Channel(identifier)
	if err != nil {
		return nil, err
	}

	size := ch.NumVectors * ch.NumSamples * int64(r.signalDtype.ItemSize())
	if r.meta.SignalCompressionID() != "" {
		size = ch.CompressedSignalSize
	}

	return r.readRange(r.SignalBlockByteOffset()+ch.SignalArrayByteOffset, size,
		"signal array "+identifier)
}

// ReadSignal reads the signal array of one channel, decompressing through
// the codec named by Data/SignalCompressionID when present.
//
// Returns:
//   - *dtype.Array: Samples of shape [NumVectors, NumSamples]
//   - error: errs.ErrOutOfRange for an unknown identifier; an unsupported
//     compression identifier (the raw bytes remain readable via
//     ReadRawSignal); errs.ErrClosedSource after Close
func (r *Reader) ReadSignal(identifier string) (*dtype.Array, error) {
	ch, err := r.meta.Channel(identifier)
	if err != nil {
		return nil, err
	}

	buf, err := r.ReadRawSignal(identifier)
	if err != nil {
		return nil, err
	}

	if id := r.meta.SignalCompressionID(); id != "" {
		codec, err := compress.Lookup(id)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", identifier, err)
		}
		buf, err = codec.Decompress(buf)
		if err != nil {
			return nil, fmt.Errorf("decompress channel %s: %w", identifier, err)
		}
		want := ch.NumVectors * ch.NumSamples * int64(r.signalDtype.ItemSize())
		if int64(len(buf)) != want {
			return nil, fmt.Errorf("%w: channel %s decompressed to %d bytes, metadata declares %d",
				errs.ErrPayloadMismatch, identifier, len(buf), want)
		}
	}

	return dtype.FromBytes(r.signalDtype, buf, int(ch.NumVectors), int(ch.NumSamples))
}

// ReadPVP reads the per-vector parameter array of one channel.
//
// Returns:
//   - *dtype.Array: Vector records of shape [NumVectors], dtype per PVPDtype
//   - error: errs.ErrOutOfRange for an unknown identifier;
//     errs.ErrClosedSource after Close
func (r *Reader) ReadPVP(identifier string) (*dtype.Array, error) {
	ch, err := r.meta.Channel(identifier)
	if err != nil {
		return nil, err
	}

	buf, err := r.readRange(r.PVPBlockByteOffset()+ch.PVPArrayByteOffset,
		ch.NumVectors*r.numBytesPVP, "PVP array "+identifier)
	if err != nil {
		return nil, err
	}

	return dtype.FromBytes(r.pvpDtype, buf, int(ch.NumVectors))
}

// ReadChannel reads both the signal and PVP arrays of one channel.
func (r *Reader) ReadChannel(identifier string) (signal, pvp *dtype.Array, err error) {
	if signal, err = r.ReadSignal(identifier); err != nil {
		return nil, nil, err
	}
	if pvp, err = r.ReadPVP(identifier); err != nil {
		return nil, nil, err
	}

	return signal, pvp, nil
}

// ReadSupportArray reads one support array.
//
// Returns:
//   - *dtype.Array: Elements of shape [NumRows, NumCols], dtype per the
//     array's ElementFormat
//   - error: errs.ErrOutOfRange for an unknown identifier;
//     errs.ErrClosedSource after Close
func (r *Reader) ReadSupportArray(identifier string) (*dtype.Array, error) {
	sa, err := r.meta.SupportArray(identifier)
	if err != nil {
		return nil, err
	}
	dt, err := r.meta.SupportArrayDtype(identifier)
	if err != nil {
		return nil, err
	}
	offset, ok := r.SupportBlockByteOffset()
	if !ok {
		return nil, fmt.Errorf("%w: header declares no support block", errs.ErrMalformedHeader)
	}

	buf, err := r.readRange(offset+sa.ArrayByteOffset,
		sa.NumRows*sa.NumCols*sa.BytesPerElement, "support array "+identifier)
	if err != nil {
		return nil, err
	}

	return dtype.FromBytes(dt, buf, int(sa.NumRows), int(sa.NumCols))
}

// VerifyDigests recomputes the block digests for every digest key present in
// the header and compares. Headers without digest keys verify trivially.
//
// Returns:
//   - error: errs.ErrPayloadMismatch naming the first block whose digest
//     disagrees; errs.ErrClosedSource after Close
func (r *Reader) VerifyDigests() error {
	blocks := []struct {
		key    string
		offset int64
		size   int64
	}{
		{keyXMLDigest, r.XMLBlockByteOffset(), r.XMLBlockSize()},
		{keyPVPDigest, r.PVPBlockByteOffset(), r.PVPBlockSize()},
		{keySignalDigest, r.SignalBlockByteOffset(), r.SignalBlockSize()},
	}
	if offset, ok := r.SupportBlockByteOffset(); ok {
		size, _ := r.SupportBlockSize()
		blocks = append(blocks, struct {
			key    string
			offset int64
			size   int64
		}{keySupportDigest, offset, size})
	}

	for _, b := range blocks {
		want, ok := r.hdr.get(b.key)
		if !ok {
			continue
		}
		buf, err := r.readRange(b.offset, b.size, b.key)
		if err != nil {
			return err
		}
		if !digest.Verify(want, buf) {
			return fmt.Errorf("%w: %s does not match block contents", errs.ErrPayloadMismatch, b.key)
		}
	}

	return nil
}

// Close releases the underlying handle if the Reader owns it. Metadata and
// header accessors keep working; payload accessors fail afterwards. Close is
// idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}
