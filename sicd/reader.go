package sicd

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/nitf"
)

// Reader provides lazy access to one product: headers and XML metadata are
// parsed at construction, pixel payloads are read only on request.
//
// A Reader is not safe for concurrent use; open independent Readers over the
// same immutable file instead.
type Reader struct {
	src       io.ReadSeeker
	file      *os.File // non-nil when the Reader owns the handle
	container *nitf.Nitf
	meta      *Metadata
	pixel     dtype.Dtype
	nrows     int64
	ncols     int64
	closed    bool
}

// NewReader opens a product over an existing byte source. The caller retains
// ownership of src; Close does not release it.
//
// Only the file header, segment subheaders, and the XML metadata segment are
// read. No pixel bytes are touched until ReadImage.
//
// Returns:
//   - *Reader: Opened reader
//   - error: errs.ErrMalformedHeader for container violations, including a
//     missing metadata segment
func NewReader(src io.ReadSeeker) (*Reader, error) {
	container, err := nitf.Load(src)
	if err != nil {
		return nil, err
	}

	meta, err := loadMetadata(src, container)
	if err != nil {
		return nil, err
	}

	r := &Reader{src: src, container: container, meta: meta}
	if err := r.resolveImage(); err != nil {
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

// loadMetadata locates the XML metadata segment and parses it.
func loadMetadata(src io.ReadSeeker, container *nitf.Nitf) (*Metadata, error) {
	for _, seg := range container.DES {
		if seg.Subheader.Str("DESID") != "XML_DATA_CONTENT" {
			continue
		}

		raw := make([]byte, seg.DataLength)
		if _, err := src.Seek(seg.DataOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek metadata segment: %w", err)
		}
		if _, err := io.ReadFull(src, raw); err != nil {
			return nil, fmt.Errorf("%w: metadata segment truncated: %s", errs.ErrMalformedHeader, err)
		}

		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(raw); err != nil {
			return nil, fmt.Errorf("%w: metadata segment: %s", errs.ErrMalformedHeader, err)
		}
		if root := doc.Root(); root == nil || !isStandardNamespace(root.NamespaceURI()) {
			// not ours (e.g. a SIDD product in a mixed file); keep looking
			continue
		}

		meta, err := NewMetadata(doc)
		if err != nil {
			return nil, err
		}

		declared := seg.UserHeader.Str("DESSHTN")
		if declared != "" && declared != meta.Version().Namespace {
			Logger().Warn("DES subheader namespace disagrees with metadata root",
				zap.String("subheader", declared),
				zap.String("metadata", meta.Version().Namespace))
		}

		return meta, nil
	}

	return nil, fmt.Errorf("%w: no XML metadata segment", errs.ErrMalformedHeader)
}

// resolveImage checks the declared pixel structure against the metadata.
func (r *Reader) resolveImage() error {
	var err error
	if r.nrows, err = r.meta.NumRows(); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
	}
	if r.ncols, err = r.meta.NumCols(); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
	}
	if r.pixel, err = r.meta.PixelDtype(); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
	}

	var total int64
	for _, seg := range r.container.Images {
		total += seg.DataLength
	}
	want := r.nrows * r.ncols * int64(r.pixel.ItemSize())
	if total != want {
		return fmt.Errorf("%w: image segments hold %d bytes, metadata declares %d",
			errs.ErrMalformedHeader, total, want)
	}

	return nil
}

// Metadata returns the parsed metadata model. It remains valid after Close.
func (r *Reader) Metadata() *Metadata {
	return r.meta
}

// Container returns the parsed container structure (header and subheader
// fields, segment offsets). It remains valid after Close.
func (r *Reader) Container() *nitf.Nitf {
	return r.container
}

// ReadImage reads the full pixel array, assembling consecutive image
// segments in row order.
//
// Returns:
//   - *dtype.Array: Pixel array of shape [NumRows, NumCols], file byte order
//   - error: errs.ErrClosedSource after Close; an I/O error otherwise
func (r *Reader) ReadImage() (*dtype.Array, error) {
	if r.closed {
		return nil, fmt.Errorf("%w: payload access after Close", errs.ErrClosedSource)
	}

	buf := make([]byte, r.nrows*r.ncols*int64(r.pixel.ItemSize()))
	at := int64(0)
	for i, seg := range r.container.Images {
		if _, err := r.src.Seek(seg.DataOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek image segment %d: %w", i+1, err)
		}
		if _, err := io.ReadFull(r.src, buf[at:at+seg.DataLength]); err != nil {
			return nil, fmt.Errorf("read image segment %d: %w", i+1, err)
		}
		at += seg.DataLength
	}

	return dtype.FromBytes(r.pixel, buf, int(r.nrows), int(r.ncols))
}

// ReadSubImage is not supported; read the full image and slice in memory.
func (r *Reader) ReadSubImage(firstRow, firstCol, rows, cols int) (*dtype.Array, error) {
	return nil, fmt.Errorf("sub-image reads are not implemented")
}

// Close releases the underlying handle if the Reader owns it. Metadata
// accessors keep working; payload accessors fail afterwards. Close is
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
