// Package sario reads and writes segmented remote-sensing imagery
// containers: complex image products carried in NITF 2.1 files and phase
// history products carried in CPHD files.
//
// The format-specific packages do the work: sicd plans, writes, and lazily
// reads NITF-framed image products; cphd does the same for text-header
// framed phase history products. Shared machinery lives in nitf (header
// field codec), transcode (XML metadata transcoding), dtype (binary format
// strings and typed arrays), layout (byte-level container plans), and
// compress (payload codecs).
//
// This package holds what the formats share at the surface: detecting which
// container a byte stream holds.
package sario

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/sario/errs"
)

// Format identifies a supported container format.
type Format int

const (
	FormatUnknown Format = iota
	// FormatNITF is a NITF 2.1 container, handled by the sicd package.
	FormatNITF
	// FormatCPHD is a text-header CPHD container, handled by the cphd
	// package.
	FormatCPHD
)

func (f Format) String() string {
	switch f {
	case FormatNITF:
		return "NITF"
	case FormatCPHD:
		return "CPHD"
	default:
		return "Unknown"
	}
}

// nitfMagic is the file header profile and version token at offset 0.
const nitfMagic = "NITF02.10"

// cphdMagic is the leading token of the file type line.
const cphdMagic = "CPHD/"

// Detect sniffs the container format from the leading file bytes.
//
// Returns:
//   - Format: Detected container format
//   - error: errs.ErrMalformedHeader if the leading bytes match no supported
//     format; a read error otherwise
func Detect(r io.ReaderAt) (Format, error) {
	buf := make([]byte, len(nitfMagic))
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return FormatUnknown, fmt.Errorf("read file magic: %w", err)
	}
	buf = buf[:n]

	switch {
	case bytes.HasPrefix(buf, []byte(nitfMagic)):
		return FormatNITF, nil
	case bytes.HasPrefix(buf, []byte(cphdMagic)):
		return FormatCPHD, nil
	}

	return FormatUnknown, fmt.Errorf("%w: unrecognized container format", errs.ErrMalformedHeader)
}
