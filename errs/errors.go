// Package errs defines the sentinel errors shared across the sario packages.
//
// Call sites wrap these sentinels with fmt.Errorf("%w: ...") to attach the
// field name, segment identifier, element path, or expected/actual values
// that make the error actionable. Callers match with errors.Is.
package errs

import "errors"

var (
	// ErrMalformedHeader indicates a fixed or variable header field whose raw
	// bytes violate the field's declared character class or structure.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrFieldOverflow indicates a header field value whose natural
	// representation is wider than the field's declared width.
	ErrFieldOverflow = errors.New("header field overflow")

	// ErrLayout indicates an invalid shape/dtype pair or a computed total
	// length that exceeds the format's addressable offset width.
	ErrLayout = errors.New("invalid layout")

	// ErrNotTranscodable indicates a load or set against an element path with
	// no registered transcoder. This is an expected outcome when probing
	// interior or grouping elements, not a corruption signal.
	ErrNotTranscodable = errors.New("not transcodable")

	// ErrPayloadMismatch indicates a dtype or shape mismatch on a payload
	// read or write.
	ErrPayloadMismatch = errors.New("payload mismatch")

	// ErrIncompleteWrite indicates a writer finalized with at least one
	// required payload segment never written.
	ErrIncompleteWrite = errors.New("incomplete write")

	// ErrClosedSource indicates an operation that requires byte access after
	// the underlying byte source was released.
	ErrClosedSource = errors.New("closed byte source")

	// ErrOutOfRange indicates a request for an unknown segment, channel, or
	// support array identifier.
	ErrOutOfRange = errors.New("out of range")
)
