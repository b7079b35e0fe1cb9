package compress

// NoOpCompressor passes payload blocks through unchanged. It backs the
// NONE identifier and the empty identifier, covering signal arrays stored
// uncompressed.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a pass-through compressor.
//
// Returns:
//   - NoOpCompressor: New pass-through compressor instance
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress returns the input data as-is.
//
// The returned slice shares the input's underlying memory; callers that
// keep the result must not modify the input afterwards.
//
// Parameters:
//   - data: Input data (returned as-is)
//
// Returns:
//   - []byte: Same slice as input data
//   - error: Always nil
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input data as-is.
//
// The returned slice shares the input's underlying memory; callers that
// keep the result must not modify the input afterwards.
//
// Parameters:
//   - data: Input data (returned as-is)
//
// Returns:
//   - []byte: Same slice as input data
//   - error: Always nil
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
