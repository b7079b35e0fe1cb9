package compress

// ZstdCompressor provides Zstandard compression for stored payload blocks.
//
// This compressor is designed for scenarios where compression ratio is more
// important than compression speed, making it ideal for archived phase
// history collections and network transfer of large signal blocks.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
