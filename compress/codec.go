package compress

import (
	"fmt"
	"strings"
)

// Compressor provides compression for stored payload blocks.
//
// The interface is optimized for sario's payload segments where:
//   - Signal payloads: Large dense sample arrays, moderately compressible
//   - Support payloads: Small auxiliary arrays
//   - Payload sizes: Usually hundreds of KB to hundreds of MB per block
type Compressor interface {
	// Compress compresses the input data and returns the compressed result.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Compress(data []byte) ([]byte, error)
}

// Decompressor provides decompression for stored payload blocks.
//
// This interface mirrors the Compressor interface but focuses on the
// decompression operation. Separate interfaces allow for asymmetric
// implementations where compression and decompression have different
// performance characteristics or resource requirements.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original result.
	//
	// The input data should be previously compressed using the same
	// compression algorithm. The decompressor validates the data format and
	// returns an error if the data is corrupted or uses an incompatible
	// format.
	//
	// Memory management:
	//   - Returned slice is newly allocated and owned by the caller
	//   - Input slice is not modified
	//   - Internal buffers may be reused for efficiency
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
//
// This interface is useful for implementations that can handle both operations
// efficiently with shared internal state or optimizations.
type Codec interface {
	Compressor
	Decompressor
}

// Compression identifiers as they appear in a container's metadata
// (e.g. the CPHD Data/SignalCompressionID leaf).
const (
	IdentifierNone = "NONE"
	IdentifierZstd = "ZSTD"
	IdentifierS2   = "S2"
	IdentifierLZ4  = "LZ4"
)

var builtinCodecs = map[string]Codec{
	IdentifierNone: NewNoOpCompressor(),
	IdentifierZstd: NewZstdCompressor(),
	IdentifierS2:   NewS2Compressor(),
	IdentifierLZ4:  NewLZ4Compressor(),
}

// Lookup retrieves a built-in Codec for the given compression identifier.
//
// Identifiers are matched case-insensitively; an empty identifier maps to
// the no-op codec.
//
// Returns:
//   - Codec: Codec instance for the identifier
//   - error: Unknown identifier error
func Lookup(identifier string) (Codec, error) {
	if identifier == "" {
		return builtinCodecs[IdentifierNone], nil
	}

	if codec, ok := builtinCodecs[strings.ToUpper(identifier)]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression identifier: %s", identifier)
}

// Supported reports whether a built-in Codec exists for the identifier.
func Supported(identifier string) bool {
	_, err := Lookup(identifier)
	return err == nil
}
