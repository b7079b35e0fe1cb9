// Package compress provides compression and decompression codecs for stored
// payload blocks.
//
// Containers that carry compressed signal blocks name the algorithm in their
// metadata (e.g. the CPHD Data/SignalCompressionID leaf); Lookup maps that
// identifier to a Codec. Four codecs are built in:
//
//   - NONE: pass-through, the default for uncompressed blocks
//   - ZSTD: Zstandard, best ratio, pure-Go by default with an optional
//     cgo implementation behind the "gozstd" build tag
//   - S2: Snappy-compatible, fastest
//   - LZ4: block-format LZ4, balanced speed and ratio
//
// All codecs are safe for concurrent use.
package compress
