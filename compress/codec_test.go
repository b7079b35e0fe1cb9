package compress

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// signalLike builds a payload resembling a big-endian complex sample block.
func signalLike(n int) []byte {
	buf := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		re := math.Float32bits(float32(i) * 0.25)
		im := math.Float32bits(float32(i) * -0.5)
		buf = append(buf,
			byte(re>>24), byte(re>>16), byte(re>>8), byte(re),
			byte(im>>24), byte(im>>16), byte(im>>8), byte(im),
		)
	}

	return buf
}

func TestLookup(t *testing.T) {
	tests := []struct {
		identifier string
		wantErr    bool
	}{
		{identifier: "NONE"},
		{identifier: "ZSTD"},
		{identifier: "S2"},
		{identifier: "LZ4"},
		{identifier: "zstd"}, // case-insensitive
		{identifier: ""},     // empty maps to NONE
		{identifier: "HUFFMAN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("identifier="+tt.identifier, func(t *testing.T) {
			codec, err := Lookup(tt.identifier)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, codec)
				require.False(t, Supported(tt.identifier))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, codec)
			require.True(t, Supported(tt.identifier))
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	payloads := map[string][]byte{
		"empty":      {},
		"tiny":       []byte("ab"),
		"signal-1k":  signalLike(128),
		"signal-64k": signalLike(8192),
		"repetitive": bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 4096),
	}

	for _, identifier := range []string{IdentifierNone, IdentifierZstd, IdentifierS2, IdentifierLZ4} {
		codec, err := Lookup(identifier)
		require.NoError(t, err)

		for name, payload := range payloads {
			t.Run(identifier+"/"+name, func(t *testing.T) {
				compressed, err := codec.Compress(payload)
				require.NoError(t, err)

				decompressed, err := codec.Decompress(compressed)
				require.NoError(t, err)

				if len(payload) == 0 {
					require.Empty(t, decompressed)
					return
				}
				require.Equal(t, payload, decompressed)
			})
		}
	}
}

func TestCodecCompressesRepetitiveData(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 16384)

	for _, identifier := range []string{IdentifierZstd, IdentifierS2, IdentifierLZ4} {
		t.Run(identifier, func(t *testing.T) {
			codec, err := Lookup(identifier)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			require.Less(t, len(compressed), len(payload), "repetitive payload should shrink")
		})
	}
}

func TestNoOpPassThrough(t *testing.T) {
	codec := NewNoOpCompressor()
	payload := signalLike(64)

	compressed, err := codec.Compress(payload)
	require.NoError(t, err)
	require.Equal(t, payload, compressed)

	decompressed, err := codec.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, decompressed)
}

func TestZstdRejectsCorruptedData(t *testing.T) {
	codec := NewZstdCompressor()

	_, err := codec.Decompress([]byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})
	require.Error(t, err)
}
