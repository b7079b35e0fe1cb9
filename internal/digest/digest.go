// Package digest computes xxHash64 content digests for payload blocks.
//
// Digests are carried as optional header key-value pairs (e.g. the
// PVP_BLOCK_DIGEST key written by the CPHD writer) and verified on read.
// The textual form is "xxh64:" followed by 16 lowercase hex digits.
package digest

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Prefix identifies the digest algorithm in the textual form.
const Prefix = "xxh64:"

// Sum returns the textual xxHash64 digest of data.
func Sum(data []byte) string {
	return fmt.Sprintf("%s%016x", Prefix, xxhash.Sum64(data))
}

// Digest accumulates payload bytes incrementally. The zero value is not
// usable; construct with New.
type Digest struct {
	h *xxhash.Digest
}

// New creates an empty Digest.
func New() *Digest {
	return &Digest{h: xxhash.New()}
}

// Write adds data to the running digest. It never fails.
func (d *Digest) Write(data []byte) (int, error) {
	return d.h.Write(data)
}

// Sum returns the textual digest of the bytes written so far.
func (d *Digest) Sum() string {
	return fmt.Sprintf("%s%016x", Prefix, d.h.Sum64())
}

// Reset restores the Digest to its initial state.
func (d *Digest) Reset() {
	d.h.Reset()
}

// Verify reports whether the textual digest matches data.
// Unknown algorithm prefixes never match.
func Verify(textual string, data []byte) bool {
	if !strings.HasPrefix(textual, Prefix) {
		return false
	}

	return textual == Sum(data)
}
