package cphd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/arloliu/sario/errs"
)

// sectionTerminator ends the text header and the XML block.
const sectionTerminator = "\f\n"

// Header keys defined by the standard; everything else in the header is an
// additional key-value pair carried verbatim.
var definedHeaderKeys = map[string]struct{}{
	"XML_BLOCK_SIZE":            {},
	"XML_BLOCK_BYTE_OFFSET":     {},
	"SUPPORT_BLOCK_SIZE":        {},
	"SUPPORT_BLOCK_BYTE_OFFSET": {},
	"PVP_BLOCK_SIZE":            {},
	"PVP_BLOCK_BYTE_OFFSET":     {},
	"SIGNAL_BLOCK_SIZE":         {},
	"SIGNAL_BLOCK_BYTE_OFFSET":  {},
	"CLASSIFICATION":            {},
	"RELEASE_INFO":              {},
}

// Digest keys written by this library when digest writing is enabled.
const (
	keyXMLDigest     = "XML_BLOCK_DIGEST"
	keySupportDigest = "SUPPORT_BLOCK_DIGEST"
	keyPVPDigest     = "PVP_BLOCK_DIGEST"
	keySignalDigest  = "SIGNAL_BLOCK_DIGEST"
)

func isDigestKey(key string) bool {
	switch key {
	case keyXMLDigest, keySupportDigest, keyPVPDigest, keySignalDigest:
		return true
	}

	return false
}

// kvp is one header line in file order.
type kvp struct {
	key string
	val string
}

// fileHeader is the decoded text header: the version token from the file
// type line plus the ordered key-value lines.
type fileHeader struct {
	version string
	kvps    []kvp
}

func (h *fileHeader) get(key string) (string, bool) {
	for _, p := range h.kvps {
		if p.key == key {
			return p.val, true
		}
	}

	return "", false
}

func (h *fileHeader) set(key, val string) {
	for i, p := range h.kvps {
		if p.key == key {
			h.kvps[i].val = val
			return
		}
	}
	h.kvps = append(h.kvps, kvp{key: key, val: val})
}

func (h *fileHeader) getInt(key string) (int64, error) {
	val, ok := h.get(key)
	if !ok {
		return 0, fmt.Errorf("%w: missing header key %s", errs.ErrMalformedHeader, key)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: header key %s: %s", errs.ErrMalformedHeader, key, err)
	}

	return n, nil
}

// additional returns the key-value pairs outside the defined and digest key
// sets, sorted by key.
func (h *fileHeader) additional() map[string]string {
	out := make(map[string]string)
	for _, p := range h.kvps {
		if _, defined := definedHeaderKeys[p.key]; defined || isDigestKey(p.key) {
			continue
		}
		out[p.key] = p.val
	}

	return out
}

// serialize renders the header text: the file type line followed by one
// "KEY := VALUE" line per pair. The section terminator is not included.
func (h *fileHeader) serialize() []byte {
	var sb strings.Builder
	sb.WriteString("CPHD/")
	sb.WriteString(h.version)
	sb.WriteByte('\n')
	for _, p := range h.kvps {
		sb.WriteString(p.key)
		sb.WriteString(" := ")
		sb.WriteString(p.val)
		sb.WriteByte('\n')
	}

	return []byte(sb.String())
}

// readFileHeader decodes the text header from the start of src. It consumes
// exactly the header and its terminator.
//
// Returns:
//   - *fileHeader: Decoded version token and ordered key-value lines
//   - error: errs.ErrMalformedHeader for a bad file type line, a malformed
//     key-value line, or a missing terminator
func readFileHeader(src io.Reader) (*fileHeader, error) {
	// buffered over-read is harmless: all later access seeks to absolute
	// offsets taken from the decoded header
	br := bufio.NewReader(src)

	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("%w: file type line: %s", errs.ErrMalformedHeader, err)
	}
	version, ok := strings.CutPrefix(line, "CPHD/")
	if !ok || version == "" {
		return nil, fmt.Errorf("%w: unexpected file type line %q", errs.ErrMalformedHeader, line)
	}

	hdr := &fileHeader{version: version}
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("%w: header truncated before terminator: %s", errs.ErrMalformedHeader, err)
		}
		if line == "\f" {
			return hdr, nil
		}
		key, val, found := strings.Cut(line, " := ")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: malformed header line %q", errs.ErrMalformedHeader, line)
		}
		hdr.kvps = append(hdr.kvps, kvp{key: key, val: val})
	}
}

// readLine reads up to and including the next newline, returning the line
// without it.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSuffix(line, "\n"), nil
}

// sortedKeys returns map keys in ascending order for deterministic header
// serialization.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
