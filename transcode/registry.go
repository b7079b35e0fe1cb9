// Package transcode converts between XML metadata elements and strongly-typed
// in-memory values.
//
// A Transcoder is a pure, stateless mapping between one element subtree and
// one typed value. A Registry maps element path patterns (with wildcard
// namespace support) to Transcoders and performs load/set operations against
// a parsed metadata tree. Registries are explicit instances constructed per
// standard version; nothing is registered at package load time, so tests and
// concurrent standard versions stay isolated.
//
// Round-trip fidelity is the contract: for every transcoder,
// DecodeElem(EncodeElem(v)) == v — exactly for integers, strings, booleans
// and byte strings; at shortest-round-trip float64 text precision for
// floating values; at microsecond precision for date-times.
package transcode

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/arloliu/sario/errs"
)

// Transcoder is a bidirectional converter between a typed value and an XML
// element subtree. Implementations are pure functions of the element's text,
// attributes, and children; they retain no references across calls.
type Transcoder interface {
	// DecodeElem returns the typed value encoded in elem.
	DecodeElem(elem *etree.Element) (any, error)

	// EncodeElem replaces elem's content (text, attributes, children) with
	// the encoding of v. The element's own tag and namespace are preserved.
	EncodeElem(elem *etree.Element, v any) error
}

// ChildRegistrar is implemented by composite transcoders whose sub-elements
// are themselves transcodable (e.g. the Coef children of a polynomial).
// Registering such a transcoder also registers its children recursively,
// under wildcard-namespace patterns derived from the parent's.
type ChildRegistrar interface {
	ChildTranscoders() map[string]Transcoder
}

type registryEntry struct {
	pattern Path
	tc      Transcoder
}

// Registry maps element path patterns to Transcoders.
//
// The zero value is not usable; construct with NewRegistry. A Registry is
// safe for concurrent lookups after registration is complete.
type Registry struct {
	entries  []registryEntry
	collapse map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{collapse: make(map[string]struct{})}
}

// Register binds a transcoder to an element path pattern.
//
// If the transcoder's sub-elements are transcodable (polynomial coefficients,
// matrix entries, list items, sequence members), they are registered
// recursively under derived patterns.
//
// Returns:
//   - error: Invalid pattern, or a pattern registered twice
func (r *Registry) Register(pattern string, tc Transcoder) error {
	path, err := ParsePath(pattern)
	if err != nil {
		return err
	}

	return r.register(path, tc)
}

func (r *Registry) register(path Path, tc Transcoder) error {
	for _, entry := range r.entries {
		if len(entry.pattern) == len(path) && entry.pattern.String() == path.String() {
			return fmt.Errorf("pattern %s registered twice", path)
		}
	}
	r.entries = append(r.entries, registryEntry{pattern: path, tc: tc})

	if cr, ok := tc.(ChildRegistrar); ok {
		for name, sub := range cr.ChildTranscoders() {
			child := append(append(Path{}, path...), Seg{Space: Wildcard, Name: name})
			if err := r.register(child, sub); err != nil {
				return err
			}
		}
	}

	return nil
}

// CollapseRepeats marks an element name whose consecutive repeats collapse to
// a single step before lookup, so recursively nested grouping elements (such
// as SICD's GeoInfo) resolve to their single-level registered patterns.
func (r *Registry) CollapseRepeats(name string) {
	r.collapse[name] = struct{}{}
}

func (r *Registry) normalize(path Path) Path {
	if len(r.collapse) == 0 {
		return path
	}

	out := make(Path, 0, len(path))
	for _, seg := range path {
		if len(out) > 0 {
			last := out[len(out)-1]
			if _, ok := r.collapse[seg.Name]; ok && last.Name == seg.Name {
				out[len(out)-1] = seg
				continue
			}
		}
		out = append(out, seg)
	}

	return out
}

// lookup returns the registered transcoder for a concrete path, preferring
// exact-namespace patterns over wildcard patterns.
func (r *Registry) lookup(path Path) Transcoder {
	path = r.normalize(path)

	var best Transcoder
	bestScore := -1
	for _, entry := range r.entries {
		if entry.pattern.Matches(path) {
			if score := entry.pattern.specificity(); score > bestScore {
				best, bestScore = entry.tc, score
			}
		}
	}

	return best
}

// Transcodable reports whether a transcoder is registered for the path.
func (r *Registry) Transcodable(path string) bool {
	p, err := ParsePath(path)
	if err != nil {
		return false
	}

	return r.lookup(p) != nil
}

// Load navigates from root along path and decodes the target element.
//
// Returns:
//   - any: Decoded value
//   - error: errs.ErrNotTranscodable if no transcoder is registered for the
//     path (expected for interior/grouping elements); a navigation error if
//     the element does not exist; a decode error otherwise
func (r *Registry) Load(root *etree.Element, path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	tc := r.lookup(p)
	if tc == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotTranscodable, p)
	}

	elem, err := navigate(root, p)
	if err != nil {
		return nil, err
	}

	return tc.DecodeElem(elem)
}

// Set navigates from root along path, creating missing elements in the
// parent's namespace, and encodes v into the target element.
//
// Returns:
//   - error: errs.ErrNotTranscodable if no transcoder is registered for the
//     path; an encode error otherwise
func (r *Registry) Set(root *etree.Element, path string, v any) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}

	tc := r.lookup(p)
	if tc == nil {
		return fmt.Errorf("%w: %s", errs.ErrNotTranscodable, p)
	}

	elem := root
	for _, seg := range p {
		child := findChild(elem, seg)
		if child == nil {
			child = createChild(elem, seg.Name)
		}
		elem = child
	}

	return tc.EncodeElem(elem, v)
}

// LoadElem decodes an element already located by the caller, resolving the
// transcoder from the element's own path within its document.
func (r *Registry) LoadElem(elem *etree.Element) (any, error) {
	path := ElementPath(elem)
	tc := r.lookup(path)
	if tc == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrNotTranscodable, path)
	}

	return tc.DecodeElem(elem)
}

// SetElem encodes v into an element already located by the caller, resolving
// the transcoder from the element's own path within its document.
func (r *Registry) SetElem(elem *etree.Element, v any) error {
	path := ElementPath(elem)
	tc := r.lookup(path)
	if tc == nil {
		return fmt.Errorf("%w: %s", errs.ErrNotTranscodable, path)
	}

	return tc.EncodeElem(elem, v)
}

func navigate(root *etree.Element, p Path) (*etree.Element, error) {
	elem := root
	for i, seg := range p {
		child := findChild(elem, seg)
		if child == nil {
			return nil, fmt.Errorf("element %s not found under %s", seg.Name, Path(p[:i]))
		}
		elem = child
	}

	return elem, nil
}

func findChild(elem *etree.Element, seg Seg) *etree.Element {
	for _, child := range elem.ChildElements() {
		if child.Tag != seg.Name {
			continue
		}
		if seg.Space == Wildcard || child.NamespaceURI() == seg.Space {
			return child
		}
	}

	return nil
}

// createChild appends a child element inheriting the parent's namespace
// prefix, so elements created under a default-namespace root stay in that
// namespace.
func createChild(elem *etree.Element, name string) *etree.Element {
	if elem.Space != "" {
		return elem.CreateElement(elem.Space + ":" + name)
	}

	return elem.CreateElement(name)
}
