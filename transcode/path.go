package transcode

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Wildcard is the namespace token that matches any namespace URI.
//
// Different versions of a standard use different namespace URIs for
// structurally identical elements, so registration patterns are usually
// namespace-agnostic.
const Wildcard = "*"

// Seg is one step of an element path: a namespace URI (or Wildcard) and a
// local element name.
type Seg struct {
	Space string
	Name  string
}

// Path is a typed element path relative to (and excluding) the document root.
type Path []Seg

// ParsePath converts a textual path to a typed Path.
//
// Each slash-separated step is either a bare local name ("NumRows", matching
// any namespace), a wildcard-qualified name ("{*}NumRows", same), or a
// namespace-qualified name ("{urn:SICD:1.4.0}NumRows").
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty element path")
	}

	steps := strings.Split(s, "/")
	path := make(Path, 0, len(steps))
	for _, step := range steps {
		seg := Seg{Space: Wildcard, Name: step}
		if strings.HasPrefix(step, "{") {
			uri, name, found := strings.Cut(step[1:], "}")
			if !found || name == "" {
				return nil, fmt.Errorf("invalid path step %q in %q", step, s)
			}
			seg = Seg{Space: uri, Name: name}
			if uri == "" {
				seg.Space = Wildcard
			}
		}
		if seg.Name == "" || strings.ContainsAny(seg.Name, "{}") {
			return nil, fmt.Errorf("invalid path step %q in %q", step, s)
		}
		path = append(path, seg)
	}

	return path, nil
}

// String renders the path with namespace qualifiers on non-wildcard steps.
func (p Path) String() string {
	var sb strings.Builder
	for i, seg := range p {
		if i > 0 {
			sb.WriteByte('/')
		}
		if seg.Space != Wildcard {
			sb.WriteByte('{')
			sb.WriteString(seg.Space)
			sb.WriteByte('}')
		}
		sb.WriteString(seg.Name)
	}

	return sb.String()
}

// Matches reports whether the path, treated as a pattern, matches a concrete
// element path. Wildcard namespace steps match any namespace; names must
// match exactly.
func (p Path) Matches(concrete Path) bool {
	if len(p) != len(concrete) {
		return false
	}
	for i, seg := range p {
		if seg.Name != concrete[i].Name {
			return false
		}
		if seg.Space != Wildcard && seg.Space != concrete[i].Space {
			return false
		}
	}

	return true
}

// specificity counts the non-wildcard namespace steps; exact-namespace
// patterns outrank wildcard patterns at lookup.
func (p Path) specificity() int {
	n := 0
	for _, seg := range p {
		if seg.Space != Wildcard {
			n++
		}
	}

	return n
}

// ElementPath returns the concrete path of an element relative to its
// document root. The root element itself contributes no step.
func ElementPath(elem *etree.Element) Path {
	var rev []Seg
	for e := elem; e != nil && e.Tag != ""; e = e.Parent() {
		rev = append(rev, Seg{Space: e.NamespaceURI(), Name: e.Tag})
	}
	if len(rev) <= 1 {
		return nil
	}

	rev = rev[:len(rev)-1] // drop the document root
	path := make(Path, len(rev))
	for i, seg := range rev {
		path[len(rev)-1-i] = seg
	}

	return path
}
