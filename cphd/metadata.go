package cphd

import (
	"fmt"
	"sort"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/transcode"
)

// HeaderFields carries the text header values set per product design
// document rather than derived from the XML.
type HeaderFields struct {
	Classification string
	ReleaseInfo    string
	// AdditionalKVPs are carried in the header verbatim, serialized in
	// ascending key order.
	AdditionalKVPs map[string]string
}

// Channel is the byte-level description of one data channel from the XML
// Data branch. Offsets are relative to the owning block.
type Channel struct {
	Identifier            string
	NumVectors            int64
	NumSamples            int64
	SignalArrayByteOffset int64
	PVPArrayByteOffset    int64
	// CompressedSignalSize is set when the signal block is compressed.
	CompressedSignalSize int64
}

// SupportArray is the byte-level description of one support array from the
// XML Data branch.
type SupportArray struct {
	Identifier      string
	NumRows         int64
	NumCols         int64
	BytesPerElement int64
	ArrayByteOffset int64
}

// Metadata is the complete description of one product: the XML instance plus
// the text header values. Treat it as immutable once handed to a Writer; the
// writer snapshots the serialized XML and the layout at construction.
type Metadata struct {
	// XML is the metadata instance. Owned by the Metadata.
	XML *etree.Document

	Header HeaderFields

	version  Version
	registry *transcode.Registry
}

// NewMetadata wraps a parsed XML instance. The document root must belong to
// the standard's namespace family; an unsupported version is accepted with a
// warning and treated as the latest supported version.
//
// Returns:
//   - *Metadata: Wrapped model
//   - error: errs.ErrMalformedHeader if the document has no root or a foreign
//     namespace
func NewMetadata(doc *etree.Document) (*Metadata, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: metadata document has no root element", errs.ErrMalformedHeader)
	}
	ns := root.NamespaceURI()
	if !isStandardNamespace(ns) {
		return nil, fmt.Errorf("%w: unexpected metadata namespace %q", errs.ErrMalformedHeader, ns)
	}

	version, ok := VersionByNamespace(ns)
	if !ok {
		Logger().Warn("unsupported metadata version, treating as latest",
			zap.String("namespace", ns),
			zap.String("latest", LatestVersion().Version))
		version = LatestVersion()
		version.Namespace = ns
	}

	return &Metadata{XML: doc, version: version, registry: defaultRegistry()}, nil
}

// Version returns the standard version resolved from the XML namespace.
func (m *Metadata) Version() Version {
	return m.version
}

// Registry returns the transcoder registry used for typed loads against the
// metadata tree.
func (m *Metadata) Registry() *transcode.Registry {
	return m.registry
}

// Load decodes the value at an element path of the metadata tree.
func (m *Metadata) Load(path string) (any, error) {
	return m.registry.Load(m.XML.Root(), path)
}

// Set encodes a value at an element path of the metadata tree, creating
// missing elements.
func (m *Metadata) Set(path string, v any) error {
	return m.registry.Set(m.XML.Root(), path, v)
}

// child returns the first child element with the given local name.
func child(elem *etree.Element, name string) *etree.Element {
	for _, c := range elem.ChildElements() {
		if c.Tag == name {
			return c
		}
	}

	return nil
}

func childText(elem *etree.Element, name string) (string, error) {
	c := child(elem, name)
	if c == nil {
		return "", fmt.Errorf("%w: %s has no %s child", errs.ErrMalformedHeader, elem.Tag, name)
	}

	return c.Text(), nil
}

func childInt(elem *etree.Element, name string) (int64, error) {
	c := child(elem, name)
	if c == nil {
		return 0, fmt.Errorf("%w: %s has no %s child", errs.ErrMalformedHeader, elem.Tag, name)
	}
	v, err := transcode.IntType{}.DecodeElem(c)
	if err != nil {
		return 0, fmt.Errorf("%w: %s/%s: %s", errs.ErrMalformedHeader, elem.Tag, name, err)
	}

	return v.(int64), nil
}

// dataElem returns the Data branch of the metadata tree.
func (m *Metadata) dataElem() (*etree.Element, error) {
	data := child(m.XML.Root(), "Data")
	if data == nil {
		return nil, fmt.Errorf("%w: metadata has no Data branch", errs.ErrMalformedHeader)
	}

	return data, nil
}

// SignalDtype returns the element type declared by Data/SignalArrayFormat.
func (m *Metadata) SignalDtype() (dtype.Dtype, error) {
	data, err := m.dataElem()
	if err != nil {
		return dtype.Dtype{}, err
	}
	format, err := childText(data, "SignalArrayFormat")
	if err != nil {
		return dtype.Dtype{}, err
	}
	dt, err := dtype.Parse(format)
	if err != nil {
		return dtype.Dtype{}, fmt.Errorf("%w: Data/SignalArrayFormat: %s", errs.ErrMalformedHeader, err)
	}

	return dt, nil
}

// NumBytesPVP returns the per-vector record width declared by
// Data/NumBytesPVP.
func (m *Metadata) NumBytesPVP() (int64, error) {
	data, err := m.dataElem()
	if err != nil {
		return 0, err
	}

	return childInt(data, "NumBytesPVP")
}

// SignalCompressionID returns the Data/SignalCompressionID codec identifier,
// or an empty string for uncompressed signal blocks.
func (m *Metadata) SignalCompressionID() string {
	data := child(m.XML.Root(), "Data")
	if data == nil {
		return ""
	}
	c := child(data, "SignalCompressionID")
	if c == nil {
		return ""
	}

	return c.Text()
}

// Channels returns the per-channel byte descriptions from the Data branch in
// document order.
func (m *Metadata) Channels() ([]Channel, error) {
	data, err := m.dataElem()
	if err != nil {
		return nil, err
	}

	compressed := m.SignalCompressionID() != ""

	var out []Channel
	for _, elem := range data.ChildElements() {
		if elem.Tag != "Channel" {
			continue
		}
		ch := Channel{}
		if ch.Identifier, err = childText(elem, "Identifier"); err != nil {
			return nil, err
		}
		if ch.NumVectors, err = childInt(elem, "NumVectors"); err != nil {
			return nil, err
		}
		if ch.NumSamples, err = childInt(elem, "NumSamples"); err != nil {
			return nil, err
		}
		if ch.SignalArrayByteOffset, err = childInt(elem, "SignalArrayByteOffset"); err != nil {
			return nil, err
		}
		if ch.PVPArrayByteOffset, err = childInt(elem, "PVPArrayByteOffset"); err != nil {
			return nil, err
		}
		if compressed {
			if ch.CompressedSignalSize, err = childInt(elem, "CompressedSignalSize"); err != nil {
				return nil, err
			}
		}
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: Data branch declares no channels", errs.ErrMalformedHeader)
	}

	return out, nil
}

// Channel returns the byte description of one channel by identifier.
//
// Returns:
//   - Channel: Matching channel description
//   - error: errs.ErrOutOfRange for an unknown identifier
func (m *Metadata) Channel(identifier string) (Channel, error) {
	channels, err := m.Channels()
	if err != nil {
		return Channel{}, err
	}
	for _, ch := range channels {
		if ch.Identifier == identifier {
			return ch, nil
		}
	}

	return Channel{}, fmt.Errorf("%w: unknown channel %q", errs.ErrOutOfRange, identifier)
}

// SupportArrays returns the support array byte descriptions from the Data
// branch in document order. Products without support arrays return an empty
// slice.
func (m *Metadata) SupportArrays() ([]SupportArray, error) {
	data, err := m.dataElem()
	if err != nil {
		return nil, err
	}

	var out []SupportArray
	for _, elem := range data.ChildElements() {
		if elem.Tag != "SupportArray" {
			continue
		}
		sa := SupportArray{}
		if sa.Identifier, err = childText(elem, "Identifier"); err != nil {
			return nil, err
		}
		if sa.NumRows, err = childInt(elem, "NumRows"); err != nil {
			return nil, err
		}
		if sa.NumCols, err = childInt(elem, "NumCols"); err != nil {
			return nil, err
		}
		if sa.BytesPerElement, err = childInt(elem, "BytesPerElement"); err != nil {
			return nil, err
		}
		if sa.ArrayByteOffset, err = childInt(elem, "ArrayByteOffset"); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}

	return out, nil
}

// SupportArray returns the byte description of one support array by
// identifier.
//
// Returns:
//   - SupportArray: Matching description
//   - error: errs.ErrOutOfRange for an unknown identifier
func (m *Metadata) SupportArray(identifier string) (SupportArray, error) {
	arrays, err := m.SupportArrays()
	if err != nil {
		return SupportArray{}, err
	}
	for _, sa := range arrays {
		if sa.Identifier == identifier {
			return sa, nil
		}
	}

	return SupportArray{}, fmt.Errorf("%w: unknown support array %q", errs.ErrOutOfRange, identifier)
}

// SupportArrayDtype returns the element type declared by the support array's
// ElementFormat leaf under the SupportArray branch.
func (m *Metadata) SupportArrayDtype(identifier string) (dtype.Dtype, error) {
	branch := child(m.XML.Root(), "SupportArray")
	if branch == nil {
		return dtype.Dtype{}, fmt.Errorf("%w: metadata has no SupportArray branch", errs.ErrMalformedHeader)
	}
	for _, elem := range branch.ChildElements() {
		id := child(elem, "Identifier")
		if id == nil || id.Text() != identifier {
			continue
		}
		format, err := childText(elem, "ElementFormat")
		if err != nil {
			return dtype.Dtype{}, err
		}
		dt, err := dtype.Parse(format)
		if err != nil {
			return dtype.Dtype{}, fmt.Errorf("%w: support array %s ElementFormat: %s",
				errs.ErrMalformedHeader, identifier, err)
		}

		return dt, nil
	}

	return dtype.Dtype{}, fmt.Errorf("%w: unknown support array %q", errs.ErrOutOfRange, identifier)
}

// pvpWordSize is the PVP offset/size unit in bytes.
const pvpWordSize = 8

// PVPFields returns the per-vector parameter fields declared by the PVP
// branch, including antenna subgroups and AddedPVP fields. Standard fields
// are named by their element tag.
func (m *Metadata) PVPFields() ([]PVP, error) {
	branch := child(m.XML.Root(), "PVP")
	if branch == nil {
		return nil, fmt.Errorf("%w: metadata has no PVP branch", errs.ErrMalformedHeader)
	}

	var out []PVP
	decode := func(elem *etree.Element, added bool) error {
		v, err := PVPType{Added: added}.DecodeElem(elem)
		if err != nil {
			return fmt.Errorf("%w: PVP/%s: %s", errs.ErrMalformedHeader, elem.Tag, err)
		}
		field := v.(PVP)
		if !added {
			field.Name = elem.Tag
		}
		if int64(field.Format.ItemSize()) != field.Size*pvpWordSize {
			return fmt.Errorf("%w: PVP field %s: format %s does not fill %d words",
				errs.ErrMalformedHeader, field.Name, field.Format, field.Size)
		}
		out = append(out, field)

		return nil
	}

	for _, elem := range branch.ChildElements() {
		switch elem.Tag {
		case "TxAntenna", "RcvAntenna":
			for _, sub := range elem.ChildElements() {
				if err := decode(sub, false); err != nil {
					return nil, err
				}
			}
		case "AddedPVP":
			if err := decode(elem, true); err != nil {
				return nil, err
			}
		default:
			if err := decode(elem, false); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: PVP branch declares no fields", errs.ErrMalformedHeader)
	}

	return out, nil
}

// PVPDtype assembles the per-vector record type from the PVP branch.
//
// Fields are laid out by their declared word offsets; gaps between fields
// become unnamed padding. Record-formatted fields (e.g. "X=F8;Y=F8;Z=F8;")
// are flattened into the vector record as "<field>.<component>" since the
// record layout is a single level.
//
// Returns:
//   - dtype.Dtype: Record of width Data/NumBytesPVP
//   - error: errs.ErrMalformedHeader for overlapping fields or fields
//     extending past the declared record width
func (m *Metadata) PVPDtype() (dtype.Dtype, error) {
	fields, err := m.PVPFields()
	if err != nil {
		return dtype.Dtype{}, err
	}
	numBytes, err := m.NumBytesPVP()
	if err != nil {
		return dtype.Dtype{}, err
	}

	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })

	var recFields []dtype.Field
	pads := 0
	cursor := int64(0)
	for _, f := range fields {
		at := f.Offset * pvpWordSize
		if at < cursor {
			return dtype.Dtype{}, fmt.Errorf("%w: PVP field %s at word %d overlaps the previous field",
				errs.ErrMalformedHeader, f.Name, f.Offset)
		}
		if at > cursor {
			recFields = append(recFields, dtype.Field{
				Name: fmt.Sprintf("_pad%d", pads),
				Type: dtype.Bytes(int(at - cursor)),
			})
			pads++
		}
		if f.Format.Kind == dtype.KindRecord {
			for _, sub := range f.Format.Fields {
				recFields = append(recFields, dtype.Field{
					Name: f.Name + "." + sub.Name,
					Type: sub.Type,
				})
			}
		} else {
			recFields = append(recFields, dtype.Field{Name: f.Name, Type: f.Format})
		}
		cursor = at + f.Size*pvpWordSize
	}
	if cursor > numBytes {
		return dtype.Dtype{}, fmt.Errorf("%w: PVP fields end at byte %d, Data/NumBytesPVP is %d",
			errs.ErrMalformedHeader, cursor, numBytes)
	}
	if cursor < numBytes {
		recFields = append(recFields, dtype.Field{
			Name: fmt.Sprintf("_pad%d", pads),
			Type: dtype.Bytes(int(numBytes - cursor)),
		})
	}

	return dtype.Record(recFields...), nil
}
