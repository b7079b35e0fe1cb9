package nitf

import (
	"fmt"
	"io"
	"strconv"

	"github.com/arloliu/sario/errs"
)

// Magic is the file signature of a supported container: FHDR and FVER
// concatenated at offset 0.
const Magic = "NITF02.10"

// maxFileLen is the largest file length representable in the 12-digit FL
// field.
const maxFileLen = 999_999_999_999

// ImageSegment is one image segment: its subheader fields and the location
// of its payload.
type ImageSegment struct {
	Subheader *Fields

	// DataLength is the payload byte count; set by the creator before
	// Finalize, or decoded from the file header on Load.
	DataLength int64

	SubheaderOffset int64
	DataOffset      int64
}

// DESegment is one data extension segment: subheader fields, the
// user-defined subheader, and the location of its payload.
type DESegment struct {
	Subheader *Fields

	// UserHeader holds the decoded user-defined subheader when the DESID is
	// recognized (XML_DATA_CONTENT); otherwise RawUserHeader holds the bytes.
	UserHeader    *Fields
	RawUserHeader []byte

	// DataLength is the payload byte count; set by the creator before
	// Finalize, or decoded from the file header on Load.
	DataLength int64

	SubheaderOffset int64
	DataOffset      int64
}

// Nitf is a parsed or under-construction container: the file header plus the
// image and data extension segments. Graphic, text, and reserved segments
// are skipped on load and never produced.
type Nitf struct {
	Header *Fields
	Images []*ImageSegment
	DES    []*DESegment

	finalized bool
}

// New creates an empty container with a default file header.
func New() *Nitf {
	return &Nitf{Header: NewFields(fileHeaderPrefix())}
}

// NewImageSubheader creates an image subheader table sized for the given
// band count, comment count, and corner coordinate presence.
func NewImageSubheader(bands, comments int, withGeo bool) *Fields {
	table := imageSubheaderPrefix()
	if withGeo {
		table = append(table, igeoloField())
	} else {
		table[len(table)-1].Default = " " // ICORDS
	}
	table = append(table, FieldSpec{Name: "NICOM", Width: 1, Class: ClassBCSN, Default: strconv.Itoa(comments)})
	for i := 1; i <= comments; i++ {
		table = append(table, icomField(i))
	}
	table = append(table,
		FieldSpec{Name: "IC", Width: 2, Class: ClassBCSA, Default: "NC"},
		FieldSpec{Name: "NBANDS", Width: 1, Class: ClassBCSN, Default: strconv.Itoa(bands)},
	)
	for i := 1; i <= bands; i++ {
		table = append(table, bandFields(i)...)
	}

	return NewFields(append(table, imageSubheaderSuffix()...))
}

// NewXMLDESegment creates a data extension segment carrying an
// XML_DATA_CONTENT user-defined subheader.
func NewXMLDESegment() *DESegment {
	table := append(desSubheaderPrefix(), desshlField())

	return &DESegment{
		Subheader:  NewFields(table),
		UserHeader: NewFields(XMLSubheaderFields()),
	}
}

// append extends f with another table's specs and current values.
func (f *Fields) append(g *Fields) {
	for i, spec := range g.specs {
		f.index[spec.Name] = len(f.specs)
		f.specs = append(f.specs, spec)
		f.vals = append(f.vals, g.vals[i])
	}
}

func tableWidth(table []FieldSpec) int {
	total := 0
	for _, spec := range table {
		total += spec.Width
	}

	return total
}

// decoder decodes successive field tables from one buffer, accumulating the
// results into a single Fields view.
type decoder struct {
	buf    []byte
	cursor int
	out    *Fields
}

func newDecoder(buf []byte) *decoder {
	return &decoder{buf: buf, out: NewFields(nil)}
}

func (d *decoder) decode(table []FieldSpec) error {
	f, n, err := DecodeFields(d.buf[d.cursor:], table)
	if err != nil {
		return err
	}
	d.cursor += n
	d.out.append(f)

	return nil
}

func (d *decoder) decodeInt(table []FieldSpec, name string) (int64, error) {
	if err := d.decode(table); err != nil {
		return 0, err
	}

	return d.out.Int(name)
}

// Load parses a container's file header and every image and DES subheader
// from r. No payload bytes are read; segment payload offsets and lengths are
// computed from the header so callers can read payloads on demand.
//
// Returns:
//   - *Nitf: Parsed container
//   - error: errs.ErrMalformedHeader for signature, charset, or structural
//     violations; an I/O error otherwise
func Load(r io.ReadSeeker) (*Nitf, error) {
	prefixTable := fileHeaderPrefix()
	buf := make([]byte, tableWidth(prefixTable))
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek file header: %w", err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: file header truncated: %s", errs.ErrMalformedHeader, err)
	}

	prefix, _, err := DecodeFields(buf, prefixTable)
	if err != nil {
		return nil, err
	}
	if prefix.Str("FHDR") != "NITF" || prefix.Str("FVER") != "02.10" {
		return nil, fmt.Errorf("%w: unsupported signature %q%q",
			errs.ErrMalformedHeader, prefix.Str("FHDR"), prefix.Str("FVER"))
	}

	hl, err := prefix.Int("HL")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
	}

	hdr := make([]byte, hl)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek file header: %w", err)
	}
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("%w: file header truncated: %s", errs.ErrMalformedHeader, err)
	}

	d := newDecoder(hdr)
	if err := d.decode(prefixTable); err != nil {
		return nil, err
	}

	numi, err := d.out.Int("NUMI")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
	}
	for i := 1; i <= int(numi); i++ {
		if err := d.decode(imageLengthFields(i)); err != nil {
			return nil, err
		}
	}

	for _, g := range lengthGroups {
		cnt, err := d.decodeInt([]FieldSpec{countField(g.count)}, g.count)
		if err != nil {
			return nil, err
		}
		if g.sub == "" {
			if cnt != 0 {
				return nil, fmt.Errorf("%w: reserved count %s is %d", errs.ErrMalformedHeader, g.count, cnt)
			}
			continue
		}
		for i := 1; i <= int(cnt); i++ {
			pair := []FieldSpec{
				{Name: numbered(g.sub, i), Width: g.subW, Class: ClassBCSN},
				{Name: numbered(g.data, i), Width: g.dataW, Class: ClassBCSN},
			}
			if err := d.decode(pair); err != nil {
				return nil, err
			}
		}
	}

	for _, ext := range [2][2]string{{"UDHDL", "UDHD"}, {"XHDL", "XHD"}} {
		l, err := d.decodeInt([]FieldSpec{{Name: ext[0], Width: 5, Class: ClassBCSN}}, ext[0])
		if err != nil {
			return nil, err
		}
		if l > 0 {
			if err := d.decode([]FieldSpec{{Name: ext[1], Width: int(l), Class: ClassBinary}}); err != nil {
				return nil, err
			}
		}
	}

	if int64(d.cursor) != hl {
		return nil, fmt.Errorf("%w: file header spans %d bytes, HL declares %d",
			errs.ErrMalformedHeader, d.cursor, hl)
	}

	n := &Nitf{Header: d.out, finalized: true}

	return n, n.loadSegments(r, hl)
}

// loadSegments parses each image and DES subheader at the offsets implied by
// the file header's segment length fields.
func (n *Nitf) loadSegments(r io.ReadSeeker, hl int64) error {
	offset := hl

	numi, _ := n.Header.Int("NUMI")
	for i := 1; i <= int(numi); i++ {
		lish, err := n.Header.Int(numbered("LISH", i))
		if err != nil {
			return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
		}
		li, err := n.Header.Int(numbered("LI", i))
		if err != nil {
			return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
		}

		sub, err := readSubheader(r, offset, lish, parseImageSubheader)
		if err != nil {
			return fmt.Errorf("image segment %d: %w", i, err)
		}
		n.Images = append(n.Images, &ImageSegment{
			Subheader:       sub,
			DataLength:      li,
			SubheaderOffset: offset,
			DataOffset:      offset + lish,
		})
		offset += lish + li
	}

	// graphic and text segments are skipped, not retained
	for _, g := range []struct{ count, sub, data string }{
		{"NUMS", "LSSH", "LS"}, {"NUMT", "LTSH", "LT"},
	} {
		cnt, _ := n.Header.Int(g.count)
		for i := 1; i <= int(cnt); i++ {
			lsh, _ := n.Header.Int(numbered(g.sub, i))
			l, _ := n.Header.Int(numbered(g.data, i))
			offset += lsh + l
		}
	}

	numdes, _ := n.Header.Int("NUMDES")
	for i := 1; i <= int(numdes); i++ {
		ldsh, err := n.Header.Int(numbered("LDSH", i))
		if err != nil {
			return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
		}
		ld, err := n.Header.Int(numbered("LD", i))
		if err != nil {
			return fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
		}

		seg, err := readDESubheader(r, offset, ldsh)
		if err != nil {
			return fmt.Errorf("DES segment %d: %w", i, err)
		}
		seg.DataLength = ld
		seg.SubheaderOffset = offset
		seg.DataOffset = offset + ldsh
		n.DES = append(n.DES, seg)
		offset += ldsh + ld
	}

	return nil
}

func readSubheader(r io.ReadSeeker, offset, length int64, parse func([]byte) (*Fields, error)) (*Fields, error) {
	buf := make([]byte, length)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek subheader: %w", err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: subheader truncated: %s", errs.ErrMalformedHeader, err)
	}

	return parse(buf)
}

func parseImageSubheader(buf []byte) (*Fields, error) {
	d := newDecoder(buf)
	if err := d.decode(imageSubheaderPrefix()); err != nil {
		return nil, err
	}
	if d.out.Str("IM") != "IM" {
		return nil, fmt.Errorf("%w: image subheader marker %q", errs.ErrMalformedHeader, d.out.Str("IM"))
	}

	if d.out.Str("ICORDS") != "" {
		if err := d.decode([]FieldSpec{igeoloField()}); err != nil {
			return nil, err
		}
	}

	nicom, err := d.decodeInt([]FieldSpec{{Name: "NICOM", Width: 1, Class: ClassBCSN}}, "NICOM")
	if err != nil {
		return nil, err
	}
	for i := 1; i <= int(nicom); i++ {
		if err := d.decode([]FieldSpec{icomField(i)}); err != nil {
			return nil, err
		}
	}

	if err := d.decode([]FieldSpec{{Name: "IC", Width: 2, Class: ClassBCSA}}); err != nil {
		return nil, err
	}
	if ic := d.out.Str("IC"); ic != "NC" && ic != "NM" {
		if err := d.decode([]FieldSpec{{Name: "COMRAT", Width: 4, Class: ClassBCSA}}); err != nil {
			return nil, err
		}
	}

	nbands, err := d.decodeInt([]FieldSpec{{Name: "NBANDS", Width: 1, Class: ClassBCSN}}, "NBANDS")
	if err != nil {
		return nil, err
	}
	if nbands == 0 {
		nbands, err = d.decodeInt([]FieldSpec{{Name: "XBANDS", Width: 5, Class: ClassBCSN}}, "XBANDS")
		if err != nil {
			return nil, err
		}
	}
	for i := 1; i <= int(nbands); i++ {
		if err := d.decode(bandFields(i)); err != nil {
			return nil, err
		}
		nluts, _ := d.out.Int(fmt.Sprintf("NLUTS%d", i))
		if nluts != 0 {
			return nil, fmt.Errorf("%w: band %d lookup tables are not supported", errs.ErrMalformedHeader, i)
		}
	}

	if err := d.decode(imageSubheaderSuffix()); err != nil {
		return nil, err
	}
	for _, ext := range [2][2]string{{"UDIDL", "UDID"}, {"IXSHDL", "IXSHD"}} {
		l, err := d.out.Int(ext[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errs.ErrMalformedHeader, err)
		}
		if l > 0 {
			if err := d.decode([]FieldSpec{{Name: ext[1], Width: int(l), Class: ClassBinary}}); err != nil {
				return nil, err
			}
		}
	}

	if d.cursor != len(buf) {
		return nil, fmt.Errorf("%w: image subheader spans %d bytes, LISH declares %d",
			errs.ErrMalformedHeader, d.cursor, len(buf))
	}

	return d.out, nil
}

func readDESubheader(r io.ReadSeeker, offset, length int64) (*DESegment, error) {
	buf := make([]byte, length)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek subheader: %w", err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: subheader truncated: %s", errs.ErrMalformedHeader, err)
	}

	d := newDecoder(buf)
	if err := d.decode(desSubheaderPrefix()); err != nil {
		return nil, err
	}
	if d.out.Str("DE") != "DE" {
		return nil, fmt.Errorf("%w: DES subheader marker %q", errs.ErrMalformedHeader, d.out.Str("DE"))
	}
	if d.out.Str("DESID") == "TRE_OVERFLOW" {
		if err := d.decode(desOverflowFields()); err != nil {
			return nil, err
		}
	}

	desshl, err := d.decodeInt([]FieldSpec{desshlField()}, "DESSHL")
	if err != nil {
		return nil, err
	}
	if int(desshl) != len(buf)-d.cursor {
		return nil, fmt.Errorf("%w: DESSHL declares %d bytes, %d remain",
			errs.ErrMalformedHeader, desshl, len(buf)-d.cursor)
	}

	seg := &DESegment{Subheader: d.out}
	raw := buf[d.cursor:]
	if d.out.Str("DESID") == "XML_DATA_CONTENT" && desshl == XMLSubheaderLen {
		user, _, err := DecodeFields(raw, XMLSubheaderFields())
		if err != nil {
			return nil, err
		}
		seg.UserHeader = user
	} else {
		seg.RawUserHeader = append([]byte(nil), raw...)
	}

	return seg, nil
}

// clevelFor returns the complexity level implied by the largest common
// coordinate system dimension and the total file size.
func clevelFor(maxDim, fileSize int64) int64 {
	dim := int64(3)
	switch {
	case maxDim > 65536:
		dim = 7
	case maxDim > 8192:
		dim = 6
	case maxDim > 2048:
		dim = 5
	}

	size := int64(3)
	switch {
	case fileSize > 2*1024*1024*1024-1:
		size = 7
	case fileSize > 1024*1024*1024:
		size = 6
	case fileSize > 50*1024*1024:
		size = 5
	}

	if dim > size {
		return dim
	}

	return size
}

// Finalize computes every derived file header field (segment counts and
// lengths, HL, FL, CLEVEL) and assigns each segment's byte offsets. Call
// once, after all segments are attached and their DataLength set.
//
// Returns:
//   - error: errs.ErrLayout if a count or length exceeds its field's
//     addressable width
func (n *Nitf) Finalize() error {
	if n.finalized {
		return fmt.Errorf("%w: container already finalized", errs.ErrLayout)
	}
	if len(n.Images) > 999 || len(n.DES) > 999 {
		return fmt.Errorf("%w: %d image and %d DES segments exceed the 3-digit counts",
			errs.ErrLayout, len(n.Images), len(n.DES))
	}

	header := NewFields(fileHeaderPrefix())
	for _, name := range n.Header.Names() {
		if i, ok := header.index[name]; ok {
			header.vals[i] = n.Header.Str(name)
		}
	}

	if err := header.SetInt("NUMI", int64(len(n.Images))); err != nil {
		return err
	}
	for i, seg := range n.Images {
		header.append(NewFields(imageLengthFields(i + 1)))
		if err := header.SetInt(numbered("LISH", i+1), int64(seg.Subheader.EncodedWidth())); err != nil {
			return err
		}
		if err := header.SetInt(numbered("LI", i+1), seg.DataLength); err != nil {
			return fmt.Errorf("%w: image segment %d: %s", errs.ErrLayout, i+1, err)
		}
	}

	for _, g := range lengthGroups {
		header.append(NewFields([]FieldSpec{countField(g.count)}))
		if g.count != "NUMDES" {
			continue
		}
		if err := header.SetInt("NUMDES", int64(len(n.DES))); err != nil {
			return err
		}
		for i, seg := range n.DES {
			header.append(NewFields(desLengthFields(i + 1)))
			ldsh := int64(seg.Subheader.EncodedWidth() + seg.userHeaderWidth())
			if err := header.SetInt(numbered("LDSH", i+1), ldsh); err != nil {
				return err
			}
			if err := header.SetInt(numbered("LD", i+1), seg.DataLength); err != nil {
				return fmt.Errorf("%w: DES segment %d: %s", errs.ErrLayout, i+1, err)
			}
		}
	}
	header.append(NewFields([]FieldSpec{
		{Name: "UDHDL", Width: 5, Class: ClassBCSN, Default: "0"},
		{Name: "XHDL", Width: 5, Class: ClassBCSN, Default: "0"},
	}))

	hl := int64(header.EncodedWidth())
	if err := header.SetInt("HL", hl); err != nil {
		return err
	}

	offset := hl
	for _, seg := range n.Images {
		seg.SubheaderOffset = offset
		seg.DataOffset = offset + int64(seg.Subheader.EncodedWidth())
		offset = seg.DataOffset + seg.DataLength
	}
	for _, seg := range n.DES {
		if seg.Subheader.Has("DESSHL") {
			if err := seg.Subheader.SetInt("DESSHL", int64(seg.userHeaderWidth())); err != nil {
				return err
			}
		}
		seg.SubheaderOffset = offset
		seg.DataOffset = offset + int64(seg.Subheader.EncodedWidth()+seg.userHeaderWidth())
		offset = seg.DataOffset + seg.DataLength
	}

	if offset > maxFileLen {
		return fmt.Errorf("%w: file length %d exceeds the 12-digit FL field", errs.ErrLayout, offset)
	}
	if err := header.SetInt("FL", offset); err != nil {
		return err
	}

	if err := header.SetInt("CLEVEL", clevelFor(n.ccsExtent(), offset)); err != nil {
		return err
	}

	n.Header = header
	n.finalized = true

	return nil
}

func (seg *DESegment) userHeaderWidth() int {
	if seg.UserHeader != nil {
		return seg.UserHeader.EncodedWidth()
	}

	return len(seg.RawUserHeader)
}

// ccsExtent returns the largest common coordinate system dimension across
// the attached image segments, walking the linear attachment chain.
func (n *Nitf) ccsExtent() int64 {
	var extent, rowBase int64
	for _, seg := range n.Images {
		nrows, _ := seg.Subheader.Int("NROWS")
		ncols, _ := seg.Subheader.Int("NCOLS")
		iloc := seg.Subheader.Str("ILOC")
		if len(iloc) == 10 {
			rowOff, _ := strconv.ParseInt(iloc[:5], 10, 64)
			rowBase += rowOff
		}
		if rowBase+nrows > extent {
			extent = rowBase + nrows
		}
		if ncols > extent {
			extent = ncols
		}
	}

	return extent
}

// FileLength returns the finalized or parsed total file length.
func (n *Nitf) FileLength() (int64, error) {
	return n.Header.Int("FL")
}

// Dump writes the file header and every segment subheader at its assigned
// offset. Payload ranges are left untouched for the caller to fill.
//
// Returns:
//   - error: Encode or I/O failure; Finalize (or Load) must have run first
func (n *Nitf) Dump(w io.WriteSeeker) error {
	if !n.finalized {
		return fmt.Errorf("%w: container not finalized", errs.ErrLayout)
	}

	writeAt := func(offset int64, b []byte) error {
		if _, err := w.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek to %d: %w", offset, err)
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("write at %d: %w", offset, err)
		}

		return nil
	}

	hdr, err := EncodeFields(n.Header)
	if err != nil {
		return err
	}
	if err := writeAt(0, hdr); err != nil {
		return err
	}

	for i, seg := range n.Images {
		b, err := EncodeFields(seg.Subheader)
		if err != nil {
			return fmt.Errorf("image segment %d: %w", i+1, err)
		}
		if err := writeAt(seg.SubheaderOffset, b); err != nil {
			return err
		}
	}

	for i, seg := range n.DES {
		b, err := EncodeFields(seg.Subheader)
		if err != nil {
			return fmt.Errorf("DES segment %d: %w", i+1, err)
		}
		if seg.UserHeader != nil {
			user, err := EncodeFields(seg.UserHeader)
			if err != nil {
				return fmt.Errorf("DES segment %d: %w", i+1, err)
			}
			b = append(b, user...)
		} else {
			b = append(b, seg.RawUserHeader...)
		}
		if err := writeAt(seg.SubheaderOffset, b); err != nil {
			return err
		}
	}

	return nil
}
