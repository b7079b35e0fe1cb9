package cphd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/layout"
)

// headerAlign sizes the header area so offset digit growth cannot move the
// blocks that follow it.
const headerAlign = 64

// maxUint64Text is the widest offset value the text header can carry; it
// stands in for unknown offsets while sizing the header area.
const maxUint64Text = "18446744073709551615"

func align(n int64) int64 {
	return (n + headerAlign - 1) / headerAlign * headerAlign
}

// channelLayout is one channel's planned byte usage: the declared offsets
// plus the derived stored sizes.
type channelLayout struct {
	Channel
	// signalSize is the stored byte count: the raw array size, or the
	// declared compressed size for compressed signal blocks.
	signalSize int64
	pvpSize    int64
}

// supportLayout is one support array's planned byte usage.
type supportLayout struct {
	SupportArray
	dt   dtype.Dtype
	size int64
}

// containerPlan is the outcome of planning one product: block offsets, the
// per-segment layout, and the serialized metadata.
type containerPlan struct {
	meta *Metadata
	xml  []byte

	signalDtype   dtype.Dtype
	pvpDtype      dtype.Dtype
	numBytesPVP   int64
	compressionID string

	channels []channelLayout
	supports []supportLayout

	xmlOffset     int64
	supportOffset int64
	pvpOffset     int64
	signalOffset  int64
	supportSize   int64
	pvpSize       int64
	signalSize    int64
	total         int64

	withDigests bool
	// extraKVPs are writer-supplied header pairs merged over the metadata's
	// additional pairs.
	extraKVPs map[string]string
	plan      *layout.Plan
}

// planContainer computes the complete block structure and byte layout for
// one metadata model. Planning is pure: the same model yields an identical
// plan.
//
// Returns:
//   - *containerPlan: Block offsets, layout, and XML snapshot
//   - error: errs.ErrLayout for dimension or tiling violations; a metadata
//     error if required Data elements are missing
func planContainer(meta *Metadata, withDigests bool, extraKVPs map[string]string) (*containerPlan, error) {
	xml, err := meta.XML.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize metadata: %w", err)
	}

	p := &containerPlan{meta: meta, xml: xml, withDigests: withDigests, extraKVPs: extraKVPs}
	p.compressionID = meta.SignalCompressionID()

	if p.signalDtype, err = meta.SignalDtype(); err != nil {
		return nil, err
	}
	if p.pvpDtype, err = meta.PVPDtype(); err != nil {
		return nil, err
	}
	if p.numBytesPVP, err = meta.NumBytesPVP(); err != nil {
		return nil, err
	}

	if err := p.resolveChannels(); err != nil {
		return nil, err
	}
	if err := p.resolveSupports(); err != nil {
		return nil, err
	}

	// the header area is sized against maximum-width offsets so the real
	// offsets always fit
	placeholder := p.header(true, nil)
	headerArea := align(int64(len(placeholder.serialize())))

	p.xmlOffset = headerArea + int64(len(sectionTerminator))
	next := p.xmlOffset + int64(len(xml)) + int64(len(sectionTerminator))
	if len(p.supports) > 0 {
		p.supportOffset = next
		next += p.supportSize
	}
	p.pvpOffset = next
	p.signalOffset = p.pvpOffset + p.pvpSize
	p.total = p.signalOffset + p.signalSize

	if err := p.buildLayout(); err != nil {
		return nil, err
	}

	return p, nil
}

// resolveChannels derives per-channel sizes and checks that the declared
// offsets tile the PVP and signal blocks exactly.
func (p *containerPlan) resolveChannels() error {
	channels, err := p.meta.Channels()
	if err != nil {
		return err
	}

	compressed := p.compressionID != ""
	itemSize := int64(p.signalDtype.ItemSize())
	for _, ch := range channels {
		if ch.NumVectors <= 0 || ch.NumSamples <= 0 {
			return fmt.Errorf("%w: channel %s has non-positive dimensions %dx%d",
				errs.ErrLayout, ch.Identifier, ch.NumVectors, ch.NumSamples)
		}
		cl := channelLayout{
			Channel: ch,
			pvpSize: ch.NumVectors * p.numBytesPVP,
		}
		if compressed {
			if ch.CompressedSignalSize <= 0 {
				return fmt.Errorf("%w: compressed channel %s has no CompressedSignalSize",
					errs.ErrLayout, ch.Identifier)
			}
			cl.signalSize = ch.CompressedSignalSize
		} else {
			cl.signalSize = ch.NumVectors * ch.NumSamples * itemSize
		}
		p.channels = append(p.channels, cl)
		p.pvpSize += cl.pvpSize
		p.signalSize += cl.signalSize
	}

	if err := checkTiling("signal", p.channels, func(c channelLayout) (int64, int64) {
		return c.SignalArrayByteOffset, c.signalSize
	}); err != nil {
		return err
	}

	return checkTiling("PVP", p.channels, func(c channelLayout) (int64, int64) {
		return c.PVPArrayByteOffset, c.pvpSize
	})
}

// resolveSupports derives support array sizes and checks block tiling.
func (p *containerPlan) resolveSupports() error {
	arrays, err := p.meta.SupportArrays()
	if err != nil {
		return err
	}

	for _, sa := range arrays {
		if sa.NumRows <= 0 || sa.NumCols <= 0 {
			return fmt.Errorf("%w: support array %s has non-positive dimensions %dx%d",
				errs.ErrLayout, sa.Identifier, sa.NumRows, sa.NumCols)
		}
		dt, err := p.meta.SupportArrayDtype(sa.Identifier)
		if err != nil {
			return err
		}
		if int64(dt.ItemSize()) != sa.BytesPerElement {
			return fmt.Errorf("%w: support array %s: ElementFormat %s is %d bytes, Data declares %d",
				errs.ErrLayout, sa.Identifier, dt, dt.ItemSize(), sa.BytesPerElement)
		}
		sl := supportLayout{
			SupportArray: sa,
			dt:           dt,
			size:         sa.NumRows * sa.NumCols * sa.BytesPerElement,
		}
		p.supports = append(p.supports, sl)
		p.supportSize += sl.size
	}

	return checkTiling("support", p.supports, func(s supportLayout) (int64, int64) {
		return s.ArrayByteOffset, s.size
	})
}

// checkTiling verifies that the declared offsets cover a block contiguously
// from zero with no gaps or overlaps.
func checkTiling[T any](block string, items []T, at func(T) (offset, size int64)) error {
	type extent struct{ offset, size int64 }
	extents := make([]extent, len(items))
	for i, item := range items {
		extents[i].offset, extents[i].size = at(item)
	}
	sort.Slice(extents, func(i, j int) bool { return extents[i].offset < extents[j].offset })

	cursor := int64(0)
	for _, e := range extents {
		if e.offset != cursor {
			return fmt.Errorf("%w: %s block is not tiled: expected offset %d, declared %d",
				errs.ErrLayout, block, cursor, e.offset)
		}
		cursor += e.size
	}

	return nil
}

// header renders the text header for the plan. With placeholders, unknown
// block offsets take the widest possible value; digests supplies the digest
// values, defaulting to zero digests when digest writing is enabled.
func (p *containerPlan) header(placeholders bool, digests map[string]string) *fileHeader {
	offset := func(v int64) string {
		if placeholders {
			return maxUint64Text
		}

		return strconv.FormatInt(v, 10)
	}

	hdr := &fileHeader{version: p.meta.Version().Version}
	hdr.set("XML_BLOCK_SIZE", strconv.Itoa(len(p.xml)))
	hdr.set("XML_BLOCK_BYTE_OFFSET", offset(p.xmlOffset))
	if len(p.supports) > 0 {
		hdr.set("SUPPORT_BLOCK_SIZE", strconv.FormatInt(p.supportSize, 10))
		hdr.set("SUPPORT_BLOCK_BYTE_OFFSET", offset(p.supportOffset))
	}
	hdr.set("PVP_BLOCK_SIZE", strconv.FormatInt(p.pvpSize, 10))
	hdr.set("PVP_BLOCK_BYTE_OFFSET", offset(p.pvpOffset))
	hdr.set("SIGNAL_BLOCK_SIZE", strconv.FormatInt(p.signalSize, 10))
	hdr.set("SIGNAL_BLOCK_BYTE_OFFSET", offset(p.signalOffset))
	hdr.set("CLASSIFICATION", p.meta.Header.Classification)
	hdr.set("RELEASE_INFO", p.meta.Header.ReleaseInfo)
	additional := make(map[string]string, len(p.meta.Header.AdditionalKVPs)+len(p.extraKVPs))
	for k, v := range p.meta.Header.AdditionalKVPs {
		additional[k] = v
	}
	for k, v := range p.extraKVPs {
		additional[k] = v
	}
	for _, key := range sortedKeys(additional) {
		hdr.set(key, additional[key])
	}

	if p.withDigests {
		zero := "xxh64:0000000000000000"
		keys := []string{keyXMLDigest}
		if len(p.supports) > 0 {
			keys = append(keys, keySupportDigest)
		}
		keys = append(keys, keyPVPDigest, keySignalDigest)
		for _, key := range keys {
			val := zero
			if d, ok := digests[key]; ok {
				val = d
			}
			hdr.set(key, val)
		}
	}

	return hdr
}

// buildLayout converts the planned offsets to the byte-level plan.
func (p *containerPlan) buildLayout() error {
	plan := &layout.Plan{Total: p.total}
	plan.Segments = append(plan.Segments,
		layout.Segment{
			Kind: layout.KindHeader, Name: "FileHeader",
			Offset: 0, Length: p.xmlOffset,
		},
		layout.Segment{
			Kind: layout.KindMetadata, Name: "XML",
			Offset: p.xmlOffset, Length: int64(len(p.xml)),
		},
		layout.Segment{
			Kind: layout.KindPadding, Name: "XMLTerminator",
			Offset: p.xmlOffset + int64(len(p.xml)), Length: int64(len(sectionTerminator)),
		},
	)

	supports := append([]supportLayout(nil), p.supports...)
	sort.Slice(supports, func(i, j int) bool { return supports[i].ArrayByteOffset < supports[j].ArrayByteOffset })
	for _, sa := range supports {
		plan.Segments = append(plan.Segments, layout.Segment{
			Kind:   layout.KindData,
			Name:   "Support:" + sa.Identifier,
			Offset: p.supportOffset + sa.ArrayByteOffset,
			Length: sa.size,
			Dtype:  sa.dt,
			Shape:  []int{int(sa.NumRows), int(sa.NumCols)},
		})
	}

	pvps := append([]channelLayout(nil), p.channels...)
	sort.Slice(pvps, func(i, j int) bool { return pvps[i].PVPArrayByteOffset < pvps[j].PVPArrayByteOffset })
	for _, ch := range pvps {
		plan.Segments = append(plan.Segments, layout.Segment{
			Kind:   layout.KindData,
			Name:   "PVP:" + ch.Identifier,
			Offset: p.pvpOffset + ch.PVPArrayByteOffset,
			Length: ch.pvpSize,
			Dtype:  p.pvpDtype,
			Shape:  []int{int(ch.NumVectors)},
		})
	}

	signals := append([]channelLayout(nil), p.channels...)
	sort.Slice(signals, func(i, j int) bool { return signals[i].SignalArrayByteOffset < signals[j].SignalArrayByteOffset })
	for _, ch := range signals {
		seg := layout.Segment{
			Kind:   layout.KindData,
			Name:   "Signal:" + ch.Identifier,
			Offset: p.signalOffset + ch.SignalArrayByteOffset,
			Length: ch.signalSize,
		}
		if p.compressionID == "" {
			seg.Dtype = p.signalDtype
			seg.Shape = []int{int(ch.NumVectors), int(ch.NumSamples)}
		} else {
			// stored form of a compressed channel is an opaque byte run
			seg.Dtype = dtype.U1
			seg.Shape = []int{int(ch.signalSize)}
		}
		plan.Segments = append(plan.Segments, seg)
	}

	if err := plan.Validate(); err != nil {
		return err
	}
	p.plan = plan

	return nil
}

// channel returns the planned layout of one channel.
func (p *containerPlan) channel(identifier string) (channelLayout, error) {
	for _, ch := range p.channels {
		if ch.Identifier == identifier {
			return ch, nil
		}
	}

	return channelLayout{}, fmt.Errorf("%w: unknown channel %q", errs.ErrOutOfRange, identifier)
}

// support returns the planned layout of one support array.
func (p *containerPlan) support(identifier string) (supportLayout, error) {
	for _, sa := range p.supports {
		if sa.Identifier == identifier {
			return sa, nil
		}
	}

	return supportLayout{}, fmt.Errorf("%w: unknown support array %q", errs.ErrOutOfRange, identifier)
}
