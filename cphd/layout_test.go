package cphd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/errs"
	"github.com/arloliu/sario/internal/digest"
	"github.com/arloliu/sario/layout"
)

func TestPlanOffsets(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())

	p, err := planContainer(meta, false, nil)
	require.NoError(t, err)

	// the header area is aligned so back-patched offsets never move the blocks
	require.Zero(t, (p.xmlOffset-int64(len(sectionTerminator)))%headerAlign)
	require.Equal(t, p.xmlOffset+int64(len(p.xml))+int64(len(sectionTerminator)), p.supportOffset)
	require.Equal(t, int64(48+16), p.supportSize)
	require.Equal(t, p.supportOffset+p.supportSize, p.pvpOffset)
	require.Equal(t, int64(5*40), p.pvpSize)
	require.Equal(t, p.pvpOffset+p.pvpSize, p.signalOffset)
	require.Equal(t, int64(96+64), p.signalSize)
	require.Equal(t, p.signalOffset+p.signalSize, p.total)
	require.Equal(t, p.total, p.plan.Total)

	// the real header with its terminator fits the planned area
	hdr := p.header(false, nil).serialize()
	require.LessOrEqual(t, int64(len(hdr)+len(sectionTerminator)), p.xmlOffset)

	ch, err := p.channel("CH2")
	require.NoError(t, err)
	require.Equal(t, int64(64), ch.signalSize)
	require.Equal(t, int64(80), ch.pvpSize)

	_, err = p.channel("NOPE")
	require.ErrorIs(t, err, errs.ErrOutOfRange)
	_, err = p.support("NOPE")
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestPlanSegments(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())
	p, err := planContainer(meta, false, nil)
	require.NoError(t, err)

	names := make([]string, len(p.plan.Segments))
	for i, seg := range p.plan.Segments {
		names[i] = seg.Name
	}
	require.Equal(t, []string{
		"FileHeader", "XML", "XMLTerminator",
		"Support:GAIN", "Support:MASK",
		"PVP:CH1", "PVP:CH2",
		"Signal:CH1", "Signal:CH2",
	}, names)

	seg, ok := p.plan.Find("Signal:CH1")
	require.True(t, ok)
	require.Equal(t, layout.KindData, seg.Kind)
	require.Equal(t, []int{3, 4}, seg.Shape)
}

func TestPlanDeterministic(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())

	first, err := planContainer(meta, false, map[string]string{"NOTE": "a"})
	require.NoError(t, err)
	second, err := planContainer(meta, false, map[string]string{"NOTE": "a"})
	require.NoError(t, err)

	require.Equal(t, first.total, second.total)
	require.Equal(t, first.header(false, nil).serialize(), second.header(false, nil).serialize())
	require.Equal(t, first.plan.Segments, second.plan.Segments)
}

func TestPlanExtraKVPsOverrideMetadata(t *testing.T) {
	meta := testMetadata(t, singleChannelProduct(3, 4))
	meta.Header.AdditionalKVPs = map[string]string{"NOTE": "from metadata", "KEEP": "kept"}

	p, err := planContainer(meta, false, map[string]string{"NOTE": "from writer"})
	require.NoError(t, err)

	hdr := p.header(false, nil)
	v, ok := hdr.get("NOTE")
	require.True(t, ok)
	require.Equal(t, "from writer", v)
	v, ok = hdr.get("KEEP")
	require.True(t, ok)
	require.Equal(t, "kept", v)
}

func TestPlanDigestPlaceholderWidth(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())
	p, err := planContainer(meta, true, nil)
	require.NoError(t, err)

	zero := p.header(false, nil).serialize()
	require.Contains(t, string(zero), "SIGNAL_BLOCK_DIGEST := xxh64:0000000000000000")
	require.Contains(t, string(zero), "SUPPORT_BLOCK_DIGEST := xxh64:0000000000000000")

	// patched digests are fixed width, so the rewritten header never moves
	patched := p.header(false, map[string]string{
		keyXMLDigest:     digest.Sum(p.xml),
		keySupportDigest: digest.Sum([]byte("support")),
		keyPVPDigest:     digest.Sum([]byte("pvp")),
		keySignalDigest:  digest.Sum([]byte("signal")),
	}).serialize()
	require.Equal(t, len(zero), len(patched))
}

func TestPlanTilingViolations(t *testing.T) {
	t.Run("signal gap", func(t *testing.T) {
		p := twoChannelProduct()
		p.channels[1].SignalArrayByteOffset = 100
		_, err := planContainer(testMetadata(t, p), false, nil)
		require.ErrorIs(t, err, errs.ErrLayout)
	})

	t.Run("pvp overlap", func(t *testing.T) {
		p := twoChannelProduct()
		p.channels[1].PVPArrayByteOffset = 80
		_, err := planContainer(testMetadata(t, p), false, nil)
		require.ErrorIs(t, err, errs.ErrLayout)
	})

	t.Run("support gap", func(t *testing.T) {
		meta := testMetadata(t, twoChannelProduct())
		setSupportDataField(t, meta, "MASK", "ArrayByteOffset", "50")
		_, err := planContainer(meta, false, nil)
		require.ErrorIs(t, err, errs.ErrLayout)
	})

	t.Run("element size mismatch", func(t *testing.T) {
		meta := testMetadata(t, twoChannelProduct())
		setSupportDataField(t, meta, "MASK", "BytesPerElement", "2")
		_, err := planContainer(meta, false, nil)
		require.ErrorIs(t, err, errs.ErrLayout)
	})

	t.Run("compressed channel without size", func(t *testing.T) {
		p := singleChannelProduct(3, 4)
		p.compressionID = "ZSTD"
		meta := testMetadata(t, p)
		_, err := planContainer(meta, false, nil)
		require.Error(t, err)
	})

	t.Run("non-positive dimensions", func(t *testing.T) {
		p := singleChannelProduct(0, 4)
		_, err := planContainer(testMetadata(t, p), false, nil)
		require.ErrorIs(t, err, errs.ErrLayout)
	})
}

// setSupportDataField rewrites one leaf of a Data/SupportArray entry.
func setSupportDataField(t *testing.T, meta *Metadata, identifier, field, value string) {
	t.Helper()

	data := child(meta.XML.Root(), "Data")
	require.NotNil(t, data)
	for _, elem := range data.ChildElements() {
		if elem.Tag != "SupportArray" {
			continue
		}
		if id := child(elem, "Identifier"); id != nil && id.Text() == identifier {
			leaf := child(elem, field)
			require.NotNil(t, leaf)
			leaf.SetText(value)
			return
		}
	}
	t.Fatalf("support array %s not found", identifier)
}
