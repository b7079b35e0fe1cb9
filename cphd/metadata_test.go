package cphd

import (
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
)

func parseMetadata(t *testing.T, xml string) *Metadata {
	t.Helper()

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	meta, err := NewMetadata(doc)
	require.NoError(t, err)

	return meta
}

// pvpOnlyXML builds a minimal instance around a custom PVP branch.
func pvpOnlyXML(numBytes int, pvp string) string {
	return fmt.Sprintf(`<CPHD xmlns=%q><Data>`+
		`<SignalArrayFormat>CF8</SignalArrayFormat><NumBytesPVP>%d</NumBytesPVP>`+
		`<NumCPHDChannels>1</NumCPHDChannels>`+
		`<Channel><Identifier>CH1</Identifier><NumVectors>1</NumVectors>`+
		`<NumSamples>1</NumSamples><SignalArrayByteOffset>0</SignalArrayByteOffset>`+
		`<PVPArrayByteOffset>0</PVPArrayByteOffset></Channel>`+
		`</Data><PVP>%s</PVP></CPHD>`, testNamespace, numBytes, pvp)
}

func TestNewMetadataNamespaces(t *testing.T) {
	parse := func(xml string) *etree.Document {
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromString(xml))

		return doc
	}

	_, err := NewMetadata(parse(`<SICD xmlns="urn:SICD:1.4.0"/>`))
	require.ErrorIs(t, err, errs.ErrMalformedHeader)

	_, err = NewMetadata(etree.NewDocument())
	require.ErrorIs(t, err, errs.ErrMalformedHeader)

	// an unknown standard version is accepted as the latest, namespace kept
	meta, err := NewMetadata(parse(`<CPHD xmlns="http://api.nsgreg.nga.mil/schema/cphd/9.9.9"/>`))
	require.NoError(t, err)
	require.Equal(t, "http://api.nsgreg.nga.mil/schema/cphd/9.9.9", meta.Version().Namespace)
	require.Equal(t, LatestVersion().Version, meta.Version().Version)

	meta, err = NewMetadata(parse(`<CPHD xmlns="http://api.nsgreg.nga.mil/schema/cphd/1.0.1"/>`))
	require.NoError(t, err)
	require.Equal(t, "1.0.1", meta.Version().Version)
}

func TestChannelAccessors(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())

	channels, err := meta.Channels()
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, "CH1", channels[0].Identifier)
	require.Equal(t, int64(3), channels[0].NumVectors)
	require.Equal(t, int64(96), channels[1].SignalArrayByteOffset)

	ch, err := meta.Channel("CH2")
	require.NoError(t, err)
	require.Equal(t, int64(2), ch.NumVectors)

	_, err = meta.Channel("NOPE")
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestSupportArrayAccessors(t *testing.T) {
	meta := testMetadata(t, twoChannelProduct())

	arrays, err := meta.SupportArrays()
	require.NoError(t, err)
	require.Len(t, arrays, 2)

	sa, err := meta.SupportArray("MASK")
	require.NoError(t, err)
	require.Equal(t, int64(48), sa.ArrayByteOffset)
	require.Equal(t, int64(1), sa.BytesPerElement)

	dt, err := meta.SupportArrayDtype("GAIN")
	require.NoError(t, err)
	require.True(t, dt.Equal(dtype.F8))

	_, err = meta.SupportArray("NOPE")
	require.ErrorIs(t, err, errs.ErrOutOfRange)
	_, err = meta.SupportArrayDtype("NOPE")
	require.ErrorIs(t, err, errs.ErrOutOfRange)

	// products without support arrays report an empty set
	plain := testMetadata(t, singleChannelProduct(3, 4))
	arrays, err = plain.SupportArrays()
	require.NoError(t, err)
	require.Empty(t, arrays)
}

func TestSignalDtype(t *testing.T) {
	meta := testMetadata(t, singleChannelProduct(3, 4))
	dt, err := meta.SignalDtype()
	require.NoError(t, err)
	require.True(t, dt.Equal(dtype.CF8))

	bad := parseMetadata(t, fmt.Sprintf(
		`<CPHD xmlns=%q><Data><SignalArrayFormat>Q9</SignalArrayFormat></Data></CPHD>`, testNamespace))
	_, err = bad.SignalDtype()
	require.ErrorIs(t, err, errs.ErrMalformedHeader)
}

func TestPVPFields(t *testing.T) {
	meta := testMetadata(t, singleChannelProduct(3, 4))

	fields, err := meta.PVPFields()
	require.NoError(t, err)
	require.Len(t, fields, 3)
	require.Equal(t, "TxTime", fields[0].Name)
	require.Equal(t, "TxPos", fields[1].Name)
	require.Equal(t, int64(3), fields[1].Size)
	require.Equal(t, dtype.KindRecord, fields[1].Format.Kind)
	require.Equal(t, "CustomGain", fields[2].Name)
}

func TestPVPDtypeLayout(t *testing.T) {
	meta := testMetadata(t, singleChannelProduct(3, 4))

	dt, err := meta.PVPDtype()
	require.NoError(t, err)
	require.Equal(t, 40, dt.ItemSize())

	names := make([]string, len(dt.Fields))
	for i, f := range dt.Fields {
		names[i] = f.Name
	}
	require.Equal(t, []string{"TxTime", "TxPos.X", "TxPos.Y", "TxPos.Z", "CustomGain"}, names)
}

func TestPVPDtypePadding(t *testing.T) {
	meta := parseMetadata(t, pvpOnlyXML(32,
		`<TxTime><Offset>0</Offset><Size>1</Size><Format>F8</Format></TxTime>`+
			`<AddedPVP><Name>CustomGain</Name><Offset>2</Offset><Size>1</Size><Format>F8</Format></AddedPVP>`))

	dt, err := meta.PVPDtype()
	require.NoError(t, err)
	require.Equal(t, 32, dt.ItemSize())

	names := make([]string, len(dt.Fields))
	for i, f := range dt.Fields {
		names[i] = f.Name
	}
	require.Equal(t, []string{"TxTime", "_pad0", "CustomGain", "_pad1"}, names)
	require.Equal(t, dtype.KindBytes, dt.Fields[1].Type.Kind)
	require.Equal(t, 8, dt.Fields[1].Type.Size)
}

func TestPVPDtypeViolations(t *testing.T) {
	for name, tc := range map[string]struct {
		numBytes int
		pvp      string
	}{
		"overlap": {16,
			`<TxTime><Offset>0</Offset><Size>1</Size><Format>F8</Format></TxTime>` +
				`<RcvTime><Offset>0</Offset><Size>1</Size><Format>F8</Format></RcvTime>`},
		"past record width": {8,
			`<TxTime><Offset>0</Offset><Size>1</Size><Format>F8</Format></TxTime>` +
				`<RcvTime><Offset>1</Offset><Size>1</Size><Format>F8</Format></RcvTime>`},
		"format width mismatch": {16,
			`<TxTime><Offset>0</Offset><Size>2</Size><Format>F8</Format></TxTime>`},
		"bad format": {8,
			`<TxTime><Offset>0</Offset><Size>1</Size><Format>Q9</Format></TxTime>`},
		"missing offset": {8,
			`<TxTime><Size>1</Size><Format>F8</Format></TxTime>`},
		"empty branch": {8, ``},
	} {
		t.Run(name, func(t *testing.T) {
			meta := parseMetadata(t, pvpOnlyXML(tc.numBytes, tc.pvp))
			_, err := meta.PVPDtype()
			require.ErrorIs(t, err, errs.ErrMalformedHeader)
		})
	}
}

func TestSignalCompressionID(t *testing.T) {
	require.Equal(t, "", testMetadata(t, singleChannelProduct(3, 4)).SignalCompressionID())

	p := singleChannelProduct(3, 4)
	p.compressionID = "ZSTD"
	p.channels[0].CompressedSignalSize = 10
	require.Equal(t, "ZSTD", testMetadata(t, p).SignalCompressionID())
}
