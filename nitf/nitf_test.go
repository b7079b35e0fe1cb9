package nitf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/errs"
)

func buildContainer(t *testing.T) *Nitf {
	t.Helper()

	n := New()
	require.NoError(t, n.Header.SetStr("OSTAID", "STATION01"))
	require.NoError(t, n.Header.SetStr("FTITLE", "SARkit example SICD FTITLE"))
	require.NoError(t, n.Header.SetStr("FDT", "20231026093015"))

	img := NewImageSubheader(1, 0, true)
	require.NoError(t, img.SetStr("IID1", "SICD000"))
	require.NoError(t, img.SetStr("IDATIM", "20231026093015"))
	require.NoError(t, img.SetInt("NROWS", 128))
	require.NoError(t, img.SetInt("NCOLS", 64))
	require.NoError(t, img.SetStr("PVTYPE", "R"))
	require.NoError(t, img.SetInt("ABPP", 32))
	require.NoError(t, img.SetStr("IGEOLO",
		"383840N0770205W383840N0770150W383825N0770150W383825N0770205W"))
	require.NoError(t, img.SetStr("IREPBAND1", ""))
	require.NoError(t, img.SetStr("ISUBCAT1", "I"))
	require.NoError(t, img.SetInt("NPPBH", 64))
	require.NoError(t, img.SetInt("NPPBV", 128))
	require.NoError(t, img.SetInt("NBPP", 32))
	n.Images = append(n.Images, &ImageSegment{Subheader: img, DataLength: 128 * 64 * 8})

	des := NewXMLDESegment()
	require.NoError(t, des.UserHeader.SetStr("DESSHSI", "SICD Volume 1 Design & Implementation"))
	require.NoError(t, des.UserHeader.SetStr("DESSHSV", "1.4.0"))
	des.DataLength = 2048
	n.DES = append(n.DES, des)

	return n
}

func dumpToFile(t *testing.T, n *Nitf) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "container.ntf")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, n.Dump(f))

	// fill payload ranges so the file has its declared length
	fl, err := n.FileLength()
	require.NoError(t, err)
	require.NoError(t, f.Truncate(fl))

	return path
}

func TestContainerRoundTrip(t *testing.T) {
	n := buildContainer(t)
	require.NoError(t, n.Finalize())

	fl, err := n.FileLength()
	require.NoError(t, err)
	hl, err := n.Header.Int("HL")
	require.NoError(t, err)
	require.Equal(t,
		hl+int64(n.Images[0].Subheader.EncodedWidth())+n.Images[0].DataLength+
			int64(n.DES[0].Subheader.EncodedWidth()+XMLSubheaderLen)+n.DES[0].DataLength,
		fl)

	path := dumpToFile(t, n)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := Load(f)
	require.NoError(t, err)

	require.Equal(t, "SARkit example SICD FTITLE", got.Header.Str("FTITLE"))
	require.Equal(t, "STATION01", got.Header.Str("OSTAID"))

	require.Len(t, got.Images, 1)
	img := got.Images[0]
	require.Equal(t, "SICD000", img.Subheader.Str("IID1"))
	nrows, err := img.Subheader.Int("NROWS")
	require.NoError(t, err)
	require.Equal(t, int64(128), nrows)
	require.Equal(t, n.Images[0].DataOffset, img.DataOffset)
	require.Equal(t, n.Images[0].DataLength, img.DataLength)

	require.Len(t, got.DES, 1)
	des := got.DES[0]
	require.Equal(t, "XML_DATA_CONTENT", des.Subheader.Str("DESID"))
	require.NotNil(t, des.UserHeader)
	require.Equal(t, "1.4.0", des.UserHeader.Str("DESSHSV"))
	require.Equal(t, n.DES[0].DataOffset, des.DataOffset)
	require.Equal(t, int64(2048), des.DataLength)
}

func TestFinalizeComputesClevel(t *testing.T) {
	n := buildContainer(t)
	require.NoError(t, n.Finalize())

	clevel, err := n.Header.Int("CLEVEL")
	require.NoError(t, err)
	require.Equal(t, int64(3), clevel)
}

func TestClevelFor(t *testing.T) {
	tests := []struct {
		name   string
		maxDim int64
		size   int64
		clevel int64
	}{
		{name: "small", maxDim: 1024, size: 1 << 20, clevel: 3},
		{name: "wide image", maxDim: 4096, size: 1 << 20, clevel: 5},
		{name: "very wide image", maxDim: 20000, size: 1 << 20, clevel: 6},
		{name: "huge image", maxDim: 80000, size: 1 << 20, clevel: 7},
		{name: "big file", maxDim: 1024, size: 200 << 20, clevel: 5},
		{name: "huge file", maxDim: 1024, size: 3 << 30, clevel: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.clevel, clevelFor(tt.maxDim, tt.size))
		})
	}
}

func TestFinalizeTwiceFails(t *testing.T) {
	n := buildContainer(t)
	require.NoError(t, n.Finalize())
	require.ErrorIs(t, n.Finalize(), errs.ErrLayout)
}

func TestFinalizeRejectsOversizedPayload(t *testing.T) {
	n := buildContainer(t)
	n.Images[0].DataLength = 99_999_999_999 // exceeds the 10-digit LI field

	require.ErrorIs(t, n.Finalize(), errs.ErrLayout)
}

func TestLoadRejectsBadSignature(t *testing.T) {
	n := buildContainer(t)
	require.NoError(t, n.Finalize())
	path := dumpToFile(t, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(raw, "GIF8")
	bad := filepath.Join(t.TempDir(), "bad.ntf")
	require.NoError(t, os.WriteFile(bad, raw, 0o644))

	f, err := os.Open(bad)
	require.NoError(t, err)
	defer f.Close()

	_, err = Load(f)
	require.ErrorIs(t, err, errs.ErrMalformedHeader)
}

func TestLoadRejectsTruncatedHeader(t *testing.T) {
	n := buildContainer(t)
	require.NoError(t, n.Finalize())
	path := dumpToFile(t, n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	short := filepath.Join(t.TempDir(), "short.ntf")
	require.NoError(t, os.WriteFile(short, raw[:100], 0o644))

	f, err := os.Open(short)
	require.NoError(t, err)
	defer f.Close()

	_, err = Load(f)
	require.ErrorIs(t, err, errs.ErrMalformedHeader)
}

func TestImageSubheaderWithComments(t *testing.T) {
	img := NewImageSubheader(2, 2, false)
	require.NoError(t, img.SetStr("ICOM1", "first comment"))
	require.NoError(t, img.SetStr("ICOM2", "second comment"))
	require.NoError(t, img.SetStr("IID1", "SICD001"))
	require.NoError(t, img.SetInt("NROWS", 10))
	require.NoError(t, img.SetInt("NCOLS", 10))
	require.NoError(t, img.SetStr("PVTYPE", "SI"))
	require.NoError(t, img.SetInt("ABPP", 16))
	require.NoError(t, img.SetInt("NPPBH", 10))
	require.NoError(t, img.SetInt("NPPBV", 10))
	require.NoError(t, img.SetInt("NBPP", 16))
	require.NoError(t, img.SetStr("ISUBCAT1", "I"))
	require.NoError(t, img.SetStr("ISUBCAT2", "Q"))

	b, err := EncodeFields(img)
	require.NoError(t, err)

	got, err := parseImageSubheader(b)
	require.NoError(t, err)
	require.Equal(t, "second comment", got.Str("ICOM2"))
	require.Equal(t, "Q", got.Str("ISUBCAT2"))
	require.Equal(t, "", got.Str("ICORDS"))
	require.False(t, got.Has("IGEOLO"))
}
