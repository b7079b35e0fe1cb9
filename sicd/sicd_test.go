package sicd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/dtype"
	"github.com/arloliu/sario/errs"
)

func testImage(t *testing.T, nrows, ncols int) *dtype.Array {
	t.Helper()

	arr, err := dtype.New(dtype.CF8, nrows, ncols)
	require.NoError(t, err)

	vals := make([]complex64, nrows*ncols)
	for i := range vals {
		vals[i] = complex(float32(i), -float32(i)/2)
	}
	require.NoError(t, arr.SetComplex64s(vals))

	return arr
}

func writeProduct(t *testing.T, meta *Metadata, arr *dtype.Array) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "example.nitf")
	w, err := CreateWriter(path, meta)
	require.NoError(t, err)
	require.NoError(t, w.WriteImage(arr))
	require.NoError(t, w.Close())

	return path
}

func TestWriterReaderRoundTrip(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 16, 8)
	meta.Image.IComments = []string{"first comment", "second comment"}
	arr := testImage(t, 16, 8)

	path := writeProduct(t, meta, arr)

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	hdr := r.Container().Header
	require.Equal(t, "SARkit example SICD FTITLE", hdr.Str("FTITLE"))
	require.Equal(t, "STATION01", hdr.Str("OSTAID"))
	require.Equal(t, "U", hdr.Str("FSCLAS"))

	require.Equal(t, "1.4.0", r.Metadata().Version().Version)
	nrows, err := r.Metadata().NumRows()
	require.NoError(t, err)
	require.Equal(t, int64(16), nrows)

	img := r.Container().Images[0].Subheader
	require.Equal(t, "SICD000", img.Str("IID1"))
	require.Equal(t, "first comment", img.Str("ICOM1"))
	require.Equal(t, "20231026093015", img.Str("IDATIM"))

	got, err := r.ReadImage()
	require.NoError(t, err)
	require.Equal(t, []int{16, 8}, got.Shape())
	want, err := arr.Complex64s()
	require.NoError(t, err)
	have, err := got.Complex64s()
	require.NoError(t, err)
	require.Equal(t, want, have)
}

func TestReaderCloseSemantics(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 4, 4)
	path := writeProduct(t, meta, testImage(t, 4, 4))

	r, err := OpenReader(path)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	// metadata stays valid, payload access fails
	pt, err := r.Metadata().PixelType()
	require.NoError(t, err)
	require.Equal(t, "RE32F_IM32F", pt)
	_, err = r.ReadImage()
	require.ErrorIs(t, err, errs.ErrClosedSource)
}

func TestWriterIncompleteClose(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 4, 4)
	path := filepath.Join(t.TempDir(), "partial.nitf")

	w, err := CreateWriter(path, meta)
	require.NoError(t, err)

	err = w.Close()
	require.ErrorIs(t, err, errs.ErrIncompleteWrite)
	require.Contains(t, err.Error(), "Image001")
	require.NoError(t, w.Close())
}

func TestWriterPayloadMismatch(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 8, 8)
	path := filepath.Join(t.TempDir(), "mismatch.nitf")

	w, err := CreateWriter(path, meta)
	require.NoError(t, err)

	wrongShape := testImage(t, 8, 4)
	require.ErrorIs(t, w.WriteImage(wrongShape), errs.ErrPayloadMismatch)

	wrongType, err := dtype.New(dtype.F4, 8, 8)
	require.NoError(t, err)
	require.ErrorIs(t, w.WriteImage(wrongType), errs.ErrPayloadMismatch)

	// nothing was committed, so closing still reports the gap
	require.ErrorIs(t, w.Close(), errs.ErrIncompleteWrite)
}

func TestWriterClosedWrite(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 4, 4)
	w, err := CreateWriter(filepath.Join(t.TempDir(), "closed.nitf"), meta)
	require.NoError(t, err)
	_ = w.Close()

	require.ErrorIs(t, w.WriteImage(testImage(t, 4, 4)), errs.ErrClosedSource)
}

// recordingReader tracks the byte ranges read through it.
type recordingReader struct {
	r      *bytes.Reader
	pos    int64
	ranges [][2]int64
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if n > 0 {
		rr.ranges = append(rr.ranges, [2]int64{rr.pos, rr.pos + int64(n)})
		rr.pos += int64(n)
	}

	return n, err
}

func (rr *recordingReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := rr.r.Seek(offset, whence)
	rr.pos = pos

	return pos, err
}

func TestReaderIsLazy(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 32, 16)
	path := writeProduct(t, meta, testImage(t, 32, 16))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	rr := &recordingReader{r: bytes.NewReader(raw)}
	r, err := NewReader(rr)
	require.NoError(t, err)

	seg := r.Container().Images[0]
	for _, rng := range rr.ranges {
		overlap := rng[0] < seg.DataOffset+seg.DataLength && rng[1] > seg.DataOffset
		require.Falsef(t, overlap,
			"construction read pixel bytes [%d,%d)", rng[0], rng[1])
	}

	// the pixel read happens on demand
	before := len(rr.ranges)
	_, err = r.ReadImage()
	require.NoError(t, err)
	require.Greater(t, len(rr.ranges), before)
}

func TestReaderSubImageUnsupported(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 4, 4)
	r, err := OpenReader(writeProduct(t, meta, testImage(t, 4, 4)))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadSubImage(0, 0, 2, 2)
	require.Error(t, err)
}

func TestNewMetadataNamespaces(t *testing.T) {
	parse := func(xml string) *etree.Document {
		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromString(xml))

		return doc
	}

	_, err := NewMetadata(parse(`<SIDD xmlns="urn:SIDD:2.0.0"/>`))
	require.ErrorIs(t, err, errs.ErrMalformedHeader)

	_, err = NewMetadata(etree.NewDocument())
	require.ErrorIs(t, err, errs.ErrMalformedHeader)

	// an unknown standard version is accepted as the latest, namespace kept
	meta, err := NewMetadata(parse(`<SICD xmlns="urn:SICD:9.9.9"/>`))
	require.NoError(t, err)
	require.Equal(t, "urn:SICD:9.9.9", meta.Version().Namespace)
	require.Equal(t, LatestVersion().SpecVersion, meta.Version().SpecVersion)
}

func TestPlanMatchesFile(t *testing.T) {
	meta := testMetadata(t, "RE32F_IM32F", 8, 8)
	path := filepath.Join(t.TempDir(), "plan.nitf")

	w, err := CreateWriter(path, meta)
	require.NoError(t, err)
	plan := w.Plan()
	require.NoError(t, w.WriteImage(testImage(t, 8, 8)))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, plan.Total, info.Size())

	// the XML segment holds exactly the serialized metadata
	xmlSeg, ok := plan.Find("XML")
	require.True(t, ok)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	buf := make([]byte, xmlSeg.Length)
	_, err = f.Seek(xmlSeg.Offset, io.SeekStart)
	require.NoError(t, err)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	require.Contains(t, string(buf), `xmlns="urn:SICD:1.4.0"`)
}
