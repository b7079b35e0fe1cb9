package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumFormat(t *testing.T) {
	sum := Sum([]byte("payload bytes"))
	require.Len(t, sum, len(Prefix)+16)
	require.Regexp(t, `^xxh64:[0-9a-f]{16}$`, sum)
}

func TestIncrementalMatchesOneShot(t *testing.T) {
	data := []byte("split across several writes")

	d := New()
	_, err := d.Write(data[:5])
	require.NoError(t, err)
	_, err = d.Write(data[5:])
	require.NoError(t, err)

	require.Equal(t, Sum(data), d.Sum())

	d.Reset()
	_, err = d.Write(data)
	require.NoError(t, err)
	require.Equal(t, Sum(data), d.Sum())
}

func TestVerify(t *testing.T) {
	data := []byte("block contents")

	require.True(t, Verify(Sum(data), data))
	require.False(t, Verify(Sum(data), []byte("other contents")))
	require.False(t, Verify("sha256:deadbeef", data))
	require.False(t, Verify("", data))
}
