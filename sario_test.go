package sario

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/sario/errs"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		head string
		want Format
	}{
		{"nitf", "NITF02.10012345", FormatNITF},
		{"cphd", "CPHD/1.1.0\nXML_BLOCK_SIZE := 1\n", FormatCPHD},
		{"cphd short file", "CPHD/", FormatCPHD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(bytes.NewReader([]byte(tt.head)))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	for _, head := range []string{"", "NITF02.00", "GIF89a", "<?xml version"} {
		got, err := Detect(bytes.NewReader([]byte(head)))
		require.ErrorIs(t, err, errs.ErrMalformedHeader)
		require.Equal(t, FormatUnknown, got)
	}
}

func TestFormatString(t *testing.T) {
	require.Equal(t, "NITF", FormatNITF.String())
	require.Equal(t, "CPHD", FormatCPHD.String())
	require.Equal(t, "Unknown", FormatUnknown.String())
}
