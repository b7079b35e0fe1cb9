package sicd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetLogger(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	require.NotNil(t, prev)

	// An injected logger sticks; the lazy default must not replace it.
	l := zap.NewExample()
	SetLogger(l)
	require.Same(t, l, Logger())
	require.Same(t, l, Logger())
}
