package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// sinkConfig mimics the writer configuration the format packages build
// with this package.
type sinkConfig struct {
	bufferSize int
	label      string
	verify     bool
}

func withBufferSize(n int) Option[*sinkConfig] {
	return New(func(c *sinkConfig) error {
		if n <= 0 {
			return errors.New("buffer size must be positive")
		}
		c.bufferSize = n

		return nil
	})
}

func withLabel(label string) Option[*sinkConfig] {
	return NoError(func(c *sinkConfig) {
		c.label = label
	})
}

func withVerify() Option[*sinkConfig] {
	return NoError(func(c *sinkConfig) {
		c.verify = true
	})
}

func TestOptionNew(t *testing.T) {
	t.Run("applies the wrapped function", func(t *testing.T) {
		cfg := &sinkConfig{}
		require.NoError(t, Apply(cfg, withBufferSize(4096)))
		require.Equal(t, 4096, cfg.bufferSize)
	})

	t.Run("propagates errors", func(t *testing.T) {
		cfg := &sinkConfig{}
		err := Apply(cfg, withBufferSize(-1))
		require.ErrorContains(t, err, "buffer size must be positive")
	})
}

func TestOptionNoError(t *testing.T) {
	cfg := &sinkConfig{}
	require.NoError(t, Apply(cfg, withLabel("signal"), withVerify()))
	require.Equal(t, "signal", cfg.label)
	require.True(t, cfg.verify)
}

func TestOptionApply(t *testing.T) {
	t.Run("applies options in order", func(t *testing.T) {
		cfg := &sinkConfig{}
		err := Apply(cfg,
			withLabel("first"),
			withBufferSize(64),
			withLabel("last"),
		)
		require.NoError(t, err)
		require.Equal(t, "last", cfg.label)
		require.Equal(t, 64, cfg.bufferSize)
	})

	t.Run("stops at the first error", func(t *testing.T) {
		cfg := &sinkConfig{}
		err := Apply(cfg,
			withBufferSize(64),
			withBufferSize(0),
			withLabel("unreached"),
		)
		require.Error(t, err)
		require.Equal(t, 64, cfg.bufferSize)
		require.Empty(t, cfg.label)
	})

	t.Run("accepts no options", func(t *testing.T) {
		cfg := &sinkConfig{}
		require.NoError(t, Apply(cfg))
		require.Equal(t, sinkConfig{}, *cfg)
	})
}

func TestOptionOtherTargetTypes(t *testing.T) {
	var n int
	opt := NoError(func(p *int) {
		*p = 42
	})
	require.NoError(t, Apply(&n, opt))
	require.Equal(t, 42, n)
}
