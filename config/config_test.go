package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Positive(t, cfg.NET.WriteBufferSize)
	require.Positive(t, cfg.Body.MaxSize)
	require.Positive(t, cfg.Executors.IOWorkers)
}

func TestFromEnv(t *testing.T) {
	t.Run("without overrides equals defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("overrides apply", func(t *testing.T) {
		t.Setenv("COBALT_IO_WORKERS", "12")
		t.Setenv("COBALT_BODY_MAX_SIZE", "1024")

		cfg, err := FromEnv()
		require.NoError(t, err)
		require.Equal(t, 12, cfg.Executors.IOWorkers)
		require.EqualValues(t, 1024, cfg.Body.MaxSize)
	})

	t.Run("malformed values are rejected", func(t *testing.T) {
		t.Setenv("COBALT_IO_WORKERS", "a dozen")

		_, err := FromEnv()
		require.Error(t, err)
	})
}
