package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{
		"MODEL_DEVICE", "MODEL_BATCH_SIZE", "CONSUMER_TOPICS", "SERVER_HTTP_ADDR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	require.Equal(t, "cpu", cfg.Model.Device)
	require.Equal(t, 8, cfg.Model.BatchSize)
	require.Equal(t, []string{"frames"}, cfg.Consumer.Topics)
	require.Equal(t, ":8080", cfg.Server.HTTPAddr)
	require.False(t, cfg.Consumer.AutoCommit)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("MODEL_DEVICE", "cuda:0")
	t.Setenv("MODEL_BATCH_SIZE", "16")
	t.Setenv("CONSUMER_TOPICS", "frames, frames-priority")
	t.Setenv("PUBLISHER_MAX_PENDING", "2000")

	cfg := Load()

	require.Equal(t, "cuda:0", cfg.Model.Device)
	require.Equal(t, 16, cfg.Model.BatchSize)
	require.Equal(t, []string{"frames", "frames-priority"}, cfg.Consumer.Topics)
	require.Equal(t, int64(2000), cfg.Publisher.MaxPending)
}

func TestLoad_MalformedNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("MODEL_BATCH_SIZE", "not-a-number")

	cfg := Load()

	require.Equal(t, 8, cfg.Model.BatchSize)
}

func TestIsDevelopmentMode(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	require.True(t, IsDevelopmentMode())

	t.Setenv("APP_ENV", "production")
	require.False(t, IsDevelopmentMode())
}
