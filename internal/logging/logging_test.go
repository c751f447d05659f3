package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsToInfoJSON(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync()
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := New(Config{Level: "not-a-level"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync()
}

func TestNew_DevelopmentConsoleEncoding(t *testing.T) {
	logger, err := New(Config{Development: true, Format: "console", Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync()
}
