// Package logging constructs the zap.Logger instances injected into every
// other package (batcher, publisher, consumer, servicer, ...) the way the
// rest of the module already expects — *zap.Logger passed in at
// construction time rather than a global logger, mirroring the DI shape
// durable-streams-durable-streams's caddy-plugin.module.go uses for its
// own *zap.Logger field.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger's verbosity and output encoding.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "json" or "console". Defaults to "json".
	Format string
	// Development enables stack traces on warn and friendlier console output.
	Development bool
}

func (c Config) withDefaults() Config {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	return c
}

// New builds a *zap.Logger from Config. An unparsable level falls back to
// info so that a bad level value degrades observability rather than
// preventing startup. If zap cannot build the logger (e.g. an unknown
// Format), New returns a nil logger and the error.
func New(cfg Config) (*zap.Logger, error) {
	cfg = cfg.withDefaults()

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Format
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
