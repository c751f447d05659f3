// Package lifecycle coordinates the ordered startup and shutdown of every
// long-lived component (C8): detector, batcher, publisher, and the
// RPC/HTTP front doors. It is the explicit, testable Go counterpart of
// original_source/services/inference/src/main.py's FastAPI
// @asynccontextmanager lifespan function — the same load → warmup →
// connect → serve ordering, forward on startup and reversed on shutdown,
// translated from an implicit try/finally block into a Coordinator with
// Startup/Shutdown methods a caller can invoke from main and from tests.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Detector is the subset of detector.Detector the coordinator drives.
type Detector interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
	Warmup(ctx context.Context, batchSize int) error
}

// Batcher is the subset of *batcher.Batcher the coordinator drives.
type Batcher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Publisher is the subset of *publisher.Publisher / *publisher.AlertPublisher
// the coordinator drives. Connect failures are logged and treated as
// non-fatal: the service starts in a degraded state rather than refusing
// to come up because a broker is briefly unreachable.
type Publisher interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Server is satisfied by *http.Server (Shutdown(ctx) error) and by
// cmd/server's grpcServerShutdown, which wraps the gRPC server's
// GracefulStop/Stop pair into the same shape, so the coordinator can treat
// both front doors uniformly.
type Server interface {
	Shutdown(ctx context.Context) error
}

// Config controls warmup depth and the shutdown grace window.
type Config struct {
	// WarmupBatchSize is the batch size used for synthetic warmup predictions.
	WarmupBatchSize int
	// WarmupRounds is how many warmup batches to run. Minimum 3.
	WarmupRounds int
	// ShutdownGrace bounds how long Server.Shutdown calls are allowed to
	// take before the coordinator gives up waiting and moves on.
	ShutdownGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.WarmupBatchSize < 1 {
		c.WarmupBatchSize = 1
	}
	if c.WarmupRounds < 3 {
		c.WarmupRounds = 3
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
	return c
}

// Coordinator owns the startup/shutdown ordering for one inference service
// process. All fields besides Detector and Batcher are optional: a
// Coordinator built for a unit test may omit the publisher and servers
// entirely and still drive the detector/batcher pair correctly.
type Coordinator struct {
	cfg Config
	log *zap.Logger

	Detector  Detector
	Batcher   Batcher
	Publisher Publisher // detection-event publisher; may be nil
	Alert     Publisher // alert publisher; may be nil
	Servers   []Server  // e.g. HTTP server wrapper, gRPC server wrapper
}

// New constructs a Coordinator. Detector and Batcher are required; the
// remaining fields should be set on the returned value before Startup.
func New(cfg Config, det Detector, b Batcher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{cfg: cfg.withDefaults(), log: log, Detector: det, Batcher: b}
}

// Startup brings every component up in order: detector load, warmup,
// publisher connect (non-fatal), alert publisher connect (non-fatal),
// batcher start. It does not start c.Servers — callers own bringing their
// HTTP/gRPC listeners up once Startup returns, since net.Listen failures
// are the caller's to report with their own bind-address context.
func (c *Coordinator) Startup(ctx context.Context) error {
	c.log.Info("starting inference service")

	if err := c.Detector.Load(ctx); err != nil {
		return fmt.Errorf("load detector: %w", err)
	}

	for i := 0; i < c.cfg.WarmupRounds; i++ {
		if err := c.Detector.Warmup(ctx, c.cfg.WarmupBatchSize); err != nil {
			_ = c.Detector.Unload(ctx)
			return fmt.Errorf("warmup round %d: %w", i+1, err)
		}
	}
	c.log.Info("detector warmed up", zap.Int("rounds", c.cfg.WarmupRounds), zap.Int("batch_size", c.cfg.WarmupBatchSize))

	if c.Publisher != nil {
		if err := c.Publisher.Connect(ctx); err != nil {
			c.log.Warn("publisher connect failed, continuing without detection publishing", zap.Error(err))
		}
	}
	if c.Alert != nil {
		if err := c.Alert.Connect(ctx); err != nil {
			c.log.Warn("alert publisher connect failed, continuing without alert publishing", zap.Error(err))
		}
	}

	if err := c.Batcher.Start(ctx); err != nil {
		return fmt.Errorf("start batcher: %w", err)
	}

	c.log.Info("inference service ready")
	return nil
}

// Shutdown tears every component down in reverse order: servers (bounded
// by ShutdownGrace, errors collected but not fatal), batcher, publishers,
// detector. It always attempts every step even if an earlier one fails, so
// one stuck component cannot prevent the others from releasing resources.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.log.Info("shutting down inference service")
	var errs []error

	for _, srv := range c.Servers {
		shutdownCtx, cancel := context.WithTimeout(ctx, c.cfg.ShutdownGrace)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		cancel()
	}

	if err := c.Batcher.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop batcher: %w", err))
	}

	if c.Publisher != nil {
		if err := c.Publisher.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect publisher: %w", err))
		}
	}
	if c.Alert != nil {
		if err := c.Alert.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect alert publisher: %w", err))
		}
	}

	if err := c.Detector.Unload(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unload detector: %w", err))
	}

	c.log.Info("inference service stopped")
	return errors.Join(errs...)
}
