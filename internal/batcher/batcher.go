// Package batcher implements the adaptive inference batcher (C2): it turns
// a stream of independent Submit calls into size/time-bounded batches,
// invokes a Detector once per batch, and correlates each result back to its
// originating caller.
//
// The loop structure is adapted from a ClipBatchDispatcher
// (internal/queue/clip_dispatcher.go) shape: a channel-fed queue, a signal
// channel that short-circuits a timer when a batch fills up, and a
// per-submission result channel as the single-resolution completion handle.
// The batch formation algorithm itself (wake on signal-or-timer, pop under
// lock, dispatch, resolve) is grounded on
// original_source/services/inference/src/inference_server.py's
// InferenceBatcher, translated from asyncio Lock+Event+deque into Go
// mutex+channel+timer.
package batcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"inference-service/internal/apierr"
	"inference-service/internal/detector"
	"inference-service/internal/workerpool"
)

// ResultPublisher is the subset of the Publisher (C3) the batcher depends
// on: fire-and-forget hand-off of a completed result, never awaited.
type ResultPublisher interface {
	Publish(result detector.Result, workerID, cameraID string) bool
}

// Config controls batch formation.
type Config struct {
	// MaxBatchSize bounds how many submissions one Detector.Predict call
	// receives. Must be in [1, 64].
	MaxBatchSize int
	// BatchTimeoutMs bounds how long a partial batch waits before being
	// dispatched anyway. Must be >= 1.
	BatchTimeoutMs int
	// QueueCapacity is the hard reject bound for queued-but-not-yet-batched
	// submissions. Zero selects the default of 10*MaxBatchSize.
	QueueCapacity int
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize < 1 {
		c.MaxBatchSize = 1
	}
	if c.MaxBatchSize > 64 {
		c.MaxBatchSize = 64
	}
	if c.BatchTimeoutMs < 1 {
		c.BatchTimeoutMs = 1
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 10 * c.MaxBatchSize
	}
	return c
}

type runState int32

const (
	stateStopped runState = iota
	stateStarting
	stateRunning
	stateStopping
)

type submissionResult struct {
	result detector.Result
	err    error
}

type submission struct {
	image       detector.Image
	frameID     string
	timestampMs int64
	workerID    string
	cameraID    string
	resultCh    chan submissionResult
}

// Stats is a point-in-time snapshot of batcher activity, returned by Stats.
type Stats struct {
	BatchesDispatched int64
	SubmissionsTotal  int64
	SubmissionsFailed int64
	QueueDepth        int
}

// Batcher is the adaptive, size/time-bounded inference batcher.
type Batcher struct {
	cfg Config
	det detector.Detector
	pub ResultPublisher // nil if no publisher configured
	pool *workerpool.Pool
	log  *zap.Logger

	stateMu sync.Mutex
	state   runState

	queueMu sync.Mutex
	queue   []*submission

	signal   chan struct{}
	stopCh   chan struct{}
	loopDone chan struct{}

	batchesDispatched atomic.Int64
	submissionsTotal  atomic.Int64
	submissionsFailed atomic.Int64
}

// New constructs a Batcher. pub may be nil, in which case results are never
// published, only returned to the caller of Submit.
func New(cfg Config, det detector.Detector, pub ResultPublisher, pool *workerpool.Pool, log *zap.Logger) *Batcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Batcher{
		cfg:    cfg.withDefaults(),
		det:    det,
		pub:    pub,
		pool:   pool,
		log:    log,
		signal: make(chan struct{}, 1),
	}
}

// Start spawns the batch loop goroutine. Idempotent: calling Start while
// already Running is a no-op. Returns an error if the batcher has already
// been stopped (it is not restartable).
func (b *Batcher) Start(ctx context.Context) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	switch b.state {
	case stateRunning, stateStarting:
		return nil
	case stateStopping, stateStopped:
		if b.loopDone != nil {
			// Already ran and stopped once; batchers are single-use.
			return fmt.Errorf("%w: batcher already stopped", apierr.ErrNotRunning)
		}
	}

	b.state = stateStarting
	b.stopCh = make(chan struct{})
	b.loopDone = make(chan struct{})
	b.state = stateRunning
	go b.loop()
	return nil
}

// Stop signals the loop, waits for any in-flight batch to drain, then
// cancels every remaining queued submission with apierr.ErrCancelled.
// Idempotent.
func (b *Batcher) Stop(ctx context.Context) error {
	b.stateMu.Lock()
	if b.state == stateStopped || b.state == stateStopping {
		b.stateMu.Unlock()
		if b.loopDone != nil {
			<-b.loopDone
		}
		return nil
	}
	if b.state != stateRunning {
		b.stateMu.Unlock()
		return nil
	}
	b.state = stateStopping
	close(b.stopCh)
	b.stateMu.Unlock()

	select {
	case <-b.loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.stateMu.Lock()
	b.state = stateStopped
	b.stateMu.Unlock()
	return nil
}

// Submit enqueues a submission and blocks until the batch containing it
// completes, returning its result. It fails immediately with
// apierr.ErrNotRunning if called after Stop.
func (b *Batcher) Submit(ctx context.Context, image detector.Image, frameID string, timestampMs int64, workerID, cameraID string) (detector.Result, error) {
	b.stateMu.Lock()
	running := b.state == stateRunning
	b.stateMu.Unlock()
	if !running {
		return detector.Result{}, fmt.Errorf("%w: submit after stop", apierr.ErrNotRunning)
	}

	sub := &submission{
		image:       image,
		frameID:     frameID,
		timestampMs: timestampMs,
		workerID:    workerID,
		cameraID:    cameraID,
		resultCh:    make(chan submissionResult, 1),
	}

	b.queueMu.Lock()
	if len(b.queue) >= b.cfg.QueueCapacity {
		b.queueMu.Unlock()
		return detector.Result{}, fmt.Errorf("%w: queue capacity %d exceeded", apierr.ErrInvalidArgument, b.cfg.QueueCapacity)
	}
	b.queue = append(b.queue, sub)
	full := len(b.queue) >= b.cfg.MaxBatchSize
	b.queueMu.Unlock()

	b.submissionsTotal.Add(1)
	if full {
		select {
		case b.signal <- struct{}{}:
		default:
		}
	}

	select {
	case res := <-sub.resultCh:
		if res.err != nil {
			b.submissionsFailed.Add(1)
		}
		return res.result, res.err
	case <-ctx.Done():
		return detector.Result{}, ctx.Err()
	}
}

// QueueDepth returns the number of submissions currently queued but not yet
// batched.
func (b *Batcher) QueueDepth() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return len(b.queue)
}

// Stats returns a snapshot of batcher counters.
func (b *Batcher) Stats() Stats {
	return Stats{
		BatchesDispatched: b.batchesDispatched.Load(),
		SubmissionsTotal:  b.submissionsTotal.Load(),
		SubmissionsFailed: b.submissionsFailed.Load(),
		QueueDepth:        b.QueueDepth(),
	}
}

func (b *Batcher) loop() {
	defer close(b.loopDone)

	timer := time.NewTimer(time.Duration(b.cfg.BatchTimeoutMs) * time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case <-b.stopCh:
			b.drainAndCancel()
			return
		case <-b.signal:
			drainSignal(b.signal)
			b.dispatchReady()
			resetTimer(timer, time.Duration(b.cfg.BatchTimeoutMs)*time.Millisecond)
		case <-timer.C:
			b.dispatchReady()
			timer.Reset(time.Duration(b.cfg.BatchTimeoutMs) * time.Millisecond)
		}
	}
}

func drainSignal(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// dispatchReady pops up to MaxBatchSize submissions from the queue head and,
// if any were popped, dispatches them as one batch.
func (b *Batcher) dispatchReady() {
	b.queueMu.Lock()
	if len(b.queue) == 0 {
		b.queueMu.Unlock()
		return
	}
	n := len(b.queue)
	if n > b.cfg.MaxBatchSize {
		n = b.cfg.MaxBatchSize
	}
	batch := b.queue[:n]
	b.queue = b.queue[n:]
	b.queueMu.Unlock()

	b.processBatch(batch)
}

func (b *Batcher) processBatch(batch []*submission) {
	images := make([]detector.Image, len(batch))
	frameIDs := make([]string, len(batch))
	timestamps := make([]int64, len(batch))
	for i, s := range batch {
		images[i] = s.image
		frameIDs[i] = s.frameID
		timestamps[i] = s.timestampMs
	}

	var (
		results []detector.Result
		predErr error
	)

	runPredict := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		results, predErr = b.det.Predict(ctx, images, frameIDs, timestamps)
	}

	if b.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := b.pool.Submit(ctx, runPredict); err != nil {
			predErr = err
		}
		cancel()
	} else {
		runPredict()
	}

	b.batchesDispatched.Add(1)

	if predErr != nil {
		wrapped := fmt.Errorf("%w: %v", apierr.ErrInferenceFailed, predErr)
		for _, s := range batch {
			b.resolve(s, submissionResult{err: wrapped})
		}
		b.log.Warn("batch inference failed", zap.Error(predErr), zap.Int("batch_size", len(batch)))
		return
	}

	for i, s := range batch {
		res := results[i]
		if b.pub != nil {
			b.pub.Publish(res, s.workerID, s.cameraID)
		}
		b.resolve(s, submissionResult{result: res})
	}
}

func (b *Batcher) resolve(s *submission, res submissionResult) {
	select {
	case s.resultCh <- res:
	default:
		// Caller already gave up (context cancelled); resolution is a
		// no-op.
	}
}

// drainAndCancel fails every submission still queued at Stop time with
// apierr.ErrCancelled. It does not wait for an in-flight processBatch call
// because dispatchReady/processBatch run synchronously on the loop
// goroutine that called drainAndCancel's caller — Stop only returns once
// loop() itself has returned, which happens after any in-flight batch
// dispatched from the signal/timer branches has already resolved.
func (b *Batcher) drainAndCancel() {
	b.queueMu.Lock()
	remaining := b.queue
	b.queue = nil
	b.queueMu.Unlock()

	for _, s := range remaining {
		b.resolve(s, submissionResult{err: apierr.ErrCancelled})
	}
}
