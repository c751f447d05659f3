package batcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inference-service/internal/apierr"
	"inference-service/internal/detector"
)

type fakeDetector struct {
	mu        sync.Mutex
	calls     [][]string // frame ids per call, in call order
	failOnce  bool
	failedErr error
}

func (f *fakeDetector) Load(ctx context.Context) error   { return nil }
func (f *fakeDetector) Unload(ctx context.Context) error { return nil }
func (f *fakeDetector) IsLoaded() bool                   { return true }
func (f *fakeDetector) Warmup(ctx context.Context, n int) error { return nil }

func (f *fakeDetector) Predict(ctx context.Context, images []detector.Image, frameIDs []string, timestamps []int64) ([]detector.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{}, frameIDs...))
	shouldFail := f.failOnce
	f.failOnce = false
	f.mu.Unlock()

	if shouldFail {
		return nil, errors.New("boom")
	}

	results := make([]detector.Result, len(frameIDs))
	for i, id := range frameIDs {
		results[i] = detector.Result{FrameID: id, TimestampMs: timestamps[i]}
	}
	return results, nil
}

func submitAsync(t *testing.T, b *Batcher, frameID string) <-chan submissionResult {
	t.Helper()
	ch := make(chan submissionResult, 1)
	go func() {
		res, err := b.Submit(context.Background(), detector.Image{}, frameID, 0, "", "")
		ch <- submissionResult{result: res, err: err}
	}()
	return ch
}

func TestBatcher_S1_PartialBatchDispatchedAfterTimeout(t *testing.T) {
	det := &fakeDetector{}
	b := New(Config{MaxBatchSize: 4, BatchTimeoutMs: 50}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	c1 := submitAsync(t, b, "a")
	c2 := submitAsync(t, b, "b")
	c3 := submitAsync(t, b, "c")

	start := time.Now()
	r1 := <-c1
	r2 := <-c2
	r3 := <-c3
	elapsed := time.Since(start)

	require.NoError(t, r1.err)
	require.NoError(t, r2.err)
	require.NoError(t, r3.err)
	require.Less(t, elapsed, 500*time.Millisecond)

	det.mu.Lock()
	defer det.mu.Unlock()
	require.Len(t, det.calls, 1)
	require.ElementsMatch(t, []string{"a", "b", "c"}, det.calls[0])
}

func TestBatcher_S2_FullBatchesDispatchImmediately(t *testing.T) {
	det := &fakeDetector{}
	b := New(Config{MaxBatchSize: 4, BatchTimeoutMs: 2000}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	var chans []<-chan submissionResult
	for i := 0; i < 10; i++ {
		chans = append(chans, submitAsync(t, b, string(rune('a'+i))))
	}

	for _, c := range chans {
		select {
		case res := <-c:
			require.NoError(t, res.err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for submission result")
		}
	}

	det.mu.Lock()
	defer det.mu.Unlock()
	require.Len(t, det.calls, 3)
	sizes := []int{len(det.calls[0]), len(det.calls[1]), len(det.calls[2])}
	require.ElementsMatch(t, []int{4, 4, 2}, sizes)
}

func TestBatcher_S3_DetectorErrorFailsOnlyThatBatch(t *testing.T) {
	det := &fakeDetector{failOnce: true}
	b := New(Config{MaxBatchSize: 1, BatchTimeoutMs: 20}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	_, err := b.Submit(context.Background(), detector.Image{}, "x", 0, "", "")
	require.ErrorIs(t, err, apierr.ErrInferenceFailed)

	res, err := b.Submit(context.Background(), detector.Image{}, "y", 0, "", "")
	require.NoError(t, err)
	require.Equal(t, "y", res.FrameID)
}

func TestBatcher_ResultCorrelation(t *testing.T) {
	det := &fakeDetector{}
	b := New(Config{MaxBatchSize: 8, BatchTimeoutMs: 30}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	ids := []string{"f1", "f2", "f3", "f4", "f5"}
	var chans []<-chan submissionResult
	for _, id := range ids {
		chans = append(chans, submitAsync(t, b, id))
	}
	for i, c := range chans {
		res := <-c
		require.NoError(t, res.err)
		require.Equal(t, ids[i], res.result.FrameID)
	}
}

func TestBatcher_SubmitAfterStopFails(t *testing.T) {
	det := &fakeDetector{}
	b := New(Config{MaxBatchSize: 4, BatchTimeoutMs: 20}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))

	_, err := b.Submit(context.Background(), detector.Image{}, "late", 0, "", "")
	require.ErrorIs(t, err, apierr.ErrNotRunning)
}

func TestBatcher_StopCancelsQueuedSubmissions(t *testing.T) {
	det := &fakeDetector{}
	// Large batch size + long timeout means submissions sit queued until
	// Stop cancels them.
	b := New(Config{MaxBatchSize: 64, BatchTimeoutMs: 60_000}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))

	c1 := submitAsync(t, b, "q1")
	c2 := submitAsync(t, b, "q2")

	// Give the submissions a moment to land in the queue.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Stop(context.Background()))

	r1 := <-c1
	r2 := <-c2
	require.ErrorIs(t, r1.err, apierr.ErrCancelled)
	require.ErrorIs(t, r2.err, apierr.ErrCancelled)
}

func TestBatcher_NeverExceedsMaxBatchSize(t *testing.T) {
	det := &fakeDetector{}
	b := New(Config{MaxBatchSize: 3, BatchTimeoutMs: 15}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	var chans []<-chan submissionResult
	for i := 0; i < 25; i++ {
		chans = append(chans, submitAsync(t, b, "f"))
	}
	for _, c := range chans {
		<-c
	}

	det.mu.Lock()
	defer det.mu.Unlock()
	for _, call := range det.calls {
		require.LessOrEqual(t, len(call), 3)
	}
}
