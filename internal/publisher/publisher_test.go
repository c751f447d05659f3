package publisher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"

	"inference-service/internal/detector"
)

type fakeKafkaProducer struct {
	mu       sync.Mutex
	events   chan kafka.Event
	produced []*kafka.Message
	closed   bool
}

func newFakeKafkaProducer() *fakeKafkaProducer {
	return &fakeKafkaProducer{events: make(chan kafka.Event, 64)}
}

func (f *fakeKafkaProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	f.mu.Lock()
	f.produced = append(f.produced, msg)
	f.mu.Unlock()
	_ = deliveryChan // Publisher always passes nil; acks arrive via Events().
	return nil
}

// ackNext delivers a successful delivery report for the i-th produced
// message, simulating the broker catching up.
func (f *fakeKafkaProducer) ackNext(i int) {
	f.mu.Lock()
	msg := f.produced[i]
	f.mu.Unlock()
	f.events <- msg
}

func (f *fakeKafkaProducer) Flush(timeoutMs int) int { return 0 }

func (f *fakeKafkaProducer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		close(f.events)
		f.closed = true
	}
}

func (f *fakeKafkaProducer) Events() chan kafka.Event { return f.events }

func withFakeProducer(t *testing.T, fake *fakeKafkaProducer) {
	t.Helper()
	orig := newProducer
	newProducer = func(cfg *kafka.ConfigMap) (kafkaProducer, error) {
		return fake, nil
	}
	t.Cleanup(func() { newProducer = orig })
}

func TestPublisher_S4_BackpressureDropsSurplusWithoutBlockingCaller(t *testing.T) {
	fake := newFakeKafkaProducer()
	withFakeProducer(t, fake)

	p := New(Config{Topic: "detections", MaxPending: 2}, nil)
	require.NoError(t, p.Connect(context.Background()))
	defer p.Disconnect(context.Background())

	ok1 := p.Publish(detector.Result{FrameID: "f1"}, "", "")
	ok2 := p.Publish(detector.Result{FrameID: "f2"}, "", "")
	ok3 := p.Publish(detector.Result{FrameID: "f3"}, "", "")

	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
	require.LessOrEqual(t, p.Health().Pending, int64(2))
}

func TestPublisher_BackpressureDrainsOnRecovery(t *testing.T) {
	fake := newFakeKafkaProducer()
	withFakeProducer(t, fake)

	p := New(Config{Topic: "detections", MaxPending: 2}, nil)
	require.NoError(t, p.Connect(context.Background()))
	defer p.Disconnect(context.Background())

	require.True(t, p.Publish(detector.Result{FrameID: "f1"}, "", ""))
	require.True(t, p.Publish(detector.Result{FrameID: "f2"}, "", ""))
	require.False(t, p.Publish(detector.Result{FrameID: "f3"}, "", ""))

	fake.ackNext(0)
	fake.ackNext(1)

	require.Eventually(t, func() bool {
		return p.Health().Pending == 0
	}, time.Second, 10*time.Millisecond)

	require.True(t, p.Publish(detector.Result{FrameID: "f4"}, "", ""))
}

func TestPublisher_PublishBeforeConnectReturnsFalse(t *testing.T) {
	p := New(Config{Topic: "detections"}, nil)
	require.False(t, p.Publish(detector.Result{FrameID: "f1"}, "", ""))
}

func TestDecrementPendingClamped_NeverGoesNegative(t *testing.T) {
	var counter atomic.Int64
	counter.Store(1)

	decrementPendingClamped(&counter)
	require.Equal(t, int64(0), counter.Load())

	// Further decrements (simulating out-of-order delivery callbacks) must
	// clamp at zero rather than going negative.
	decrementPendingClamped(&counter)
	decrementPendingClamped(&counter)
	require.Equal(t, int64(0), counter.Load())
}

func TestComplianceSummary_ViolationsAndCompliantItems(t *testing.T) {
	result := detector.Result{
		Detections: []detector.Detection{
			{ClassName: "no_helmet"},
			{ClassName: "vest"},
			{ClassName: "person"},
		},
	}
	summary := ComputeComplianceSummary(result)
	require.ElementsMatch(t, []string{"no_helmet"}, summary.Violations)
	require.ElementsMatch(t, []string{"vest"}, summary.CompliantItems)
	require.True(t, summary.HasViolations)
	require.Equal(t, 1, summary.ViolationCount)
	require.Equal(t, 1, summary.PersonCount)
}
