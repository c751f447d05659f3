// Package publisher implements the message-bus egress layer (C3/C4):
// Publisher hands detection results to Kafka with bounded in-flight
// pressure and fire-and-forget semantics; AlertPublisher (in
// alert_publisher.go) is the synchronous-acknowledgement variant used for
// safety alerts.
//
// Grounded on original_source/services/inference/src/kafka_producer.py
// (DetectionKafkaProducer / AlertKafkaProducer: pending counter, partition
// key choice, compliance summary, acks/retry settings) and on the real
// confluent-kafka-go producer implementation retrieved in the example pack
// (vendor/github.com/confluentinc/confluent-kafka-go/kafka/producer.go),
// which is why that library was chosen: its ConfigMap/Produce/Events/Flush
// shape mirrors confluent_kafka almost exactly.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"inference-service/internal/apierr"
	"inference-service/internal/detector"
)

// kafkaProducer is the subset of *kafka.Producer this package depends on,
// extracted to an interface so tests can substitute a fake broker-free
// implementation.
type kafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
	Events() chan kafka.Event
}

// newProducer is overridable in tests.
var newProducer = func(cfg *kafka.ConfigMap) (kafkaProducer, error) {
	return kafka.NewProducer(cfg)
}

// Config controls a Publisher's broker connection and reliability
// settings.
type Config struct {
	BootstrapServers  string
	Topic             string
	ClientID          string
	ServiceName       string
	MaxPending        int64
	Acks              string // default "all"
	CompressionType   string // "none", "gzip", "snappy", "lz4", "zstd"
	Retries           int
	RetryBackoffMs    int
	LingerMs          int
	BatchSize         int
	EnableIdempotence bool
	RequestTimeoutMs  int
	FlushTimeout      time.Duration
	SecurityProtocol  string
	SASLMechanism     string
}

func (c Config) withDefaults() Config {
	if c.MaxPending <= 0 {
		c.MaxPending = 1000
	}
	if c.Acks == "" {
		c.Acks = "all"
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 10 * time.Second
	}
	if c.ServiceName == "" {
		c.ServiceName = "ppe-inference-service"
	}
	return c
}

func (c Config) toProducerConfigMap() *kafka.ConfigMap {
	m := &kafka.ConfigMap{
		"bootstrap.servers":  c.BootstrapServers,
		"acks":               c.Acks,
		"enable.idempotence": c.EnableIdempotence,
	}
	if c.ClientID != "" {
		_ = m.SetKey("client.id", c.ClientID)
	}
	if c.CompressionType != "" {
		_ = m.SetKey("compression.type", c.CompressionType)
	}
	if c.Retries > 0 {
		_ = m.SetKey("retries", c.Retries)
	}
	if c.RetryBackoffMs > 0 {
		_ = m.SetKey("retry.backoff.ms", c.RetryBackoffMs)
	}
	if c.LingerMs > 0 {
		_ = m.SetKey("linger.ms", c.LingerMs)
	}
	if c.BatchSize > 0 {
		_ = m.SetKey("batch.size", c.BatchSize)
	}
	if c.RequestTimeoutMs > 0 {
		_ = m.SetKey("request.timeout.ms", c.RequestTimeoutMs)
	}
	if c.SecurityProtocol != "" {
		_ = m.SetKey("security.protocol", c.SecurityProtocol)
	}
	if c.SASLMechanism != "" {
		_ = m.SetKey("sasl.mechanism", c.SASLMechanism)
	}
	return m
}

// outgoingDetectionPayload is the JSON shape published for every detection
// result.
type outgoingDetectionPayload struct {
	FrameID           string            `json:"frame_id"`
	TimestampMs       int64             `json:"timestamp_ms"`
	Detections        []detectionJSON   `json:"detections"`
	InferenceTimeMs   float64           `json:"inference_time_ms"`
	ImageWidth        int               `json:"image_width"`
	ImageHeight       int               `json:"image_height"`
	WorkerID          string            `json:"worker_id,omitempty"`
	CameraID          string            `json:"camera_id,omitempty"`
	PublishTimestampMs int64            `json:"publish_timestamp_ms"`
	Service           string            `json:"service"`
	ComplianceSummary ComplianceSummary `json:"compliance_summary"`
}

type detectionJSON struct {
	ClassName  string  `json:"class_name"`
	ClassID    int     `json:"class_id"`
	Confidence float64 `json:"confidence"`
	BBox       bboxJSON `json:"bbox"`
}

type bboxJSON struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

func encodeResult(result detector.Result, workerID, cameraID, service string, now time.Time) ([]byte, error) {
	dets := make([]detectionJSON, len(result.Detections))
	for i, d := range result.Detections {
		dets[i] = detectionJSON{
			ClassName:  d.ClassName,
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			BBox: bboxJSON{
				XMin: d.BoundingBox.XMin,
				YMin: d.BoundingBox.YMin,
				XMax: d.BoundingBox.XMax,
				YMax: d.BoundingBox.YMax,
			},
		}
	}

	payload := outgoingDetectionPayload{
		FrameID:            result.FrameID,
		TimestampMs:        result.TimestampMs,
		Detections:         dets,
		InferenceTimeMs:    result.InferenceTimeMs,
		ImageWidth:         result.ImageWidth,
		ImageHeight:        result.ImageHeight,
		WorkerID:           workerID,
		CameraID:           cameraID,
		PublishTimestampMs: now.UnixMilli(),
		Service:            service,
		ComplianceSummary:  ComputeComplianceSummary(result),
	}
	return json.Marshal(payload)
}

// Health is a point-in-time snapshot returned by Publisher.Health.
type Health struct {
	Healthy   bool
	Connected bool
	Topic     string
	Pending   int64
}

// Publisher is the fire-and-forget, bounded-pending Kafka egress layer for
// detection-event publishing.
type Publisher struct {
	cfg Config
	log *zap.Logger

	mu        sync.Mutex
	producer  kafkaProducer
	connected bool

	pending   atomic.Int64
	deliveryDone chan struct{}
}

// New constructs a Publisher. Connect must be called before Publish.
func New(cfg Config, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{cfg: cfg.withDefaults(), log: log}
}

// Connect establishes the underlying Kafka producer session. Idempotent.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}

	prod, err := newProducer(p.cfg.toProducerConfigMap())
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrConnectionFailed, err)
	}

	p.producer = prod
	p.connected = true
	p.deliveryDone = make(chan struct{})
	go p.drainEvents(prod.Events(), p.deliveryDone)
	return nil
}

// drainEvents consumes delivery reports off the producer's Events channel
// and clamps the pending counter, per the Open Question resolution in
// DESIGN.md (atomic counter, CAS clamp at zero rather than a plain
// decrement that can go negative under out-of-order callbacks).
func (p *Publisher) drainEvents(events chan kafka.Event, done chan struct{}) {
	defer close(done)
	for ev := range events {
		msg, ok := ev.(*kafka.Message)
		if !ok {
			continue
		}
		decrementPendingClamped(&p.pending)
		if msg.TopicPartition.Error != nil {
			p.log.Warn("message delivery failed",
				zap.Error(msg.TopicPartition.Error),
				zap.String("topic", p.cfg.Topic))
		}
	}
}

// decrementPendingClamped decrements counter by 1 unless it is already at
// or below zero, in which case it is left at zero. This prevents underflow
// when delivery callbacks fire out of order.
func decrementPendingClamped(counter *atomic.Int64) {
	for {
		cur := counter.Load()
		if cur <= 0 {
			counter.Store(0)
			return
		}
		if counter.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Disconnect flushes pending messages (bounded by cfg.FlushTimeout) then
// tears down the producer. Idempotent.
func (p *Publisher) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.producer.Flush(int(p.cfg.FlushTimeout / time.Millisecond))
	p.producer.Close()
	p.connected = false
	<-p.deliveryDone
	return nil
}

// Publish enqueues a detection result for asynchronous delivery. It returns
// false (never an error) if the pending count is already at MaxPending, if
// JSON encoding fails, or if the producer refused the message synchronously.
// Publisher errors never propagate into the caller's reply path; callers
// should log and count them instead.
func (p *Publisher) Publish(result detector.Result, workerID, cameraID string) bool {
	p.mu.Lock()
	connected := p.connected
	producer := p.producer
	p.mu.Unlock()

	if !connected {
		p.log.Warn("publish before connect", zap.String("frame_id", result.FrameID), zap.Error(apierr.ErrNotConnected))
		return false
	}

	if p.pending.Load() >= p.cfg.MaxPending {
		p.log.Warn("dropped detection result: publisher backpressure",
			zap.String("frame_id", result.FrameID),
			zap.Int64("pending", p.pending.Load()))
		return false
	}

	payload, err := encodeResult(result, workerID, cameraID, p.cfg.ServiceName, time.Now())
	if err != nil {
		p.log.Error("failed to encode detection result", zap.Error(err))
		return false
	}

	p.pending.Add(1)

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.cfg.Topic, Partition: kafka.PartitionAny},
		Key:            []byte(result.FrameID),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "message-type", Value: []byte("detection_event")},
			{Key: "correlation-id", Value: []byte(result.FrameID)},
		},
	}

	if err := producer.Produce(msg, nil); err != nil {
		decrementPendingClamped(&p.pending)
		p.log.Warn("produce failed synchronously", zap.Error(err), zap.String("frame_id", result.FrameID))
		return false
	}
	return true
}

// PublishBatch calls Publish for every result and returns how many
// succeeded.
func (p *Publisher) PublishBatch(results []detector.Result, workerID, cameraID string) int {
	count := 0
	for _, r := range results {
		if p.Publish(r, workerID, cameraID) {
			count++
		}
	}
	return count
}

// Flush blocks until the pending count reaches zero or timeout elapses,
// whichever comes first.
func (p *Publisher) Flush(timeout time.Duration) error {
	p.mu.Lock()
	producer := p.producer
	p.mu.Unlock()
	if producer == nil {
		return nil
	}
	remaining := producer.Flush(int(timeout / time.Millisecond))
	if remaining > 0 {
		return fmt.Errorf("flush timed out with %d messages still pending", remaining)
	}
	return nil
}

// Health reports the publisher's current connectivity and backlog.
func (p *Publisher) Health() Health {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	return Health{
		Healthy:   connected,
		Connected: connected,
		Topic:     p.cfg.Topic,
		Pending:   p.pending.Load(),
	}
}
