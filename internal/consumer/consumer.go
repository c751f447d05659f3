// Package consumer implements the consumer-side half of the reliable
// transfer contract (C6): it polls a Kafka topic, dispatches each message to
// a Handler, commits offsets on success, and routes handler failures to a
// dead-letter topic instead of blocking the partition.
//
// Grounded on original_source/services/pipeline/python/consumer.py
// (NierConsumer.run: poll loop, partition-EOF handling, commit-on-success,
// signal-driven shutdown) and producer.py's send_to_dlq for the DLQ
// envelope shape (see dlq.go).
package consumer

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"inference-service/internal/apierr"
)

// Record is the decoupled view of a polled Kafka message handed to Handler
// implementations, keeping internal/consumer free of a *kafka.Message
// dependency at the call site.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte
}

// Handler processes one Record. Handle returning a non-nil error causes the
// Consumer to route the record to the DLQ instead of committing its offset.
type Handler interface {
	Handle(ctx context.Context, rec Record) error
}

// kafkaConsumer is the subset of *kafka.Consumer this package depends on,
// extracted for testability.
type kafkaConsumer interface {
	SubscribeTopics(topics []string, cb kafka.RebalanceCb) error
	Poll(timeoutMs int) kafka.Event
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Commit() ([]kafka.TopicPartition, error)
	Pause(partitions []kafka.TopicPartition) error
	Resume(partitions []kafka.TopicPartition) error
	Assignment() ([]kafka.TopicPartition, error)
	Close() error
}

// newConsumer is overridable in tests.
var newConsumer = func(cfg *kafka.ConfigMap) (kafkaConsumer, error) {
	return kafka.NewConsumer(cfg)
}

// Config controls a Consumer's broker connection and consumption behavior.
type Config struct {
	BootstrapServers string
	GroupID          string
	Topics           []string
	AutoOffsetReset  string // "earliest" or "latest"
	SessionTimeoutMs int
	MaxPollRecords    int
	SecurityProtocol string
	SASLMechanism    string
}

func (c Config) withDefaults() Config {
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = "earliest"
	}
	if c.SessionTimeoutMs <= 0 {
		c.SessionTimeoutMs = 45000
	}
	return c
}

func (c Config) toConsumerConfigMap() *kafka.ConfigMap {
	m := &kafka.ConfigMap{
		"bootstrap.servers":  c.BootstrapServers,
		"group.id":           c.GroupID,
		"auto.offset.reset":  c.AutoOffsetReset,
		"enable.auto.commit": false,
		"session.timeout.ms": c.SessionTimeoutMs,
	}
	if c.SecurityProtocol != "" {
		_ = m.SetKey("security.protocol", c.SecurityProtocol)
	}
	if c.SASLMechanism != "" {
		_ = m.SetKey("sasl.mechanism", c.SASLMechanism)
	}
	return m
}

// Consumer polls a topic, dispatches to a Handler, commits on success, and
// sends failed records to a DLQPublisher. A single Consumer is not
// goroutine-safe for concurrent Run calls; Run is meant to own the calling
// goroutine until Shutdown or ctx cancellation.
type Consumer struct {
	cfg Config
	log *zap.Logger
	dlq DLQPublisher

	consumer kafkaConsumer

	shutdownOnce sync.Once
	stopCh       chan struct{}
}

// New constructs a Consumer. dlq may be nil, in which case handler failures
// are logged but not routed anywhere (records are still not committed, so
// they will be redelivered on restart).
func New(cfg Config, dlq DLQPublisher, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		cfg:    cfg.withDefaults(),
		log:    log,
		dlq:    dlq,
		stopCh: make(chan struct{}),
	}
}

// Connect opens the underlying Kafka consumer session and subscribes to the
// configured topics.
func (c *Consumer) Connect(ctx context.Context) error {
	if len(c.cfg.Topics) == 0 {
		return fmt.Errorf("%w: no topics configured", apierr.ErrInvalidArgument)
	}
	kc, err := newConsumer(c.cfg.toConsumerConfigMap())
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrConnectionFailed, err)
	}
	if err := kc.SubscribeTopics(c.cfg.Topics, nil); err != nil {
		kc.Close()
		return fmt.Errorf("%w: %v", apierr.ErrConnectionFailed, err)
	}
	c.consumer = kc
	return nil
}

// Run polls for messages and dispatches them to handler until ctx is
// cancelled, Shutdown is called, or an unrecoverable broker error occurs.
// It installs SIGINT/SIGTERM handling for the duration of the call so the
// process can be stopped with a normal Ctrl-C even when embedded in a
// larger server that owns its own signal handling for other components.
func (c *Consumer) Run(ctx context.Context, handler Handler, pollTimeout time.Duration) error {
	if c.consumer == nil {
		return fmt.Errorf("%w: consumer not connected", apierr.ErrNotRunning)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	pollTimeoutMs := int(pollTimeout / time.Millisecond)
	if pollTimeoutMs <= 0 {
		pollTimeoutMs = 1000
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		case <-sigCh:
			c.log.Info("received shutdown signal")
			return nil
		default:
		}

		ev := c.consumer.Poll(pollTimeoutMs)
		switch v := ev.(type) {
		case nil:
			continue
		case *kafka.Message:
			c.dispatch(ctx, handler, v)
		case kafka.Error:
			c.log.Warn("consumer error event", zap.Error(v), zap.Bool("fatal", v.IsFatal()))
			if v.IsFatal() {
				return fmt.Errorf("%w: %v", apierr.ErrConnectionFailed, v)
			}
		default:
			c.log.Debug("ignored consumer event", zap.Any("event", v))
		}
	}
}

// dispatch handles a single message: on handler success it commits the
// message's offset; on failure it sends the payload to the DLQ (if
// configured) and deliberately does NOT commit, so a restart redelivers any
// record that neither succeeded nor reached the DLQ.
func (c *Consumer) dispatch(ctx context.Context, handler Handler, msg *kafka.Message) {
	rec := toRecord(msg)

	err := handler.Handle(ctx, rec)
	if err == nil {
		if _, cerr := c.consumer.CommitMessage(msg); cerr != nil {
			c.log.Error("commit failed", zap.Error(cerr), zap.String("topic", rec.Topic), zap.Int64("offset", rec.Offset))
		}
		return
	}

	c.log.Warn("handler failed, routing to dlq",
		zap.Error(err), zap.String("topic", rec.Topic), zap.Int64("offset", rec.Offset))

	if c.dlq == nil {
		return
	}
	if dlqErr := c.dlq.PublishDLQ(ctx, rec.Topic, rec.Value, err.Error()); dlqErr != nil {
		c.log.Error("failed to publish to dlq", zap.Error(dlqErr), zap.String("topic", rec.Topic), zap.Int64("offset", rec.Offset))
	}
}

func toRecord(msg *kafka.Message) Record {
	headers := make(map[string][]byte, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = h.Value
	}
	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	return Record{
		Topic:     topic,
		Partition: msg.TopicPartition.Partition,
		Offset:    int64(msg.TopicPartition.Offset),
		Key:       msg.Key,
		Value:     msg.Value,
		Timestamp: msg.Timestamp,
		Headers:   headers,
	}
}

// Commit synchronously commits all currently assigned offsets.
func (c *Consumer) Commit() error {
	if c.consumer == nil {
		return fmt.Errorf("%w: consumer not connected", apierr.ErrNotRunning)
	}
	_, err := c.consumer.Commit()
	if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrNoOffset {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrBrokerTransient, err)
	}
	return nil
}

// CommitAsync commits all currently assigned offsets without waiting for
// the broker's acknowledgement, for handlers that want to pipeline commits
// rather than block on Commit. Errors are logged, not returned, matching
// the fire-and-forget shape the rest of this package uses for offloaded
// broker I/O.
func (c *Consumer) CommitAsync() {
	go func() {
		if err := c.Commit(); err != nil {
			c.log.Warn("async commit failed", zap.Error(err))
		}
	}()
}

// Pause stops delivery for the given partitions without leaving the group.
func (c *Consumer) Pause(partitions []kafka.TopicPartition) error {
	if c.consumer == nil {
		return fmt.Errorf("%w: consumer not connected", apierr.ErrNotRunning)
	}
	return c.consumer.Pause(partitions)
}

// Resume resumes delivery for partitions previously paused.
func (c *Consumer) Resume(partitions []kafka.TopicPartition) error {
	if c.consumer == nil {
		return fmt.Errorf("%w: consumer not connected", apierr.ErrNotRunning)
	}
	return c.consumer.Resume(partitions)
}

// Assignment returns the partitions currently assigned to this consumer.
func (c *Consumer) Assignment() ([]kafka.TopicPartition, error) {
	if c.consumer == nil {
		return nil, fmt.Errorf("%w: consumer not connected", apierr.ErrNotRunning)
	}
	return c.consumer.Assignment()
}

// Shutdown causes a running Run call to return on its next poll iteration
// and closes the underlying consumer. Safe to call more than once.
func (c *Consumer) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() { close(c.stopCh) })
	if c.consumer == nil {
		return nil
	}
	return c.consumer.Close()
}
