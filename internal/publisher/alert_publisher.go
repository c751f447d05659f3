package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"inference-service/internal/apierr"
	"inference-service/internal/schemas"
)

// AlertConfig controls an AlertPublisher's broker connection. It mirrors
// Config but defaults to a higher retry count and a bounded synchronous
// acknowledgement wait, per kafka_producer.py's AlertKafkaProducer (acks="all",
// more retries, blocking .get(timeout=5) semantics).
type AlertConfig struct {
	BootstrapServers string
	Topic            string
	ClientID         string
	Retries          int
	RetryBackoffMs   int
	RequestTimeoutMs int
	AckTimeout       time.Duration
	SecurityProtocol string
	SASLMechanism    string
}

func (c AlertConfig) withDefaults() AlertConfig {
	if c.Retries <= 0 {
		c.Retries = 10
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = 5 * time.Second
	}
	return c
}

func (c AlertConfig) toProducerConfigMap() *kafka.ConfigMap {
	m := &kafka.ConfigMap{
		"bootstrap.servers": c.BootstrapServers,
		"acks":              "all",
		"retries":           c.Retries,
	}
	if c.ClientID != "" {
		_ = m.SetKey("client.id", c.ClientID)
	}
	if c.RetryBackoffMs > 0 {
		_ = m.SetKey("retry.backoff.ms", c.RetryBackoffMs)
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

// AlertPublisher is the synchronous-acknowledgement variant of Publisher
// (C4), used for safety-critical alerts that must block the caller until
// durably accepted or explicitly failed.
type AlertPublisher struct {
	cfg AlertConfig
	log *zap.Logger

	mu        sync.Mutex
	producer  kafkaProducer
	connected bool
}

// NewAlertPublisher constructs an AlertPublisher. Connect must be called
// before Publish.
func NewAlertPublisher(cfg AlertConfig, log *zap.Logger) *AlertPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertPublisher{cfg: cfg.withDefaults(), log: log}
}

// Connect establishes the underlying Kafka producer session. Idempotent.
func (a *AlertPublisher) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return nil
	}
	prod, err := newProducer(a.cfg.toProducerConfigMap())
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrConnectionFailed, err)
	}
	a.producer = prod
	a.connected = true
	return nil
}

// Disconnect flushes then tears down the producer. Idempotent.
func (a *AlertPublisher) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil
	}
	a.producer.Flush(5000)
	a.producer.Close()
	a.connected = false
	return nil
}

// Publish sends an alert and blocks until the broker acknowledges it or
// AckTimeout elapses. Returns an error (unlike Publisher.Publish, which only
// ever returns a bool) because callers of AlertPublisher need to know
// *why* a safety-critical message failed, not just that it did.
func (a *AlertPublisher) Publish(ctx context.Context, alert schemas.Alert) error {
	a.mu.Lock()
	producer := a.producer
	connected := a.connected
	a.mu.Unlock()

	if !connected {
		return fmt.Errorf("%w: alert publish before connect", apierr.ErrNotConnected)
	}

	payload, err := alert.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrInvalidArgument, err)
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &a.cfg.Topic, Partition: kafka.PartitionAny},
		Key:            []byte(alert.AlertID),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "message-type", Value: []byte("alert")},
		},
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("%w: %v", apierr.ErrBrokerTransient, err)
	}

	deadline := time.NewTimer(a.cfg.AckTimeout)
	defer deadline.Stop()

	select {
	case ev := <-deliveryChan:
		report, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("%w: unexpected delivery event type", apierr.ErrBrokerTransient)
		}
		if report.TopicPartition.Error != nil {
			return fmt.Errorf("%w: %v", apierr.ErrBrokerTransient, report.TopicPartition.Error)
		}
		return nil
	case <-deadline.C:
		return fmt.Errorf("%w: alert ack timed out after %s", apierr.ErrBrokerTransient, a.cfg.AckTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
