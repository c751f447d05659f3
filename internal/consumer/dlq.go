package consumer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
)

// dlqEnvelope is the JSON body published to the dead-letter-queue topic,
// grounded on original_source/services/pipeline/python/producer.py's
// send_to_dlq.
type dlqEnvelope struct {
	OriginalTopic         string `json:"original_topic"`
	OriginalMessageBase64 string `json:"original_message_base64"`
	Error                 string `json:"error"`
	Timestamp             string `json:"timestamp"`
}

const dlqErrorHeaderMaxLen = 256

// DLQPublisher is the minimal producer surface the Consumer needs to emit
// dead-letter messages. It is satisfied by *KafkaDLQProducer.
type DLQPublisher interface {
	PublishDLQ(ctx context.Context, originalTopic string, originalPayload []byte, errMsg string) error
}

// dlqKafkaProducer is the subset of *kafka.Producer KafkaDLQProducer
// depends on, extracted for testability.
type dlqKafkaProducer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaDLQProducer publishes dead-letter envelopes to a configured topic.
// The original message's own key is deliberately NOT reused for the DLQ
// message key; a fresh UUID is used instead, matching the original
// producer.py's choice (see DESIGN.md's Open Question decision #3).
type KafkaDLQProducer struct {
	producer dlqKafkaProducer
	topic    string
}

// NewKafkaDLQProducer wraps an existing Kafka producer for DLQ use. Callers
// typically share one underlying *kafka.Producer between this and other
// egress paths since DLQ traffic is low-volume.
func NewKafkaDLQProducer(producer dlqKafkaProducer, topic string) *KafkaDLQProducer {
	return &KafkaDLQProducer{producer: producer, topic: topic}
}

// PublishDLQ builds and sends the dead-letter envelope. The send is
// fire-and-forget (no delivery-channel wait) since DLQ delivery failures
// have nowhere further to escalate to within this process.
func (k *KafkaDLQProducer) PublishDLQ(ctx context.Context, originalTopic string, originalPayload []byte, errMsg string) error {
	if len(errMsg) > dlqErrorHeaderMaxLen {
		errMsg = errMsg[:dlqErrorHeaderMaxLen]
	}

	envelope := dlqEnvelope{
		OriginalTopic:         originalTopic,
		OriginalMessageBase64: base64.StdEncoding.EncodeToString(originalPayload),
		Error:                 errMsg,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode dlq envelope: %w", err)
	}

	key := uuid.NewString()
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "message-type", Value: []byte("dead_letter")},
			{Key: "original-topic", Value: []byte(originalTopic)},
			{Key: "error-reason", Value: []byte(envelope.Error)},
		},
	}

	return k.producer.Produce(msg, nil)
}
