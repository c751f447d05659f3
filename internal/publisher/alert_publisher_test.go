package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"

	"inference-service/internal/schemas"
)

type fakeSyncKafkaProducer struct {
	failErr error
}

func (f *fakeSyncKafkaProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	report := *msg
	if f.failErr != nil {
		report.TopicPartition.Error = f.failErr
	}
	go func() { deliveryChan <- &report }()
	return nil
}

func (f *fakeSyncKafkaProducer) Flush(timeoutMs int) int   { return 0 }
func (f *fakeSyncKafkaProducer) Close()                    {}
func (f *fakeSyncKafkaProducer) Events() chan kafka.Event  { return nil }

func withFakeSyncProducer(t *testing.T, fake *fakeSyncKafkaProducer) {
	t.Helper()
	orig := newProducer
	newProducer = func(cfg *kafka.ConfigMap) (kafkaProducer, error) {
		return fake, nil
	}
	t.Cleanup(func() { newProducer = orig })
}

func TestAlertPublisher_S6_SynchronousAckSucceeds(t *testing.T) {
	withFakeSyncProducer(t, &fakeSyncKafkaProducer{})

	ap := NewAlertPublisher(AlertConfig{Topic: "alerts"}, nil)
	require.NoError(t, ap.Connect(context.Background()))
	defer ap.Disconnect(context.Background())

	now := schemas.NewTimestamp(time.Now())
	alert := schemas.Alert{
		AlertID:            "alert-1",
		Severity:           schemas.AlertSeverityCritical,
		Status:             schemas.AlertStatusNew,
		CreatedAt:          now,
		UpdatedAt:          now,
		DeviceID:           "camera-1",
		RuleID:             "r1",
		SourceDetectionIDs: []string{"d1", "d2"},
		Tags:               []string{},
	}

	err := ap.Publish(context.Background(), alert)
	require.NoError(t, err)
}

func TestAlertPublisher_BrokerErrorSurfaces(t *testing.T) {
	brokerErr := kafka.NewError(kafka.ErrAllBrokersDown, "down", false)
	withFakeSyncProducer(t, &fakeSyncKafkaProducer{failErr: brokerErr})

	ap := NewAlertPublisher(AlertConfig{Topic: "alerts", AckTimeout: time.Second}, nil)
	require.NoError(t, ap.Connect(context.Background()))
	defer ap.Disconnect(context.Background())

	err := ap.Publish(context.Background(), schemas.Alert{AlertID: "a1"})
	require.Error(t, err)
}

func TestAlertPublisher_PublishBeforeConnectFails(t *testing.T) {
	ap := NewAlertPublisher(AlertConfig{Topic: "alerts"}, nil)
	err := ap.Publish(context.Background(), schemas.Alert{AlertID: "a1"})
	require.Error(t, err)
}
