package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAlertRoundTrip(t *testing.T) {
	now := NewTimestamp(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC))
	worker := "worker-42"
	original := Alert{
		AlertID:            "alert-1",
		AlertType:          AlertType(1),
		Severity:           AlertSeverityCritical,
		Status:             AlertStatusNew,
		Title:              "Missing helmet",
		Description:        "Worker observed without helmet in zone A",
		CreatedAt:          now,
		UpdatedAt:          now,
		DeviceID:           "camera-7",
		WorkerID:           &worker,
		RuleID:             "rule-helmet-1",
		PriorityScore:      80,
		SourceDetectionIDs: []string{"det-1", "det-2"},
		Tags:               []string{"ppe", "helmet"},
	}

	encoded, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeAlert(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestAlertRoundTrip_OptionalFieldsOmitted(t *testing.T) {
	now := NewTimestamp(time.Now())
	original := Alert{
		AlertID:            "alert-2",
		Severity:           AlertSeverityInfo,
		Status:             AlertStatusAcknowledged,
		CreatedAt:          now,
		UpdatedAt:          now,
		DeviceID:           "camera-1",
		RuleID:             "rule-2",
		SourceDetectionIDs: []string{},
		Tags:               []string{},
	}

	encoded, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeAlert(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
	require.Nil(t, decoded.WorkerID)
	require.Nil(t, decoded.ExpiresAt)
}

func TestDetectionEventRoundTrip(t *testing.T) {
	now := NewTimestamp(time.Now())
	worker := "w1"
	duration := int64(1500)
	original := DetectionEvent{
		EventID:             "evt-1",
		FrameID:             "frame-1",
		DeviceID:            "camera-3",
		Timestamp:           now,
		ModelID:             "yolov8-ppe",
		ModelVersion:        "1.2.0",
		ProcessingLatencyMs: 42,
		PPEViolations: []PPEViolation{
			{
				ViolationType: PPEViolationNoHelmet,
				BoundingBox:   BoundingBox{XMin: 0.1, YMin: 0.1, XMax: 0.5, YMax: 0.6},
				Confidence:    Confidence{Overall: 0.92, Breakdown: map[string]float64{"model": 0.92}},
				WorkerID:      &worker,
			},
		},
		ActivityDetections: []ActivityDetection{
			{
				ActivityType: ActivityOperatingMachine,
				BoundingBox:  BoundingBox{XMin: 0, YMin: 0, XMax: 1, YMax: 1},
				Confidence:   Confidence{Overall: 0.75},
				DurationMs:   &duration,
			},
		},
		Metadata: map[string]string{"source": "pipeline-test"},
	}

	encoded, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeDetectionEvent(encoded)
	require.NoError(t, err)
	require.Equal(t, original, decoded)
}

func TestDetectionEvent_UnknownFieldsTolerated(t *testing.T) {
	payload := []byte(`{
		"event_id": "evt-2",
		"frame_id": "frame-2",
		"device_id": "camera-1",
		"timestamp": "2026-01-01T00:00:00.000Z",
		"model_id": "m",
		"model_version": "1",
		"processing_latency_ms": 10,
		"ppe_violations": [],
		"activity_detections": [],
		"this_field_does_not_exist_yet": {"nested": true}
	}`)

	decoded, err := DecodeDetectionEvent(payload)
	require.NoError(t, err)
	require.Equal(t, "evt-2", decoded.EventID)
	require.Empty(t, decoded.PPEViolations)
}

func TestBoundingBox_ValidatesOrdering(t *testing.T) {
	_, err := NewBoundingBox(0.5, 0.1, 0.2, 0.6)
	require.Error(t, err)

	b, err := NewBoundingBox(0.1, 0.2, 0.5, 0.6)
	require.NoError(t, err)
	require.InDelta(t, 0.4, b.Width(), 1e-9)
	require.InDelta(t, 0.4, b.Height(), 1e-9)
}

func TestPPEViolationType_UnknownDecodesToUnspecified(t *testing.T) {
	var v PPEViolationType
	err := v.UnmarshalJSON([]byte("99"))
	require.NoError(t, err)
	require.Equal(t, PPEViolationUnspecified, v)
}
