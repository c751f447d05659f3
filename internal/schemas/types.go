// Package schemas defines the wire-level message types exchanged over the
// message bus (detection events, frame metadata, alerts) and their
// deterministic, round-trippable JSON codec. Field names and enum values are
// grounded on original_source/services/pipeline/python/schemas.py.
package schemas

import (
	"encoding/json"
	"fmt"
)

// BoundingBox is a detection's location in an image, expressed as normalised
// [0,1] corner coordinates. NewBoundingBox enforces the ordering and range
// invariant; zero-value construction (e.g. via json.Unmarshal) does not, by
// design, since decoding must never fail on well-formed wire data — callers
// that need the invariant enforced on decoded data should call Validate.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// NewBoundingBox validates corner ordering and the [0,1] range before
// returning a BoundingBox.
func NewBoundingBox(xMin, yMin, xMax, yMax float64) (BoundingBox, error) {
	b := BoundingBox{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}
	return b, b.Validate()
}

// Validate reports whether the box satisfies 0 <= min <= max <= 1 on both
// axes.
func (b BoundingBox) Validate() error {
	if !(0 <= b.XMin && b.XMin <= b.XMax && b.XMax <= 1) {
		return fmt.Errorf("invalid x coordinates: %v, %v", b.XMin, b.XMax)
	}
	if !(0 <= b.YMin && b.YMin <= b.YMax && b.YMax <= 1) {
		return fmt.Errorf("invalid y coordinates: %v, %v", b.YMin, b.YMax)
	}
	return nil
}

// Width returns XMax - XMin.
func (b BoundingBox) Width() float64 { return b.XMax - b.XMin }

// Height returns YMax - YMin.
func (b BoundingBox) Height() float64 { return b.YMax - b.YMin }

// Area returns Width() * Height().
func (b BoundingBox) Area() float64 { return b.Width() * b.Height() }

// ToAbsolute converts the normalised box to pixel coordinates for an image
// of the given width/height.
func (b BoundingBox) ToAbsolute(width, height int) (xMin, yMin, xMax, yMax int) {
	return int(b.XMin * float64(width)), int(b.YMin * float64(height)),
		int(b.XMax * float64(width)), int(b.YMax * float64(height))
}

// Confidence carries an overall detection confidence plus an optional
// per-signal breakdown (e.g. {"model": 0.91, "tracker": 0.88}).
type Confidence struct {
	Overall   float64            `json:"overall"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// PPEViolation is a single missing-equipment finding within a DetectionEvent.
type PPEViolation struct {
	ViolationType PPEViolationType `json:"violation_type"`
	BoundingBox   BoundingBox      `json:"bounding_box"`
	Confidence    Confidence       `json:"confidence"`
	WorkerID      *string          `json:"worker_id,omitempty"`
}

// ActivityDetection is a single worker-activity finding within a
// DetectionEvent.
type ActivityDetection struct {
	ActivityType ActivityType `json:"activity_type"`
	BoundingBox  BoundingBox  `json:"bounding_box"`
	Confidence   Confidence   `json:"confidence"`
	DurationMs   *int64       `json:"duration_ms,omitempty"`
}

// Zone identifies a named area of interest within a camera's field of view.
type Zone struct {
	ZoneID string `json:"zone_id"`
	Name   string `json:"name,omitempty"`
}

// DetectionEvent is the payload published to the detections topic for every
// processed frame.
type DetectionEvent struct {
	EventID             string              `json:"event_id"`
	FrameID             string              `json:"frame_id"`
	DeviceID            string              `json:"device_id"`
	Timestamp           Timestamp           `json:"timestamp"`
	ModelID             string              `json:"model_id"`
	ModelVersion        string              `json:"model_version"`
	ProcessingLatencyMs int64               `json:"processing_latency_ms"`
	PPEViolations       []PPEViolation      `json:"ppe_violations"`
	ActivityDetections  []ActivityDetection `json:"activity_detections"`
	Zone                *Zone               `json:"zone,omitempty"`
	Metadata            map[string]string   `json:"metadata,omitempty"`
}

// Encode serialises the event as UTF-8 JSON.
func (e DetectionEvent) Encode() ([]byte, error) { return json.Marshal(e) }

// DecodeDetectionEvent parses a DetectionEvent, filling zero values for any
// fields absent from the payload and ignoring unrecognised ones.
func DecodeDetectionEvent(data []byte) (DetectionEvent, error) {
	var e DetectionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return DetectionEvent{}, fmt.Errorf("decode detection event: %w", err)
	}
	if e.PPEViolations == nil {
		e.PPEViolations = []PPEViolation{}
	}
	if e.ActivityDetections == nil {
		e.ActivityDetections = []ActivityDetection{}
	}
	return e, nil
}

// GeoLocation is an optional GPS fix attached to a frame.
type GeoLocation struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// IMUData is an optional inertial-measurement snapshot attached to a frame,
// used by body-worn or vehicle-mounted cameras.
type IMUData struct {
	AccelX  float64  `json:"accel_x"`
	AccelY  float64  `json:"accel_y"`
	AccelZ  float64  `json:"accel_z"`
	GyroX   float64  `json:"gyro_x"`
	GyroY   float64  `json:"gyro_y"`
	GyroZ   float64  `json:"gyro_z"`
	Heading *float64 `json:"heading,omitempty"`
}

// DeviceHealth is an optional device telemetry snapshot attached to a frame.
type DeviceHealth struct {
	BatteryPercent *float64 `json:"battery_percent,omitempty"`
	TemperatureC   *float64 `json:"temperature_c,omitempty"`
	StorageFreeMb  *float64 `json:"storage_free_mb,omitempty"`
}

// FrameMetadata is the payload published to the frames topic describing the
// context a submitted image was captured under. GeoLocation, IMUData,
// DeviceHealth, and the quality hint are all optional, additive fields.
type FrameMetadata struct {
	FrameID      string        `json:"frame_id"`
	DeviceID     string        `json:"device_id"`
	Timestamp    Timestamp     `json:"timestamp"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Location     *GeoLocation  `json:"location,omitempty"`
	IMU          *IMUData      `json:"imu,omitempty"`
	Health       *DeviceHealth `json:"health,omitempty"`
	Brightness   *float64      `json:"brightness,omitempty"`
	Blur         *float64      `json:"blur,omitempty"`
	Resolution   string        `json:"resolution,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Encode serialises the frame metadata as UTF-8 JSON.
func (m FrameMetadata) Encode() ([]byte, error) { return json.Marshal(m) }

// DecodeFrameMetadata parses a FrameMetadata payload.
func DecodeFrameMetadata(data []byte) (FrameMetadata, error) {
	var m FrameMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return FrameMetadata{}, fmt.Errorf("decode frame metadata: %w", err)
	}
	return m, nil
}

// Alert is the payload published to the alerts topic for safety-critical
// findings that require acknowledgement.
type Alert struct {
	AlertID            string        `json:"alert_id"`
	AlertType          AlertType     `json:"alert_type"`
	Severity           AlertSeverity `json:"severity"`
	Status             AlertStatus   `json:"status"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	CreatedAt          Timestamp     `json:"created_at"`
	UpdatedAt          Timestamp     `json:"updated_at"`
	ExpiresAt          *Timestamp    `json:"expires_at,omitempty"`
	DeviceID           string        `json:"device_id"`
	WorkerID           *string       `json:"worker_id,omitempty"`
	RuleID             string        `json:"rule_id"`
	PriorityScore      int           `json:"priority_score"`
	SourceDetectionIDs []string      `json:"source_detection_ids"`
	Tags               []string      `json:"tags"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Encode serialises the alert as UTF-8 JSON.
func (a Alert) Encode() ([]byte, error) { return json.Marshal(a) }

// DecodeAlert parses an Alert payload, defaulting omitted slice fields to
// empty (rather than nil) so that round-tripped values compare equal to
// freshly constructed ones built the same way.
func DecodeAlert(data []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	if a.SourceDetectionIDs == nil {
		a.SourceDetectionIDs = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a, nil
}
