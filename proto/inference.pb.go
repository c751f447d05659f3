// Package proto holds hand-authored message and service types for the
// Inference gRPC surface. A real deployment would generate these with
// protoc-gen-go/protoc-gen-go-grpc from an inference.proto definition; here
// the wire types are written directly as plain Go structs carrying the same
// field set protoc would produce, since grpc.ClientConnInterface.Invoke and
// grpc.ServiceDesc's handler functions only require `any`-typed
// request/response values at compile time — they never depend on generated
// descriptor/reflection machinery to function as a working RPC service. See
// DESIGN.md's "gRPC codegen without protoc" note for the full rationale.
//
// Structurally modeled on a real protoc-gen-go-grpc generated file
// (service shape, naming conventions) and on this repo's internal/schemas
// package for field semantics (PPE violations, activity detections,
// bounding boxes).
package proto

// BoundingBox mirrors internal/schemas.BoundingBox on the wire.
type BoundingBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Confidence mirrors internal/schemas.Confidence on the wire.
type Confidence struct {
	Overall   float64            `json:"overall"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// PPEViolation mirrors internal/schemas.PPEViolation on the wire.
type PPEViolation struct {
	ViolationType int32       `json:"violation_type"`
	BoundingBox   BoundingBox `json:"bounding_box"`
	Confidence    Confidence  `json:"confidence"`
	WorkerID      string      `json:"worker_id,omitempty"`
}

// ActivityDetection mirrors internal/schemas.ActivityDetection on the wire.
type ActivityDetection struct {
	ActivityType int32       `json:"activity_type"`
	BoundingBox  BoundingBox `json:"bounding_box"`
	Confidence   Confidence  `json:"confidence"`
	DurationMs   int64       `json:"duration_ms,omitempty"`
}

// InferRequest carries a single image to run detection on.
type InferRequest struct {
	FrameID     string `json:"frame_id"`
	DeviceID    string `json:"device_id,omitempty"`
	WorkerID    string `json:"worker_id,omitempty"`
	CameraID    string `json:"camera_id,omitempty"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`
	ImageData   []byte `json:"image_data"`
	ImageWidth  int32  `json:"image_width,omitempty"`
	ImageHeight int32  `json:"image_height,omitempty"`
}

// ComplianceSummary mirrors internal/publisher.ComplianceSummary on the
// wire: the per-result roll-up of which PPE items are present vs. missing,
// computed the same way for the reply path as for the published event.
type ComplianceSummary struct {
	Violations     []string `json:"violations"`
	CompliantItems []string `json:"compliant_items"`
	HasViolations  bool     `json:"has_violations"`
	ViolationCount int      `json:"violation_count"`
	PersonCount    int      `json:"person_count"`
}

// InferResponse carries the detection result for one InferRequest.
type InferResponse struct {
	FrameID             string              `json:"frame_id"`
	PPEViolations       []PPEViolation      `json:"ppe_violations"`
	ActivityDetections  []ActivityDetection `json:"activity_detections"`
	ComplianceSummary   ComplianceSummary   `json:"compliance_summary"`
	ProcessingLatencyMs int64               `json:"processing_latency_ms"`
	ImageWidth          int32               `json:"image_width"`
	ImageHeight         int32               `json:"image_height"`
	ModelID             string              `json:"model_id"`
	ModelVersion        string              `json:"model_version"`
	Error               string              `json:"error,omitempty"`
}

// InferBatchRequest carries a batch of images to submit together.
type InferBatchRequest struct {
	Requests []*InferRequest `json:"requests"`
}

// InferBatchResponse carries one InferResponse per InferBatchRequest item,
// in the same order. A failed item carries a non-empty Error and a zeroed
// detection payload rather than aborting the whole batch.
type InferBatchResponse struct {
	Responses []*InferResponse `json:"responses"`
}

// HealthRequest requests the current liveness/readiness state.
type HealthRequest struct{}

// HealthResponse reports component-level health: "healthy", "degraded",
// or "unhealthy".
type HealthResponse struct {
	Status           string `json:"status"` // "healthy", "degraded", "unhealthy"
	DetectorLoaded   bool   `json:"detector_loaded"`
	PublisherHealthy bool   `json:"publisher_healthy"`
	QueueDepth       int32  `json:"queue_depth"`
}

// ModelInfoRequest requests static model metadata.
type ModelInfoRequest struct{}

// ModelInfoResponse reports static model metadata.
type ModelInfoResponse struct {
	ModelID             string   `json:"model_id"`
	ModelVersion        string   `json:"model_version"`
	ModelType           string   `json:"model_type"`
	SupportedViolations []string `json:"supported_violations"`
	SupportedActivities []string `json:"supported_activities"`
	MaxBatchSize        int32    `json:"max_batch_size"`
}
