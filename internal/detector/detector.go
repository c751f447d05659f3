// Package detector defines the Detector boundary the batcher calls into.
// The real model (weight loading, preprocessing, tensor execution,
// post-processing) is out of scope; this package holds only the interface
// and a deterministic stub suitable for wiring the rest of the service
// together and for tests.
package detector

import (
	"context"
	"sync"
)

// Detection is a single finding within one image.
type Detection struct {
	ClassName   string
	ClassID     int
	Confidence  float64
	BoundingBox BoundingBox
	Metadata    map[string]any
}

// BoundingBox mirrors schemas.BoundingBox but lives in this package to keep
// the detector boundary free of a dependency on the wire-schema package;
// the servicer is responsible for translating between the two.
type BoundingBox struct {
	XMin, YMin, XMax, YMax float64
}

// Result is the detector's output for a single submitted image.
type Result struct {
	FrameID         string
	TimestampMs     int64
	Detections      []Detection
	InferenceTimeMs float64
	ImageWidth      int
	ImageHeight     int
	Metadata        map[string]any
}

// DetectionCount returns len(Detections).
func (r Result) DetectionCount() int { return len(r.Detections) }

// FilterByClass returns the subset of detections whose class name is in
// classNames.
func (r Result) FilterByClass(classNames ...string) []Detection {
	want := make(map[string]struct{}, len(classNames))
	for _, c := range classNames {
		want[c] = struct{}{}
	}
	out := make([]Detection, 0, len(r.Detections))
	for _, d := range r.Detections {
		if _, ok := want[d.ClassName]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Image is a decoded image ready for inference: raw pixel access is left to
// the concrete Detector implementation, this package only threads byte
// payload + declared dimensions through the batcher.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// Detector is the external, opaque model boundary. Implementations load a
// model, accept batches of images, and return one Result per image in the
// same order.
type Detector interface {
	// Load brings the model into memory. Must be called before Predict.
	Load(ctx context.Context) error
	// Unload releases model resources (e.g. GPU memory).
	Unload(ctx context.Context) error
	// IsLoaded reports whether Load has completed successfully and Unload
	// has not since been called.
	IsLoaded() bool
	// Predict runs inference on a batch of images, returning one Result per
	// image in input order. frameIDs and timestampsMs are parallel to
	// images.
	Predict(ctx context.Context, images []Image, frameIDs []string, timestampsMs []int64) ([]Result, error)
	// Warmup runs batchSize synthetic predictions to trigger CUDA kernel
	// compilation / memory pool warmup ahead of real traffic.
	Warmup(ctx context.Context, batchSize int) error
}

// Config controls the stub detector's synthetic behaviour.
type Config struct {
	ModelID             string
	ModelVersion        string
	ConfidenceThreshold float64
}

// Stub is a deterministic Detector used for local development, warmup, and
// tests. It never touches a GPU: every "detection" is computed from simple,
// reproducible image-byte statistics so that the same input always produces
// the same output, which testable-property suites rely on.
type Stub struct {
	cfg Config

	mu     sync.Mutex
	loaded bool
}

// NewStub constructs a Stub detector with the given configuration.
func NewStub(cfg Config) *Stub {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.5
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "ppe-stub"
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = "dev"
	}
	return &Stub{cfg: cfg}
}

func (s *Stub) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	return nil
}

func (s *Stub) Unload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return nil
}

func (s *Stub) IsLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *Stub) Predict(ctx context.Context, images []Image, frameIDs []string, timestampsMs []int64) ([]Result, error) {
	results := make([]Result, len(images))
	for i, img := range images {
		results[i] = s.predictOne(img, frameIDs[i], timestampsMs[i])
	}
	return results, nil
}

func (s *Stub) Warmup(ctx context.Context, batchSize int) error {
	images := make([]Image, batchSize)
	ids := make([]string, batchSize)
	ts := make([]int64, batchSize)
	for i := range images {
		images[i] = Image{Data: []byte{0, 0, 0}, Width: 640, Height: 480}
		ids[i] = "warmup"
		ts[i] = 0
	}
	_, err := s.Predict(ctx, images, ids, ts)
	return err
}

// predictOne returns two reproducible detections, a "no_helmet" and a
// "vest", with fixed boxes and a confidence derived from the image byte
// length, so that batcher/publisher tests can assert on stable
// frame-to-result correlation without a real model.
func (s *Stub) predictOne(img Image, frameID string, timestampMs int64) Result {
	confidence := s.cfg.ConfidenceThreshold
	if len(img.Data) > 0 {
		confidence = 0.5 + float64(len(img.Data)%50)/100.0
	}
	if confidence < s.cfg.ConfidenceThreshold {
		confidence = s.cfg.ConfidenceThreshold
	}
	if confidence > 0.99 {
		confidence = 0.99
	}

	return Result{
		FrameID:     frameID,
		TimestampMs: timestampMs,
		Detections: []Detection{
			{
				ClassName:   "no_helmet",
				ClassID:     4,
				Confidence:  confidence,
				BoundingBox: BoundingBox{XMin: 0.1, YMin: 0.1, XMax: 0.4, YMax: 0.6},
			},
			{
				ClassName:   "vest",
				ClassID:     1,
				Confidence:  confidence,
				BoundingBox: BoundingBox{XMin: 0.2, YMin: 0.3, XMax: 0.6, YMax: 0.9},
			},
		},
		InferenceTimeMs: 1,
		ImageWidth:      img.Width,
		ImageHeight:     img.Height,
		Metadata: map[string]any{
			"model_id":      s.cfg.ModelID,
			"model_version": s.cfg.ModelVersion,
		},
	}
}
