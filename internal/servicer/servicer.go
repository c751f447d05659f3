// Package servicer implements the HTTP+gRPC glue (C5): it decodes inbound
// requests, submits decoded images to the batcher, translates detector
// results into wire responses, and reports health/model metadata.
//
// Grounded on original_source/services/inference/src/inference_server.py
// (InferenceServicer: Infer/InferBatch/InferStream/HealthCheck/GetModelInfo,
// and its image-decode-then-submit-then-build-response shape) and on
// internal/service/ml_service.go's bidi-streaming client idiom in the
// teacher repo, inverted here to the server side of the same stream shape.
package servicer

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"inference-service/internal/apierr"
	"inference-service/internal/batcher"
	"inference-service/internal/detector"
	"inference-service/internal/imaging"
	"inference-service/internal/publisher"
	"inference-service/proto"
)

// PublisherHealth reports connectivity for the egress publisher. A
// *publisher.Publisher does not satisfy it directly; NewPublisherHealth
// (adapter.go) wraps one so that it does, and tests can pass any fake.
type PublisherHealth interface {
	Healthy() bool
}

// ModelInfo is the static metadata returned by GetModelInfo.
type ModelInfo struct {
	ModelID             string
	ModelVersion        string
	ModelType           string
	SupportedViolations []string
	SupportedActivities []string
	MaxBatchSize        int32
}

// Servicer implements proto.InferenceServer on top of a Batcher. It holds
// no business logic of its own beyond request/response translation: all
// batching, detector, and publisher behaviour lives in their own packages.
type Servicer struct {
	proto.UnimplementedInferenceServer

	batcher   *batcher.Batcher
	det       detector.Detector
	pub       PublisherHealth // nil if no publisher is configured
	modelInfo ModelInfo
	log       *zap.Logger

	startTime         time.Time
	requestsProcessed atomic.Int64
}

// New constructs a Servicer. pub may be nil when the deployment runs
// without a message-bus egress path.
func New(b *batcher.Batcher, det detector.Detector, pub PublisherHealth, modelInfo ModelInfo, log *zap.Logger) *Servicer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Servicer{
		batcher:   b,
		det:       det,
		pub:       pub,
		modelInfo: modelInfo,
		log:       log,
		startTime: time.Now(),
	}
}

// Infer handles a single-image inference request.
func (s *Servicer) Infer(ctx context.Context, req *proto.InferRequest) (*proto.InferResponse, error) {
	img, err := decodeRequestImage(req.ImageData)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	result, err := s.batcher.Submit(ctx, img, req.FrameID, req.TimestampMs, req.WorkerID, req.CameraID)
	if err != nil {
		return nil, errToStatus(err)
	}

	s.requestsProcessed.Add(1)
	return buildInferResponse(result), nil
}

// InferBatch submits every item in the request concurrently and returns one
// response per item, in the same order. A per-item failure is reported in
// that item's Error field rather than aborting the whole batch, so a caller
// can distinguish "frame 3 failed to decode" from "the whole request
// failed".
func (s *Servicer) InferBatch(ctx context.Context, req *proto.InferBatchRequest) (*proto.InferBatchResponse, error) {
	responses := make([]*proto.InferResponse, len(req.Requests))

	var wg sync.WaitGroup
	for i, item := range req.Requests {
		wg.Add(1)
		go func(i int, item *proto.InferRequest) {
			defer wg.Done()
			responses[i] = s.inferOne(ctx, item)
		}(i, item)
	}
	wg.Wait()

	s.requestsProcessed.Add(int64(len(req.Requests)))
	return &proto.InferBatchResponse{Responses: responses}, nil
}

func (s *Servicer) inferOne(ctx context.Context, req *proto.InferRequest) *proto.InferResponse {
	img, err := decodeRequestImage(req.ImageData)
	if err != nil {
		return &proto.InferResponse{FrameID: req.FrameID, Error: err.Error()}
	}
	result, err := s.batcher.Submit(ctx, img, req.FrameID, req.TimestampMs, req.WorkerID, req.CameraID)
	if err != nil {
		return &proto.InferResponse{FrameID: req.FrameID, Error: err.Error()}
	}
	return buildInferResponse(result)
}

// InferStream processes a bidi stream of requests sequentially, one
// response per request, preserving submission order. A decode or inference
// failure is logged and that request is skipped rather than ending the
// stream, matching the original async-generator's try/except-per-item
// shape.
func (s *Servicer) InferStream(stream proto.Inference_InferStreamServer) error {
	for {
		req, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		img, err := decodeRequestImage(req.ImageData)
		if err != nil {
			s.log.Warn("stream: failed to decode image", zap.Error(err), zap.String("frame_id", req.FrameID))
			continue
		}

		result, err := s.batcher.Submit(stream.Context(), img, req.FrameID, req.TimestampMs, req.WorkerID, req.CameraID)
		if err != nil {
			s.log.Warn("stream: inference failed", zap.Error(err), zap.String("frame_id", req.FrameID))
			continue
		}

		s.requestsProcessed.Add(1)
		if err := stream.Send(buildInferResponse(result)); err != nil {
			return err
		}
	}
}

// Health reports component-level readiness: healthy when the detector is
// loaded and the publisher (if any) is connected, degraded when the
// detector is loaded but the publisher is not, unhealthy when the detector
// is not loaded.
func (s *Servicer) Health(ctx context.Context, req *proto.HealthRequest) (*proto.HealthResponse, error) {
	loaded := s.det != nil && s.det.IsLoaded()
	publisherHealthy := s.pub == nil || s.pub.Healthy()

	hstatus := "unhealthy"
	switch {
	case loaded && publisherHealthy:
		hstatus = "healthy"
	case loaded:
		hstatus = "degraded"
	}

	return &proto.HealthResponse{
		Status:           hstatus,
		DetectorLoaded:   loaded,
		PublisherHealthy: publisherHealthy,
		QueueDepth:       int32(s.batcher.QueueDepth()),
	}, nil
}

// GetModelInfo returns static model metadata.
func (s *Servicer) GetModelInfo(ctx context.Context, req *proto.ModelInfoRequest) (*proto.ModelInfoResponse, error) {
	return &proto.ModelInfoResponse{
		ModelID:             s.modelInfo.ModelID,
		ModelVersion:        s.modelInfo.ModelVersion,
		ModelType:           s.modelInfo.ModelType,
		SupportedViolations: s.modelInfo.SupportedViolations,
		SupportedActivities: s.modelInfo.SupportedActivities,
		MaxBatchSize:        s.modelInfo.MaxBatchSize,
	}, nil
}

// decodeRequestImage validates the uploaded bytes and wraps them into a
// detector.Image. Decoding dimensions only; pixel re-encoding is the
// model's concern, not this layer's.
func decodeRequestImage(data []byte) (detector.Image, error) {
	decoded, err := imaging.Decode(data)
	if err != nil {
		return detector.Image{}, err
	}
	return detector.Image{Data: data, Width: decoded.Width, Height: decoded.Height}, nil
}

// buildInferResponse splits a detector.Result's flat detection list into
// the wire schema's ppe_violations/activity_detections split, and attaches
// the same compliance summary (violations/compliant_items/person_count)
// computed for the published event, plus image dimensions, so a caller that
// never touches the message bus can still recover "person" and
// compliant-item detections and know the frame's size. Grounded on
// inference_server.py's _build_response, which returns all of these in one
// reply object.
func buildInferResponse(result detector.Result) *proto.InferResponse {
	violations := make([]proto.PPEViolation, 0, len(result.Detections))
	activities := make([]proto.ActivityDetection, 0, len(result.Detections))

	for _, d := range result.Detections {
		bbox := proto.BoundingBox{XMin: d.BoundingBox.XMin, YMin: d.BoundingBox.YMin, XMax: d.BoundingBox.XMax, YMax: d.BoundingBox.YMax}
		conf := proto.Confidence{Overall: d.Confidence}

		if vt, ok := ppeViolationByClassName[d.ClassName]; ok {
			violations = append(violations, proto.PPEViolation{
				ViolationType: int32(vt),
				BoundingBox:   bbox,
				Confidence:    conf,
			})
			continue
		}
		if at, ok := activityByClassName[d.ClassName]; ok {
			activities = append(activities, proto.ActivityDetection{
				ActivityType: int32(at),
				BoundingBox:  bbox,
				Confidence:   conf,
			})
		}
	}

	modelID, _ := result.Metadata["model_id"].(string)
	modelVersion, _ := result.Metadata["model_version"].(string)
	summary := publisher.ComputeComplianceSummary(result)

	return &proto.InferResponse{
		FrameID:            result.FrameID,
		PPEViolations:      violations,
		ActivityDetections: activities,
		ComplianceSummary: proto.ComplianceSummary{
			Violations:     summary.Violations,
			CompliantItems: summary.CompliantItems,
			HasViolations:  summary.HasViolations,
			ViolationCount: summary.ViolationCount,
			PersonCount:    summary.PersonCount,
		},
		ProcessingLatencyMs: int64(result.InferenceTimeMs),
		ImageWidth:          int32(result.ImageWidth),
		ImageHeight:         int32(result.ImageHeight),
		ModelID:             modelID,
		ModelVersion:        modelVersion,
	}
}

// errToStatus maps the sentinel error taxonomy in internal/apierr onto gRPC
// status codes.
func errToStatus(err error) error {
	switch {
	case errors.Is(err, apierr.ErrInvalidArgument):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, apierr.ErrCancelled):
		return status.Errorf(codes.Canceled, "%v", err)
	case errors.Is(err, apierr.ErrNotRunning):
		return status.Errorf(codes.Unavailable, "%v", err)
	case errors.Is(err, apierr.ErrInferenceFailed):
		return status.Errorf(codes.Internal, "%v", err)
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
