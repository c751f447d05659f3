package servicer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"inference-service/internal/batcher"
	"inference-service/internal/detector"
	"inference-service/proto"
)

func newTestServicer(t *testing.T) (*Servicer, *batcher.Batcher, *detector.Stub) {
	t.Helper()
	det := detector.NewStub(detector.Config{ModelID: "ppe-stub", ModelVersion: "dev"})
	require.NoError(t, det.Load(context.Background()))

	b := batcher.New(batcher.Config{MaxBatchSize: 4, BatchTimeoutMs: 20}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { b.Stop(context.Background()) })

	modelInfo := ModelInfo{
		ModelID:             "ppe-stub",
		ModelVersion:        "dev",
		ModelType:           "yolo",
		SupportedViolations: []string{"no_helmet", "no_safety_vest"},
		MaxBatchSize:        4,
	}
	svc := New(b, det, nil, modelInfo, nil)
	return svc, b, det
}

func TestServicer_Infer_InvalidImageReturnsInvalidArgument(t *testing.T) {
	svc, _, _ := newTestServicer(t)

	_, err := svc.Infer(context.Background(), &proto.InferRequest{
		FrameID:   "f1",
		ImageData: []byte("not an image"),
	})
	require.Error(t, err)
}

func TestServicer_InferBatch_PerItemErrorDoesNotAbortBatch(t *testing.T) {
	svc, _, _ := newTestServicer(t)

	resp, err := svc.InferBatch(context.Background(), &proto.InferBatchRequest{
		Requests: []*proto.InferRequest{
			{FrameID: "bad", ImageData: []byte("garbage")},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Responses, 1)
	require.NotEmpty(t, resp.Responses[0].Error)
	require.Equal(t, "bad", resp.Responses[0].FrameID)
}

func TestServicer_Health_UnhealthyWhenDetectorNotLoaded(t *testing.T) {
	det := detector.NewStub(detector.Config{})
	b := batcher.New(batcher.Config{MaxBatchSize: 1, BatchTimeoutMs: 10}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	svc := New(b, det, nil, ModelInfo{}, nil)

	resp, err := svc.Health(context.Background(), &proto.HealthRequest{})
	require.NoError(t, err)
	require.Equal(t, "unhealthy", resp.Status)
	require.False(t, resp.DetectorLoaded)
}

func TestServicer_Health_HealthyWithoutPublisher(t *testing.T) {
	svc, _, det := newTestServicer(t)
	require.True(t, det.IsLoaded())

	resp, err := svc.Health(context.Background(), &proto.HealthRequest{})
	require.NoError(t, err)
	require.Equal(t, "healthy", resp.Status) // nil publisher counts as healthy (none configured)
	require.True(t, resp.PublisherHealthy)
}

type fakeUnhealthyPublisher struct{}

func (fakeUnhealthyPublisher) Healthy() bool { return false }

func TestServicer_Health_DegradedWhenPublisherDown(t *testing.T) {
	det := detector.NewStub(detector.Config{})
	require.NoError(t, det.Load(context.Background()))
	b := batcher.New(batcher.Config{MaxBatchSize: 1, BatchTimeoutMs: 10}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	svc := New(b, det, fakeUnhealthyPublisher{}, ModelInfo{}, nil)

	resp, err := svc.Health(context.Background(), &proto.HealthRequest{})
	require.NoError(t, err)
	require.Equal(t, "degraded", resp.Status)
}

func TestServicer_GetModelInfo_ReturnsConfiguredMetadata(t *testing.T) {
	svc, _, _ := newTestServicer(t)

	resp, err := svc.GetModelInfo(context.Background(), &proto.ModelInfoRequest{})
	require.NoError(t, err)
	require.Equal(t, "ppe-stub", resp.ModelID)
	require.Equal(t, int32(4), resp.MaxBatchSize)
}

func TestServicer_InferStream_SkipsBadFrameButContinuesStream(t *testing.T) {
	svc, _, _ := newTestServicer(t)
	stream := &fakeInferStream{
		toSend: []*proto.InferRequest{
			{FrameID: "bad", ImageData: []byte("garbage")},
		},
	}
	done := make(chan error, 1)
	go func() { done <- svc.InferStream(stream) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("InferStream did not return")
	}
	require.Empty(t, stream.received)
}

// fakeInferStream implements proto.Inference_InferStreamServer backed by an
// in-memory slice, for unit-testing InferStream without a real gRPC
// transport.
type fakeInferStream struct {
	proto.Inference_InferStreamServer
	toSend   []*proto.InferRequest
	idx      int
	received []*proto.InferResponse
}

func (f *fakeInferStream) Recv() (*proto.InferRequest, error) {
	if f.idx >= len(f.toSend) {
		return nil, io.EOF
	}
	req := f.toSend[f.idx]
	f.idx++
	return req, nil
}

func (f *fakeInferStream) Send(resp *proto.InferResponse) error {
	f.received = append(f.received, resp)
	return nil
}

func (f *fakeInferStream) Context() context.Context { return context.Background() }

func TestBuildInferResponse_IncludesComplianceSummaryAndImageDims(t *testing.T) {
	result := detector.Result{
		FrameID: "f1",
		Detections: []detector.Detection{
			{ClassName: "no_helmet"},
			{ClassName: "vest"},
			{ClassName: "person"},
		},
		ImageWidth:  640,
		ImageHeight: 480,
		Metadata:    map[string]any{"model_id": "ppe-stub", "model_version": "dev"},
	}

	resp := buildInferResponse(result)

	require.Equal(t, int32(640), resp.ImageWidth)
	require.Equal(t, int32(480), resp.ImageHeight)
	require.ElementsMatch(t, []string{"no_helmet"}, resp.ComplianceSummary.Violations)
	require.ElementsMatch(t, []string{"vest"}, resp.ComplianceSummary.CompliantItems)
	require.True(t, resp.ComplianceSummary.HasViolations)
	require.Equal(t, 1, resp.ComplianceSummary.ViolationCount)
	require.Equal(t, 1, resp.ComplianceSummary.PersonCount)
}
