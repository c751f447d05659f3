package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"inference-service/internal/batcher"
	"inference-service/internal/detector"
	"inference-service/internal/health"
	"inference-service/internal/servicer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	det := detector.NewStub(detector.Config{ModelID: "ppe-stub"})
	require.NoError(t, det.Load(context.Background()))

	b := batcher.New(batcher.Config{MaxBatchSize: 4, BatchTimeoutMs: 20}, det, nil, nil, nil)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() { b.Stop(context.Background()) })

	svc := servicer.New(b, det, nil, servicer.ModelInfo{ModelID: "ppe-stub", MaxBatchSize: 4}, nil)
	checker := health.NewChecker(svc, 0)
	return NewRouter(svc, checker)
}

func multipartBody(t *testing.T, fieldName, filename string, content []byte, extraFields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for k, v := range extraFields {
		require.NoError(t, w.WriteField(k, v))
	}

	part, err := w.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func TestHTTPAPI_Infer_RejectsNonImagePayload(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "file", "frame.bin", []byte("not an image"), map[string]string{"frame_id": "f1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/infer", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPAPI_Infer_MissingFileField(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/infer", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPAPI_ModelInfo_ReturnsConfiguredMetadata(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/model/info", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ppe-stub")
}

func TestHTTPAPI_Live_AlwaysOK(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAPI_Ready_OKWhenDetectorLoaded(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPAPI_Metrics_Exposed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
