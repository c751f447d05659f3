package httpapi

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"inference-service/internal/health"
	"inference-service/internal/servicer"
	"inference-service/proto"
)

// Handler holds the dependencies shared by every HTTP route.
type Handler struct {
	svc     *servicer.Servicer
	checker *health.Checker
}

// Infer handles POST /api/v1/infer: a single multipart image upload.
func (h *Handler) Infer(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"file\""})
		return
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := &proto.InferRequest{
		FrameID:   c.PostForm("frame_id"),
		WorkerID:  c.PostForm("worker_id"),
		CameraID:  c.PostForm("camera_id"),
		ImageData: data,
	}

	resp, err := h.svc.Infer(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// InferBatch handles POST /api/v1/infer/batch: a multipart multi-file
// upload, returning one per-item result (success or error) per file.
func (h *Handler) InferBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided under field \"files\""})
		return
	}

	requests := make([]*proto.InferRequest, len(files))
	for i, fh := range files {
		data, err := readMultipartFile(fh)
		if err != nil {
			requests[i] = &proto.InferRequest{FrameID: fh.Filename}
			continue
		}
		requests[i] = &proto.InferRequest{FrameID: fh.Filename, ImageData: data}
	}

	resp, err := h.svc.InferBatch(c.Request.Context(), &proto.InferBatchRequest{Requests: requests})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ModelInfo handles GET /api/v1/model/info.
func (h *Handler) ModelInfo(c *gin.Context) {
	resp, err := h.svc.GetModelInfo(c.Request.Context(), &proto.ModelInfoRequest{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health: full component + resource report.
func (h *Handler) Health(c *gin.Context) {
	report, err := h.checker.Check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	httpStatus := http.StatusOK
	if report.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, report)
}

// Ready handles GET /ready: readiness gate, detector-loaded only.
func (h *Handler) Ready(c *gin.Context) {
	report, err := h.checker.Check(c.Request.Context())
	if err != nil || !report.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// Live handles GET /live: process-liveness gate.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"live": true})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
