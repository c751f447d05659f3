// Package httpapi implements the HTTP surface (A5) fronting the same
// Servicer core as the gRPC service: multipart single/batch inference
// upload, liveness/readiness probes, Prometheus exposition, and static
// model metadata.
//
// Grounded on an internal/api/router.go shape (gin.Default(), route
// grouping under /api/v1, CORS middleware shape) and on
// original_source/services/inference/src/main.py's FastAPI route table
// (/infer, /infer/batch, /health, /ready, /live, /metrics,
// /model/info).
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inference-service/internal/health"
	"inference-service/internal/servicer"
)

// NewRouter builds the gin engine for the inference HTTP surface.
func NewRouter(svc *servicer.Servicer, checker *health.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	h := &Handler{svc: svc, checker: checker}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/infer", h.Infer)
		v1.POST("/infer/batch", h.InferBatch)
		v1.GET("/model/info", h.ModelInfo)
	}

	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
