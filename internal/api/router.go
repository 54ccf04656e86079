// Package api serves the REST API, the MCP streamable HTTP endpoint and
// Prometheus metrics from one gin router.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gere2/AIGNITE/internal/assess"
)

type Options struct {
	Service *assess.Service
	// MCP is mounted at /mcp when set.
	MCP *mcp.Server
	// BearerToken guards /api and /mcp when set.
	BearerToken string
	CORSOrigins []string
	ListLimit   int
	Logger      *slog.Logger
}

func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger), SetupCORS(opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		info := opts.Service.ModelInfo()
		c.JSON(http.StatusOK, gin.H{
			"status":        "UP",
			"model_version": info.Version,
			"model_kind":    info.ModelKind,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	protected := router.Group("/")
	if opts.BearerToken != "" {
		protected.Use(BearerAuth(opts.BearerToken))
	}

	h := NewAssessmentHandler(opts.Service, opts.ListLimit)
	v1 := protected.Group("/api/v1")
	{
		v1.POST("/assessments", h.Create)
		v1.GET("/assessments", h.List)
		v1.GET("/assessments/:id", h.Get)
		v1.PUT("/assessments/:id", h.Put)
		v1.DELETE("/assessments/:id", h.Delete)
		v1.POST("/predict", h.Predict)
		v1.POST("/validate", h.Validate)
		v1.POST("/explain", h.Explain)
		v1.GET("/stats", h.Stats)
		v1.GET("/vocabulary", h.Vocabulary)
		v1.GET("/model", h.Model)
	}

	if opts.MCP != nil {
		srv := opts.MCP
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return srv
		}, nil)
		protected.Any("/mcp", gin.WrapH(handler))
	}

	return router
}
