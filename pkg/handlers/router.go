package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnavshah/internship-allocator-go/pkg/logger"
)

// Version is reported by the service banner
const Version = "1.0.0"

// NewRouter wires every route onto a fresh gin engine
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = logger.NewNoOpLogger()
	}

	r := gin.New()
	r.Use(RequestLogger(h.Log), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Internship Allocation API",
			"version": Version,
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/allocate", h.AllocateJSON)
		api.POST("/allocate/csv", h.AllocateCSV)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
	}

	// Legacy upload routes
	r.POST("/allocate/json", h.AllocateJSON)
	r.POST("/allocate/csv", h.AllocateCSV)

	return r
}

// RequestLogger logs one line per request through the structured logger
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   clientID(c),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("Request failed", fields)
			return
		}
		log.Info("Request handled", fields)
	}
}
