// Package httpapi is the gin HTTP surface spec.md §6 names: the ingest
// service's webhook endpoint and the worker service's /tasks/* dispatch
// endpoints, plus /health and /metrics on both. Grounded on the teacher's
// internal/interfaces/http/server.go router setup (middleware chain, grouped
// routes, gin.H JSON responses).
package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rivergate/invoiceflow/internal/router"
	"go.uber.org/zap"
)

var startedAt = time.Now()

// NewIngestServer builds the ingest service's gin engine: POST
// /webhook/:secretPath and GET /health.
func NewIngestServer(rt *router.Router, logger *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/webhook/:secretPath", func(c *gin.Context) {
		if !rt.VerifySecretPath(c.Param("secretPath")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		action, err := rt.HandleWebhook(c.Request.Context(), body, time.Now())
		if err != nil {
			logger.Warn("webhook handling failed", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "action": action})
	})

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok", "service": "ingest",
			"uptime": time.Since(startedAt).String(), "timestamp": time.Now(),
		})
	})

	return engine
}
