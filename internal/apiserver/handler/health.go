package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/amoylab/hydrowatch/pkg/version"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Healthz reports whether the database answers
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version.Get()})
}
