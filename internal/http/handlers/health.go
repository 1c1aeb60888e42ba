package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	pingDB    func() error
	pingCache func() error
}

func NewHealthHandler(pingDB, pingCache func() error) *HealthHandler {
	return &HealthHandler{pingDB: pingDB, pingCache: pingCache}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.pingDB != nil {
		if err := h.pingDB(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unavailable"})
			return
		}
	}

	// cache being down degrades performance, not readiness
	cacheStatus := "ok"

	if h.pingCache != nil {
		if err := h.pingCache(); err != nil {
			cacheStatus = "unavailable"
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "cache": cacheStatus})
}
