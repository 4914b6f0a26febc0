package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
)

// Version is reported by the health endpoint
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	queueMgr    *app.QueueManager
	provisioner domain.Provisioner
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queueMgr *app.QueueManager, provisioner domain.Provisioner) *HealthHandler {
	return &HealthHandler{
		queueMgr:    queueMgr,
		provisioner: provisioner,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Queue   struct {
		Running bool `json:"running"`
	} `json:"queue"`
	Binaries domain.ProvisionStatus `json:"binaries"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:   "ok",
		Version:  Version,
		Binaries: h.provisioner.Status(),
	}
	response.Queue.Running = h.queueMgr.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready. The service is ready once the binaries are
// present and the queue is processing.
func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.provisioner.Status()

	var reason string
	switch {
	case status.TimedOut:
		reason = domain.ErrBinariesMissing.Error()
	case !status.Ready:
		reason = domain.ErrBinariesPending.Error()
	case !h.queueMgr.IsRunning():
		reason = "queue manager not running"
	}

	if reason != "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"reason":   reason,
			"binaries": status,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
