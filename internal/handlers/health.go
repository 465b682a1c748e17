package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// WorkerStatus reports the running state of background workers
type WorkerStatus interface {
	GetWorkerStatus() map[string]bool
	ActiveScrapes() int
}

type HealthHandler struct {
	db      *sqlx.DB
	workers WorkerStatus
	started time.Time
}

func NewHealthHandler(db *sqlx.DB, workers WorkerStatus) *HealthHandler {
	return &HealthHandler{db: db, workers: workers, started: time.Now()}
}

// HealthCheck reports database reachability and worker state
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := http.StatusOK
	database := "ok"
	if h.db != nil {
		if err := h.db.PingContext(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			database = "unreachable"
		}
	}

	var workers map[string]bool
	activeScrapes := 0
	if h.workers != nil {
		workers = h.workers.GetWorkerStatus()
		activeScrapes = h.workers.ActiveScrapes()
	}

	c.JSON(status, gin.H{
		"status":         http.StatusText(status),
		"database":       database,
		"workers":        workers,
		"active_scrapes": activeScrapes,
		"uptime":         time.Since(h.started).Round(time.Second).String(),
	})
}
