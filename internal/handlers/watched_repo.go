package handlers

import (
	"net/http"

	"github.com/alimgiray/gitreach/internal/services"
	"github.com/gin-gonic/gin"
)

type WatchedRepoHandler struct {
	watchService *services.WatchService
}

func NewWatchedRepoHandler(watchService *services.WatchService) *WatchedRepoHandler {
	return &WatchedRepoHandler{watchService: watchService}
}

// ListWatchedRepos returns every watched repo
func (h *WatchedRepoHandler) ListWatchedRepos(c *gin.Context) {
	repos, err := h.watchService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list watched repos")
		return
	}
	c.JSON(http.StatusOK, repos)
}

// AddWatchedRepo starts watching a repository
func (h *WatchedRepoHandler) AddWatchedRepo(c *gin.Context) {
	var req struct {
		Repo          string `json:"repo"`
		IntervalHours int    `json:"interval_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	repo, err := h.watchService.Add(c.Request.Context(), req.Repo, req.IntervalHours)
	if err != nil {
		respondError(c, err, "Failed to add watched repo")
		return
	}
	c.JSON(http.StatusCreated, repo)
}

// DeleteWatchedRepo stops watching a repository
func (h *WatchedRepoHandler) DeleteWatchedRepo(c *gin.Context) {
	if err := h.watchService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete watched repo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CheckWatchedRepos runs the due check now
func (h *WatchedRepoHandler) CheckWatchedRepos(c *gin.Context) {
	result, err := h.watchService.CheckDue(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to check watched repos")
		return
	}
	c.JSON(http.StatusOK, result)
}
