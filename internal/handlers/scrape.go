package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ScrapeHandler struct {
	scrapeService *services.ScrapeService
	exportService *services.ExportService
	shareService  *services.ShareService
}

func NewScrapeHandler(scrapeService *services.ScrapeService, exportService *services.ExportService,
	shareService *services.ShareService) *ScrapeHandler {
	return &ScrapeHandler{
		scrapeService: scrapeService,
		exportService: exportService,
		shareService:  shareService,
	}
}

// StartScrape validates the request and starts a background scrape
func (h *ScrapeHandler) StartScrape(c *gin.Context) {
	var req services.StartScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.scrapeService.StartScrape(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to start scrape")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":        result.Scrape.ID,
		"scrape":    result.Scrape,
		"rateLimit": result.RateLimit,
	})
}

// ListScrapes returns active, completed and failed scrapes
func (h *ScrapeHandler) ListScrapes(c *gin.Context) {
	list, err := h.scrapeService.ListScrapes(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list scrapes")
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetScrape returns a scrape with one page of contributors
func (h *ScrapeHandler) GetScrape(c *gin.Context) {
	pageParam := c.Query("page")
	if pageParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page query parameter is required"})
		return
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return
	}

	result, err := h.scrapeService.GetScrapePage(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		respondError(c, err, "Failed to get scrape")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteScrape removes a scrape and its links
func (h *ScrapeHandler) DeleteScrape(c *gin.Context) {
	if err := h.scrapeService.DeleteScrape(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete scrape")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ExportScrape downloads reachable contributors as CSV or XLSX
func (h *ScrapeHandler) ExportScrape(c *gin.Context) {
	id := c.Param("id")
	format := strings.ToLower(c.DefaultQuery("format", "csv"))

	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = h.exportService.WriteCSV(c.Request.Context(), id, &buf)
	case "xlsx":
		contentType = xlsxContentType
		err = h.exportService.WriteXLSX(c.Request.Context(), id, &buf)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}
	if err != nil {
		respondError(c, err, "Failed to export scrape")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contributors-%s.%s"`, id, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// CreateShare issues a public read-only link for a scrape
func (h *ScrapeHandler) CreateShare(c *gin.Context) {
	share, err := h.shareService.CreateShare(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to create share link")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token": share.Token,
		"url":   "/api/share/" + share.Token,
	})
}

// GetShared returns a shared scrape with all contributors
func (h *ScrapeHandler) GetShared(c *gin.Context) {
	scrape, err := h.shareService.GetShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err, "Failed to load shared scrape")
		return
	}
	c.JSON(http.StatusOK, scrape)
}

// UpdateOutreach records outreach state for a contributor
func (h *ScrapeHandler) UpdateOutreach(c *gin.Context) {
	var update models.OutreachUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	contributor, err := h.scrapeService.UpdateOutreach(c.Request.Context(), c.Param("username"), update)
	if err != nil {
		respondError(c, err, "Failed to update contributor")
		return
	}
	c.JSON(http.StatusOK, contributor)
}

// RateLimit reports the quota of the given or configured token
func (h *ScrapeHandler) RateLimit(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	// the body is optional, the configured token is used without one
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rl, err := h.scrapeService.RateLimit(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err, "Failed to fetch rate limit")
		return
	}
	c.JSON(http.StatusOK, rl)
}
