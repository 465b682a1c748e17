package handlers

import (
	"github.com/alimgiray/gitreach/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers groups every route handler of the JSON API
type Handlers struct {
	Scrape      *ScrapeHandler
	WatchedRepo *WatchedRepoHandler
	Slack       *SlackHandler
	Health      *HealthHandler
	NotFound    *NotFoundHandler
}

// SetupRoutes registers the JSON API on router. Share links stay public
// when apiToken is set.
func SetupRoutes(router *gin.Engine, h Handlers, apiToken string) {
	router.GET("/health", h.Health.HealthCheck)
	router.GET("/api/share/:token", h.Scrape.GetShared)

	api := router.Group("/api")
	api.Use(middleware.APITokenRequired(apiToken))
	{
		api.POST("/scrapes", h.Scrape.StartScrape)
		api.GET("/scrapes", h.Scrape.ListScrapes)
		api.GET("/scrapes/:id", h.Scrape.GetScrape)
		api.DELETE("/scrapes/:id", h.Scrape.DeleteScrape)
		api.GET("/scrapes/:id/export", h.Scrape.ExportScrape)
		api.POST("/scrapes/:id/share", h.Scrape.CreateShare)

		api.PATCH("/contributors/:username/outreach", h.Scrape.UpdateOutreach)

		api.GET("/watched-repos", h.WatchedRepo.ListWatchedRepos)
		api.POST("/watched-repos", h.WatchedRepo.AddWatchedRepo)
		api.DELETE("/watched-repos/:id", h.WatchedRepo.DeleteWatchedRepo)
		api.POST("/watched-repos/check", h.WatchedRepo.CheckWatchedRepos)

		api.POST("/rate-limit", h.Scrape.RateLimit)
		api.POST("/slack/test", h.Slack.TestWebhook)
	}

	router.NoRoute(h.NotFound.NotFound)
}
