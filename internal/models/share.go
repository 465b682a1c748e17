package models

import "time"

// SharedScrape is a public read-only link to a scrape
type SharedScrape struct {
	Token     string    `json:"token"`
	ScrapeID  string    `json:"scrape_id"`
	CreatedAt time.Time `json:"created_at"`
}
