package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScrapeType represents what a scrape targets
type ScrapeType string

const (
	ScrapeTypeOrganization ScrapeType = "organization"
	ScrapeTypeRepository   ScrapeType = "repository"
)

// ScrapeStatus represents the lifecycle state of a scrape
type ScrapeStatus string

const (
	ScrapeStatusActive    ScrapeStatus = "active"
	ScrapeStatusCompleted ScrapeStatus = "completed"
	ScrapeStatusFailed    ScrapeStatus = "failed"
)

// Scrape is one contributor discovery job
type Scrape struct {
	ID               string        `json:"id"`
	Type             ScrapeType    `json:"type"`
	Target           string        `json:"target"`
	Status           ScrapeStatus  `json:"status"`
	Progress         int           `json:"progress"`
	Current          int           `json:"current"`
	Total            int           `json:"total"`
	CurrentUserLogin *string       `json:"currentUser,omitempty"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	Error            *string       `json:"error,omitempty"`
	ContributorCount int           `json:"contributorCount"`
	Contributors     []Contributor `json:"contributors,omitempty"`
}

// NewScrape creates an active scrape with a generated UUID and zero progress
func NewScrape(scrapeType ScrapeType, target string) *Scrape {
	return &Scrape{
		ID:        uuid.New().String(),
		Type:      scrapeType,
		Target:    strings.TrimSpace(target),
		Status:    ScrapeStatusActive,
		StartedAt: time.Now(),
	}
}

// Validate checks the scrape type and target shape
func (s *Scrape) Validate() error {
	switch s.Type {
	case ScrapeTypeOrganization:
		if s.Target == "" {
			return ErrScrapeTargetRequired
		}
		if strings.Contains(s.Target, "/") {
			return ErrInvalidOrganization
		}
	case ScrapeTypeRepository:
		if s.Target == "" {
			return ErrScrapeTargetRequired
		}
		if !IsRepoFullName(s.Target) {
			return ErrInvalidRepository
		}
	default:
		return ErrInvalidScrapeType
	}
	return nil
}

// IsActive checks if the scrape is still running
func (s *Scrape) IsActive() bool {
	return s.Status == ScrapeStatusActive
}

// ScrapeProgress is a progress snapshot written while a scrape runs
type ScrapeProgress struct {
	Progress         int
	Current          int
	Total            int
	CurrentUserLogin string
}

// ScrapeList groups scrapes by lifecycle state, newest first
type ScrapeList struct {
	Active    []Scrape `json:"active"`
	Completed []Scrape `json:"completed"`
	Failed    []Scrape `json:"failed"`
}

// IsRepoFullName checks for the owner/repo shape
func IsRepoFullName(s string) bool {
	parts := strings.Split(s, "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != "" && !strings.ContainsAny(s, " \t")
}

var (
	ErrInvalidScrapeType    = &ValidationError{Field: "type", Message: "Type must be 'organization' or 'repository'"}
	ErrScrapeTargetRequired = &ValidationError{Field: "target", Message: "Target is required"}
	ErrInvalidOrganization  = &ValidationError{Field: "target", Message: "Organization name must not contain '/'"}
	ErrInvalidRepository    = &ValidationError{Field: "target", Message: "Repository must be in owner/repo format"}
	ErrTokenRequired        = &ValidationError{Field: "token", Message: "GitHub token is required"}
)

// ScrapePage is a scrape's metadata together with one page of contributors
type ScrapePage struct {
	Scrape
	ContributorTotal int  `json:"contributorTotal"`
	Page             int  `json:"page"`
	HasMore          bool `json:"hasMore"`
}
