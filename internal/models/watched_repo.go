package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WatchedRepo is a repository polled periodically for new contributors
type WatchedRepo struct {
	ID            string     `json:"id"`
	Repo          string     `json:"repo"`
	IntervalHours int        `json:"interval_hours"`
	Active        bool       `json:"active"`
	LastCheckedAt *time.Time `json:"last_checked_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewWatchedRepo creates an active watched repo that has never been checked
func NewWatchedRepo(repo string, intervalHours int) *WatchedRepo {
	return &WatchedRepo{
		ID:            uuid.New().String(),
		Repo:          strings.TrimSpace(repo),
		IntervalHours: intervalHours,
		Active:        true,
		CreatedAt:     time.Now(),
	}
}

func (w *WatchedRepo) Validate() error {
	if !IsRepoFullName(w.Repo) {
		return ErrInvalidRepository
	}
	if w.IntervalHours <= 0 {
		return ErrInvalidInterval
	}
	return nil
}

// IsDue checks if the repo was never checked or its interval has elapsed
func (w *WatchedRepo) IsDue(now time.Time) bool {
	if !w.Active {
		return false
	}
	if w.LastCheckedAt == nil {
		return true
	}
	next := w.LastCheckedAt.Add(time.Duration(w.IntervalHours) * time.Hour)
	return !next.After(now)
}

// WatchRepoResult is the outcome of checking one watched repo
type WatchRepoResult struct {
	Repo            string        `json:"repo"`
	NewContributors []Contributor `json:"newContributors"`
	Error           string        `json:"error,omitempty"`
}

// WatchCheckResult summarizes one run of the watched repo checker
type WatchCheckResult struct {
	Checked int               `json:"checked"`
	Results []WatchRepoResult `json:"results"`
}

var (
	ErrInvalidInterval = &ValidationError{Field: "interval_hours", Message: "Interval must be a positive number of hours"}
)
