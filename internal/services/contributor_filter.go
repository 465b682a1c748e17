package services

import (
	"strings"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/pkg/config"
)

// ContributorFilter drops contributors by policy. A nil filter keeps everyone.
type ContributorFilter struct {
	MinContributions int
	ExcludeBots      bool
	denylist         map[string]bool
}

// NewContributorFilter builds a filter from configuration
func NewContributorFilter(cfg config.FilterConfig) *ContributorFilter {
	denylist := make(map[string]bool, len(cfg.Denylist))
	for _, login := range cfg.Denylist {
		denylist[strings.ToLower(login)] = true
	}
	return &ContributorFilter{
		MinContributions: cfg.MinContributions,
		ExcludeBots:      cfg.ExcludeBots,
		denylist:         denylist,
	}
}

// Excludes reports whether a login should be skipped before any profile is
// fetched for it
func (f *ContributorFilter) Excludes(login, accountType string) bool {
	if f == nil {
		return false
	}
	if f.denylist[strings.ToLower(login)] {
		return true
	}
	if f.ExcludeBots && isBot(login, accountType) {
		return true
	}
	return false
}

// Apply removes contributors under the contribution threshold, keeping order
func (f *ContributorFilter) Apply(list []models.Contributor) []models.Contributor {
	if f == nil || f.MinContributions <= 0 {
		return list
	}

	kept := make([]models.Contributor, 0, len(list))
	for _, c := range list {
		if c.Contributions >= f.MinContributions {
			kept = append(kept, c)
		}
	}
	return kept
}

func isBot(login, accountType string) bool {
	return strings.EqualFold(accountType, "Bot") || strings.HasSuffix(strings.ToLower(login), "[bot]")
}
