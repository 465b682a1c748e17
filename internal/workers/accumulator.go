package workers

import (
	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
)

// contributorAccumulator folds contributor listings from several repos into
// one record per login. A login is enriched at most once per scrape.
type contributorAccumulator struct {
	order    []string
	byLogin  map[string]*models.Contributor
	enriched map[string]bool
}

func newContributorAccumulator() *contributorAccumulator {
	return &contributorAccumulator{
		byLogin:  make(map[string]*models.Contributor),
		enriched: make(map[string]bool),
	}
}

// add records a listing entry. It reports true on the first sighting of the
// login, false when only the contribution count was added.
func (a *contributorAccumulator) add(listed githubclient.Contributor) bool {
	if existing, ok := a.byLogin[listed.Login]; ok {
		existing.Contributions += listed.Contributions
		return false
	}

	c := services.Degraded(listed)
	a.order = append(a.order, listed.Login)
	a.byLogin[listed.Login] = &c
	return true
}

// needsEnrichment reports whether login was seen and not yet enriched
func (a *contributorAccumulator) needsEnrichment(login string) bool {
	_, seen := a.byLogin[login]
	return seen && !a.enriched[login]
}

// setEnriched replaces the profile of login, keeping its accumulated count
func (a *contributorAccumulator) setEnriched(login string, c models.Contributor) {
	existing, ok := a.byLogin[login]
	if !ok {
		return
	}
	c.Contributions = existing.Contributions
	*existing = c
	a.enriched[login] = true
}

// markAttempted records that enrichment was tried for login, successful or not
func (a *contributorAccumulator) markAttempted(login string) {
	a.enriched[login] = true
}

func (a *contributorAccumulator) len() int {
	return len(a.order)
}

// list returns the contributors in first-seen order
func (a *contributorAccumulator) list() []models.Contributor {
	out := make([]models.Contributor, 0, len(a.order))
	for _, login := range a.order {
		out = append(out, *a.byLogin[login])
	}
	return out
}
