package services

import (
	"context"
	"fmt"

	"github.com/alimgiray/gitreach/internal/contacts"
	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/pkg/metrics"
)

// EnrichmentService fetches a contributor's profile and social accounts and
// derives their contact record
type EnrichmentService struct {
	metrics *metrics.Metrics
}

func NewEnrichmentService(m *metrics.Metrics) *EnrichmentService {
	return &EnrichmentService{metrics: m}
}

// Enrich builds a full contributor from a listing entry
func (s *EnrichmentService) Enrich(ctx context.Context, api GitHubAPI, listed githubclient.Contributor) (models.Contributor, error) {
	user, err := api.GetUser(ctx, listed.Login)
	if err != nil {
		s.metrics.EnrichmentFailed()
		return models.Contributor{}, fmt.Errorf("get user %s: %w", listed.Login, err)
	}

	accounts := api.ListSocialAccounts(ctx, listed.Login)
	social := make([]contacts.SocialAccount, 0, len(accounts))
	for _, a := range accounts {
		social = append(social, contacts.SocialAccount{Provider: a.Provider, URL: a.URL})
	}

	profile := contacts.Profile{
		Email:           user.Email,
		TwitterUsername: user.TwitterUsername,
		Blog:            user.Blog,
		Bio:             user.Bio,
	}

	name := user.Name
	if name == "" {
		name = listed.Login
	}
	avatar := user.AvatarURL
	if avatar == "" {
		avatar = listed.AvatarURL
	}

	s.metrics.ContributorEnriched()
	return models.Contributor{
		Username:      listed.Login,
		Name:          name,
		AvatarURL:     avatar,
		Bio:           user.Bio,
		Location:      user.Location,
		Company:       user.Company,
		Contributions: listed.Contributions,
		Contacts:      contacts.FromProfile(profile, social),
	}, nil
}

// Degraded builds a contributor from listing data alone, with no contacts
func Degraded(listed githubclient.Contributor) models.Contributor {
	return models.Contributor{
		Username:      listed.Login,
		Name:          listed.Login,
		AvatarURL:     listed.AvatarURL,
		Contributions: listed.Contributions,
	}
}
