package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareService(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := NewShareService(&memoryShares{}, store)

	scrape := models.NewScrape(models.ScrapeTypeOrganization, "acme")
	require.NoError(t, store.CreateScrape(ctx, scrape))
	require.NoError(t, store.CompleteScrape(ctx, scrape.ID, []models.Contributor{{Username: "alice"}}))

	share, err := svc.CreateShare(ctx, scrape.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{10}$`), share.Token)

	shared, err := svc.GetShared(ctx, share.Token)
	require.NoError(t, err)
	assert.Equal(t, scrape.ID, shared.ID)
	require.Len(t, shared.Contributors, 1)

	_, err = svc.GetShared(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.CreateShare(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestShareTokensDiffer(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		token, err := newShareToken()
		require.NoError(t, err)
		assert.Len(t, token, shareTokenLength)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
