package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alimgiray/gitreach/internal/models"
)

const (
	shareTokenLength   = 10
	shareTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// ShareService issues and resolves public read-only scrape links
type ShareService struct {
	shares ShareStore
	store  ScrapeStore
}

func NewShareService(shares ShareStore, store ScrapeStore) *ShareService {
	return &ShareService{shares: shares, store: store}
}

// CreateShare issues a new token for an existing scrape
func (s *ShareService) CreateShare(ctx context.Context, scrapeID string) (*models.SharedScrape, error) {
	if _, err := s.store.GetScrapeMetadata(ctx, scrapeID); err != nil {
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}

	share := &models.SharedScrape{Token: token, ScrapeID: scrapeID, CreatedAt: time.Now()}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// GetShared returns the shared scrape with all contributors
func (s *ShareService) GetShared(ctx context.Context, token string) (*models.Scrape, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.GetScrape(ctx, share.ScrapeID)
}

func newShareToken() (string, error) {
	size := big.NewInt(int64(len(shareTokenAlphabet)))
	b := make([]byte, shareTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate share token: %w", err)
		}
		b[i] = shareTokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
