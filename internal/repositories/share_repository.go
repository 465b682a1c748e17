package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/jmoiron/sqlx"
)

type shareRow struct {
	Token     string    `db:"token"`
	ScrapeID  string    `db:"scrape_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ShareRepository handles database operations for share links
type ShareRepository struct {
	db *sqlx.DB
}

// NewShareRepository creates a new ShareRepository
func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create stores a share link
func (r *ShareRepository) Create(ctx context.Context, s *models.SharedScrape) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_scrapes (token, scrape_id, created_at) VALUES (?, ?, ?)`,
		s.Token, s.ScrapeID, s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create share: %w", err)
	}
	return nil
}

// GetByToken retrieves a share link
func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*models.SharedScrape, error) {
	var row shareRow
	err := r.db.GetContext(ctx, &row, `SELECT token, scrape_id, created_at FROM shared_scrapes WHERE token = ?`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	return &models.SharedScrape{Token: row.Token, ScrapeID: row.ScrapeID, CreatedAt: row.CreatedAt}, nil
}
