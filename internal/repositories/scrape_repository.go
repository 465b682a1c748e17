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

const scrapeSelectColumns = `s.id, s.type, s.target, s.status, s.progress, s.current, s.total,
	s.current_user_login, s.started_at, s.completed_at, s.error,
	(SELECT COUNT(*) FROM scrape_contributors sc WHERE sc.scrape_id = s.id) AS contributor_count`

type scrapeRow struct {
	ID               string     `db:"id"`
	Type             string     `db:"type"`
	Target           string     `db:"target"`
	Status           string     `db:"status"`
	Progress         int        `db:"progress"`
	Current          int        `db:"current"`
	Total            int        `db:"total"`
	CurrentUserLogin *string    `db:"current_user_login"`
	StartedAt        time.Time  `db:"started_at"`
	CompletedAt      *time.Time `db:"completed_at"`
	Error            *string    `db:"error"`
	ContributorCount int        `db:"contributor_count"`
}

func (r scrapeRow) toModel() models.Scrape {
	return models.Scrape{
		ID:               r.ID,
		Type:             models.ScrapeType(r.Type),
		Target:           r.Target,
		Status:           models.ScrapeStatus(r.Status),
		Progress:         r.Progress,
		Current:          r.Current,
		Total:            r.Total,
		CurrentUserLogin: r.CurrentUserLogin,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		Error:            r.Error,
		ContributorCount: r.ContributorCount,
	}
}

// ScrapeRepository handles database operations for scrapes
type ScrapeRepository struct {
	db *sqlx.DB
}

// NewScrapeRepository creates a new ScrapeRepository
func NewScrapeRepository(db *sqlx.DB) *ScrapeRepository {
	return &ScrapeRepository{db: db}
}

// Create inserts a new scrape
func (r *ScrapeRepository) Create(ctx context.Context, s *models.Scrape) error {
	query := `
		INSERT INTO scrapes (id, type, target, status, progress, current, total, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Type, s.Target, s.Status, s.Progress, s.Current, s.Total, s.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create scrape: %w", err)
	}
	return nil
}

// UpdateProgress writes a progress snapshot to an active scrape. The stored
// percentage never decreases; writes to finished or deleted scrapes are
// ignored.
func (r *ScrapeRepository) UpdateProgress(ctx context.Context, id string, p models.ScrapeProgress) error {
	query := `
		UPDATE scrapes
		SET progress = MAX(progress, ?), current = ?, total = ?, current_user_login = ?
		WHERE id = ? AND status = 'active'
	`

	_, err := r.db.ExecContext(ctx, query, p.Progress, p.Current, p.Total, nullString(p.CurrentUserLogin), id)
	if err != nil {
		return fmt.Errorf("failed to update scrape progress: %w", err)
	}
	return nil
}

// Fail marks an active scrape as failed
func (r *ScrapeRepository) Fail(ctx context.Context, id, message string) error {
	query := `
		UPDATE scrapes
		SET status = 'failed', error = ?, completed_at = ?, current_user_login = NULL
		WHERE id = ? AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, message, time.Now().UTC(), id)
	return requireRows(result, err, "fail scrape")
}

// complete marks an active scrape as completed inside tx
func (r *ScrapeRepository) complete(ctx context.Context, tx *sqlx.Tx, id string) error {
	query := `
		UPDATE scrapes
		SET status = 'completed', progress = 100, completed_at = ?, current_user_login = NULL
		WHERE id = ? AND status = 'active'
	`

	result, err := tx.ExecContext(ctx, query, time.Now().UTC(), id)
	return requireRows(result, err, "complete scrape")
}

// GetByID retrieves a scrape without its contributors
func (r *ScrapeRepository) GetByID(ctx context.Context, id string) (*models.Scrape, error) {
	query := `SELECT ` + scrapeSelectColumns + ` FROM scrapes s WHERE s.id = ?`

	var row scrapeRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scrape: %w", err)
	}

	s := row.toModel()
	return &s, nil
}

// List returns every scrape, newest first
func (r *ScrapeRepository) List(ctx context.Context) ([]models.Scrape, error) {
	query := `SELECT ` + scrapeSelectColumns + ` FROM scrapes s ORDER BY s.started_at DESC`

	var rows []scrapeRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list scrapes: %w", err)
	}

	scrapes := make([]models.Scrape, 0, len(rows))
	for _, row := range rows {
		scrapes = append(scrapes, row.toModel())
	}
	return scrapes, nil
}

// Delete removes a scrape, its contributor links and its share links
func (r *ScrapeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scrapes WHERE id = ?`, id)
	return requireRows(result, err, "delete scrape")
}

// exists checks for the scrape inside tx
func (r *ScrapeRepository) exists(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	var n int
	if err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM scrapes WHERE id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to check scrape: %w", err)
	}
	return n > 0, nil
}

// requireRows maps a zero-row write to ErrNotFound
func requireRows(result sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
