package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/jmoiron/sqlx"
)

type watchedRepoRow struct {
	ID            string     `db:"id"`
	Repo          string     `db:"repo"`
	IntervalHours int        `db:"interval_hours"`
	Active        bool       `db:"active"`
	LastCheckedAt *time.Time `db:"last_checked_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (r watchedRepoRow) toModel() models.WatchedRepo {
	return models.WatchedRepo{
		ID:            r.ID,
		Repo:          r.Repo,
		IntervalHours: r.IntervalHours,
		Active:        r.Active,
		LastCheckedAt: r.LastCheckedAt,
		CreatedAt:     r.CreatedAt,
	}
}

// WatchedRepoRepository handles database operations for watched repos and
// the contributors already seen on them
type WatchedRepoRepository struct {
	db *sqlx.DB
	mu sync.RWMutex
}

// NewWatchedRepoRepository creates a new WatchedRepoRepository
func NewWatchedRepoRepository(db *sqlx.DB) *WatchedRepoRepository {
	return &WatchedRepoRepository{db: db}
}

// Create inserts a watched repo
func (r *WatchedRepoRepository) Create(ctx context.Context, w *models.WatchedRepo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO watched_repos (id, repo, interval_hours, active, last_checked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, w.ID, w.Repo, w.IntervalHours, w.Active, w.LastCheckedAt, w.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create watched repo: %w", err)
	}
	return nil
}

// GetByID retrieves a watched repo
func (r *WatchedRepoRepository) GetByID(ctx context.Context, id string) (*models.WatchedRepo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var row watchedRepoRow
	err := r.db.GetContext(ctx, &row, `SELECT id, repo, interval_hours, active, last_checked_at, created_at FROM watched_repos WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get watched repo: %w", err)
	}

	w := row.toModel()
	return &w, nil
}

// List returns all watched repos, oldest first
func (r *WatchedRepoRepository) List(ctx context.Context) ([]models.WatchedRepo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []watchedRepoRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, repo, interval_hours, active, last_checked_at, created_at FROM watched_repos ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched repos: %w", err)
	}

	repos := make([]models.WatchedRepo, 0, len(rows))
	for _, row := range rows {
		repos = append(repos, row.toModel())
	}
	return repos, nil
}

// Delete removes a watched repo and its seen contributors
func (r *WatchedRepoRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `DELETE FROM watched_repos WHERE id = ?`, id)
	return requireRows(result, err, "delete watched repo")
}

// MarkChecked sets last_checked_at
func (r *WatchedRepoRepository) MarkChecked(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, `UPDATE watched_repos SET last_checked_at = ? WHERE id = ?`, at.UTC(), id)
	return requireRows(result, err, "mark watched repo checked")
}

// KnownContributors returns the logins already seen on a watched repo
func (r *WatchedRepoRepository) KnownContributors(ctx context.Context, id string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logins []string
	err := r.db.SelectContext(ctx, &logins, `SELECT github_username FROM watched_repo_contributors WHERE watched_repo_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list known contributors: %w", err)
	}

	known := make(map[string]bool, len(logins))
	for _, login := range logins {
		known[login] = true
	}
	return known, nil
}

// AddKnownContributor records a login as seen on a watched repo
func (r *WatchedRepoRepository) AddKnownContributor(ctx context.Context, id, login string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO watched_repo_contributors (watched_repo_id, github_username, first_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT (watched_repo_id, github_username) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, id, login, at.UTC()); err != nil {
		return fmt.Errorf("failed to add known contributor: %w", err)
	}
	return nil
}
