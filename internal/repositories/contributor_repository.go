package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const contributorSelectColumns = `c.id, c.github_username, c.name, c.avatar_url, c.bio, c.location, c.company,
	c.email, c.twitter, c.linkedin, c.website,
	c.contacted, c.contacted_date, c.outreach_notes, c.status, c.created_at, c.updated_at`

type contributorRow struct {
	ID            string    `db:"id"`
	Username      string    `db:"github_username"`
	Name          *string   `db:"name"`
	AvatarURL     *string   `db:"avatar_url"`
	Bio           *string   `db:"bio"`
	Location      *string   `db:"location"`
	Company       *string   `db:"company"`
	Email         *string   `db:"email"`
	Twitter       *string   `db:"twitter"`
	LinkedIn      *string   `db:"linkedin"`
	Website       *string   `db:"website"`
	Contacted     bool      `db:"contacted"`
	ContactedDate *string   `db:"contacted_date"`
	Notes         *string   `db:"outreach_notes"`
	Status        *string   `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	Contributions int       `db:"contributions"`
}

func (r contributorRow) toModel() models.Contributor {
	return models.Contributor{
		ID:            r.ID,
		Username:      r.Username,
		Name:          derefString(r.Name),
		AvatarURL:     derefString(r.AvatarURL),
		Bio:           derefString(r.Bio),
		Location:      derefString(r.Location),
		Company:       derefString(r.Company),
		Contributions: r.Contributions,
		Contacts: models.Contacts{
			Email:    derefString(r.Email),
			Twitter:  derefString(r.Twitter),
			LinkedIn: derefString(r.LinkedIn),
			Website:  derefString(r.Website),
		},
		Contacted:     r.Contacted,
		ContactedDate: r.ContactedDate,
		Notes:         r.Notes,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ContributorRepository handles database operations for contributors and
// their links to scrapes
type ContributorRepository struct {
	db *sqlx.DB
}

// NewContributorRepository creates a new ContributorRepository
func NewContributorRepository(db *sqlx.DB) *ContributorRepository {
	return &ContributorRepository{db: db}
}

// Upsert inserts or refreshes a contributor by username and returns its id.
// Profile fields are replaced, contact fields only when the new value is
// set, and outreach fields are never touched.
func (r *ContributorRepository) Upsert(ctx context.Context, q sqlx.QueryerContext, c *models.Contributor) (string, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO contributors (
			id, github_username, name, avatar_url, bio, location, company,
			email, twitter, linkedin, website, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_username) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			location = excluded.location,
			company = excluded.company,
			email = COALESCE(excluded.email, contributors.email),
			twitter = COALESCE(excluded.twitter, contributors.twitter),
			linkedin = COALESCE(excluded.linkedin, contributors.linkedin),
			website = COALESCE(excluded.website, contributors.website),
			updated_at = excluded.updated_at
		RETURNING id
	`

	var id string
	err := sqlx.GetContext(ctx, q, &id, query,
		uuid.New().String(), c.Username,
		nullString(c.Name), nullString(c.AvatarURL), nullString(c.Bio), nullString(c.Location), nullString(c.Company),
		nullString(c.Contacts.Email), nullString(c.Contacts.Twitter),
		nullString(c.Contacts.LinkedIn), nullString(c.Contacts.Website),
		now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert contributor %s: %w", c.Username, err)
	}
	return id, nil
}

// linkToScrape records the contributor's count within a scrape
func (r *ContributorRepository) linkToScrape(ctx context.Context, tx *sqlx.Tx, scrapeID, contributorID string, contributions int) error {
	query := `
		INSERT INTO scrape_contributors (scrape_id, contributor_id, contributions)
		VALUES (?, ?, ?)
		ON CONFLICT (scrape_id, contributor_id) DO UPDATE SET contributions = excluded.contributions
	`

	if _, err := tx.ExecContext(ctx, query, scrapeID, contributorID, contributions); err != nil {
		return fmt.Errorf("failed to link contributor to scrape: %w", err)
	}
	return nil
}

// GetByUsername retrieves a contributor without scrape context
func (r *ContributorRepository) GetByUsername(ctx context.Context, username string) (*models.Contributor, error) {
	query := `SELECT ` + contributorSelectColumns + `, 0 AS contributions FROM contributors c WHERE c.github_username = ?`

	var row contributorRow
	if err := r.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contributor: %w", err)
	}

	c := row.toModel()
	return &c, nil
}

// ListByScrape returns all contributors of a scrape, most contributions first
func (r *ContributorRepository) ListByScrape(ctx context.Context, scrapeID string) ([]models.Contributor, error) {
	return r.selectByScrape(ctx, scrapeID, -1, 0)
}

// PageByScrape returns one 1-based page of a scrape's contributors and the
// total number of contributors in the scrape
func (r *ContributorRepository) PageByScrape(ctx context.Context, scrapeID string, page, pageSize int) ([]models.Contributor, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM scrape_contributors WHERE scrape_id = ?`, scrapeID); err != nil {
		return nil, 0, fmt.Errorf("failed to count scrape contributors: %w", err)
	}

	contributors, err := r.selectByScrape(ctx, scrapeID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	return contributors, total, nil
}

func (r *ContributorRepository) selectByScrape(ctx context.Context, scrapeID string, limit, offset int) ([]models.Contributor, error) {
	query := `
		SELECT ` + contributorSelectColumns + `, sc.contributions
		FROM scrape_contributors sc
		JOIN contributors c ON c.id = sc.contributor_id
		WHERE sc.scrape_id = ?
		ORDER BY sc.contributions DESC, c.github_username ASC
		LIMIT ? OFFSET ?
	`

	var rows []contributorRow
	if err := r.db.SelectContext(ctx, &rows, query, scrapeID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list scrape contributors: %w", err)
	}

	contributors := make([]models.Contributor, 0, len(rows))
	for _, row := range rows {
		contributors = append(contributors, row.toModel())
	}
	return contributors, nil
}

// UpdateOutreach applies a partial outreach update to a contributor
func (r *ContributorRepository) UpdateOutreach(ctx context.Context, username string, u models.OutreachUpdate) error {
	var (
		sets []string
		args []interface{}
	)

	if u.Contacted != nil {
		sets = append(sets, "contacted = ?")
		args = append(args, *u.Contacted)
	}
	if u.ContactedDate != nil {
		sets = append(sets, "contacted_date = ?")
		args = append(args, nullString(*u.ContactedDate))
	}
	if u.Notes != nil {
		sets = append(sets, "outreach_notes = ?")
		args = append(args, nullString(*u.Notes))
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, nullString(*u.Status))
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), username)

	query := `UPDATE contributors SET ` + strings.Join(sets, ", ") + ` WHERE github_username = ?`
	result, err := r.db.ExecContext(ctx, query, args...)
	return requireRows(result, err, "update contributor outreach")
}
