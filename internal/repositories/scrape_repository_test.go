package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewSQLStore(sqlx.NewDb(mockDB, "sqlite3")), mock
}

func TestCreateScrapeWrapsError(t *testing.T) {
	store, mock := newMockStore(t)
	scrape := models.NewScrape(models.ScrapeTypeOrganization, "acme")

	mock.ExpectExec("INSERT INTO scrapes").
		WillReturnError(errors.New("disk full"))

	err := store.CreateScrape(context.Background(), scrape)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create scrape")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScrapeMetadataNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM scrapes s WHERE s.id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetScrapeMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailScrapeIgnoredWhenNotActive(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE scrapes").
		WithArgs("boom", sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.FailScrape(context.Background(), "s1", "boom")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteScrapeRollsBackOnUpsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO contributors").
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := store.CompleteScrape(context.Background(), "s1", []models.Contributor{{Username: "bob", Contributions: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upsert contributor bob")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProgressIsMonotonicInSQL(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`SET progress = MAX\(progress, \?\)`).
		WithArgs(55, 3, 7, "bob", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateScrapeProgress(context.Background(), "s1", models.ScrapeProgress{Progress: 55, Current: 3, Total: 7, CurrentUserLogin: "bob"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
