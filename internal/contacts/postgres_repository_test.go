package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submissionCols = []string{"id", "name", "email", "phone", "company", "message", "service", "budget", "timeline", "source", "status", "notes", "created_at", "updated_at"}

func TestPostgresRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()
	newer, older := uuid.New(), uuid.New()
	rows := pgxmock.NewRows(submissionCols).
		AddRow(newer, "Bob", "bob@example.com", "", "", "hi", "", "", "", "", "new", "", now, now).
		AddRow(older, "Ann", "ann@example.com", "", "", "hey", "", "", "", "", "closed", "vip", now.Add(-time.Hour), now)
	mock.ExpectQuery("SELECT id, name, email").WillReturnRows(rows)

	subs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, newer.String(), subs[0].ID)
	assert.Equal(t, "vip", subs[1].Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdatePassesNilForUntouchedFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := uuid.New()
	now := time.Now().UTC()
	status := "contacted"
	var noNotes *string

	mock.ExpectQuery("UPDATE contact_submissions").
		WithArgs(id, &status, noNotes).
		WillReturnRows(pgxmock.NewRows(submissionCols).
			AddRow(id, "Ann", "ann@example.com", "", "", "hey", "", "", "", "", "contacted", "keep me", now, now))

	sub, err := repo.Update(context.Background(), &UpdateSubmissionRequest{ID: id.String(), Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "keep me", sub.Notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := uuid.New()
	status := "closed"
	mock.ExpectQuery("UPDATE contact_submissions").WillReturnError(pgx.ErrNoRows)

	_, err = repo.Update(context.Background(), &UpdateSubmissionRequest{ID: id.String(), Status: &status})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = repo.Update(context.Background(), &UpdateSubmissionRequest{ID: "not-a-uuid", Status: &status})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM contact_submissions").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, repo.Delete(context.Background(), id.String()))

	mock.ExpectExec("DELETE FROM contact_submissions").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id.String()), ErrSubmissionNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO contact_submissions").
		WithArgs(pgxmock.AnyArg(), "Eve", "eve@example.com", "", "Acme", "Hello", "", "", "", "footer", StatusNew).
		WillReturnRows(pgxmock.NewRows(submissionCols).
			AddRow(id, "Eve", "eve@example.com", "", "Acme", "Hello", "", "", "", "footer", StatusNew, "", now, now))

	sub, err := repo.Create(context.Background(), &CreateSubmissionRequest{
		Name: "Eve", Email: "eve@example.com", Company: "Acme", Message: "Hello", Source: "footer",
	})
	require.NoError(t, err)
	assert.Equal(t, id.String(), sub.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
