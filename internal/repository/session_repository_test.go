package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "is_active", "created_at", "updated_at"}).
		AddRow("s1", "2024_06", "June 2024", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE is_active = TRUE ORDER BY updated_at DESC LIMIT 1")).
		WillReturnRows(rows)

	session, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024_06", session.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryActivateInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET is_active = FALSE")).
		WithArgs(sqlmock.AnyArg(), "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET is_active = TRUE")).
		WithArgs(sqlmock.AnyArg(), "s2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.Activate(context.Background(), tx, "s2"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryActivateUnknown(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE sessions SET is_active = FALSE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE sessions SET is_active = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Activate(context.Background(), nil, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "2025_01", "January 2025", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{Code: "2025_01", Name: "January 2025"}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateDuplicateCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.Session{Code: "2025_01", Name: "January 2025"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
