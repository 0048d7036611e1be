package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/edustack/school-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "first_name", "last_name", "email", "password_hash", "role", "created_at", "updated_at"})
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, first_name, last_name, email, password_hash, role, created_at, updated_at FROM users WHERE username = $1 LIMIT 1")).
		WithArgs("amara").
		WillReturnRows(userRows().AddRow(int64(7), "amara", "Amara", "Okoye", "amara@example.com", "hash", "TEACHER", now, now))

	user, err := repo.FindByUsername(context.Background(), "amara")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.True(t, user.IsTeacher())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := userRows().
		AddRow(int64(2), "bela", "Bela", "Kis", "bela@example.com", "hash", "STUDENT", now, now).
		AddRow(int64(3), "cleo", "Cleo", "Mensah", "cleo@example.com", "hash", "STUDENT", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE role = $1 ORDER BY username")).
		WithArgs(models.RoleStudent).
		WillReturnRows(rows)

	students, err := repo.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "bela", students[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdatePassword(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	updatedAt := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(int64(7), "newhash", updatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 7, "newhash", updatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	token := &models.RefreshToken{
		UserID:    7,
		Token:     "opaque-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(token.UserID, token.Token, token.ExpiresAt, sqlmock.AnyArg(), false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	require.Equal(t, int64(41), token.ID)
	require.False(t, token.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
