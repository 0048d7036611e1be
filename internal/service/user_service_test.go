package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/school-api/internal/models"
	appErrors "github.com/edustack/school-api/pkg/errors"
)

type mockUserRepo struct {
	user            *models.User
	students        []models.User
	profileUpdated  bool
	passwordUpdated bool
	newHash         string
	tokensRevoked   bool
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.user == nil || m.user.Username != username {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) ListStudents(ctx context.Context) ([]models.User, error) {
	return m.students, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.profileUpdated = true
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdated = true
	m.newHash = passwordHash
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.tokensRevoked = true
	return nil
}

func profileTestUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           7,
		Username:     "amara",
		FirstName:    "Amara",
		LastName:     "Okoye",
		Email:        "amara@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
	}
}

func TestUserServiceGetNotFound(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), teacherClaims(7), 404)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestUserServiceGetForeignProfileDeniedForNobody(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Get(context.Background(), nobodyClaims(9), 7)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
}

func TestUserServiceProfileHidesRoleAndPassword(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	profile, err := svc.Profile(context.Background(), teacherClaims(7))
	require.NoError(t, err)
	assert.True(t, profile.IsTeacher)
	assert.False(t, profile.IsStudent)
	assert.Equal(t, "amara", profile.Username)
}

func TestUserServiceUpdateProfilePartialMerge(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	email := "new@example.com"
	profile, err := svc.UpdateProfile(context.Background(), teacherClaims(7), UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", profile.Email)
	assert.Equal(t, "amara", profile.Username)
	assert.True(t, repo.profileUpdated)
	assert.False(t, repo.passwordUpdated)
}

func TestUserServicePasswordChangeRequiresOldPassword(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	newPass := "new-pass-123"
	_, err := svc.UpdateProfile(context.Background(), teacherClaims(7), UpdateProfileRequest{NewPassword: &newPass})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.False(t, repo.profileUpdated)
}

func TestUserServicePasswordChangeWrongOldPasswordMutatesNothing(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	oldPass, newPass, username := "wrong", "new-pass-123", "renamed"
	_, err := svc.UpdateProfile(context.Background(), teacherClaims(7), UpdateProfileRequest{
		Username:    &username,
		OldPassword: &oldPass,
		NewPassword: &newPass,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
	assert.False(t, repo.profileUpdated)
	assert.False(t, repo.passwordUpdated)
	assert.Equal(t, "amara", repo.user.Username)
}

func TestUserServicePasswordChangeRevokesSessions(t *testing.T) {
	repo := &mockUserRepo{user: profileTestUser(t)}
	svc := NewUserService(repo, nil, nil)

	oldPass, newPass := "old-pass", "new-pass-123"
	_, err := svc.UpdateProfile(context.Background(), teacherClaims(7), UpdateProfileRequest{
		OldPassword: &oldPass,
		NewPassword: &newPass,
	})
	require.NoError(t, err)
	assert.True(t, repo.passwordUpdated)
	assert.True(t, repo.tokensRevoked)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.newHash), []byte(newPass)))
}

func TestUserServiceListStudentsTeacherOnly(t *testing.T) {
	repo := &mockUserRepo{students: []models.User{
		{ID: 2, Username: "bela", Role: models.RoleStudent},
		{ID: 3, Username: "cleo", Role: models.RoleStudent},
	}}
	svc := NewUserService(repo, nil, nil)

	students, err := svc.ListStudents(context.Background(), teacherClaims(7))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.True(t, students[0].IsStudent)

	for _, claims := range []*models.JWTClaims{studentClaims(2), nobodyClaims(9)} {
		_, err := svc.ListStudents(context.Background(), claims)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
	}
}

func TestUserServiceExportStudentsCSV(t *testing.T) {
	repo := &mockUserRepo{students: []models.User{
		{ID: 2, Username: "bela", FirstName: "Bela", LastName: "Kis", Email: "bela@example.com", Role: models.RoleStudent},
	}}
	svc := NewUserService(repo, nil, nil)

	payload, contentType, err := svc.ExportStudents(context.Background(), teacherClaims(7), "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.Contains(string(payload), "bela@example.com"))
}

func TestUserServiceExportStudentsRejectsUnknownFormat(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, _, err := svc.ExportStudents(context.Background(), teacherClaims(7), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestUserServiceExportStudentsTeacherOnly(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, _, err := svc.ExportStudents(context.Background(), studentClaims(2), "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
}
