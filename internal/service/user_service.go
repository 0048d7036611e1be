package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/school-api/internal/models"
	appErrors "github.com/edustack/school-api/pkg/errors"
	"github.com/edustack/school-api/pkg/export"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ListStudents(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) error
}

// UpdateProfileRequest is the partial-merge payload for the profile update.
// Omitted fields keep their stored values; the role cannot be changed here.
type UpdateProfileRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=1,max=150"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	Email       *string `json:"email" validate:"omitempty,email"`
	OldPassword *string `json:"old_password"`
	NewPassword *string `json:"new_password" validate:"omitempty,min=6"`
}

// UserService handles profile and roster workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
	}
}

// Get returns the wire profile of a user by ID. Principals without a role
// may only read their own profile.
func (s *UserService) Get(ctx context.Context, principal *models.JWTClaims, id int64) (*models.UserProfile, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !principal.IsStudent() && !principal.IsTeacher() && principal.UserID != id {
		return nil, appErrors.ErrForbidden
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	profile := user.Profile()
	return &profile, nil
}

// Profile returns the acting principal's own profile.
func (s *UserService) Profile(ctx context.Context, principal *models.JWTClaims) (*models.UserProfile, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.Get(ctx, principal, principal.UserID)
}

// UpdateProfile merges the supplied fields into the principal's own record.
// When a new password is supplied the old one must verify first, and all
// refresh tokens are revoked afterwards.
func (s *UserService) UpdateProfile(ctx context.Context, principal *models.JWTClaims, req UpdateProfileRequest) (*models.UserProfile, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if req.NewPassword != nil && req.OldPassword == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "old_password is required to change the password")
	}

	user, err := s.repo.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	// The old password must verify before anything is written.
	var newHash string
	if req.NewPassword != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.OldPassword)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "old password does not match")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		newHash = string(hash)
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if req.NewPassword != nil {
		if err := s.repo.UpdatePassword(ctx, user.ID, newHash, time.Now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
		}
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke refresh tokens after password change", zap.Error(err))
		}
	}

	profile := user.Profile()
	return &profile, nil
}

// ListStudents returns the roster of all students. Teachers only.
func (s *UserService) ListStudents(ctx context.Context, principal *models.JWTClaims) ([]models.UserProfile, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.ErrForbidden
	}

	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	profiles := make([]models.UserProfile, 0, len(students))
	for i := range students {
		profiles = append(profiles, students[i].Profile())
	}
	return profiles, nil
}

// ExportStudents renders the student roster as CSV or PDF. Teachers only.
func (s *UserService) ExportStudents(ctx context.Context, principal *models.JWTClaims, format string) ([]byte, string, error) {
	if !principal.IsTeacher() {
		return nil, "", appErrors.ErrForbidden
	}

	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Username", "First Name", "Last Name", "Email"},
		Rows:    make([]map[string]string, 0, len(students)),
	}
	for i := range students {
		st := &students[i]
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":         strconv.FormatInt(st.ID, 10),
			"Username":   st.Username,
			"First Name": st.FirstName,
			"Last Name":  st.LastName,
			"Email":      st.Email,
		})
	}

	switch format {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Student roster")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
