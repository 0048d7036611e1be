package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/school-api/internal/models"
	appErrors "github.com/edustack/school-api/pkg/errors"
)

type fileRepository interface {
	ListByOwner(ctx context.Context, ownerID int64, filter models.FileFilter) ([]models.FileDetail, error)
	ListAccessible(ctx context.Context, studentID int64, filter models.FileFilter) ([]models.FileDetail, error)
	FindDetailByID(ctx context.Context, id int64) (*models.FileDetail, error)
	FindAccessibleByID(ctx context.Context, studentID, fileID int64, ownerID *int64) (*models.FileDetail, error)
	FindByID(ctx context.Context, id int64) (*models.File, error)
	CreateWithStudents(ctx context.Context, file *models.File, studentIDs []int64) error
	UpdateWithStudents(ctx context.Context, file *models.File, studentIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

// CreateFileRequest is the payload for registering a file. The acting
// teacher becomes the owner.
type CreateFileRequest struct {
	Name     string  `json:"name" validate:"required,max=64"`
	Path     string  `json:"path" validate:"required,max=256"`
	Students []int64 `json:"students"`
}

// UpdateFileRequest is the partial-merge payload for updating a file.
// Omitted fields keep their stored values; a non-nil Students replaces the
// access set wholesale.
type UpdateFileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=64"`
	Path     *string `json:"path" validate:"omitempty,max=256"`
	Students []int64 `json:"students"`
}

// FileService handles file sharing workflows with role predicates over an
// explicit principal.
type FileService struct {
	repo      fileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFileService constructs the service.
func NewFileService(repo fileRepository, validate *validator.Validate, logger *zap.Logger) *FileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{repo: repo, validator: validate, logger: logger}
}

// List returns the files visible to the principal: students see their
// accessed set, teachers the files they own, anyone else is denied. Filters
// narrow within that base set, never beyond it.
func (s *FileService) List(ctx context.Context, principal *models.JWTClaims, filter models.FileFilter) ([]models.FileView, error) {
	var (
		details []models.FileDetail
		err     error
	)
	switch {
	case principal.IsStudent():
		details, err = s.repo.ListAccessible(ctx, principal.UserID, filter)
	case principal.IsTeacher():
		// The owner filter is meaningless for teachers; they only ever
		// see their own files.
		filter.OwnerID = nil
		details, err = s.repo.ListByOwner(ctx, principal.UserID, filter)
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}

	views := make([]models.FileView, 0, len(details))
	for i := range details {
		views = append(views, details[i].View())
	}
	return views, nil
}

// Get returns a single file. Teachers may read only files they own;
// students only files in their access set, optionally scoped to an owner.
func (s *FileService) Get(ctx context.Context, principal *models.JWTClaims, id int64, ownerID *int64) (*models.FileView, error) {
	switch {
	case principal.IsTeacher():
		detail, err := s.repo.FindDetailByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
		}
		if detail.OwnerID != principal.UserID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		view := detail.View()
		return &view, nil
	case principal.IsStudent():
		detail, err := s.repo.FindAccessibleByID(ctx, principal.UserID, id, ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
		}
		view := detail.View()
		return &view, nil
	default:
		return nil, appErrors.ErrForbidden
	}
}

// Create registers a new file owned by the acting teacher, together with its
// student access set.
func (s *FileService) Create(ctx context.Context, principal *models.JWTClaims, req CreateFileRequest) (*models.FileView, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}

	file := &models.File{
		Name:    req.Name,
		Path:    req.Path,
		OwnerID: principal.UserID,
	}
	if err := s.repo.CreateWithStudents(ctx, file, req.Students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create file")
	}

	s.logger.Info("file created", zap.Int64("file_id", file.ID), zap.Int64("owner_id", principal.UserID))
	return s.detailView(ctx, file.ID)
}

// Update merges the supplied fields into a file owned by the acting teacher
// and optionally replaces its student access set.
func (s *FileService) Update(ctx context.Context, principal *models.JWTClaims, id int64, req UpdateFileRequest) (*models.FileView, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file payload")
	}

	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.OwnerID != principal.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}

	if req.Name != nil {
		file.Name = *req.Name
	}
	if req.Path != nil {
		file.Path = *req.Path
	}

	if err := s.repo.UpdateWithStudents(ctx, file, req.Students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update file")
	}

	return s.detailView(ctx, file.ID)
}

// Delete removes a file owned by the acting teacher.
func (s *FileService) Delete(ctx context.Context, principal *models.JWTClaims, id int64) error {
	if !principal.IsTeacher() {
		return appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}

	file, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.OwnerID != principal.UserID {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}

	s.logger.Info("file deleted", zap.Int64("file_id", id), zap.Int64("owner_id", principal.UserID))
	return nil
}

func (s *FileService) detailView(ctx context.Context, id int64) (*models.FileView, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	view := detail.View()
	return &view, nil
}
