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

type courseRepository interface {
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseDetail, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.CourseDetail, error)
	FindDetailByID(ctx context.Context, id int64) (*models.CourseDetail, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	CreateWithStudents(ctx context.Context, course *models.Course, studentIDs []int64) error
	UpdateWithStudents(ctx context.Context, course *models.Course, studentIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

// CreateCourseRequest is the payload for creating a course. The acting
// teacher becomes the owner.
type CreateCourseRequest struct {
	Name     string          `json:"name" validate:"required,max=64"`
	Room     string          `json:"room" validate:"required,max=64"`
	Credits  int             `json:"credits" validate:"required,min=1,max=10"`
	Schedule models.Schedule `json:"schedule" validate:"required"`
	Students []int64         `json:"students"`
}

// UpdateCourseRequest is the partial-merge payload for updating a course.
// Omitted fields keep their stored values; a non-nil Students replaces the
// access set wholesale.
type UpdateCourseRequest struct {
	Name     *string          `json:"name" validate:"omitempty,max=64"`
	Room     *string          `json:"room" validate:"omitempty,max=64"`
	Credits  *int             `json:"credits" validate:"omitempty,min=1,max=10"`
	Schedule *models.Schedule `json:"schedule"`
	Students []int64          `json:"students"`
}

// CourseService handles course workflows with role predicates over an
// explicit principal.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns the courses visible to the principal: students see their
// accessed set, teachers the courses they teach, anyone else is denied.
func (s *CourseService) List(ctx context.Context, principal *models.JWTClaims) ([]models.CourseView, error) {
	var (
		details []models.CourseDetail
		err     error
	)
	switch {
	case principal.IsStudent():
		details, err = s.repo.ListByStudent(ctx, principal.UserID)
	case principal.IsTeacher():
		details, err = s.repo.ListByTeacher(ctx, principal.UserID)
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	views := make([]models.CourseView, 0, len(details))
	for i := range details {
		views = append(views, details[i].View())
	}
	return views, nil
}

// Get returns a single course. Students and teachers may read it.
func (s *CourseService) Get(ctx context.Context, principal *models.JWTClaims, id int64) (*models.CourseView, error) {
	if !principal.IsStudent() && !principal.IsTeacher() {
		return nil, appErrors.ErrForbidden
	}
	return s.detailView(ctx, id)
}

func (s *CourseService) detailView(ctx context.Context, id int64) (*models.CourseView, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	view := detail.View()
	return &view, nil
}

// Create registers a new course owned by the acting teacher, together with
// its student access set.
func (s *CourseService) Create(ctx context.Context, principal *models.JWTClaims, req CreateCourseRequest) (*models.CourseView, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		Name:      req.Name,
		Room:      req.Room,
		Credits:   req.Credits,
		Schedule:  req.Schedule,
		TeacherID: principal.UserID,
	}
	if err := s.repo.CreateWithStudents(ctx, course, req.Students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.Int64("teacher_id", principal.UserID))
	return s.detailView(ctx, course.ID)
}

// Update merges the supplied fields into a course owned by the acting
// teacher and optionally replaces its student access set.
func (s *CourseService) Update(ctx context.Context, principal *models.JWTClaims, id int64, req UpdateCourseRequest) (*models.CourseView, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID != principal.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
	}

	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Room != nil {
		course.Room = *req.Room
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if req.Schedule != nil {
		course.Schedule = *req.Schedule
	}

	if err := s.repo.UpdateWithStudents(ctx, course, req.Students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	return s.detailView(ctx, course.ID)
}

// Delete removes a course owned by the acting teacher.
func (s *CourseService) Delete(ctx context.Context, principal *models.JWTClaims, id int64) error {
	if !principal.IsTeacher() {
		return appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID != principal.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another teacher")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.logger.Info("course deleted", zap.Int64("course_id", id), zap.Int64("teacher_id", principal.UserID))
	return nil
}
