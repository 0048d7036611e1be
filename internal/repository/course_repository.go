package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edustack/school-api/internal/models"
)

const courseDetailColumns = `c.id, c.name, c.room, c.credits, c.schedule, c.teacher_id, c.created_at, c.updated_at,
        u.username AS teacher_username, u.first_name AS teacher_first_name, u.last_name AS teacher_last_name,
        u.email AS teacher_email, u.role AS teacher_role`

// CourseRepository handles persistence of courses and their student access
// sets.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByTeacher returns the courses taught by the given teacher.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c
        JOIN users u ON u.id = c.teacher_id
        WHERE c.teacher_id = $1 ORDER BY c.id`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return courses, nil
}

// ListByStudent returns the courses the given student has access to.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c
        JOIN users u ON u.id = c.teacher_id
        JOIN course_students cs ON cs.course_id = c.id
        WHERE cs.user_id = $1 ORDER BY c.id`, courseDetailColumns)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list courses by student: %w", err)
	}
	return courses, nil
}

// FindDetailByID returns a course joined with its teacher.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id int64) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c
        JOIN users u ON u.id = c.teacher_id
        WHERE c.id = $1`, courseDetailColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	const query = `SELECT id, name, room, credits, schedule, teacher_id, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateWithStudents inserts the course and its student access set in one
// transaction. Student IDs not matching an existing user are skipped.
func (r *CourseRepository) CreateWithStudents(ctx context.Context, course *models.Course, studentIDs []int64) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create course: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO courses (name, room, credits, schedule, teacher_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := tx.GetContext(ctx, &course.ID, insert, course.Name, course.Room, course.Credits, course.Schedule, course.TeacherID, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}

	if err := replaceCourseStudents(ctx, tx, course.ID, studentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create course: %w", err)
	}
	return nil
}

// UpdateWithStudents updates the course row and, when studentIDs is non-nil,
// replaces its student access set in the same transaction.
func (r *CourseRepository) UpdateWithStudents(ctx context.Context, course *models.Course, studentIDs []int64) error {
	course.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update course: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE courses SET name = $2, room = $3, credits = $4, schedule = $5, updated_at = $6 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, course.ID, course.Name, course.Room, course.Credits, course.Schedule, course.UpdatedAt); err != nil {
		return fmt.Errorf("update course: %w", err)
	}

	if studentIDs != nil {
		if err := replaceCourseStudents(ctx, tx, course.ID, studentIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update course: %w", err)
	}
	return nil
}

// Delete removes a course. Access-set rows cascade.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM courses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// ListStudentIDs returns the student access set of a course.
func (r *CourseRepository) ListStudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	const query = `SELECT user_id FROM course_students WHERE course_id = $1 ORDER BY user_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list course students: %w", err)
	}
	return ids, nil
}

func replaceCourseStudents(ctx context.Context, tx *sqlx.Tx, courseID int64, studentIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM course_students WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("clear course students: %w", err)
	}
	if len(studentIDs) == 0 {
		return nil
	}
	const insert = `INSERT INTO course_students (course_id, user_id)
        SELECT $1, u.id FROM users u WHERE u.id = ANY($2)`
	if _, err := tx.ExecContext(ctx, insert, courseID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("set course students: %w", err)
	}
	return nil
}
