package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edustack/school-api/internal/models"
)

func courseDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "room", "credits", "schedule", "teacher_id", "created_at", "updated_at",
		"teacher_username", "teacher_first_name", "teacher_last_name", "teacher_email", "teacher_role",
	})
}

func TestCourseRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := courseDetailRows().
		AddRow(int64(1), "Algebra", "B12", 5, []byte(`[[0,1],[2,3]]`), int64(7), now, now,
			"amara", "Amara", "Okoye", "amara@example.com", "TEACHER")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.teacher_id = $1 ORDER BY c.id")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	courses, err := repo.ListByTeacher(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "Algebra", courses[0].Name)
	require.Equal(t, models.Schedule{{0, 1}, {2, 3}}, courses[0].Schedule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := courseDetailRows().
		AddRow(int64(2), "History", "A3", 3, []byte(`[]`), int64(7), now, now,
			"amara", "Amara", "Okoye", "amara@example.com", "TEACHER")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN course_students cs ON cs.course_id = c.id")).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	courses, err := repo.ListByStudent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateWithStudents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := &models.Course{
		Name:      "Algebra",
		Room:      "B12",
		Credits:   5,
		Schedule:  models.Schedule{{0, 1}},
		TeacherID: 7,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses")).
		WithArgs("Algebra", "B12", 5, []byte(`[[0,1]]`), int64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_students WHERE course_id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT $1, u.id FROM users u WHERE u.id = ANY($2)")).
		WithArgs(int64(11), pq.Array([]int64{2, 3})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateWithStudents(context.Background(), course, []int64{2, 3}))
	require.Equal(t, int64(11), course.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateWithStudentsKeepsSetWhenNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := &models.Course{
		ID:        11,
		Name:      "Algebra II",
		Room:      "B12",
		Credits:   6,
		Schedule:  models.Schedule{{1, 2}},
		TeacherID: 7,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET name = $2, room = $3, credits = $4, schedule = $5, updated_at = $6 WHERE id = $1")).
		WithArgs(int64(11), "Algebra II", "B12", 6, []byte(`[[1,2]]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateWithStudents(context.Background(), course, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateWithStudentsClearsSetWhenEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	course := &models.Course{ID: 11, Name: "Algebra", Room: "B12", Credits: 5, TeacherID: 7}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET")).
		WithArgs(int64(11), "Algebra", "B12", 5, []byte(`[]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_students WHERE course_id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateWithStudents(context.Background(), course, []int64{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 11))
	require.NoError(t, mock.ExpectationsWereMet())
}
