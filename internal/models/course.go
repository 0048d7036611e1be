package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Schedule is an ordered list of [day, slot] pairs stored as JSONB.
type Schedule [][2]int

// Value implements driver.Valuer.
func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Schedule) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("scan schedule: unsupported type %T", src)
}

// Course represents a course taught by exactly one teacher.
type Course struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Room      string    `db:"room"`
	Credits   int       `db:"credits"`
	Schedule  Schedule  `db:"schedule"`
	TeacherID int64     `db:"teacher_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CourseDetail is a course row joined with its teacher's user record.
type CourseDetail struct {
	Course
	TeacherUsername  string   `db:"teacher_username"`
	TeacherFirstName string   `db:"teacher_first_name"`
	TeacherLastName  string   `db:"teacher_last_name"`
	TeacherEmail     string   `db:"teacher_email"`
	TeacherRole      UserRole `db:"teacher_role"`
}

// CourseView is the wire representation of a course.
type CourseView struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Room     string      `json:"room"`
	Credits  int         `json:"credits"`
	Schedule Schedule    `json:"schedule"`
	Teacher  UserProfile `json:"teacher"`
}

// View maps the joined row to its wire representation.
func (d *CourseDetail) View() CourseView {
	teacher := User{
		ID:        d.TeacherID,
		Username:  d.TeacherUsername,
		FirstName: d.TeacherFirstName,
		LastName:  d.TeacherLastName,
		Email:     d.TeacherEmail,
		Role:      d.TeacherRole,
	}
	return CourseView{
		ID:       d.ID,
		Name:     d.Name,
		Room:     d.Room,
		Credits:  d.Credits,
		Schedule: d.Schedule,
		Teacher:  teacher.Profile(),
	}
}
