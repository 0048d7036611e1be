package models

import "time"

// UserRole is the closed set of roles a user can hold.
type UserRole string

const (
	RoleNobody  UserRole = "NOBODY"
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleNobody, RoleStudent, RoleTeacher:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         UserRole  `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// IsStudent reports whether the user holds the student role.
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// IsTeacher reports whether the user holds the teacher role.
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }

// UserProfile is the wire representation of a user. The password hash is
// never part of it.
type UserProfile struct {
	ID        int64  `json:"id"`
	IsStudent bool   `json:"is_student"`
	IsTeacher bool   `json:"is_teacher"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Profile returns the wire representation of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		IsStudent: u.IsStudent(),
		IsTeacher: u.IsTeacher(),
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}
