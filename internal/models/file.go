package models

import "time"

// File represents a teacher-owned file shared with selected students.
type File struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Path      string    `db:"path"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FileDetail is a file row joined with its owner's user record.
type FileDetail struct {
	File
	OwnerUsername  string   `db:"owner_username"`
	OwnerFirstName string   `db:"owner_first_name"`
	OwnerLastName  string   `db:"owner_last_name"`
	OwnerEmail     string   `db:"owner_email"`
	OwnerRole      UserRole `db:"owner_role"`
}

// FileView is the wire representation of a file.
type FileView struct {
	ID    int64       `json:"id"`
	Owner UserProfile `json:"owner"`
	Name  string      `json:"name"`
	Path  string      `json:"path"`
}

// View maps the joined row to its wire representation.
func (d *FileDetail) View() FileView {
	owner := User{
		ID:        d.OwnerID,
		Username:  d.OwnerUsername,
		FirstName: d.OwnerFirstName,
		LastName:  d.OwnerLastName,
		Email:     d.OwnerEmail,
		Role:      d.OwnerRole,
	}
	return FileView{
		ID:    d.ID,
		Owner: owner.Profile(),
		Name:  d.Name,
		Path:  d.Path,
	}
}

// FileFilter captures filtering criteria for listing files. OwnerID is
// absent-or-value; there is no zero sentinel.
type FileFilter struct {
	PathPrefix string
	OwnerID    *int64
}
