package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edustack/school-api/internal/models"
)

const fileDetailColumns = `f.id, f.name, f.path, f.owner_id, f.created_at, f.updated_at,
        u.username AS owner_username, u.first_name AS owner_first_name, u.last_name AS owner_last_name,
        u.email AS owner_email, u.role AS owner_role`

// FileRepository handles persistence of files and their student access sets.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs the repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// ListByOwner returns the files owned by a teacher, optionally narrowed by a
// path prefix.
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID int64, filter models.FileFilter) ([]models.FileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM files f
        JOIN users u ON u.id = f.owner_id
        WHERE f.owner_id = $1`, fileDetailColumns)
	args := []interface{}{ownerID}

	if filter.PathPrefix != "" {
		query += fmt.Sprintf(" AND f.path LIKE $%d", len(args)+1)
		args = append(args, likePrefix(filter.PathPrefix))
	}
	query += " ORDER BY f.id"

	var files []models.FileDetail
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list files by owner: %w", err)
	}
	return files, nil
}

// ListAccessible returns the files a student has access to, narrowed by the
// optional path prefix and owner filters.
func (r *FileRepository) ListAccessible(ctx context.Context, studentID int64, filter models.FileFilter) ([]models.FileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM files f
        JOIN users u ON u.id = f.owner_id
        JOIN file_students fs ON fs.file_id = f.id
        WHERE fs.user_id = $1`, fileDetailColumns)
	args := []interface{}{studentID}

	if filter.PathPrefix != "" {
		query += fmt.Sprintf(" AND f.path LIKE $%d", len(args)+1)
		args = append(args, likePrefix(filter.PathPrefix))
	}
	if filter.OwnerID != nil {
		query += fmt.Sprintf(" AND f.owner_id = $%d", len(args)+1)
		args = append(args, *filter.OwnerID)
	}
	query += " ORDER BY f.id"

	var files []models.FileDetail
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list accessible files: %w", err)
	}
	return files, nil
}

// FindDetailByID returns a file joined with its owner.
func (r *FileRepository) FindDetailByID(ctx context.Context, id int64) (*models.FileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM files f
        JOIN users u ON u.id = f.owner_id
        WHERE f.id = $1`, fileDetailColumns)
	var detail models.FileDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByID returns the bare file row.
func (r *FileRepository) FindByID(ctx context.Context, id int64) (*models.File, error) {
	const query = `SELECT id, name, path, owner_id, created_at, updated_at FROM files WHERE id = $1`
	var file models.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// FindAccessibleByID returns a file only when the student holds access,
// optionally restricted to a specific owner.
func (r *FileRepository) FindAccessibleByID(ctx context.Context, studentID, fileID int64, ownerID *int64) (*models.FileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM files f
        JOIN users u ON u.id = f.owner_id
        JOIN file_students fs ON fs.file_id = f.id
        WHERE f.id = $1 AND fs.user_id = $2`, fileDetailColumns)
	args := []interface{}{fileID, studentID}

	if ownerID != nil {
		query += fmt.Sprintf(" AND f.owner_id = $%d", len(args)+1)
		args = append(args, *ownerID)
	}

	var detail models.FileDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateWithStudents inserts the file and its student access set in one
// transaction. Student IDs not matching an existing user are skipped.
func (r *FileRepository) CreateWithStudents(ctx context.Context, file *models.File, studentIDs []int64) error {
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create file: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO files (name, path, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.GetContext(ctx, &file.ID, insert, file.Name, file.Path, file.OwnerID, file.CreatedAt, file.UpdatedAt); err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if err := replaceFileStudents(ctx, tx, file.ID, studentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create file: %w", err)
	}
	return nil
}

// UpdateWithStudents updates the file row and, when studentIDs is non-nil,
// replaces its student access set in the same transaction.
func (r *FileRepository) UpdateWithStudents(ctx context.Context, file *models.File, studentIDs []int64) error {
	file.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update file: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const update = `UPDATE files SET name = $2, path = $3, updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, file.ID, file.Name, file.Path, file.UpdatedAt); err != nil {
		return fmt.Errorf("update file: %w", err)
	}

	if studentIDs != nil {
		if err := replaceFileStudents(ctx, tx, file.ID, studentIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update file: %w", err)
	}
	return nil
}

// Delete removes a file. Access-set rows cascade.
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM files WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// ListStudentIDs returns the student access set of a file.
func (r *FileRepository) ListStudentIDs(ctx context.Context, fileID int64) ([]int64, error) {
	const query = `SELECT user_id FROM file_students WHERE file_id = $1 ORDER BY user_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, fileID); err != nil {
		return nil, fmt.Errorf("list file students: %w", err)
	}
	return ids, nil
}

func replaceFileStudents(ctx context.Context, tx *sqlx.Tx, fileID int64, studentIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_students WHERE file_id = $1`, fileID); err != nil {
		return fmt.Errorf("clear file students: %w", err)
	}
	if len(studentIDs) == 0 {
		return nil
	}
	const insert = `INSERT INTO file_students (file_id, user_id)
        SELECT $1, u.id FROM users u WHERE u.id = ANY($2)`
	if _, err := tx.ExecContext(ctx, insert, fileID, pq.Array(studentIDs)); err != nil {
		return fmt.Errorf("set file students: %w", err)
	}
	return nil
}

// likePrefix builds a prefix-match LIKE pattern, escaping wildcard
// characters in the user-supplied prefix.
func likePrefix(prefix string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return escaped + "%"
}
