package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edustack/school-api/internal/models"
)

// NewsRepository handles persistence of news posts.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository constructs the repository.
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// List returns news posts matching the declared filter fields.
func (r *NewsRepository) List(ctx context.Context, filter models.NewsFilter) ([]models.News, error) {
	query := `SELECT id, title, date, body FROM news`
	var conditions []string
	var args []interface{}

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.Body != "" {
		conditions = append(conditions, fmt.Sprintf("body = $%d", len(args)+1))
		args = append(args, filter.Body)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"

	var news []models.News
	if err := r.db.SelectContext(ctx, &news, query, args...); err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return news, nil
}

// Create inserts a news post. The date is always assigned here, never taken
// from the caller.
func (r *NewsRepository) Create(ctx context.Context, news *models.News) error {
	news.Date = models.NewDate(time.Now())
	const query = `INSERT INTO news (title, date, body) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.GetContext(ctx, &news.ID, query, news.Title, news.Date, news.Body); err != nil {
		return fmt.Errorf("create news: %w", err)
	}
	return nil
}
