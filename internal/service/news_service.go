package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/school-api/internal/models"
	appErrors "github.com/edustack/school-api/pkg/errors"
)

type newsRepository interface {
	List(ctx context.Context, filter models.NewsFilter) ([]models.News, error)
	Create(ctx context.Context, news *models.News) error
}

// NewsCache is the cache surface the news feed relies on. A nil value
// disables caching entirely.
type NewsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const newsCacheKeyPrefix = "news:list:"

// CreateNewsRequest is the payload for creating a news post. The date is
// never part of it; the server assigns it.
type CreateNewsRequest struct {
	Title string `json:"title" validate:"required,max=128"`
	Body  string `json:"body" validate:"required"`
}

// NewsService handles the news feed.
type NewsService struct {
	repo      newsRepository
	cache     NewsCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNewsService constructs the service. A nil cache disables caching and a
// nil metrics service disables instrumentation.
func NewNewsService(repo newsRepository, cache NewsCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NewsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, validator: validate, logger: logger}
}

// List returns news posts matching the filter, serving from cache when
// possible. Students and teachers only.
func (s *NewsService) List(ctx context.Context, principal *models.JWTClaims, filter models.NewsFilter) ([]models.News, error) {
	if !principal.IsStudent() && !principal.IsTeacher() {
		return nil, appErrors.ErrForbidden
	}

	key := s.cacheKey(filter)
	if s.cache != nil {
		var cached []models.News
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	news, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list news")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, news, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache news list", zap.Error(err))
		}
	}
	return news, nil
}

// Create registers a news post. Teachers only; the date is assigned by the
// store layer.
func (s *NewsService) Create(ctx context.Context, principal *models.JWTClaims, req CreateNewsRequest) (*models.News, error) {
	if !principal.IsTeacher() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "current user must be teacher")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid news payload")
	}

	news := &models.News{Title: req.Title, Body: req.Body}
	if err := s.repo.Create(ctx, news); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create news")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, newsCacheKeyPrefix+"*"); err != nil {
			s.logger.Warn("failed to invalidate news cache", zap.Error(err))
		}
	}
	return news, nil
}

func (s *NewsService) cacheKey(filter models.NewsFilter) string {
	date := ""
	if filter.Date != nil {
		date = filter.Date.Time().Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s|%s|%s", newsCacheKeyPrefix, filter.Title, filter.Body, date)
}
