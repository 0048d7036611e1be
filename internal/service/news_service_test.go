package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/school-api/internal/models"
	appErrors "github.com/edustack/school-api/pkg/errors"
)

type mockNewsRepo struct {
	news      []models.News
	listErr   error
	created   *models.News
	listCalls int
}

func (m *mockNewsRepo) List(ctx context.Context, filter models.NewsFilter) ([]models.News, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.news, nil
}

func (m *mockNewsRepo) Create(ctx context.Context, news *models.News) error {
	news.ID = 5
	news.Date = models.NewDate(time.Now())
	m.created = news
	return nil
}

type mockNewsCache struct {
	store           map[string][]models.News
	deletedPatterns []string
}

func (m *mockNewsCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*[]models.News) = cached
	return nil
}

func (m *mockNewsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]models.News)
	}
	m.store[key] = value.([]models.News)
	return nil
}

func (m *mockNewsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	m.store = nil
	return nil
}

func TestNewsServiceListPopulatesCache(t *testing.T) {
	repo := &mockNewsRepo{news: []models.News{{ID: 1, Title: "Welcome back"}}}
	cache := &mockNewsCache{}
	svc := NewNewsService(repo, cache, time.Minute, nil, nil, nil)

	first, err := svc.List(context.Background(), studentClaims(2), models.NewsFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, repo.listCalls)

	second, err := svc.List(context.Background(), studentClaims(2), models.NewsFilter{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls, "second list should be served from cache")
}

func TestNewsServiceListWithoutCache(t *testing.T) {
	repo := &mockNewsRepo{news: []models.News{{ID: 1, Title: "Welcome back"}}}
	svc := NewNewsService(repo, nil, 0, nil, nil, nil)

	_, err := svc.List(context.Background(), teacherClaims(7), models.NewsFilter{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), teacherClaims(7), models.NewsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestNewsServiceListDeniesNobody(t *testing.T) {
	repo := &mockNewsRepo{news: []models.News{{ID: 1}}}
	svc := NewNewsService(repo, nil, 0, nil, nil, nil)

	_, err := svc.List(context.Background(), nobodyClaims(9), models.NewsFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
	assert.Zero(t, repo.listCalls)
}

func TestNewsServiceCacheKeyVariesByFilter(t *testing.T) {
	svc := NewNewsService(&mockNewsRepo{}, nil, 0, nil, nil, nil)

	date := models.NewDate(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	base := svc.cacheKey(models.NewsFilter{})
	byTitle := svc.cacheKey(models.NewsFilter{Title: "sport"})
	byDate := svc.cacheKey(models.NewsFilter{Date: &date})

	assert.NotEqual(t, base, byTitle)
	assert.NotEqual(t, base, byDate)
	assert.NotEqual(t, byTitle, byDate)
}

func TestNewsServiceCreateInvalidatesCache(t *testing.T) {
	repo := &mockNewsRepo{}
	cache := &mockNewsCache{store: map[string][]models.News{"news:list:||": {{ID: 1}}}}
	svc := NewNewsService(repo, cache, time.Minute, nil, nil, nil)

	news, err := svc.Create(context.Background(), teacherClaims(7), CreateNewsRequest{
		Title: "Exam schedule",
		Body:  "Published below.",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), news.ID)
	require.Equal(t, []string{"news:list:*"}, cache.deletedPatterns)
}

func TestNewsServiceCreateDeniesNonTeacher(t *testing.T) {
	repo := &mockNewsRepo{}
	svc := NewNewsService(repo, nil, 0, nil, nil, nil)

	for _, claims := range []*models.JWTClaims{studentClaims(2), nobodyClaims(9)} {
		_, err := svc.Create(context.Background(), claims, CreateNewsRequest{Title: "x", Body: "y"})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Status, appErrors.FromError(err).Status)
	}
	assert.Nil(t, repo.created)
}

func TestNewsServiceCreateValidatesPayload(t *testing.T) {
	svc := NewNewsService(&mockNewsRepo{}, nil, 0, nil, nil, nil)

	_, err := svc.Create(context.Background(), teacherClaims(7), CreateNewsRequest{Title: "", Body: "y"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}
