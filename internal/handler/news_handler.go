package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/school-api/internal/models"
	"github.com/edustack/school-api/internal/service"
	appErrors "github.com/edustack/school-api/pkg/errors"
	"github.com/edustack/school-api/pkg/response"
)

// NewsHandler wires HTTP endpoints to the news service.
type NewsHandler struct {
	service *service.NewsService
}

// NewNewsHandler creates a new handler.
func NewNewsHandler(svc *service.NewsService) *NewsHandler {
	return &NewsHandler{service: svc}
}

// List godoc
// @Summary List news
// @Description Return news posts, newest first
// @Tags News
// @Produce json
// @Param title query string false "Substring match on the title"
// @Param body query string false "Exact match on the body"
// @Param date query string false "Publication date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /news [get]
func (h *NewsHandler) List(c *gin.Context) {
	filter := models.NewsFilter{
		Title: c.Query("title"),
		Body:  c.Query("body"),
	}
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD"))
			return
		}
		date := models.NewDate(parsed)
		filter.Date = &date
	}

	news, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, news)
}

// Create godoc
// @Summary Create news post
// @Description Publish a news post dated today. Teachers only.
// @Tags News
// @Accept json
// @Produce json
// @Param payload body service.CreateNewsRequest true "News payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /news [post]
func (h *NewsHandler) Create(c *gin.Context) {
	var req service.CreateNewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid news payload"))
		return
	}

	news, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, news)
}
