package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edustack/school-api/internal/models"
	"github.com/edustack/school-api/internal/service"
	appErrors "github.com/edustack/school-api/pkg/errors"
	"github.com/edustack/school-api/pkg/response"
)

// FileHandler wires HTTP endpoints to the file service.
type FileHandler struct {
	service *service.FileService
}

// NewFileHandler creates a new handler.
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{service: svc}
}

// ownerQuery parses the optional teacher query parameter.
func ownerQuery(c *gin.Context) (*int64, error) {
	raw := c.Query("teacher")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher must be a positive integer")
	}
	return &id, nil
}

// List godoc
// @Summary List files
// @Description Students see files shared with them, teachers the files they own
// @Tags Files
// @Produce json
// @Param path query string false "Prefix match on the file path"
// @Param teacher query int false "Restrict to files owned by this teacher (students only)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /files [get]
func (h *FileHandler) List(c *gin.Context) {
	ownerID, err := ownerQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.FileFilter{
		PathPrefix: c.Query("path"),
		OwnerID:    ownerID,
	}

	files, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files)
}

// Get godoc
// @Summary File by ID
// @Tags Files
// @Produce json
// @Param id path int true "File ID"
// @Param teacher query int false "Restrict to a specific owner (students only)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /files/{id} [get]
func (h *FileHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	ownerID, err := ownerQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.service.Get(c.Request.Context(), claimsFromContext(c), id, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file)
}

// Create godoc
// @Summary Register file
// @Description Register a file owned by the authenticated teacher
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body service.CreateFileRequest true "File payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /files [post]
func (h *FileHandler) Create(c *gin.Context) {
	var req service.CreateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file payload"))
		return
	}

	file, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Update godoc
// @Summary Update file
// @Description Merge the supplied fields into a file owned by the authenticated teacher
// @Tags Files
// @Accept json
// @Produce json
// @Param id path int true "File ID"
// @Param payload body service.UpdateFileRequest true "File payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /files/{id} [put]
func (h *FileHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req service.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file payload"))
		return
	}

	file, err := h.service.Update(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, file)
}

// Delete godoc
// @Summary Delete file
// @Tags Files
// @Param id path int true "File ID"
// @Success 204 "No Content"
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
