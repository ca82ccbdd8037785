package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

type lessonService interface {
	List(ctx context.Context, session *models.Session) ([]models.LessonItem, error)
	Create(ctx context.Context, session *models.Session, req dto.CreateLessonRequest) (*models.LessonItem, error)
	Delete(ctx context.Context, session *models.Session, id string) error
	Thumbnail(ctx context.Context, session *models.Session, req dto.ThumbnailRequest) (*dto.ThumbnailResponse, error)
}

type commentSubmitter interface {
	SubmitComment(ctx context.Context, session *models.Session, lessonID string, req dto.SubmitCommentRequest) (*dto.SubmissionResult, error)
}

// LessonHandler exposes lesson endpoints.
type LessonHandler struct {
	service  lessonService
	comments commentSubmitter
}

// NewLessonHandler constructs a lesson handler.
func NewLessonHandler(service lessonService, comments commentSubmitter) *LessonHandler {
	return &LessonHandler{service: service, comments: comments}
}

// List godoc
// @Summary List lessons
// @Tags Lessons
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	lessons, err := h.service.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Create godoc
// @Summary Upload lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateLessonRequest
	if !bindJSON(c, &req, "invalid lesson payload") {
		return
	}
	lesson, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// Delete godoc
// @Summary Delete lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), session, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Thumbnail godoc
// @Summary Generate lesson thumbnail
// @Description Asks the generative model for a 16:9 illustration. An empty link means none was produced.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.ThumbnailRequest true "Topic"
// @Success 200 {object} response.Envelope
// @Router /lessons/thumbnail [post]
func (h *LessonHandler) Thumbnail(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.ThumbnailRequest
	if !bindJSON(c, &req, "invalid thumbnail payload") {
		return
	}
	resp, err := h.service.Thumbnail(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// SubmitComment godoc
// @Summary Submit lesson reflection
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.SubmitCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/comments [post]
func (h *LessonHandler) SubmitComment(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitCommentRequest
	if !bindJSON(c, &req, "invalid comment payload") {
		return
	}
	result, err := h.comments.SubmitComment(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
