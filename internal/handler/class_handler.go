package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, session *models.Session) ([]models.RegisteredClass, error)
	Create(ctx context.Context, session *models.Session, req dto.CreateClassRequest) (*models.RegisteredClass, error)
	Join(ctx context.Context, session *models.Session, req dto.JoinClassRequest) (*models.ClassMembership, error)
}

// ClassHandler handles class endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	classes, err := h.service.List(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Create godoc
// @Summary Create class
// @Description Registers a class with a generated five character join code
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.service.Create(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Join godoc
// @Summary Join class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body dto.JoinClassRequest true "Join code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/join [post]
func (h *ClassHandler) Join(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.JoinClassRequest
	if !bindJSON(c, &req, "invalid join payload") {
		return
	}
	membership, err := h.service.Join(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, membership, nil)
}
