package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/middleware"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

type growthService interface {
	GrowthRecord(ctx context.Context, session *models.Session, studentID string) (*dto.GrowthRecord, error)
	Leaderboard(ctx context.Context, session *models.Session) ([]models.LeaderboardEntry, bool, error)
	PointReasons() []models.PointReason
	AwardPoints(ctx context.Context, session *models.Session, req dto.AwardPointsRequest) (*dto.AwardPointsResult, error)
}

// GrowthHandler exposes growth records, the leaderboard and point awards.
type GrowthHandler struct {
	service growthService
}

// NewGrowthHandler constructs a growth handler.
func NewGrowthHandler(service growthService) *GrowthHandler {
	return &GrowthHandler{service: service}
}

// Growth godoc
// @Summary Growth record
// @Description Students get their own record; teachers pass studentId
// @Tags Growth
// @Produce json
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /me/growth [get]
func (h *GrowthHandler) Growth(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	record, err := h.service.GrowthRecord(c.Request.Context(), session, c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Leaderboard godoc
// @Summary Tenant leaderboard
// @Tags Growth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *GrowthHandler) Leaderboard(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	entries, cacheHit, err := h.service.Leaderboard(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// PointReasons godoc
// @Summary Point award presets
// @Tags Growth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /point-reasons [get]
func (h *GrowthHandler) PointReasons(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.PointReasons(), nil)
}

// AwardPoints godoc
// @Summary Award points to a student
// @Tags Growth
// @Accept json
// @Produce json
// @Param payload body dto.AwardPointsRequest true "Award"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/points [post]
func (h *GrowthHandler) AwardPoints(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.AwardPointsRequest
	if !bindJSON(c, &req, "invalid award payload") {
		return
	}
	result, err := h.service.AwardPoints(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
