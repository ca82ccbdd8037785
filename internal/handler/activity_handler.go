package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/service"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

type activityService interface {
	ListActivities(ctx context.Context, session *models.Session, filter dto.ActivityFilter) ([]models.ActivityRecord, error)
	ReviewActivity(ctx context.Context, session *models.Session, id string, req dto.ReviewActivityRequest) (*models.ActivityRecord, error)
}

type activityExporter interface {
	ExportActivities(ctx context.Context, session *models.Session, format string, filter dto.ActivityFilter) (*service.ExportFile, error)
}

// ActivityHandler exposes submission records, teacher review and exports.
type ActivityHandler struct {
	service  activityService
	exporter activityExporter
}

// NewActivityHandler constructs an activity handler.
func NewActivityHandler(service activityService, exporter activityExporter) *ActivityHandler {
	return &ActivityHandler{service: service, exporter: exporter}
}

func activityFilterFromQuery(c *gin.Context) dto.ActivityFilter {
	return dto.ActivityFilter{
		Kind:      models.ActivityKind(strings.TrimSpace(c.Query("kind"))),
		Status:    models.ActivityStatus(strings.TrimSpace(c.Query("status"))),
		StudentID: strings.TrimSpace(c.Query("studentId")),
	}
}

// List godoc
// @Summary List activity records
// @Description Students only see their own records
// @Tags Activities
// @Produce json
// @Param kind query string false "lesson or challenge"
// @Param status query string false "trusted, verified, review or rejected"
// @Param studentId query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	records, err := h.service.ListActivities(c.Request.Context(), session, activityFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Review godoc
// @Summary Review activity record
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body dto.ReviewActivityRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /activities/{id}/review [patch]
func (h *ActivityHandler) Review(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.ReviewActivityRequest
	if !bindJSON(c, &req, "invalid review payload") {
		return
	}
	record, err := h.service.ReviewActivity(c.Request.Context(), session, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Export godoc
// @Summary Export activity records
// @Tags Activities
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param kind query string false "lesson or challenge"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Router /activities/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	file, err := h.exporter.ExportActivities(c.Request.Context(), session, c.DefaultQuery("format", service.ExportFormatCSV), activityFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
