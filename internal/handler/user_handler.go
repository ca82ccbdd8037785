package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, session *models.Session, filter models.UserFilter) ([]models.PrincipalInfo, *models.Pagination, error)
	Delete(ctx context.Context, session *models.Session, tenantID, id string) error
	BulkUpload(ctx context.Context, session *models.Session, req dto.BulkUploadRequest) (*models.BulkRegisterResult, error)
	CreateSchoolAdmin(ctx context.Context, session *models.Session, req dto.CreateSchoolAdminRequest) (*models.PrincipalInfo, error)
}

// UserHandler handles administrator user management endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List principals with pagination. Only system sessions may pass tenantId or allTenants.
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Param role query string false "STUDENT or TEACHER"
// @Param search query string false "Name or student number"
// @Param tenantId query string false "Tenant ID"
// @Param allTenants query bool false "List every tenant"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}

	var query dto.ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		query = dto.ListUsersQuery{}
	}
	filter := models.UserFilter{
		TenantID: strings.TrimSpace(c.Query("tenantId")),
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.Role != "" {
		role := models.UserRole(strings.ToUpper(query.Role))
		filter.Role = &role
	}
	if all, err := strconv.ParseBool(c.DefaultQuery("allTenants", "false")); err == nil {
		filter.AllTenants = all
	}

	users, pagination, err := h.service.List(c.Request.Context(), session, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Delete godoc
// @Summary Delete user
// @Description Removes the principal and revokes its sessions
// @Tags Admin
// @Param id path string true "User ID"
// @Param tenantId query string false "Tenant ID (system sessions only)"
// @Success 204 {string} string "No Content"
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), session, c.Query("tenantId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkUpload godoc
// @Summary Bulk register users
// @Description Accepts pasted rows of "name, info, password" separated by commas or tabs
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.BulkUploadRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Router /admin/users/bulk [post]
func (h *UserHandler) BulkUpload(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.BulkUploadRequest
	if !bindJSON(c, &req, "invalid bulk upload payload") {
		return
	}
	result, err := h.service.BulkUpload(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateSchoolAdmin godoc
// @Summary Create school administrator
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.CreateSchoolAdminRequest true "Administrator"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/school-admins [post]
func (h *UserHandler) CreateSchoolAdmin(c *gin.Context) {
	session, ok := sessionFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateSchoolAdminRequest
	if !bindJSON(c, &req, "invalid school admin payload") {
		return
	}
	info, err := h.service.CreateSchoolAdmin(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, info)
}
