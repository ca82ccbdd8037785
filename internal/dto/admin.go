package dto

import "github.com/noah-isme/classroom-quest-api/internal/models"

// BulkUploadRequest carries pasted rows of "name, info, password".
type BulkUploadRequest struct {
	TenantID string          `json:"tenantId"`
	Role     models.UserRole `json:"role" validate:"required,oneof=STUDENT TEACHER"`
	Data     string          `json:"data" validate:"required"`
}

// CreateSchoolAdminRequest creates the single administrator teacher of a school.
type CreateSchoolAdminRequest struct {
	TenantID    string `json:"tenantId" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	Password    string `json:"password" validate:"required,min=4"`
}

// ListUsersQuery captures admin user list filters.
type ListUsersQuery struct {
	Role     string `form:"role"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
