package models

// UserFilter captures filtering criteria for the admin user list.
type UserFilter struct {
	TenantID   string
	AllTenants bool
	Role       *UserRole
	Search     string
	Page       int
	PageSize   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
