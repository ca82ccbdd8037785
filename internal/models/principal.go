package models

import "time"

// UserRole represents the roles a principal can log in with.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleTeacher UserRole = "TEACHER"
)

// Other returns the opposite login role.
func (r UserRole) Other() UserRole {
	if r == RoleStudent {
		return RoleTeacher
	}
	return RoleStudent
}

// TeacherKind distinguishes homeroom and subject teachers.
type TeacherKind string

const (
	TeacherKindHomeroom TeacherKind = "HOMEROOM"
	TeacherKindSubject  TeacherKind = "SUBJECT"
)

// StudentProfile holds student specific attributes.
type StudentProfile struct {
	StudentNumber string `json:"student_number"`
	Points        int    `json:"points"`
}

// TeacherProfile holds teacher specific attributes.
type TeacherProfile struct {
	TeacherKind TeacherKind `json:"teacher_kind"`
}

// Principal is a stored student or teacher account scoped to a tenant (school).
type Principal struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	DisplayName     string          `json:"display_name"`
	PasswordHash    string          `json:"password_hash"`
	Role            UserRole        `json:"role"`
	IsAdminOverride bool            `json:"is_admin_override"`
	Student         *StudentProfile `json:"student,omitempty"`
	Teacher         *TeacherProfile `json:"teacher,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StudentNumber returns the student number or an empty string for teachers.
func (p Principal) StudentNumber() string {
	if p.Student == nil {
		return ""
	}
	return p.Student.StudentNumber
}

// Points returns the current point balance (zero for teachers).
func (p Principal) Points() int {
	if p.Student == nil {
		return 0
	}
	return p.Student.Points
}

// SameAccountKey reports whether two principals collide on the per-tenant uniqueness key:
// student number for students, display name for teachers.
func (p Principal) SameAccountKey(other Principal) bool {
	if p.TenantID != other.TenantID || p.Role != other.Role {
		return false
	}
	if p.Role == RoleStudent {
		return p.StudentNumber() == other.StudentNumber()
	}
	return p.DisplayName == other.DisplayName
}

// Info strips credentials for responses.
func (p Principal) Info() PrincipalInfo {
	info := PrincipalInfo{
		ID:              p.ID,
		TenantID:        p.TenantID,
		DisplayName:     p.DisplayName,
		Role:            p.Role,
		IsAdminOverride: p.IsAdminOverride,
		CreatedAt:       p.CreatedAt,
	}
	if p.Student != nil {
		info.StudentNumber = p.Student.StudentNumber
		points := p.Student.Points
		info.Points = &points
	}
	if p.Teacher != nil {
		info.TeacherKind = p.Teacher.TeacherKind
	}
	return info
}

// PrincipalInfo is the public projection of a principal.
type PrincipalInfo struct {
	ID              string      `json:"id"`
	TenantID        string      `json:"tenant_id"`
	DisplayName     string      `json:"display_name"`
	Role            UserRole    `json:"role"`
	IsAdminOverride bool        `json:"is_admin_override"`
	StudentNumber   string      `json:"student_number,omitempty"`
	Points          *int        `json:"points,omitempty"`
	TeacherKind     TeacherKind `json:"teacher_kind,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// BulkRegisterResult summarises a bulk registration.
type BulkRegisterResult struct {
	SuccessCount int `json:"success_count"`
	FailCount    int `json:"fail_count"`
}
