package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionScope widens what a session may see beyond its own tenant.
type SessionScope string

const (
	ScopeTenant      SessionScope = "TENANT"
	ScopeSchoolAdmin SessionScope = "SCHOOL_ADMIN"
	ScopeSystem      SessionScope = "SYSTEM"
)

// Session is an authenticated principal context. It is handed explicitly to every core operation.
type Session struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	PrincipalID string       `json:"principal_id"`
	DisplayName string       `json:"display_name"`
	Role        UserRole     `json:"role"`
	Scope       SessionScope `json:"scope"`
	IssuedAt    time.Time    `json:"issued_at"`
	ExpiresAt   time.Time    `json:"expires_at"`
	RevokedAt   *time.Time   `json:"revoked_at,omitempty"`
}

// IsSystem reports whether the session belongs to an override super-admin.
func (s *Session) IsSystem() bool {
	return s != nil && s.Scope == ScopeSystem
}

// IsAdmin reports whether the session may administer its tenant.
func (s *Session) IsAdmin() bool {
	return s != nil && (s.Scope == ScopeSystem || s.Scope == ScopeSchoolAdmin)
}

// IsTeacher reports whether the session acts with teacher privileges.
func (s *Session) IsTeacher() bool {
	return s != nil && (s.Role == RoleTeacher || s.Scope == ScopeSystem)
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// LoginRequest holds credentials for one of the login tabs.
type LoginRequest struct {
	TenantID      string   `json:"tenant_id" validate:"required"`
	Role          UserRole `json:"role" validate:"required,oneof=STUDENT TEACHER"`
	StudentNumber string   `json:"student_number"`
	DisplayName   string   `json:"display_name"`
	Password      string   `json:"password" validate:"required"`
}

// Identifier returns the value used to look up the principal for the requested role.
func (r LoginRequest) Identifier() string {
	if r.Role == RoleStudent {
		return r.StudentNumber
	}
	return r.DisplayName
}

// RegisterRequest is the public sign-up payload.
type RegisterRequest struct {
	TenantID      string      `json:"tenant_id" validate:"required"`
	Role          UserRole    `json:"role" validate:"required,oneof=STUDENT TEACHER"`
	DisplayName   string      `json:"display_name" validate:"required"`
	StudentNumber string      `json:"student_number" validate:"required_if=Role STUDENT"`
	TeacherKind   TeacherKind `json:"teacher_kind" validate:"omitempty,oneof=HOMEROOM SUBJECT"`
	Password      string      `json:"password" validate:"required,min=4"`
}

// LoginResponse returns the issued token and the principal view.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	Session     Session       `json:"session"`
	Principal   PrincipalInfo `json:"principal"`
	IssuedAt    time.Time     `json:"issued_at"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	SessionID   string       `json:"sid"`
	PrincipalID string       `json:"principal_id"`
	TenantID    string       `json:"tenant_id"`
	Role        UserRole     `json:"role"`
	Scope       SessionScope `json:"scope"`
	DisplayName string       `json:"display_name"`
	jwt.RegisteredClaims
}
