package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	"github.com/noah-isme/classroom-quest-api/pkg/config"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

// systemPrincipalPrefix marks sessions of configured override identities.
const systemPrincipalPrefix = "system:"

type authStore interface {
	FindByCredentials(ctx context.Context, tenantID string, role models.UserRole, identifier string) (*models.Principal, error)
	FindPrincipalByID(ctx context.Context, tenantID, id string) (*models.Principal, error)
	RegisterPrincipal(ctx context.Context, candidate models.Principal) (models.Principal, error)
	CreateSession(ctx context.Context, session models.Session, revokeOthers bool) error
	FindSession(ctx context.Context, tenantID, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, tenantID, id string) error
	ListPrincipals(ctx context.Context, tenantID string, allTenants bool) ([]models.Principal, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	Issuer             string
	SingleSession      bool
	BcryptCost         int
	OverrideIdentities []config.OverrideIdentity
}

// AuthService provides authentication use cases.
type AuthService struct {
	store     authStore
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. cache may be nil.
func NewAuthService(store authStore, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{store: store, cache: cache, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates credentials from one of the login tabs and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid login payload")
	}
	req.TenantID = strings.TrimSpace(req.TenantID)

	if identity, ok := s.matchOverride(req); ok {
		return s.openSession(ctx, s.systemPrincipal(identity, req.TenantID), models.ScopeSystem)
	}

	principal, err := s.authenticate(ctx, req.TenantID, req.Role, req)
	if err != nil {
		if !errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to fetch principal")
		}
		if s.CheckWrongRole(ctx, req) {
			return nil, appErrors.Clone(appErrors.ErrWrongRole, fmt.Sprintf("this looks like a %s account, use the %s tab", strings.ToLower(string(req.Role.Other())), strings.ToLower(string(req.Role.Other()))))
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials")
	}

	scope := models.ScopeTenant
	if principal.Role == models.RoleTeacher && principal.IsAdminOverride {
		scope = models.ScopeSchoolAdmin
	}
	return s.openSession(ctx, *principal, scope)
}

// CheckWrongRole reports whether the credentials belong to the other role in the same tenant.
// It never opens a session.
func (s *AuthService) CheckWrongRole(ctx context.Context, req models.LoginRequest) bool {
	other := req.Role.Other()
	probe := req
	probe.Role = other
	if other == models.RoleStudent && probe.StudentNumber == "" {
		// The teacher tab only asks for a name; students are looked up by number.
		return s.anyStudentNamed(ctx, req)
	}
	_, err := s.authenticate(ctx, req.TenantID, other, probe)
	return err == nil
}

// Register creates a principal through the public sign-up flow. A session is opened only when
// caller is nil.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, caller *models.Session) (*models.PrincipalInfo, *models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid register payload")
	}

	candidate, err := s.BuildPrincipal(strings.TrimSpace(req.TenantID), req.Role, strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.StudentNumber), req.TeacherKind, req.Password)
	if err != nil {
		return nil, nil, err
	}

	registered, err := s.store.RegisterPrincipal(ctx, candidate)
	if err != nil {
		return nil, nil, mapRegisterError(err)
	}
	info := registered.Info()
	if registered.Role == models.RoleStudent && s.cache != nil {
		s.cache.Invalidate(ctx, registered.TenantID)
	}

	if caller != nil {
		return &info, nil, nil
	}
	resp, err := s.openSession(ctx, registered, models.ScopeTenant)
	if err != nil {
		return nil, nil, err
	}
	return &info, resp, nil
}

// BuildPrincipal hashes the password and assembles a candidate. The admin override flag is
// always false; school admins are created through the admin service.
func (s *AuthService) BuildPrincipal(tenantID string, role models.UserRole, displayName, studentNumber string, kind models.TeacherKind, password string) (models.Principal, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return models.Principal{}, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to hash password")
	}

	principal := models.Principal{
		TenantID:     tenantID,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
	}
	switch role {
	case models.RoleStudent:
		principal.Student = &models.StudentProfile{StudentNumber: studentNumber}
	case models.RoleTeacher:
		if kind == "" {
			kind = models.TeacherKindSubject
		}
		principal.Teacher = &models.TeacherProfile{TeacherKind: kind}
	default:
		return models.Principal{}, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	return principal, nil
}

// Logout revokes the session.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "no active session")
	}
	if err := s.store.RevokeSession(ctx, session.TenantID, session.ID); err != nil {
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to revoke session")
	}
	return nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.Session, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.store.FindSession(ctx, claims.TenantID, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load session")
	}
	if !session.Active(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is no longer active")
	}
	return session, nil
}

// Me returns the principal behind a session. Override identities have no stored principal.
func (s *AuthService) Me(ctx context.Context, session *models.Session) (*models.PrincipalInfo, error) {
	if session.IsSystem() {
		return &models.PrincipalInfo{
			ID:              session.PrincipalID,
			TenantID:        session.TenantID,
			DisplayName:     session.DisplayName,
			Role:            session.Role,
			IsAdminOverride: true,
		}, nil
	}
	principal, err := s.store.FindPrincipalByID(ctx, session.TenantID, session.PrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "principal not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to load principal")
	}
	info := principal.Info()
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrUnauthorized, err, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) authenticate(ctx context.Context, tenantID string, role models.UserRole, req models.LoginRequest) (*models.Principal, error) {
	identifier := req.StudentNumber
	if role == models.RoleTeacher {
		identifier = req.DisplayName
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, repository.ErrRecordNotFound
	}

	principal, err := s.store.FindByCredentials(ctx, tenantID, role, identifier)
	if err != nil {
		return nil, err
	}
	if role == models.RoleStudent && req.DisplayName != "" && principal.DisplayName != strings.TrimSpace(req.DisplayName) {
		return nil, repository.ErrRecordNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(req.Password)); err != nil {
		return nil, repository.ErrRecordNotFound
	}
	return principal, nil
}

func (s *AuthService) anyStudentNamed(ctx context.Context, req models.LoginRequest) bool {
	principals, err := s.store.ListPrincipals(ctx, req.TenantID, false)
	if err != nil {
		return false
	}
	name := strings.TrimSpace(req.DisplayName)
	for _, p := range principals {
		if p.Role == models.RoleStudent && p.DisplayName == name &&
			bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) == nil {
			return true
		}
	}
	return false
}

func (s *AuthService) matchOverride(req models.LoginRequest) (config.OverrideIdentity, bool) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return config.OverrideIdentity{}, false
	}
	for _, identity := range s.config.OverrideIdentities {
		if identity.Name != name {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)) == nil {
			return identity, true
		}
	}
	return config.OverrideIdentity{}, false
}

func (s *AuthService) systemPrincipal(identity config.OverrideIdentity, tenantID string) models.Principal {
	return models.Principal{
		ID:              systemPrincipalPrefix + identity.Name,
		TenantID:        tenantID,
		DisplayName:     identity.Name,
		Role:            models.RoleTeacher,
		IsAdminOverride: true,
	}
}

func (s *AuthService) openSession(ctx context.Context, principal models.Principal, scope models.SessionScope) (*models.LoginResponse, error) {
	issuedAt := s.now().UTC()
	session := models.Session{
		ID:          uuid.NewString(),
		TenantID:    principal.TenantID,
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		Role:        principal.Role,
		Scope:       scope,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.config.AccessTokenExpiry),
	}

	if err := s.store.CreateSession(ctx, session, s.config.SingleSession); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to persist session")
	}

	accessToken, err := s.generateAccessToken(session)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to create access token")
	}

	s.logger.Info("session opened",
		zap.String("tenant_id", session.TenantID),
		zap.String("principal_id", session.PrincipalID),
		zap.String("scope", string(scope)),
	)

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Session:     session,
		Principal:   principal.Info(),
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) generateAccessToken(session models.Session) (string, error) {
	claims := &models.JWTClaims{
		SessionID:   session.ID,
		PrincipalID: session.PrincipalID,
		TenantID:    session.TenantID,
		Role:        session.Role,
		Scope:       session.Scope,
		DisplayName: session.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   session.PrincipalID,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			NotBefore: jwt.NewNumericDate(session.IssuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func mapRegisterError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicatePrincipal):
		return appErrors.Clone(appErrors.ErrDuplicate, "an account with the same identifier already exists")
	case errors.Is(err, repository.ErrSchoolAdminExists):
		return appErrors.Clone(appErrors.ErrSchoolAdminExists, "school already has an administrator")
	default:
		return appErrors.WrapAs(appErrors.ErrInternal, err, "failed to register principal")
	}
}
