package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

type userStore interface {
	ListPrincipals(ctx context.Context, tenantID string, allTenants bool) ([]models.Principal, error)
	Update(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
	BulkRegister(ctx context.Context, tenantID string, candidates []models.Principal) (models.BulkRegisterResult, error)
	RegisterPrincipal(ctx context.Context, candidate models.Principal) (models.Principal, error)
}

type principalBuilder interface {
	BuildPrincipal(tenantID string, role models.UserRole, displayName, studentNumber string, kind models.TeacherKind, password string) (models.Principal, error)
}

var homeroomMarkers = []string{"담임", "homeroom"}

// UserService handles administrator user management.
type UserService struct {
	store     userStore
	builder   principalBuilder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService. cache may be nil.
func NewUserService(store userStore, builder principalBuilder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{store: store, builder: builder, cache: cache, validator: validate, logger: logger}
}

// List returns paginated principals and pagination metadata. System sessions may list every tenant.
func (s *UserService) List(ctx context.Context, session *models.Session, filter models.UserFilter) ([]models.PrincipalInfo, *models.Pagination, error) {
	if err := requireAdmin(session); err != nil {
		return nil, nil, err
	}
	switch {
	case !session.IsSystem():
		filter.TenantID = session.TenantID
		filter.AllTenants = false
	case filter.TenantID == "" && !filter.AllTenants:
		filter.TenantID = session.TenantID
	}

	principals, err := s.store.ListPrincipals(ctx, filter.TenantID, filter.AllTenants)
	if err != nil {
		return nil, nil, storeError(err, "list users")
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := lo.Filter(principals, func(p models.Principal, _ int) bool {
		if filter.Role != nil && p.Role != *filter.Role {
			return false
		}
		if search == "" {
			return true
		}
		return strings.Contains(strings.ToLower(p.DisplayName), search) ||
			strings.Contains(strings.ToLower(p.StudentNumber()), search)
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].TenantID != matched[j].TenantID {
			return matched[i].TenantID < matched[j].TenantID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(matched),
	}

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	users := lo.Map(matched[start:end], func(p models.Principal, _ int) models.PrincipalInfo { return p.Info() })

	return users, pagination, nil
}

// Delete removes a principal and revokes its sessions. School admins may only delete within their
// tenant. Unknown ids succeed.
func (s *UserService) Delete(ctx context.Context, session *models.Session, tenantID, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if !session.IsSystem() || tenantID == "" {
		tenantID = session.TenantID
	}
	if id == session.PrincipalID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot delete the signed-in account")
	}

	var removed *models.Principal
	err := s.store.Update(ctx, tenantID, func(tx *repository.RecordTx) error {
		removed = nil
		principal, err := tx.FindPrincipalByID(id)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.RemovePrincipal(id); err != nil {
			return err
		}
		removed = principal
		return tx.RevokePrincipalSessions(id)
	})
	if err != nil {
		return storeError(err, "delete user")
	}
	if removed == nil {
		return nil
	}
	if removed.Role == models.RoleStudent {
		s.invalidateLeaderboard(ctx, tenantID)
	}

	s.logger.Info("user deleted", zap.String("tenant_id", tenantID), zap.String("user_id", id), zap.String("actor", session.PrincipalID))
	return nil
}

// BulkUpload registers pasted rows of "name, info, password". Malformed rows and collisions count as failures.
func (s *UserService) BulkUpload(ctx context.Context, session *models.Session, req dto.BulkUploadRequest) (*models.BulkRegisterResult, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if !session.IsSystem() || strings.TrimSpace(req.TenantID) == "" {
		req.TenantID = session.TenantID
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid bulk upload payload")
	}

	var candidates []models.Principal
	malformed := 0
	for _, line := range strings.Split(req.Data, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, info, password, ok := parseBulkRow(line)
		if !ok {
			malformed++
			continue
		}

		number, kind := "", models.TeacherKind("")
		if req.Role == models.RoleStudent {
			number = info
		} else {
			kind = teacherKindFor(info)
		}
		candidate, err := s.builder.BuildPrincipal(req.TenantID, req.Role, name, number, kind, password)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}

	result := models.BulkRegisterResult{}
	if len(candidates) > 0 {
		var err error
		result, err = s.store.BulkRegister(ctx, req.TenantID, candidates)
		if err != nil {
			return nil, storeError(err, "register users")
		}
	}
	result.FailCount += malformed
	if result.SuccessCount > 0 && req.Role == models.RoleStudent {
		s.invalidateLeaderboard(ctx, req.TenantID)
	}

	s.logger.Info("bulk upload processed",
		zap.String("tenant_id", req.TenantID),
		zap.String("role", string(req.Role)),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailCount),
	)
	return &result, nil
}

// CreateSchoolAdmin registers the single administrator teacher of a tenant.
func (s *UserService) CreateSchoolAdmin(ctx context.Context, session *models.Session, req dto.CreateSchoolAdminRequest) (*models.PrincipalInfo, error) {
	if err := requireSystem(session); err != nil {
		return nil, err
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid school admin payload")
	}

	candidate, err := s.builder.BuildPrincipal(req.TenantID, models.RoleTeacher, req.DisplayName, "", models.TeacherKindHomeroom, req.Password)
	if err != nil {
		return nil, err
	}
	candidate.IsAdminOverride = true

	created, err := s.store.RegisterPrincipal(ctx, candidate)
	if err != nil {
		return nil, storeError(err, "create school admin")
	}
	info := created.Info()
	return &info, nil
}

func (s *UserService) invalidateLeaderboard(ctx context.Context, tenantID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
}

func parseBulkRow(line string) (name, info, password string, ok bool) {
	sep := ","
	if strings.Contains(line, "\t") {
		sep = "\t"
	}
	parts := strings.Split(line, sep)
	if len(parts) < 3 {
		return "", "", "", false
	}
	name = strings.TrimSpace(parts[0])
	info = strings.TrimSpace(parts[1])
	password = strings.TrimSpace(parts[2])
	if name == "" || password == "" {
		return "", "", "", false
	}
	return name, info, password, true
}

func teacherKindFor(info string) models.TeacherKind {
	lowered := strings.ToLower(info)
	if lo.ContainsBy(homeroomMarkers, func(marker string) bool { return strings.Contains(lowered, marker) }) {
		return models.TeacherKindHomeroom
	}
	return models.TeacherKindSubject
}
