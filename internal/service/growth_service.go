package service

import (
	"context"
	"errors"
	"fmt"
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

type growthStore interface {
	View(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
	Update(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
	ListPrincipals(ctx context.Context, tenantID string, allTenants bool) ([]models.Principal, error)
}

type praiseWriter interface {
	GeneratePraise(ctx context.Context, studentName, reason string, points int) string
}

type leaderboardCache interface {
	Lookup(ctx context.Context, tenantID string) ([]models.LeaderboardEntry, bool)
	Store(ctx context.Context, tenantID string, entries []models.LeaderboardEntry)
	Invalidate(ctx context.Context, tenantID string)
}

// GrowthService exposes student progress, the tenant leaderboard and teacher point awards.
type GrowthService struct {
	store     growthStore
	praise    praiseWriter
	cache     leaderboardCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGrowthService constructs a GrowthService. cache may be nil.
func NewGrowthService(store growthStore, praise praiseWriter, cache leaderboardCache, validate *validator.Validate, logger *zap.Logger) *GrowthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GrowthService{store: store, praise: praise, cache: cache, validator: validate, logger: logger}
}

// GrowthRecord aggregates a student's activities, badges and point history. Students may only
// read their own record; teachers may read any student of their tenant.
func (s *GrowthService) GrowthRecord(ctx context.Context, session *models.Session, studentID string) (*dto.GrowthRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if session.Role == models.RoleStudent {
		if studentID != "" && studentID != session.PrincipalID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own growth record")
		}
		studentID = session.PrincipalID
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}

	record := &dto.GrowthRecord{}
	err := s.store.View(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		student, err := tx.FindPrincipalByID(studentID)
		if err != nil {
			return err
		}
		if student.Role != models.RoleStudent {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		record.Student = student.Info()
		record.TotalPoints = student.Points()
		record.ClassName = currentClassName(tx, studentID)

		activities, err := tx.Activities()
		if err != nil {
			return err
		}
		record.Activities = lo.Filter(activities, func(a models.ActivityRecord, _ int) bool { return a.StudentID == studentID })

		if record.Badges, err = tx.BadgesForStudent(studentID); err != nil {
			return err
		}
		record.PointHistory, err = tx.PointHistoryForStudent(studentID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "load growth record")
	}
	record.Activities = nonNil(record.Activities)
	record.Badges = nonNil(record.Badges)
	record.PointHistory = nonNil(record.PointHistory)
	return record, nil
}

// Leaderboard ranks the tenant's students by points, ties broken by name. The flag reports a
// cache hit.
func (s *GrowthService) Leaderboard(ctx context.Context, session *models.Session) ([]models.LeaderboardEntry, bool, error) {
	if err := requireSession(session); err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if cached, hit := s.cache.Lookup(ctx, session.TenantID); hit {
			return cached, true, nil
		}
	}

	principals, err := s.store.ListPrincipals(ctx, session.TenantID, false)
	if err != nil {
		return nil, false, storeError(err, "list students")
	}
	students := lo.Filter(principals, func(p models.Principal, _ int) bool { return p.Role == models.RoleStudent })
	sort.SliceStable(students, func(i, j int) bool {
		if students[i].Points() != students[j].Points() {
			return students[i].Points() > students[j].Points()
		}
		return students[i].DisplayName < students[j].DisplayName
	})

	entries := make([]models.LeaderboardEntry, 0, len(students))
	for i, student := range students {
		rank := i + 1
		if i > 0 && student.Points() == students[i-1].Points() {
			rank = entries[i-1].Rank
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:          rank,
			StudentID:     student.ID,
			DisplayName:   student.DisplayName,
			StudentNumber: student.StudentNumber(),
			Points:        student.Points(),
		})
	}

	if s.cache != nil {
		s.cache.Store(ctx, session.TenantID, entries)
	}
	return entries, false, nil
}

// PointReasons lists the teacher award presets.
func (s *GrowthService) PointReasons() []models.PointReason {
	return models.PointReasons
}

// AwardPoints applies a preset award to a student by display name and returns a praise line.
func (s *GrowthService) AwardPoints(ctx context.Context, session *models.Session, req dto.AwardPointsRequest) (*dto.AwardPointsResult, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	req.StudentName = strings.TrimSpace(req.StudentName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid award payload")
	}
	reason, ok := models.FindPointReason(req.ReasonID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown point reason")
	}

	err := s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		student, err := tx.AdjustPoints(req.StudentName, reason.Value)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return err
		}
		_, err = tx.AddPointHistory(models.PointHistoryItem{
			StudentID:   student.ID,
			Description: fmt.Sprintf("%s (%s)", reason.Label, session.DisplayName),
			Amount:      reason.Value,
		})
		return err
	})
	if err != nil {
		return nil, storeError(err, "award points")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, session.TenantID)
	}

	praise := ""
	if reason.Value > 0 && s.praise != nil {
		praise = s.praise.GeneratePraise(ctx, req.StudentName, reason.Label, reason.Value)
	}
	return &dto.AwardPointsResult{StudentName: req.StudentName, Reason: reason.Label, Amount: reason.Value, Praise: praise}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
