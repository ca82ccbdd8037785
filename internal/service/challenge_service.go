package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

type challengeStore interface {
	ListChallenges(ctx context.Context, tenantID string, allTenants bool) ([]models.ChallengeItem, error)
	AddChallenge(ctx context.Context, challenge models.ChallengeItem) (models.ChallengeItem, error)
	RemoveChallenge(ctx context.Context, tenantID, id string) error
}

// ChallengeService manages habit challenges.
type ChallengeService struct {
	store     challengeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(store challengeStore, validate *validator.Validate, logger *zap.Logger) *ChallengeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChallengeService{store: store, validator: validate, logger: logger}
}

// List returns challenges visible to the session, newest first.
func (s *ChallengeService) List(ctx context.Context, session *models.Session) ([]models.ChallengeItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	challenges, err := s.store.ListChallenges(ctx, session.TenantID, session.IsSystem())
	if err != nil {
		return nil, storeError(err, "list challenges")
	}
	return challenges, nil
}

// Create stores a challenge applying defaults for omitted fields.
func (s *ChallengeService) Create(ctx context.Context, session *models.Session, req dto.CreateChallengeRequest) (*models.ChallengeItem, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid challenge payload")
	}

	challenge := models.ChallengeItem{
		TenantID:           session.TenantID,
		Title:              req.Title,
		Status:             req.Status,
		Description:        strings.TrimSpace(req.Description),
		DurationLabel:      strings.TrimSpace(req.DurationLabel),
		TargetGrade:        strings.TrimSpace(req.TargetGrade),
		VerificationMethod: req.VerificationMethod,
		AIWeight:           req.AIWeight,
		BadgeName:          strings.TrimSpace(req.BadgeName),
		RewardPoints:       models.DefaultRewardPoints,
	}
	if challenge.Status == "" {
		challenge.Status = models.ChallengeActive
	}
	if challenge.VerificationMethod == "" {
		challenge.VerificationMethod = models.VerifyPhoto
	}
	if challenge.BadgeName == "" {
		challenge.BadgeName = models.DefaultBadgeName
	}
	if req.RewardPoints != nil {
		challenge.RewardPoints = *req.RewardPoints
	}

	created, err := s.store.AddChallenge(ctx, challenge)
	if err != nil {
		return nil, storeError(err, "create challenge")
	}
	s.logger.Info("challenge created", zap.String("tenant_id", created.TenantID), zap.String("challenge_id", created.ID), zap.Int("target_days", created.StreakTarget()))
	return &created, nil
}

// Delete removes a challenge. Unknown ids succeed.
func (s *ChallengeService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireTeacher(session); err != nil {
		return err
	}
	if err := s.store.RemoveChallenge(ctx, session.TenantID, id); err != nil {
		return storeError(err, "delete challenge")
	}
	return nil
}
