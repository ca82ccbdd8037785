package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/classifier"
	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

// Point values of the verification workflow.
const (
	DailyProofPoints = 10
	badgeIcon        = "🏅"
)

var commentPoints = map[int]int{3: 100, 2: 50, 1: 10}

type verificationStore interface {
	View(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
	Update(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
	ListActivities(ctx context.Context, tenantID string, allTenants bool) ([]models.ActivityRecord, error)
}

type submissionClassifier interface {
	AnalyzeComment(ctx context.Context, text string) classifier.CommentAnalysis
	VerifyChallengeImage(ctx context.Context, image []byte, challengeTitle string) classifier.ImageVerification
}

type submissionRecorder interface {
	RecordSubmission(kind models.ActivityKind, accepted bool)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID string)
}

// VerificationService scores student submissions and records teacher reviews.
type VerificationService struct {
	store      verificationStore
	classifier submissionClassifier
	metrics    submissionRecorder
	cache      cacheInvalidator
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewVerificationService constructs a VerificationService. metrics and cache may be nil.
func NewVerificationService(store verificationStore, classifier submissionClassifier, metrics submissionRecorder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VerificationService{store: store, classifier: classifier, metrics: metrics, cache: cache, validator: validate, logger: logger}
}

// SubmitComment grades a lesson reflection and awards points. A record is always stored.
func (s *VerificationService) SubmitComment(ctx context.Context, session *models.Session, lessonID string, req dto.SubmitCommentRequest) (*dto.SubmissionResult, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid comment payload")
	}

	var lesson *models.LessonItem
	var className string
	err := s.store.View(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		var err error
		if lesson, err = tx.FindLesson(lessonID); err != nil {
			return err
		}
		className = currentClassName(tx, session.PrincipalID)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "load lesson")
	}

	analysis := s.classifier.AnalyzeComment(ctx, req.Text)
	score := analysis.Score
	if !analysis.IsValid {
		score = 1
	}
	points := commentPoints[score]
	if points == 0 {
		points = commentPoints[1]
	}

	result := &dto.SubmissionResult{Accepted: true, Reason: analysis.Reason, ClassifierScore: score, PointsAwarded: points}
	err = s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		record, err := tx.AddActivity(models.ActivityRecord{
			Title:            lesson.Title,
			Score:            models.ActivityDisplayScore,
			Status:           models.ActivityVerified,
			StudentID:        session.PrincipalID,
			StudentName:      session.DisplayName,
			ClassName:        className,
			Kind:             models.ActivityLesson,
			RefID:            lesson.ID,
			ClassifierReason: analysis.Reason,
		})
		if err != nil {
			return err
		}
		result.Activity = &record
		return s.award(tx, session.PrincipalID, points, fmt.Sprintf("강의 감상평: %s", lesson.Title))
	})
	if err != nil {
		return nil, storeError(err, "record comment")
	}

	s.afterSubmission(ctx, session.TenantID, models.ActivityLesson, true)
	s.logger.Info("comment scored",
		zap.String("tenant_id", session.TenantID),
		zap.String("lesson_id", lesson.ID),
		zap.Int("score", score),
		zap.Int("points", points),
		zap.Bool("fallback", analysis.Fallback),
	)
	return result, nil
}

// SubmitChallengeProof verifies a proof photo and advances the student's streak. Rejected proofs
// store nothing.
func (s *VerificationService) SubmitChallengeProof(ctx context.Context, session *models.Session, challengeID string, image []byte) (*dto.SubmissionResult, error) {
	if err := requireStudent(session); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proof image is required")
	}

	var challenge *models.ChallengeItem
	var className string
	err := s.store.View(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		var err error
		if challenge, err = tx.FindChallenge(challengeID); err != nil {
			return err
		}
		className = currentClassName(tx, session.PrincipalID)
		return nil
	})
	if err != nil {
		return nil, storeError(err, "load challenge")
	}
	if challenge.Status != models.ChallengeActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "challenge is not open for submissions")
	}

	verdict := s.classifier.VerifyChallengeImage(ctx, image, challenge.Title)
	if !verdict.IsValid {
		s.afterSubmission(ctx, session.TenantID, models.ActivityChallenge, false)
		return &dto.SubmissionResult{Accepted: false, Reason: verdict.Reason}, nil
	}

	target := challenge.StreakTarget()
	var result *dto.SubmissionResult
	err = s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		records, err := tx.Activities()
		if err != nil {
			return err
		}
		previous := lo.CountBy(records, func(r models.ActivityRecord) bool {
			return r.Kind == models.ActivityChallenge && r.Title == challenge.Title && r.StudentID == session.PrincipalID
		})
		current := previous + 1
		completedNow := current >= target
		firstCompletion := completedNow && previous < target

		result = &dto.SubmissionResult{
			Accepted:      true,
			Reason:        verdict.Reason,
			PointsAwarded: DailyProofPoints,
			CurrentCount:  current,
			Target:        target,
			Completed:     completedNow,
		}

		record, err := tx.AddActivity(models.ActivityRecord{
			Title:            challenge.Title,
			Score:            models.ActivityDisplayScore,
			Status:           models.ActivityVerified,
			StudentID:        session.PrincipalID,
			StudentName:      session.DisplayName,
			ClassName:        className,
			Kind:             models.ActivityChallenge,
			ProgressLabel:    models.ProgressLabel(current),
			RefID:            challenge.ID,
			ClassifierReason: verdict.Reason,
		})
		if err != nil {
			return err
		}
		result.Activity = &record

		description := fmt.Sprintf("챌린지 인증: %s (%s)", challenge.Title, record.ProgressLabel)
		if firstCompletion {
			result.PointsAwarded = challenge.RewardPoints
			description = fmt.Sprintf("챌린지 완료: %s", challenge.Title)
			badge, added, err := tx.AwardBadge(models.BadgeItem{StudentID: session.PrincipalID, Name: challenge.Badge(), Icon: badgeIcon})
			if err != nil {
				return err
			}
			if added {
				result.Badge = &badge
			}
		}
		return s.award(tx, session.PrincipalID, result.PointsAwarded, description)
	})
	if err != nil {
		return nil, storeError(err, "record proof")
	}

	s.afterSubmission(ctx, session.TenantID, models.ActivityChallenge, true)
	s.logger.Info("challenge proof accepted",
		zap.String("tenant_id", session.TenantID),
		zap.String("challenge_id", challenge.ID),
		zap.Int("count", result.CurrentCount),
		zap.Int("target", target),
		zap.Int("points", result.PointsAwarded),
	)
	return result, nil
}

// ReviewActivity lets a teacher settle a non-final record as trusted or rejected. Points are
// untouched.
func (s *VerificationService) ReviewActivity(ctx context.Context, session *models.Session, id string, req dto.ReviewActivityRequest) (*models.ActivityRecord, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid review decision")
	}

	var updated *models.ActivityRecord
	err := s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		record, err := tx.FindActivity(id)
		if err != nil {
			return err
		}
		if record.Status.Final() {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("activity already %s", record.Status))
		}
		updated, err = tx.UpdateActivityStatus(id, req.Decision)
		return err
	})
	if err != nil {
		return nil, storeError(err, "review activity")
	}
	return updated, nil
}

// ListActivities returns the records visible to the session. Students only see their own.
func (s *VerificationService) ListActivities(ctx context.Context, session *models.Session, filter dto.ActivityFilter) ([]models.ActivityRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if session.Role == models.RoleStudent {
		filter.StudentID = session.PrincipalID
	}

	records, err := s.store.ListActivities(ctx, session.TenantID, session.IsSystem())
	if err != nil {
		return nil, storeError(err, "list activities")
	}
	return lo.Filter(records, func(r models.ActivityRecord, _ int) bool {
		return (filter.Kind == "" || r.Kind == filter.Kind) &&
			(filter.Status == "" || r.Status == filter.Status) &&
			(filter.StudentID == "" || r.StudentID == filter.StudentID)
	}), nil
}

func (s *VerificationService) award(tx *repository.RecordTx, studentID string, points int, description string) error {
	if _, err := tx.AdjustPointsByID(studentID, points); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student account not found")
		}
		return err
	}
	_, err := tx.AddPointHistory(models.PointHistoryItem{StudentID: studentID, Description: description, Amount: points})
	return err
}

func (s *VerificationService) afterSubmission(ctx context.Context, tenantID string, kind models.ActivityKind, accepted bool) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(kind, accepted)
	}
	if accepted && s.cache != nil {
		s.cache.Invalidate(ctx, tenantID)
	}
}

func currentClassName(tx *repository.RecordTx, studentID string) string {
	membership, err := tx.CurrentMembership(studentID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(membership.ClassName)
}
