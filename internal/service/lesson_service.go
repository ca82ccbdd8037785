package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

type lessonStore interface {
	ListLessons(ctx context.Context, tenantID string, allTenants bool) ([]models.LessonItem, error)
	AddLesson(ctx context.Context, lesson models.LessonItem) (models.LessonItem, error)
	Update(ctx context.Context, tenantID string, fn func(tx *repository.RecordTx) error) error
}

type thumbnailProvider interface {
	GenerateClassThumbnail(ctx context.Context, tenantID, topic string) string
}

type thumbnailRemover interface {
	Remove(ref string) error
}

type thumbnailAssets interface {
	AssetFromLink(tenantID, link string) (string, bool)
	LinkFor(asset string) (string, error)
}

// LessonService manages teacher uploaded lessons.
type LessonService struct {
	store      lessonStore
	thumbnails thumbnailProvider
	remover    thumbnailRemover
	assets     thumbnailAssets
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLessonService constructs a LessonService. remover and assets may be nil.
func NewLessonService(store lessonStore, thumbnails thumbnailProvider, remover thumbnailRemover, assets thumbnailAssets, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LessonService{store: store, thumbnails: thumbnails, remover: remover, assets: assets, validator: validate, logger: logger}
}

// List returns the lessons visible to the session, newest first.
func (s *LessonService) List(ctx context.Context, session *models.Session) ([]models.LessonItem, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	lessons, err := s.store.ListLessons(ctx, session.TenantID, session.IsSystem())
	if err != nil {
		return nil, storeError(err, "list lessons")
	}
	for i := range lessons {
		s.signThumbnail(&lessons[i])
	}
	return lessons, nil
}

// Create stores a new lesson for the session's tenant.
func (s *LessonService) Create(ctx context.Context, session *models.Session, req dto.CreateLessonRequest) (*models.LessonItem, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid lesson payload")
	}

	lesson := models.LessonItem{
		TenantID:    session.TenantID,
		Title:       strings.TrimSpace(req.Title),
		Kind:        req.Kind,
		Thumbnail:   req.Thumbnail,
		Description: strings.TrimSpace(req.Description),
		URL:         strings.TrimSpace(req.URL),
	}
	if lesson.Title == "" {
		lesson.Title = models.DefaultLessonTitle
	}
	if lesson.Kind == "" {
		lesson.Kind = models.LessonKindVideo
	}
	if s.assets != nil && lesson.Thumbnail != "" {
		if asset, ok := s.assets.AssetFromLink(session.TenantID, lesson.Thumbnail); ok {
			lesson.ThumbnailAsset = asset
		}
	}

	created, err := s.store.AddLesson(ctx, lesson)
	if err != nil {
		return nil, storeError(err, "create lesson")
	}
	s.signThumbnail(&created)
	s.logger.Info("lesson created", zap.String("tenant_id", created.TenantID), zap.String("lesson_id", created.ID))
	return &created, nil
}

// Delete removes a lesson and its generated thumbnail. Unknown ids succeed.
func (s *LessonService) Delete(ctx context.Context, session *models.Session, id string) error {
	if err := requireTeacher(session); err != nil {
		return err
	}

	var removed *models.LessonItem
	err := s.store.Update(ctx, session.TenantID, func(tx *repository.RecordTx) error {
		removed = nil
		lesson, err := tx.FindLesson(id)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		removed = lesson
		return tx.RemoveLesson(id)
	})
	if err != nil {
		return storeError(err, "delete lesson")
	}

	if removed == nil || s.remover == nil {
		return nil
	}
	ref := removed.Thumbnail
	if removed.ThumbnailAsset != "" {
		ref = removed.ThumbnailAsset
	}
	if ref != "" {
		if err := s.remover.Remove(ref); err != nil {
			s.logger.Debug("thumbnail not removed", zap.String("lesson_id", id), zap.Error(err))
		}
	}
	return nil
}

// Thumbnail asks the classifier for an illustration. An empty link means none was produced.
func (s *LessonService) Thumbnail(ctx context.Context, session *models.Session, req dto.ThumbnailRequest) (*dto.ThumbnailResponse, error) {
	if err := requireTeacher(session); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrValidation, err, "invalid thumbnail payload")
	}

	link := ""
	if s.thumbnails != nil {
		link = s.thumbnails.GenerateClassThumbnail(ctx, session.TenantID, strings.TrimSpace(req.Topic))
	}
	return &dto.ThumbnailResponse{Thumbnail: link, Generated: link != ""}, nil
}

// signThumbnail replaces the stored link of a generated thumbnail with a freshly signed one.
func (s *LessonService) signThumbnail(lesson *models.LessonItem) {
	if s.assets == nil || lesson.ThumbnailAsset == "" {
		return
	}
	link, err := s.assets.LinkFor(lesson.ThumbnailAsset)
	if err != nil {
		s.logger.Warn("thumbnail link not signed", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return
	}
	lesson.Thumbnail = link
}
