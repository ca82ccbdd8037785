package dto

import "github.com/noah-isme/classroom-quest-api/internal/models"

// CreateLessonRequest defines the payload for uploading a lesson.
type CreateLessonRequest struct {
	Title       string            `json:"title"`
	Kind        models.LessonKind `json:"kind" validate:"omitempty,oneof=video link"`
	Thumbnail   string            `json:"thumbnail"`
	Description string            `json:"description"`
	URL         string            `json:"url" validate:"omitempty,url"`
}

// ThumbnailRequest asks the classifier for an illustration of a lesson topic.
type ThumbnailRequest struct {
	Topic string `json:"topic" validate:"required"`
}

// ThumbnailResponse carries the signed thumbnail link, empty when generation failed.
type ThumbnailResponse struct {
	Thumbnail string `json:"thumbnail"`
	Generated bool   `json:"generated"`
}

// SubmitCommentRequest holds a reflection comment on a lesson.
type SubmitCommentRequest struct {
	Text string `json:"text" validate:"max=1000"`
}
