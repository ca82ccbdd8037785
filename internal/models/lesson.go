package models

import "time"

// DefaultLessonTitle replaces empty lesson titles.
const DefaultLessonTitle = "새로운 강의"

// LessonKind describes how a lesson is delivered.
type LessonKind string

const (
	LessonKindVideo LessonKind = "video"
	LessonKindLink  LessonKind = "link"
)

// LessonItem is a short lesson uploaded by a teacher.
type LessonItem struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Title       string     `json:"title"`
	CreatedDate time.Time  `json:"created_date"`
	Kind        LessonKind `json:"kind"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	// ThumbnailAsset names a generated thumbnail in asset storage. Links to it are signed on read.
	ThumbnailAsset string `json:"thumbnail_asset,omitempty"`
}
