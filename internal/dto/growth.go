package dto

import "github.com/noah-isme/classroom-quest-api/internal/models"

// GrowthRecord aggregates a student's progress.
type GrowthRecord struct {
	Student      models.PrincipalInfo      `json:"student"`
	ClassName    string                    `json:"className,omitempty"`
	TotalPoints  int                       `json:"totalPoints"`
	Activities   []models.ActivityRecord   `json:"activities"`
	Badges       []models.BadgeItem        `json:"badges"`
	PointHistory []models.PointHistoryItem `json:"pointHistory"`
}

// AwardPointsRequest is a teacher award using a preset reason.
type AwardPointsRequest struct {
	StudentName string `json:"studentName" validate:"required"`
	ReasonID    string `json:"reasonId" validate:"required"`
}

// AwardPointsResult echoes the applied award.
type AwardPointsResult struct {
	StudentName string `json:"studentName"`
	Reason      string `json:"reason"`
	Amount      int    `json:"amount"`
	Praise      string `json:"praise"`
}
