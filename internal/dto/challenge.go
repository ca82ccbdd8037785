package dto

import "github.com/noah-isme/classroom-quest-api/internal/models"

// CreateChallengeRequest defines the payload for creating a challenge.
type CreateChallengeRequest struct {
	Title              string                    `json:"title" validate:"required"`
	Status             models.ChallengeStatus    `json:"status" validate:"omitempty,oneof=active pending"`
	Description        string                    `json:"description"`
	DurationLabel      string                    `json:"durationLabel"`
	TargetGrade        string                    `json:"targetGrade"`
	VerificationMethod models.VerificationMethod `json:"verificationMethod" validate:"omitempty,oneof=photo video file"`
	AIWeight           int                       `json:"aiWeight" validate:"gte=0,lte=100"`
	BadgeName          string                    `json:"badgeName"`
	RewardPoints       *int                      `json:"rewardPoints" validate:"omitempty,gte=0"`
}
