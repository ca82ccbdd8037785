package dto

import "github.com/noah-isme/classroom-quest-api/internal/models"

// SubmissionResult reports the outcome of a comment or challenge proof.
type SubmissionResult struct {
	Accepted        bool                   `json:"accepted"`
	Reason          string                 `json:"reason,omitempty"`
	ClassifierScore int                    `json:"classifierScore,omitempty"`
	PointsAwarded   int                    `json:"pointsAwarded"`
	Activity        *models.ActivityRecord `json:"activity,omitempty"`
	CurrentCount    int                    `json:"currentCount,omitempty"`
	Target          int                    `json:"target,omitempty"`
	Completed       bool                   `json:"completed"`
	Badge           *models.BadgeItem      `json:"badge,omitempty"`
}

// ReviewActivityRequest carries a teacher decision on a submission.
type ReviewActivityRequest struct {
	Decision models.ActivityStatus `json:"decision" validate:"required,oneof=trusted rejected"`
}

// ActivityFilter narrows the activity list.
type ActivityFilter struct {
	Kind      models.ActivityKind
	Status    models.ActivityStatus
	StudentID string
}
