package models

import (
	"fmt"
	"time"
)

// ActivityStatus tracks the trust state of a submission.
type ActivityStatus string

const (
	ActivityTrusted  ActivityStatus = "trusted"
	ActivityVerified ActivityStatus = "verified"
	ActivityReview   ActivityStatus = "review"
	ActivityRejected ActivityStatus = "rejected"
)

// Final reports whether a teacher already settled the record.
func (s ActivityStatus) Final() bool {
	return s == ActivityTrusted || s == ActivityRejected
}

// ActivityKind distinguishes lesson comments from challenge proofs.
type ActivityKind string

const (
	ActivityLesson    ActivityKind = "lesson"
	ActivityChallenge ActivityKind = "challenge"
)

// ActivityDisplayScore is the flat trust value stored on every submission record.
const ActivityDisplayScore = 100

// ActivityRecord is the stored outcome of one submission.
type ActivityRecord struct {
	ID               string         `json:"id"`
	TenantID         string         `json:"tenant_id"`
	Title            string         `json:"title"`
	Date             time.Time      `json:"date"`
	Score            int            `json:"score"`
	Status           ActivityStatus `json:"status"`
	StudentID        string         `json:"student_id"`
	StudentName      string         `json:"student_name"`
	ClassName        string         `json:"class_name,omitempty"`
	Kind             ActivityKind   `json:"kind"`
	ProgressLabel    string         `json:"progress_label,omitempty"`
	RefID            string         `json:"ref_id,omitempty"`
	ClassifierReason string         `json:"classifier_reason,omitempty"`
}

// ProgressLabel renders the "day N certification" label.
func ProgressLabel(day int) string {
	return fmt.Sprintf("%d일차 인증", day)
}
