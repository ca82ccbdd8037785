package models

import (
	"strings"
	"time"
)

// Challenge defaults.
const (
	DefaultBadgeName    = "성취왕"
	DefaultRewardPoints = 500
	DefaultStreakTarget = 7
)

// ChallengeStatus marks whether a challenge is open.
type ChallengeStatus string

const (
	ChallengeActive  ChallengeStatus = "active"
	ChallengePending ChallengeStatus = "pending"
)

// VerificationMethod is the kind of proof a challenge expects.
type VerificationMethod string

const (
	VerifyPhoto VerificationMethod = "photo"
	VerifyVideo VerificationMethod = "video"
	VerifyFile  VerificationMethod = "file"
)

// ChallengeItem is a multi-day habit challenge.
type ChallengeItem struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenant_id"`
	Title              string             `json:"title"`
	Status             ChallengeStatus    `json:"status"`
	ParticipantCount   int                `json:"participant_count"`
	Description        string             `json:"description,omitempty"`
	DurationLabel      string             `json:"duration_label,omitempty"`
	TargetGrade        string             `json:"target_grade,omitempty"`
	VerificationMethod VerificationMethod `json:"verification_method"`
	AIWeight           int                `json:"ai_weight"`
	BadgeName          string             `json:"badge_name"`
	RewardPoints       int                `json:"reward_points"`
	CreatedAt          time.Time          `json:"created_at"`
}

var durationDays = map[string]int{
	"1주일":     7,
	"1주":      7,
	"1 week":  7,
	"2주일":     14,
	"2주":      14,
	"2 weeks": 14,
	"한달":      30,
	"1개월":     30,
	"1 month": 30,
}

// StreakTarget resolves the number of certifications needed to complete the challenge.
func (c ChallengeItem) StreakTarget() int {
	return StreakTargetFor(c.DurationLabel)
}

// StreakTargetFor maps a free-text duration label to a day count, defaulting to a week.
func StreakTargetFor(label string) int {
	if days, ok := durationDays[strings.ToLower(strings.TrimSpace(label))]; ok {
		return days
	}
	return DefaultStreakTarget
}

// Badge returns the configured badge name or the default one.
func (c ChallengeItem) Badge() string {
	if strings.TrimSpace(c.BadgeName) == "" {
		return DefaultBadgeName
	}
	return c.BadgeName
}
