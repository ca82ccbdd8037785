package models

import "time"

// BadgeItem is an awarded badge. Names are unique per student.
type BadgeItem struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Date      time.Time `json:"date"`
}

// PointHistoryItem is one point transaction.
type PointHistoryItem struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	StudentID   string    `json:"student_id"`
	Description string    `json:"description"`
	Amount      int       `json:"amount"`
	Date        time.Time `json:"date"`
}

// PointReason is a preset teacher award.
type PointReason struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
	Icon  string `json:"icon"`
}

// PointReasons lists the teacher award presets.
var PointReasons = []PointReason{
	{ID: "p1", Label: "Participation", Value: 1, Icon: "Hand"},
	{ID: "p2", Label: "Teamwork", Value: 2, Icon: "Users"},
	{ID: "p3", Label: "Completed Homework", Value: 3, Icon: "BookOpen"},
	{ID: "p4", Label: "Helping Others", Value: 5, Icon: "Heart"},
	{ID: "n1", Label: "Disruption", Value: -1, Icon: "Megaphone"},
	{ID: "n2", Label: "Late", Value: -1, Icon: "Clock"},
	{ID: "n3", Label: "No Homework", Value: -2, Icon: "FileWarning"},
}

// FindPointReason looks up a preset by id.
func FindPointReason(id string) (PointReason, bool) {
	for _, reason := range PointReasons {
		if reason.ID == id {
			return reason, true
		}
	}
	return PointReason{}, false
}

// LeaderboardEntry ranks a student by points.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	StudentID     string `json:"student_id"`
	DisplayName   string `json:"display_name"`
	StudentNumber string `json:"student_number"`
	Points        int    `json:"points"`
}

// SystemMetrics is a lightweight metrics snapshot for administrators.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	ClassifierFallbacks      uint64    `json:"classifier_fallbacks"`
	Submissions              uint64    `json:"submissions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
