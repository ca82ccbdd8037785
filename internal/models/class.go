package models

import "time"

// RegisteredClass is a teacher created class students join with a code.
type RegisteredClass struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	JoinCode  string    `json:"join_code"`
	TeacherID string    `json:"teacher_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClassMembership records a student joining a class. The newest entry wins.
type ClassMembership struct {
	TenantID  string    `json:"tenant_id"`
	StudentID string    `json:"student_id"`
	JoinCode  string    `json:"join_code"`
	ClassName string    `json:"class_name"`
	JoinedAt  time.Time `json:"joined_at"`
}
