package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-quest-api/internal/classifier"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
)

func newMemoryRecordStore() *repository.RecordStore {
	return repository.NewRecordStore(repository.NewMemoryBlobStore())
}

func newLeaderboardCache(t *testing.T, metrics *MetricsService) *LeaderboardCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLeaderboardCache(repository.NewCacheRepository(client, "test", nil), metrics, 0, nil)
}

func teacherSession(tenantID string) *models.Session {
	return &models.Session{ID: "sess-teacher", TenantID: tenantID, PrincipalID: "teacher-1", DisplayName: "Ms. Kim", Role: models.RoleTeacher, Scope: models.ScopeTenant}
}

func schoolAdminSession(tenantID string) *models.Session {
	return &models.Session{ID: "sess-admin", TenantID: tenantID, PrincipalID: "admin-1", DisplayName: "Principal", Role: models.RoleTeacher, Scope: models.ScopeSchoolAdmin}
}

func systemSession(tenantID string) *models.Session {
	return &models.Session{ID: "sess-system", TenantID: tenantID, PrincipalID: "system:root", DisplayName: "root", Role: models.RoleTeacher, Scope: models.ScopeSystem}
}

func studentSession(student models.Principal) *models.Session {
	return &models.Session{ID: "sess-" + student.ID, TenantID: student.TenantID, PrincipalID: student.ID, DisplayName: student.DisplayName, Role: models.RoleStudent, Scope: models.ScopeTenant}
}

func seedStudent(t *testing.T, store *repository.RecordStore, tenantID, name, number string) models.Principal {
	t.Helper()
	student, err := store.RegisterPrincipal(context.Background(), models.Principal{
		TenantID:    tenantID,
		DisplayName: name,
		Role:        models.RoleStudent,
		Student:     &models.StudentProfile{StudentNumber: number},
	})
	require.NoError(t, err)
	return student
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type stubClassifier struct {
	comment  classifier.CommentAnalysis
	image    classifier.ImageVerification
	comments []string
	images   int
	praise   string
}

func (s *stubClassifier) AnalyzeComment(_ context.Context, text string) classifier.CommentAnalysis {
	s.comments = append(s.comments, text)
	return s.comment
}

func (s *stubClassifier) VerifyChallengeImage(_ context.Context, _ []byte, _ string) classifier.ImageVerification {
	s.images++
	return s.image
}

func (s *stubClassifier) GeneratePraise(_ context.Context, name, _ string, _ int) string {
	if s.praise == "" {
		return "Great work, " + name + "!"
	}
	return s.praise
}

func (s *stubClassifier) GenerateClassThumbnail(_ context.Context, tenantID, topic string) string {
	if topic == "" {
		return ""
	}
	return "/api/v1/thumbnails/" + tenantID + "-" + topic
}
