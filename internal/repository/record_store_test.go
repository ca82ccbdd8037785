package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-quest-api/internal/models"
)

func newTestRecordStore() *RecordStore {
	store := NewRecordStore(NewMemoryBlobStore())
	store.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return store
}

func student(tenant, name, number string) models.Principal {
	return models.Principal{
		TenantID:     tenant,
		DisplayName:  name,
		PasswordHash: "hash",
		Role:         models.RoleStudent,
		Student:      &models.StudentProfile{StudentNumber: number},
	}
}

func teacher(tenant, name string, admin bool) models.Principal {
	return models.Principal{
		TenantID:        tenant,
		DisplayName:     name,
		PasswordHash:    "hash",
		Role:            models.RoleTeacher,
		IsAdminOverride: admin,
		Teacher:         &models.TeacherProfile{TeacherKind: models.TeacherKindSubject},
	}
}

func TestRecordStoreTenantIsolation(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	_, err := store.AddLesson(ctx, models.LessonItem{TenantID: "A", Title: "Fractions"})
	require.NoError(t, err)

	lessonsB, err := store.ListLessons(ctx, "B", false)
	require.NoError(t, err)
	assert.Empty(t, lessonsB)

	all, err := store.ListLessons(ctx, "B", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].TenantID)
}

func TestRecordStoreListAllTenantsSortedByTenant(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	for _, tenant := range []string{"C", "A", "B"} {
		_, err := store.RegisterPrincipal(ctx, student(tenant, "Kim", "1"))
		require.NoError(t, err)
	}

	all, err := store.ListPrincipals(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{all[0].TenantID, all[1].TenantID, all[2].TenantID})
}

func TestRecordStoreAddPrependsAndRoundTrips(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	first, err := store.AddChallenge(ctx, models.ChallengeItem{TenantID: "A", Title: "Read"})
	require.NoError(t, err)
	second, err := store.AddChallenge(ctx, models.ChallengeItem{TenantID: "A", Title: "Run"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	challenges, err := store.ListChallenges(ctx, "A", false)
	require.NoError(t, err)
	require.Len(t, challenges, 2)
	assert.Equal(t, second, challenges[0])
	assert.Equal(t, first, challenges[1])

	class, err := store.AddClass(ctx, models.RegisteredClass{TenantID: "A", Name: "3-1", Subject: "Math", JoinCode: "AB12C"})
	require.NoError(t, err)
	classes, err := store.ListClasses(ctx, "A", false)
	require.NoError(t, err)
	assert.Equal(t, []models.RegisteredClass{class}, classes)
}

func TestRecordStoreRemoveIsIdempotent(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	lesson, err := store.AddLesson(ctx, models.LessonItem{TenantID: "A", Title: "Plants"})
	require.NoError(t, err)

	require.NoError(t, store.RemoveLesson(ctx, "A", lesson.ID))
	require.NoError(t, store.RemoveLesson(ctx, "A", lesson.ID))
	require.NoError(t, store.RemoveChallenge(ctx, "A", "missing"))
	require.NoError(t, store.RemovePrincipal(ctx, "A", "missing"))

	lessons, err := store.ListLessons(ctx, "A", false)
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestRecordStoreDuplicateRegistration(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	_, err := store.RegisterPrincipal(ctx, student("A", "Kim", "2024001"))
	require.NoError(t, err)

	_, err = store.RegisterPrincipal(ctx, student("A", "Lee", "2024001"))
	assert.ErrorIs(t, err, ErrDuplicatePrincipal)

	_, err = store.RegisterPrincipal(ctx, student("B", "Kim", "2024001"))
	assert.NoError(t, err)

	_, err = store.RegisterPrincipal(ctx, teacher("A", "Park", false))
	require.NoError(t, err)
	_, err = store.RegisterPrincipal(ctx, teacher("A", "Park", false))
	assert.ErrorIs(t, err, ErrDuplicatePrincipal)

	principals, err := store.ListPrincipals(ctx, "A", false)
	require.NoError(t, err)
	assert.Len(t, principals, 2)
}

func TestRecordStoreSingleSchoolAdmin(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	exists, err := store.HasSchoolAdmin(ctx, "A")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.RegisterPrincipal(ctx, teacher("A", "Principal", true))
	require.NoError(t, err)
	_, err = store.RegisterPrincipal(ctx, teacher("A", "Vice", true))
	assert.ErrorIs(t, err, ErrSchoolAdminExists)

	exists, err = store.HasSchoolAdmin(ctx, "A")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRecordStoreBulkRegister(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	_, err := store.RegisterPrincipal(ctx, student("A", "Kim", "1"))
	require.NoError(t, err)

	result, err := store.BulkRegister(ctx, "A", []models.Principal{
		student("", "Lee", "2"),
		student("", "Dup", "1"),
		student("", "Choi", "3"),
		student("", "Dup2", "3"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BulkRegisterResult{SuccessCount: 2, FailCount: 2}, result)
}

func TestRecordStoreFindByCredentials(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	registered, err := store.RegisterPrincipal(ctx, student("A", "Kim", "2024001"))
	require.NoError(t, err)

	found, err := store.FindByCredentials(ctx, "A", models.RoleStudent, "2024001")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, found.ID)

	_, err = store.FindByCredentials(ctx, "A", models.RoleTeacher, "Kim")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = store.FindByCredentials(ctx, "B", models.RoleStudent, "2024001")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStoreAdjustPoints(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	_, err := store.RegisterPrincipal(ctx, student("A", "Kim", "1"))
	require.NoError(t, err)

	updated, err := store.AdjustPoints(ctx, "A", "Kim", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Points())

	updated, err = store.AdjustPoints(ctx, "A", "Kim", -5)
	require.NoError(t, err)
	assert.Equal(t, -2, updated.Points())

	_, err = store.AdjustPoints(ctx, "A", "Nobody", 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStoreUpdateActivityStatus(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	record, err := store.AddActivity(ctx, models.ActivityRecord{TenantID: "A", Title: "Read", Status: models.ActivityVerified})
	require.NoError(t, err)

	updated, err := store.UpdateActivityStatus(ctx, "A", record.ID, models.ActivityTrusted)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityTrusted, updated.Status)

	_, err = store.UpdateActivityStatus(ctx, "A", "missing", models.ActivityTrusted)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStoreUpdateIsAtomic(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()
	_, err := store.RegisterPrincipal(ctx, student("A", "Kim", "1"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Update(ctx, "A", func(tx *RecordTx) error {
		if _, err := tx.AddActivity(models.ActivityRecord{Title: "Read"}); err != nil {
			return err
		}
		if _, err := tx.AdjustPoints("Kim", 10); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	activities, err := store.ListActivities(ctx, "A", false)
	require.NoError(t, err)
	assert.Empty(t, activities)
	principal, err := store.FindByCredentials(ctx, "A", models.RoleStudent, "1")
	require.NoError(t, err)
	assert.Zero(t, principal.Points())
}

func TestRecordTxAwardBadgeOncePerName(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	err := store.Update(ctx, "A", func(tx *RecordTx) error {
		_, added, err := tx.AwardBadge(models.BadgeItem{StudentID: "s1", Name: "성취왕", Icon: "🏅"})
		require.NoError(t, err)
		assert.True(t, added)
		_, added, err = tx.AwardBadge(models.BadgeItem{StudentID: "s1", Name: "성취왕", Icon: "🏅"})
		require.NoError(t, err)
		assert.False(t, added)
		_, added, err = tx.AwardBadge(models.BadgeItem{StudentID: "s2", Name: "성취왕", Icon: "🏅"})
		require.NoError(t, err)
		assert.True(t, added)
		return nil
	})
	require.NoError(t, err)

	badges, err := store.BadgesForStudent(ctx, "A", "s1")
	require.NoError(t, err)
	assert.Len(t, badges, 1)
}

func TestRecordStoreSessions(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()
	now := store.now()

	first := models.Session{ID: "s1", TenantID: "A", PrincipalID: "p1", ExpiresAt: now.Add(time.Hour)}
	second := models.Session{ID: "s2", TenantID: "A", PrincipalID: "p1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.CreateSession(ctx, first, false))
	require.NoError(t, store.CreateSession(ctx, second, true))

	found, err := store.FindSession(ctx, "A", "s1")
	require.NoError(t, err)
	assert.NotNil(t, found.RevokedAt)

	found, err = store.FindSession(ctx, "A", "s2")
	require.NoError(t, err)
	assert.Nil(t, found.RevokedAt)

	require.NoError(t, store.RevokeSession(ctx, "A", "s2"))
	found, err = store.FindSession(ctx, "A", "s2")
	require.NoError(t, err)
	assert.NotNil(t, found.RevokedAt)

	_, err = store.FindSession(ctx, "B", "s2")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStoreMembershipNewestWins(t *testing.T) {
	store := newTestRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, "A", func(tx *RecordTx) error {
		if _, err := tx.AddMembership(models.ClassMembership{StudentID: "s1", JoinCode: "AAAAA", ClassName: "1-1"}); err != nil {
			return err
		}
		_, err := tx.AddMembership(models.ClassMembership{StudentID: "s1", JoinCode: "BBBBB", ClassName: "2-1"})
		return err
	}))

	membership, err := store.CurrentMembership(ctx, "A", "s1")
	require.NoError(t, err)
	assert.Equal(t, "2-1", membership.ClassName)
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	_, err := decodeRecords[models.LessonItem](CollectionLessons, []byte(`{"schema_version":2,"records":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestViewIsReadOnly(t *testing.T) {
	store := newTestRecordStore()
	err := store.View(context.Background(), "A", func(tx *RecordTx) error {
		_, err := tx.AddLesson(models.LessonItem{Title: "x"})
		return err
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}
