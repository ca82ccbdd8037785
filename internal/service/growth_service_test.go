package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/internal/models"
	"github.com/noah-isme/classroom-quest-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

func TestGrowthService_AwardPoints(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	student := seedStudent(t, store, "school-a", "Minji", "10101")
	svc := NewGrowthService(store, &stubClassifier{}, nil, nil, nil)

	result, err := svc.AwardPoints(ctx, teacherSession("school-a"), dto.AwardPointsRequest{StudentName: " Minji ", ReasonID: "p4"})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Amount)
	assert.Equal(t, "Helping Others", result.Reason)
	assert.Equal(t, "Great work, Minji!", result.Praise)

	penalty, err := svc.AwardPoints(ctx, teacherSession("school-a"), dto.AwardPointsRequest{StudentName: "Minji", ReasonID: "n3"})
	require.NoError(t, err)
	assert.Equal(t, -2, penalty.Amount)
	assert.Empty(t, penalty.Praise)

	found, err := store.FindPrincipalByID(ctx, "school-a", student.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.Points())

	history, err := store.PointHistoryForStudent(ctx, "school-a", student.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, -2, history[0].Amount)
}

func TestGrowthService_AwardPointsErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	student := seedStudent(t, store, "school-a", "Minji", "10101")
	svc := NewGrowthService(store, nil, nil, nil, nil)

	var appErr *appErrors.Error
	_, err := svc.AwardPoints(ctx, teacherSession("school-a"), dto.AwardPointsRequest{StudentName: "Minji", ReasonID: "zz"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	_, err = svc.AwardPoints(ctx, teacherSession("school-a"), dto.AwardPointsRequest{StudentName: "Nobody", ReasonID: "p1"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	_, err = svc.AwardPoints(ctx, studentSession(student), dto.AwardPointsRequest{StudentName: "Minji", ReasonID: "p1"})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestGrowthService_GrowthRecord(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	minji := seedStudent(t, store, "school-a", "Minji", "10101")
	jisoo := seedStudent(t, store, "school-a", "Jisoo", "10102")
	require.NoError(t, store.Update(ctx, "school-a", func(tx *repository.RecordTx) error {
		if _, err := tx.AddMembership(models.ClassMembership{StudentID: minji.ID, JoinCode: "ABCDE", ClassName: "3-1"}); err != nil {
			return err
		}
		if _, err := tx.AddActivity(models.ActivityRecord{Title: "Fractions", StudentID: minji.ID, Kind: models.ActivityLesson, Status: models.ActivityVerified}); err != nil {
			return err
		}
		if _, err := tx.AddActivity(models.ActivityRecord{Title: "Fractions", StudentID: jisoo.ID, Kind: models.ActivityLesson, Status: models.ActivityVerified}); err != nil {
			return err
		}
		if _, _, err := tx.AwardBadge(models.BadgeItem{StudentID: minji.ID, Name: "성취왕"}); err != nil {
			return err
		}
		_, err := tx.AdjustPointsByID(minji.ID, 42)
		return err
	}))
	svc := NewGrowthService(store, nil, nil, nil, nil)

	record, err := svc.GrowthRecord(ctx, studentSession(minji), "")
	require.NoError(t, err)
	assert.Equal(t, "3-1", record.ClassName)
	assert.Equal(t, 42, record.TotalPoints)
	assert.Len(t, record.Activities, 1)
	assert.Len(t, record.Badges, 1)
	assert.NotNil(t, record.PointHistory)

	_, err = svc.GrowthRecord(ctx, studentSession(minji), jisoo.ID)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	viaTeacher, err := svc.GrowthRecord(ctx, teacherSession("school-a"), jisoo.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jisoo", viaTeacher.Student.DisplayName)
	assert.Empty(t, viaTeacher.Badges)

	_, err = svc.GrowthRecord(ctx, teacherSession("school-b"), jisoo.ID)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGrowthService_LeaderboardRanksTies(t *testing.T) {
	ctx := context.Background()
	store := newMemoryRecordStore()
	for _, seed := range []struct {
		name, number string
		points       int
	}{{"Minji", "1", 30}, {"Dahye", "2", 50}, {"Eunbi", "3", 30}} {
		student := seedStudent(t, store, "school-a", seed.name, seed.number)
		_, err := store.AdjustPoints(ctx, "school-a", student.DisplayName, seed.points)
		require.NoError(t, err)
	}
	seedStudent(t, store, "school-b", "Outsider", "1")
	_, err := store.RegisterPrincipal(ctx, models.Principal{TenantID: "school-a", DisplayName: "Ms. Kim", Role: models.RoleTeacher, Teacher: &models.TeacherProfile{}})
	require.NoError(t, err)

	metrics := NewMetricsService()
	cache := newLeaderboardCache(t, metrics)
	svc := NewGrowthService(store, nil, cache, nil, nil)

	board, hit, err := svc.Leaderboard(ctx, teacherSession("school-a"))
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, board, 3)
	assert.Equal(t, "Dahye", board[0].DisplayName)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "Eunbi", board[1].DisplayName)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, "Minji", board[2].DisplayName)
	assert.Equal(t, 2, board[2].Rank)

	cached, hit, err := svc.Leaderboard(ctx, teacherSession("school-a"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, board, cached)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.001)
}

func TestGrowthService_PointReasons(t *testing.T) {
	svc := NewGrowthService(newMemoryRecordStore(), nil, nil, nil, nil)
	reasons := svc.PointReasons()
	require.Len(t, reasons, 7)
	assert.Equal(t, "p1", reasons[0].ID)
}
