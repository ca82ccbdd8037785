package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-quest-api/internal/dto"
	"github.com/noah-isme/classroom-quest-api/pkg/jobs"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

type recordingRemover struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func (r *recordingRemover) Remove(link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[link]++
	return r.fail[link]
}

func (r *recordingRemover) count(link string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[link]
}

func TestThumbnailCleanupRemovesInBackground(t *testing.T) {
	remover := &recordingRemover{calls: map[string]int{}, fail: map[string]error{
		"/thumbnails/foreign": fmt.Errorf("%w: not a generated thumbnail", storage.ErrInvalidSignature),
		"/thumbnails/flaky":   errors.New("disk busy"),
	}}
	cleanup := NewThumbnailCleanup(remover, jobs.QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	cleanup.Start(context.Background())
	defer cleanup.Stop()

	require.NoError(t, cleanup.Remove("/thumbnails/a"))
	require.NoError(t, cleanup.Remove("/thumbnails/foreign"))
	require.NoError(t, cleanup.Remove("/thumbnails/flaky"))

	require.Eventually(t, func() bool { return remover.count("/thumbnails/flaky") == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, remover.count("/thumbnails/a"))
	assert.Equal(t, 1, remover.count("/thumbnails/foreign"))
}

func TestLessonDeleteSchedulesThumbnailCleanup(t *testing.T) {
	store := newMemoryRecordStore()
	remover := &recordingRemover{calls: map[string]int{}, fail: map[string]error{}}
	cleanup := NewThumbnailCleanup(remover, jobs.QueueConfig{})
	cleanup.Start(context.Background())
	defer cleanup.Stop()

	svc := NewLessonService(store, &stubClassifier{}, cleanup, nil, nil, nil)
	session := teacherSession("school-a")
	thumb, err := svc.Thumbnail(context.Background(), session, dto.ThumbnailRequest{Topic: "volcano"})
	require.NoError(t, err)
	lesson, err := svc.Create(context.Background(), session, dto.CreateLessonRequest{Title: "Volcanoes", Thumbnail: thumb.Thumbnail})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), session, lesson.ID))
	require.Eventually(t, func() bool { return remover.count(thumb.Thumbnail) == 1 }, time.Second, 5*time.Millisecond)
}
