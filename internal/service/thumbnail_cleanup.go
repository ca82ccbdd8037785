package service

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/pkg/jobs"
	"github.com/noah-isme/classroom-quest-api/pkg/storage"
)

const thumbnailRemoveJob = "thumbnail.remove"

// ThumbnailCleanup deletes generated thumbnails off the request path.
type ThumbnailCleanup struct {
	queue  *jobs.Queue[string]
	logger *zap.Logger
}

// NewThumbnailCleanup wraps remover in a background queue. Call Start before use.
func NewThumbnailCleanup(remover thumbnailRemover, cfg jobs.QueueConfig) *ThumbnailCleanup {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	handler := func(_ context.Context, job jobs.Job[string]) error {
		err := remover.Remove(job.Payload)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrInvalidSignature) {
			cfg.Logger.Debug("thumbnail already gone", zap.String("link", job.Payload), zap.Error(err))
			return nil
		}
		return err
	}
	return &ThumbnailCleanup{
		queue:  jobs.NewQueue("thumbnail-cleanup", handler, cfg),
		logger: cfg.Logger,
	}
}

// Start launches the cleanup workers.
func (c *ThumbnailCleanup) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (c *ThumbnailCleanup) Stop() {
	c.queue.Stop()
}

// Remove schedules deletion of the image behind link.
func (c *ThumbnailCleanup) Remove(link string) error {
	return c.queue.Enqueue(jobs.Job[string]{
		ID:      uuid.NewString(),
		Type:    thumbnailRemoveJob,
		Payload: link,
	})
}
