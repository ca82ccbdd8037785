package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed atomic.Int32
	queue := NewQueue("test", func(_ context.Context, job Job[string]) error {
		if job.Payload == "link" {
			processed.Add(1)
		}
		return nil
	}, QueueConfig{Workers: 2})
	queue.Start(context.Background())
	defer queue.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(Job[string]{ID: "job", Payload: "link"}))
	}
	require.Eventually(t, func() bool { return processed.Load() == 5 }, time.Second, 5*time.Millisecond)
}

func TestQueueRetriesFailures(t *testing.T) {
	var attempts atomic.Int32
	queue := NewQueue("retry", func(context.Context, Job[int]) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job[int]{ID: "job", Payload: 1}))
	require.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	queue := NewQueue("fail", func(context.Context, Job[int]) error {
		attempts.Add(1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())

	require.NoError(t, queue.Enqueue(Job[int]{ID: "job"}))
	require.Eventually(t, func() bool { return attempts.Load() == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	queue.Stop()
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	queue := NewQueue("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.Error(t, queue.Enqueue(Job[int]{ID: "job"}))

	queue.Start(context.Background())
	queue.Stop()
	assert.Error(t, queue.Enqueue(Job[int]{ID: "job"}))
}
