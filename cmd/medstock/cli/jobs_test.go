package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/jobs"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestTriggerCleanup(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	c := NewJobsCLIWith(enqueuer, nil, 48*time.Hour)

	var out bytes.Buffer
	code := c.Run(context.Background(), []string{"trigger", jobs.TaskIdempotencyCleanup}, &out)
	require.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "enqueued idempotency:cleanup id=task-1")

	require.Len(t, enqueuer.tasks, 1)
	var payload jobs.IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, 48, payload.RetentionHours)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c := NewJobsCLIWith(&stubEnqueuer{}, nil, time.Hour)
	var out bytes.Buffer
	assert.Equal(t, 1, c.Run(context.Background(), []string{"trigger", "orders:status_changed"}, &out))
	assert.Contains(t, out.String(), "unsupported job")
	assert.Equal(t, 2, c.Run(context.Background(), nil, &out))
	assert.Equal(t, 2, c.Run(context.Background(), []string{"purge"}, &out))
}

func TestStats(t *testing.T) {
	c := NewJobsCLIWith(nil, stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Retry: 1}}, time.Hour)
	var out bytes.Buffer
	require.Equal(t, 0, c.Run(context.Background(), []string{"stats"}, &out))
	assert.Contains(t, out.String(), "pending=3")
	assert.Contains(t, out.String(), "retry=1")

	failing := NewJobsCLIWith(nil, stubInspector{err: errors.New("redis down")}, time.Hour)
	out.Reset()
	assert.Equal(t, 1, failing.Run(context.Background(), []string{"stats"}, &out))
	assert.Contains(t, out.String(), "redis down")
}
