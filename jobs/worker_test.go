package jobs_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"github.com/medstock/medstock/jobs"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestTaskErrorLogger(t *testing.T) {
	logger, buf := bufferLogger()
	handle := jobs.TaskErrorLogger(logger)
	task := asynq.NewTask(jobs.TaskOrderStatusChanged, nil)

	handle(context.Background(), task, errors.New("db down"))
	assert.Contains(t, buf.String(), `"msg":"task failed"`)
	assert.Contains(t, buf.String(), `"task":"orders:status_changed"`)

	buf.Reset()
	handle(context.Background(), task, fmt.Errorf("decode: %w", asynq.SkipRetry))
	assert.Contains(t, buf.String(), `"msg":"task dropped"`)
}

func TestAsynqLoggerRoutesThroughSlog(t *testing.T) {
	logger, buf := bufferLogger()
	adapter := jobs.NewAsynqLogger(logger)

	adapter.Info("scheduler ", "started")
	assert.Contains(t, buf.String(), `"msg":"scheduler started"`)
	assert.Contains(t, buf.String(), `"component":"asynq"`)

	buf.Reset()
	adapter.Warn("lease expired")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestDefaultQueuesPrioritiseOrders(t *testing.T) {
	queues := jobs.DefaultQueues()
	assert.Greater(t, queues[jobs.QueueOrders], queues[jobs.QueueDefault])
}
