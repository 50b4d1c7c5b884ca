package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/medstock/medstock/internal/jobs"
	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/shared"
	"github.com/medstock/medstock/jobs"
	_ "github.com/medstock/medstock/testing"
)

type fakeAudit struct {
	logs []shared.AuditLog
	err  error
}

func (f *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, log)
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "1", Queue: jobs.QueueDefault, Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakePurger struct {
	retention time.Duration
	removed   int64
	err       error
}

func (f *fakePurger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.retention = olderThan
	return f.removed, f.err
}

func sampleChange() orders.StatusChange {
	return orders.StatusChange{
		OrderID: uuid.New(),
		ActorID: uuid.New(),
		From:    orders.StatusPending,
		To:      orders.StatusApproved,
		Path:    orders.PathFallback,
		At:      time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestClientEnqueuesStatusChange(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	client := jobs.NewClientWith(enqueuer)
	change := sampleChange()

	require.NoError(t, client.StatusChanged(context.Background(), change))
	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, jobs.TaskOrderStatusChanged, enqueuer.tasks[0].Type())

	var payload jobs.OrderStatusChangedPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, change.OrderID, payload.OrderID)
	assert.Equal(t, orders.PathFallback, payload.Path)
	assert.True(t, change.At.Equal(payload.At))

	_, err := client.EnqueueOrderStatusChanged(context.Background(), orders.StatusChange{})
	assert.Error(t, err)
	assert.Len(t, enqueuer.tasks, 1)
}

func TestOrderEventsJobWritesAudit(t *testing.T) {
	audit := &fakeAudit{}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := jobs.NewOrderEventsJob(audit, nil, metrics)
	change := sampleChange()

	task, err := jobs.NewOrderStatusChangedTask(change)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, audit.logs, 1)
	entry := audit.logs[0]
	assert.Equal(t, change.ActorID, entry.ActorID)
	assert.Equal(t, "order_request", entry.Entity)
	assert.Equal(t, change.OrderID.String(), entry.EntityID)
	assert.Equal(t, "approved", entry.Meta["to"])
	assert.Equal(t, "fallback", entry.Meta["path"])

	assert.Equal(t, 1.0, counterValue(t, registry, "medstock_jobs_total"))
}

func TestOrderEventsJobFailures(t *testing.T) {
	job := jobs.NewOrderEventsJob(&fakeAudit{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskOrderStatusChanged, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	failing := jobs.NewOrderEventsJob(&fakeAudit{err: errors.New("db down")}, nil, nil)
	task, err := jobs.NewOrderStatusChangedTask(sampleChange())
	require.NoError(t, err)
	assert.EqualError(t, failing.Handle(context.Background(), task), "db down")

	var unconfigured *jobs.OrderEventsJob
	assert.Error(t, unconfigured.Handle(context.Background(), task))
}

func TestIdempotencyCleanupJob(t *testing.T) {
	purger := &fakePurger{removed: 7}
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := jobs.NewIdempotencyCleanupJob(purger, nil, metrics)

	task, err := jobs.NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, purger.retention)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(jobs.TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 72*time.Hour, purger.retention)

	assert.Equal(t, 14.0, counterValue(t, registry, "medstock_idempotency_keys_purged_total"))

	purger.err = errors.New("timeout")
	assert.Error(t, job.Handle(context.Background(), task))
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", jobs.NewHandler(nil, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queues":[
		{"queue":"default","pending":0,"active":0,"failed":0},
		{"queue":"orders","pending":0,"active":0,"failed":0}
	]}`, rr.Body.String())
}

type stubInspector map[string]*asynq.QueueInfo

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	info, ok := s[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestJobsHealthReportsEachQueue(t *testing.T) {
	inspector := stubInspector{jobs.QueueOrders: {Queue: jobs.QueueOrders, Pending: 4, Active: 1, Failed: 2}}
	r := chi.NewRouter()
	r.Route("/jobs", jobs.NewHandler(inspector, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queues":[
		{"queue":"default","pending":0,"active":0,"failed":0},
		{"queue":"orders","pending":4,"active":1,"failed":2}
	]}`, rr.Body.String())
}

type failingInspector struct{}

func (failingInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return nil, errors.New("redis down")
}

func TestJobsHealthInspectorFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", jobs.NewHandler(failingInspector{}, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := jobs.NewWorker(jobs.WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
