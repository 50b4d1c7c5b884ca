package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalRecorderRejectsIncompleteEntries(t *testing.T) {
	ctx := context.Background()
	var nilRecorder *ApprovalRecorder
	require.Error(t, nilRecorder.Record(ctx, ApprovalLog{}))
	_, err := nilRecorder.List(ctx, "orders", uuid.New())
	require.Error(t, err)

	recorder := NewApprovalRecorder(nil, nil)
	valid := ApprovalLog{Module: "orders", RefID: uuid.New(), ActorID: uuid.New(), Action: ApprovalApprove}
	cases := map[string]func(*ApprovalLog){
		"module": func(l *ApprovalLog) { l.Module = "" },
		"actor":  func(l *ApprovalLog) { l.ActorID = uuid.Nil },
		"ref":    func(l *ApprovalLog) { l.RefID = uuid.Nil },
		"action": func(l *ApprovalLog) { l.Action = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			entry := valid
			mutate(&entry)
			err := recorder.Record(ctx, entry)
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestAuditLoggerRequiresEntity(t *testing.T) {
	ctx := context.Background()
	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(ctx, AuditLog{Action: "a", Entity: "e", EntityID: "1"}))

	logger := NewAuditLogger(nil)
	require.Error(t, logger.Record(ctx, AuditLog{Action: "order.status_changed", Entity: "order_request"}))
}

func TestIdempotencyStoreGuards(t *testing.T) {
	ctx := context.Background()
	var nilStore *IdempotencyStore
	require.Error(t, nilStore.CheckAndInsert(ctx, "k", "orders.create"))
	removed, err := nilStore.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
	require.NoError(t, nilStore.Delete(ctx, "k"))

	store := NewIdempotencyStore(nil)
	require.Error(t, store.CheckAndInsert(ctx, "", "orders.create"))
	require.Error(t, store.CheckAndInsert(ctx, "k", ""))
	require.Error(t, store.Delete(ctx, ""))
}
