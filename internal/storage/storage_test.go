package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixpoint-ai/fixpoint/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "fixpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestSessionRoundTrip verifies a session summary and its attempts survive a
// store round trip.
func TestSessionRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	attempt := &types.RepairAttempt{
		AttemptNumber: 1,
		Verification: &types.VerificationResult{
			Success:    false,
			ExitStatus: 1,
			RawOutput:  "FAILED test_app.py::test_status",
		},
		Classification: types.ErrorClassification{
			Category:       types.CategoryAssertion,
			MessageExcerpt: "AssertionError: assert 500 == 200",
		},
		SearchContext:   "similar issue on a forum",
		FixDescriptor:   "change status code",
		MutationOutcome: types.OutcomeRolledBack,
		Timestamp:       time.Now(),
	}
	require.NoError(t, store.RecordAttempt(ctx, "session-1", attempt))

	result := &types.RepairResult{
		SessionID:    "session-1",
		Status:       types.RepairExhausted,
		AttemptCount: 1,
		FinalOutput:  "FAILED test_app.py::test_status",
	}
	require.NoError(t, store.RecordSession(ctx, "app.py", result))

	sessions, err := store.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "session-1", sessions[0].ID)
	assert.Equal(t, "app.py", sessions[0].Target)
	assert.Equal(t, types.RepairExhausted, sessions[0].Status)
	assert.Equal(t, 1, sessions[0].AttemptCount)

	attempts, err := store.GetAttempts(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	got := attempts[0]
	assert.Equal(t, 1, got.AttemptNumber)
	assert.Equal(t, types.CategoryAssertion, got.Classification.Category)
	assert.Equal(t, "AssertionError: assert 500 == 200", got.Classification.MessageExcerpt)
	assert.Equal(t, types.OutcomeRolledBack, got.MutationOutcome)
	require.NotNil(t, got.Verification)
	assert.False(t, got.Verification.Success)
	assert.Equal(t, 1, got.Verification.ExitStatus)
}

// TestDuplicateAttemptRejected verifies the append-only invariant: one record
// per (session, attempt number).
func TestDuplicateAttemptRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	attempt := &types.RepairAttempt{AttemptNumber: 1, Timestamp: time.Now()}
	require.NoError(t, store.RecordAttempt(ctx, "session-1", attempt))
	assert.Error(t, store.RecordAttempt(ctx, "session-1", attempt))
	// The same attempt number under a different session is fine.
	assert.NoError(t, store.RecordAttempt(ctx, "session-2", attempt))
}

// TestRecordAttemptNil verifies nil inputs are rejected.
func TestRecordAttemptNil(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.RecordAttempt(context.Background(), "s", nil))
	assert.Error(t, store.RecordSession(context.Background(), "t", nil))
}

// TestListSessionsOrder verifies newest-first ordering and the limit.
func TestListSessionsOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordSession(ctx, "app.py", &types.RepairResult{
			SessionID: id, Status: types.RepairSucceeded,
		}))
		time.Sleep(10 * time.Millisecond)
	}

	sessions, err := store.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "c", sessions[0].ID)
	assert.Equal(t, "b", sessions[1].ID)
}

// TestUsageSummary verifies agent usage rows aggregate correctly.
func TestUsageSummary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordAgentUsage(ctx, "security_scanner", "scan",
		1000, 500, 0.0105, 2*time.Second, "ok"))
	require.NoError(t, store.RecordAgentUsage(ctx, "debugger", "generate-fix",
		2000, 1500, 0.0285, 4*time.Second, "ok"))

	totals, err := store.UsageSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Calls)
	assert.Equal(t, int64(3000), totals.InputTokens)
	assert.Equal(t, int64(2000), totals.OutputTokens)
	assert.InDelta(t, 0.039, totals.CostUSD, 1e-9)
}

// TestOpenCreatesDirectory verifies the database directory is created on
// demand.
func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "fixpoint.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	totals, err := store.UsageSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Calls)
}
