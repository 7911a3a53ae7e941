package queue_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelospk/vgmdb-go/pkg/core/queue"
)

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard) // Discard logs unless debugging
	return logger
}

// Helper to create a QueueManager for testing
func setupTestQueueManager(t *testing.T) *queue.QueueManager {
	t.Helper()
	qm, err := queue.NewQueueManager(t.TempDir(), quietLogger())
	require.NoError(t, err, "Failed to create QueueManager for testing")
	return qm
}

func addOp(value string) queue.Operation {
	return queue.Operation{Action: queue.ActionAdd, Value: value, Field: "cn"}
}

func TestQueueManager_Initialization(t *testing.T) {
	qm := setupTestQueueManager(t)
	assert.Empty(t, qm.GetQueue(), "Initial queue should be empty")
	assert.Empty(t, qm.GetHistory(), "Initial history should be empty")
	assert.Nil(t, qm.GetNextPendingOperation())
}

func TestQueueManager_Persistence(t *testing.T) {
	dir := t.TempDir()

	qm1, err := queue.NewQueueManager(dir, quietLogger())
	require.NoError(t, err)
	added, err := qm1.AddToQueue(addOp("SSCX-10040"), queue.Operation{Action: queue.ActionRemove, Value: "991"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	qm2, err := queue.NewQueueManager(dir, quietLogger())
	require.NoError(t, err)
	ops := qm2.GetQueue()
	require.Len(t, ops, 2, "Queue should have 2 items after loading")
	assert.Equal(t, "SSCX-10040", ops[0].Value)
	assert.Equal(t, "cn", ops[0].Field)
	assert.Equal(t, queue.ActionRemove, ops[1].Action)
	assert.Equal(t, qm1.GetQueue()[0].ID, ops[0].ID)
}

func TestQueueManager_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collection_queue.json"), []byte("{not json"), 0o644))

	qm, err := queue.NewQueueManager(dir, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, qm.GetQueue())
}

func TestQueueManager_AddToQueue(t *testing.T) {
	qm := setupTestQueueManager(t)

	added, err := qm.AddToQueue(addOp("SSCX-10040"))
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	op := qm.GetQueue()[0]
	assert.Equal(t, queue.StatusPending, op.Status)
	assert.NotEmpty(t, op.ID)
	assert.NotZero(t, op.SubmittedAt)

	// invalid: empty value and unknown action
	added, err = qm.AddToQueue(addOp("  "), queue.Operation{Action: "rename", Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	// duplicate of a queued add, and the same value with another action
	added, err = qm.AddToQueue(addOp(" SSCX-10040 "), queue.Operation{Action: queue.ActionRemove, Value: "SSCX-10040"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// duplicates within one call
	added, err = qm.AddToQueue(addOp("KDSD-10001"), addOp("KDSD-10001"))
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, qm.GetQueue(), 3)
}

func TestQueueManager_NextPendingAndUpdate(t *testing.T) {
	qm := setupTestQueueManager(t)
	_, err := qm.AddToQueue(addOp("A-1"), addOp("A-2"), addOp("A-3"))
	require.NoError(t, err)
	ops := qm.GetQueue()

	next := qm.GetNextPendingOperation()
	require.NotNil(t, next)
	assert.Equal(t, "A-1", next.Value)

	require.NoError(t, qm.UpdateStatus(ops[0].ID, queue.StatusRunning, "sending"))
	updated := qm.GetQueue()[0]
	assert.Equal(t, queue.StatusRunning, updated.Status)
	assert.Equal(t, 1, updated.Attempts)
	assert.True(t, updated.CompletedAt.IsZero(), "CompletedAt should not be set yet")

	require.NoError(t, qm.UpdateStatus(ops[0].ID, queue.StatusComplete, "Done"))
	assert.False(t, qm.GetQueue()[0].CompletedAt.IsZero(), "CompletedAt should be set")
	assert.Equal(t, 2, qm.PendingCount())

	next = qm.GetNextPendingOperation()
	require.NotNil(t, next)
	assert.Equal(t, "A-2", next.Value)

	require.NoError(t, qm.UpdateStatus(ops[1].ID, queue.StatusFailed, "status 503"))
	require.NoError(t, qm.UpdateStatus(ops[2].ID, queue.StatusFailed, "status 503"))
	assert.Nil(t, qm.GetNextPendingOperation(), "Should be no pending operations left")

	n, err := qm.ResetFailed()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, qm.PendingCount())
	assert.Empty(t, qm.GetQueue()[1].Message)

	err = qm.UpdateStatus("missing", queue.StatusFailed, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no operation with id")
}

func TestQueueManager_MoveToHistory(t *testing.T) {
	qm := setupTestQueueManager(t)
	_, err := qm.AddToQueue(addOp("A-1"), addOp("A-2"))
	require.NoError(t, err)
	ops := qm.GetQueue()

	require.NoError(t, qm.MoveToHistory(ops[0].ID))
	assert.Len(t, qm.GetQueue(), 1, "Queue should have 1 item left")
	assert.Equal(t, "A-2", qm.GetQueue()[0].Value)
	require.Len(t, qm.GetHistory(), 1)

	require.NoError(t, qm.MoveToHistory(ops[1].ID))
	assert.Empty(t, qm.GetQueue())
	history := qm.GetHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "A-2", history[0].Value) // Prepended
	assert.Equal(t, "A-1", history[1].Value)

	assert.Error(t, qm.MoveToHistory("missing"))

	// a value moved to history can be queued again
	added, err := qm.AddToQueue(addOp("A-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestQueueManager_ClearAndRemove(t *testing.T) {
	qm := setupTestQueueManager(t)
	_, err := qm.AddToQueue(addOp("A-1"), addOp("A-2"), addOp("A-3"))
	require.NoError(t, err)
	ops := qm.GetQueue()

	require.NoError(t, qm.RemoveFromQueue(ops[1].ID))
	remaining := qm.GetQueue()
	require.Len(t, remaining, 2)
	assert.Equal(t, "A-1", remaining[0].Value)
	assert.Equal(t, "A-3", remaining[1].Value)
	assert.Error(t, qm.RemoveFromQueue(ops[1].ID))

	require.NoError(t, qm.MoveToHistory(ops[0].ID))
	require.NoError(t, qm.ClearQueue())
	assert.Empty(t, qm.GetQueue())
	assert.Len(t, qm.GetHistory(), 1, "History should remain")

	require.NoError(t, qm.ClearHistory())
	assert.Empty(t, qm.GetHistory())
}

// TestQueueManager_Concurrency tests basic concurrent access.
func TestQueueManager_Concurrency(t *testing.T) {
	qm := setupTestQueueManager(t)

	var wg sync.WaitGroup
	numGoroutines := 20
	numOpsPerRoutine := 10

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(routineID int) {
			defer wg.Done()
			ops := make([]queue.Operation, 0, numOpsPerRoutine)
			for j := 0; j < numOpsPerRoutine; j++ {
				ops = append(ops, addOp(fmt.Sprintf("CAT-%d-%d", routineID, j)))
			}
			_, _ = qm.AddToQueue(ops...)
			_ = qm.GetNextPendingOperation()
			_ = qm.PendingCount()
		}(i)
	}
	wg.Wait()

	assert.Len(t, qm.GetQueue(), numGoroutines*numOpsPerRoutine, "All unique operations should be added")

	for op := qm.GetNextPendingOperation(); op != nil; op = qm.GetNextPendingOperation() {
		require.NoError(t, qm.UpdateStatus(op.ID, queue.StatusComplete, "Done"))
		require.NoError(t, qm.MoveToHistory(op.ID))
	}
	assert.Empty(t, qm.GetQueue())
	assert.Len(t, qm.GetHistory(), numGoroutines*numOpsPerRoutine)
}

func TestQueueManager_ConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	qm, err := queue.NewQueueManager(dir, quietLogger())
	require.NoError(t, err)

	var ops []queue.Operation
	for i := 0; i < 20; i++ {
		ops = append(ops, addOp(fmt.Sprintf("CAT-%d", i)))
	}
	_, err = qm.AddToQueue(ops...)
	require.NoError(t, err)
	queued := qm.GetQueue()

	var wg sync.WaitGroup
	errs := make(chan error, 3*len(queued))
	for _, op := range queued {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- qm.MoveToHistory(id)
			errs <- qm.SaveQueueState()
			errs <- qm.SaveHistory()
		}(op.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files should be renamed or removed")

	reloaded, err := queue.NewQueueManager(dir, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, reloaded.GetQueue())
	assert.Len(t, reloaded.GetHistory(), len(queued))
}
