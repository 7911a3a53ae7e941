// Package queue persists collection operations that could not be sent to
// VGMdb so they can be replayed later.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Default filenames for persistence
const (
	defaultQueueFile   = "collection_queue.json"
	defaultHistoryFile = "collection_history.json"
)

// Action is the kind of collection change an Operation performs.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// Status defines the possible states of an Operation.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
	StatusSkipped  Status = "Skipped"
)

// Operation is one deferred collection change. For ActionAdd, Value is a
// catalog number or album id (see Field); for ActionRemove it is the
// collection ref of the entry.
type Operation struct {
	ID          string    `json:"id"`
	Action      Action    `json:"action"`
	Value       string    `json:"value"`
	Field       string    `json:"field,omitempty"` // "cn" or "id", add only
	Folder      string    `json:"folder,omitempty"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Attempts    int       `json:"attempts"`
	SubmittedAt time.Time `json:"submittedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

func (op Operation) key() string {
	return string(op.Action) + "\x00" + strings.TrimSpace(op.Value)
}

// QueueManager manages the pending operation queue and its history.
type QueueManager struct {
	queue     []Operation
	history   []Operation
	queueLock sync.RWMutex
	histLock  sync.RWMutex

	queueFilePath   string
	historyFilePath string
	logger          *log.Logger
}

// NewQueueManager creates a QueueManager storing its files in configDir and
// loads any state left by a previous run.
func NewQueueManager(configDir string, logger *log.Logger) (*QueueManager, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	qm := &QueueManager{
		queue:           []Operation{},
		history:         []Operation{},
		queueFilePath:   filepath.Join(configDir, defaultQueueFile),
		historyFilePath: filepath.Join(configDir, defaultHistoryFile),
		logger:          logger,
	}

	// Load errors are logged; a broken file must not block collection updates.
	if err := qm.LoadQueueState(); err != nil {
		qm.logger.Warnf("Failed to load queue state from %s: %v. Starting with empty queue.", qm.queueFilePath, err)
	}
	if err := qm.LoadHistory(); err != nil {
		qm.logger.Warnf("Failed to load history from %s: %v. Starting with empty history.", qm.historyFilePath, err)
	}

	qm.logger.Debugf("QueueManager initialized. Queue: %d items, History: %d items.", len(qm.queue), len(qm.history))
	return qm, nil
}

// --- Persistence --- //

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func readJSON(path string) ([]Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Operation{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return []Operation{}, nil
	}
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return ops, nil
}

// SaveQueueState saves the current queue to its JSON file.
func (qm *QueueManager) SaveQueueState() error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()
	return qm.saveQueueLocked()
}

func (qm *QueueManager) saveQueueLocked() error {
	if err := writeJSON(qm.queueFilePath, qm.queue); err != nil {
		qm.logger.Errorf("Error saving queue: %v", err)
		return err
	}
	return nil
}

// LoadQueueState loads the queue from its JSON file.
func (qm *QueueManager) LoadQueueState() error {
	ops, err := readJSON(qm.queueFilePath)
	if err != nil {
		return err
	}
	qm.queueLock.Lock()
	qm.queue = ops
	qm.queueLock.Unlock()
	return nil
}

// SaveHistory saves the current history to its JSON file.
func (qm *QueueManager) SaveHistory() error {
	qm.histLock.Lock()
	defer qm.histLock.Unlock()
	return qm.saveHistoryLocked()
}

func (qm *QueueManager) saveHistoryLocked() error {
	if err := writeJSON(qm.historyFilePath, qm.history); err != nil {
		qm.logger.Errorf("Error saving history: %v", err)
		return err
	}
	return nil
}

// LoadHistory loads the history from its JSON file.
func (qm *QueueManager) LoadHistory() error {
	ops, err := readJSON(qm.historyFilePath)
	if err != nil {
		return err
	}
	qm.histLock.Lock()
	qm.history = ops
	qm.histLock.Unlock()
	return nil
}

// --- Queue Operations --- //

// AddToQueue appends operations that are not already queued, assigning ids
// and resetting them to pending. It returns how many were added.
func (qm *QueueManager) AddToQueue(ops ...Operation) (int, error) {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	seen := make(map[string]struct{}, len(qm.queue))
	for _, existing := range qm.queue {
		seen[existing.key()] = struct{}{}
	}

	added := 0
	for _, op := range ops {
		if strings.TrimSpace(op.Value) == "" || (op.Action != ActionAdd && op.Action != ActionRemove) {
			qm.logger.Warnf("Skipping invalid queue operation: action=%q value=%q", op.Action, op.Value)
			continue
		}
		if _, dup := seen[op.key()]; dup {
			qm.logger.Debugf("Skipping duplicate %s of %s", op.Action, op.Value)
			continue
		}
		seen[op.key()] = struct{}{}

		newOp := op
		newOp.ID = uuid.NewString()
		newOp.Value = strings.TrimSpace(op.Value)
		newOp.Status = StatusPending
		newOp.Message = ""
		newOp.SubmittedAt = time.Now()
		newOp.CompletedAt = time.Time{}
		qm.queue = append(qm.queue, newOp)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	qm.logger.Infof("Queued %d collection operation(s).", added)
	return added, qm.saveQueueLocked()
}

// GetQueue returns a copy of the current queue.
func (qm *QueueManager) GetQueue() []Operation {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()
	out := make([]Operation, len(qm.queue))
	copy(out, qm.queue)
	return out
}

// GetHistory returns a copy of the history, most recent first.
func (qm *QueueManager) GetHistory() []Operation {
	qm.histLock.RLock()
	defer qm.histLock.RUnlock()
	out := make([]Operation, len(qm.history))
	copy(out, qm.history)
	return out
}

// PendingCount returns the number of pending operations.
func (qm *QueueManager) PendingCount() int {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()
	n := 0
	for _, op := range qm.queue {
		if op.Status == StatusPending {
			n++
		}
	}
	return n
}

// GetNextPendingOperation returns a copy of the first pending operation, or
// nil when there is none.
func (qm *QueueManager) GetNextPendingOperation() *Operation {
	qm.queueLock.RLock()
	defer qm.queueLock.RUnlock()
	for _, op := range qm.queue {
		if op.Status == StatusPending {
			opCopy := op
			return &opCopy
		}
	}
	return nil
}

func (qm *QueueManager) indexOf(id string) int {
	for i, op := range qm.queue {
		if op.ID == id {
			return i
		}
	}
	return -1
}

// UpdateStatus sets the status and message of the operation with the given id
// and saves the queue.
func (qm *QueueManager) UpdateStatus(id string, status Status, message string) error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()

	i := qm.indexOf(id)
	if i < 0 {
		return fmt.Errorf("queue: no operation with id %s", id)
	}
	qm.queue[i].Status = status
	qm.queue[i].Message = message
	switch status {
	case StatusRunning:
		qm.queue[i].Attempts++
	case StatusComplete, StatusFailed, StatusSkipped:
		qm.queue[i].CompletedAt = time.Now()
	}
	qm.logger.Debugf("Operation %s (%s %s) is now %s %s", id, qm.queue[i].Action, qm.queue[i].Value, status, message)
	return qm.saveQueueLocked()
}

// MoveToHistory removes the operation from the queue and prepends it to the
// history. Both files are saved.
func (qm *QueueManager) MoveToHistory(id string) error {
	qm.queueLock.Lock()
	i := qm.indexOf(id)
	if i < 0 {
		qm.queueLock.Unlock()
		return fmt.Errorf("queue: no operation with id %s", id)
	}
	op := qm.queue[i]
	qm.queue = append(qm.queue[:i], qm.queue[i+1:]...)
	saveErr := qm.saveQueueLocked()
	qm.queueLock.Unlock()

	qm.histLock.Lock()
	qm.history = append([]Operation{op}, qm.history...)
	histErr := qm.saveHistoryLocked()
	qm.histLock.Unlock()

	if histErr != nil {
		if saveErr != nil {
			return fmt.Errorf("queue save failed: %w; history save failed: %w", saveErr, histErr)
		}
		return fmt.Errorf("history save failed: %w", histErr)
	}
	return saveErr
}

// ResetFailed puts failed operations, and running ones left behind by an
// interrupted run, back to pending.
func (qm *QueueManager) ResetFailed() (int, error) {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()
	n := 0
	for i := range qm.queue {
		if qm.queue[i].Status == StatusFailed || qm.queue[i].Status == StatusRunning {
			qm.queue[i].Status = StatusPending
			qm.queue[i].Message = ""
			qm.queue[i].CompletedAt = time.Time{}
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, qm.saveQueueLocked()
}

// ClearQueue removes all operations from the queue and saves the state.
func (qm *QueueManager) ClearQueue() error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()
	if len(qm.queue) == 0 {
		return nil
	}
	qm.queue = []Operation{}
	qm.logger.Info("Cleared all operations from the queue.")
	return qm.saveQueueLocked()
}

// ClearHistory removes all operations from the history and saves the state.
func (qm *QueueManager) ClearHistory() error {
	qm.histLock.Lock()
	if len(qm.history) == 0 {
		qm.histLock.Unlock()
		return nil
	}
	qm.history = []Operation{}
	qm.logger.Info("Cleared the queue history.")
	err := qm.saveHistoryLocked()
	qm.histLock.Unlock()
	return err
}

// RemoveFromQueue drops the operation with the given id and saves the state.
func (qm *QueueManager) RemoveFromQueue(id string) error {
	qm.queueLock.Lock()
	defer qm.queueLock.Unlock()
	i := qm.indexOf(id)
	if i < 0 {
		return fmt.Errorf("queue: no operation with id %s", id)
	}
	qm.logger.Infof("Removed %s of %s from the queue", qm.queue[i].Action, qm.queue[i].Value)
	qm.queue = append(qm.queue[:i], qm.queue[i+1:]...)
	return qm.saveQueueLocked()
}
