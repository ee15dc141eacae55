package test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"rivulet/internal/db"
)

// MockTaskEnqueuer is a mock implementation of tasks.TaskEnqueuer for testing.
type MockTaskEnqueuer struct {
	EnqueuedTasks []*asynq.Task
	// EnqueueErrs are consumed one per Enqueue call, in order, before
	// EnqueueErr applies. A nil entry means that call succeeds.
	EnqueueErrs []error
	// EnqueueErr, when set, is returned for every Enqueue call. Set it to
	// asynq.ErrTaskIDConflict to simulate a feed already in flight.
	EnqueueErr error
}

func (m *MockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if len(m.EnqueueErrs) > 0 {
		err := m.EnqueueErrs[0]
		m.EnqueueErrs = m.EnqueueErrs[1:]
		if err != nil {
			return nil, err
		}
	} else if m.EnqueueErr != nil {
		return nil, m.EnqueueErr
	}
	m.EnqueuedTasks = append(m.EnqueuedTasks, task)
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "default"}, nil
}

// MockTaskInspector is a mock implementation of tasks.TaskInspector. Tasks
// absent from Infos report asynq.ErrTaskNotFound, matching a queue that has
// already cleaned them up.
type MockTaskInspector struct {
	Infos   map[string]*asynq.TaskInfo
	Deleted []string
}

func (m *MockTaskInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	if info, ok := m.Infos[id]; ok {
		return info, nil
	}
	return nil, asynq.ErrTaskNotFound
}

func (m *MockTaskInspector) DeleteTask(queue, id string) error {
	if _, ok := m.Infos[id]; !ok {
		return asynq.ErrTaskNotFound
	}
	delete(m.Infos, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

// NewMockDB swaps the global connection for a sqlmock and restores it when
// the test finishes.
func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	sqlxDB := sqlx.NewDb(mockDb, "sqlmock")

	originalDB := db.DB
	db.DB = sqlxDB
	t.Cleanup(func() {
		db.DB = originalDB
		mockDb.Close()
	})

	return sqlxDB, mock
}
