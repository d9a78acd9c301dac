package storage

import (
	"context"
	"sync"

	"github.com/Novip1906/tasks-api/internal/models"
)

var _ TasksStorage = (*TasksStorageSync)(nil)

// TasksStorageSync serializes every call to the wrapped storage. It is
// used for backends that do not tolerate concurrent writers.
type TasksStorageSync struct {
	mu   sync.Mutex
	base TasksStorage
}

func NewTasksStorageSync(base TasksStorage) *TasksStorageSync {
	return &TasksStorageSync{base: base}
}

func (s *TasksStorageSync) CreateTask(ctx context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.CreateTask(ctx, task)
}

func (s *TasksStorageSync) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.GetTask(ctx, id)
}

func (s *TasksStorageSync) ListTasks(ctx context.Context) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.ListTasks(ctx)
}

func (s *TasksStorageSync) UpdateTask(ctx context.Context, id int64, fields models.TaskFields) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.UpdateTask(ctx, id, fields)
}

func (s *TasksStorageSync) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.DeleteTask(ctx, id)
}

func (s *TasksStorageSync) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Ping(ctx)
}
