package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
	"github.com/Novip1906/tasks-api/internal/metrics"
	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/storage"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

type TasksService struct {
	db      storage.TasksStorage
	metrics *metrics.Metrics
}

// NewTasksService wires the resource operations to db. m may be nil.
func NewTasksService(db storage.TasksStorage, m *metrics.Metrics) *TasksService {
	return &TasksService{db: db, metrics: m}
}

func (s *TasksService) List(ctx context.Context) ([]*models.Task, error) {
	log := contextkeys.GetLogger(ctx)

	tasks, err := s.db.ListTasks(ctx)
	if err != nil {
		return nil, s.dbError(log, "ListTasks", err)
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

func (s *TasksService) Create(ctx context.Context, fields models.TaskFields) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx)

	if err := fields.Validate(false); err != nil {
		log.Debug("invalid task", logging.Err(err))
		return nil, err
	}

	task := fields.NewTask()
	if err := s.db.CreateTask(ctx, task); err != nil {
		return nil, s.dbError(log, "CreateTask", err)
	}

	log.Info("task created", slog.Int64("task_id", task.Id))
	return task, nil
}

func (s *TasksService) Retrieve(ctx context.Context, id int64) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx).With(slog.Int64("task_id", id))

	task, err := s.db.GetTask(ctx, id)
	if errors.Is(err, storage.ErrTaskNotFound) {
		log.Debug("task not found")
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.dbError(log, "GetTask", err)
	}
	return task, nil
}

// Update applies fields to the task. A full update (partial false)
// requires the same fields as Create; fields that are not submitted
// keep their stored value either way.
func (s *TasksService) Update(ctx context.Context, id int64, fields models.TaskFields, partial bool) (*models.Task, error) {
	log := contextkeys.GetLogger(ctx).With(slog.Int64("task_id", id), slog.Bool("partial", partial))

	if err := fields.Validate(partial); err != nil {
		log.Debug("invalid task", logging.Err(err))
		return nil, err
	}

	task, err := s.db.UpdateTask(ctx, id, fields)
	if errors.Is(err, storage.ErrTaskNotFound) {
		log.Debug("task not found")
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.dbError(log, "UpdateTask", err)
	}

	log.Info("task updated")
	return task, nil
}

func (s *TasksService) Delete(ctx context.Context, id int64) error {
	log := contextkeys.GetLogger(ctx).With(slog.Int64("task_id", id))

	err := s.db.DeleteTask(ctx, id)
	if errors.Is(err, storage.ErrTaskNotFound) {
		log.Debug("task not found")
		return notFound(id)
	}
	if err != nil {
		return s.dbError(log, "DeleteTask", err)
	}

	log.Info("task deleted")
	return nil
}

// Ping reports whether storage is reachable.
func (s *TasksService) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *TasksService) dbError(log *slog.Logger, method string, err error) error {
	log.Error("db error", logging.DbErr(method, err))
	s.metrics.StorageError(method)
	return fmt.Errorf("%s: %w", method, err)
}

func notFound(id int64) error {
	return fmt.Errorf("task %d: %w", id, ErrNotFound)
}
