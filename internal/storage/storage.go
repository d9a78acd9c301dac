package storage

import (
	"context"

	"github.com/Novip1906/tasks-api/internal/models"
)

// TasksStorage persists Task records keyed by id.
//
// CreateTask assigns Id and CreatedAt on the passed task. ListTasks
// returns tasks ordered by CreatedAt descending, ties broken by Id
// descending. Missing ids yield ErrTaskNotFound.
type TasksStorage interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	ListTasks(ctx context.Context) ([]*models.Task, error)
	UpdateTask(ctx context.Context, id int64, fields models.TaskFields) (*models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}
