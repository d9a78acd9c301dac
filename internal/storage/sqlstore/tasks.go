package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/storage"
)

var _ storage.TasksStorage = (*TasksStore)(nil)

type TasksStore struct {
	db      *sqlx.DB
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

func NewTasksStore(db *sqlx.DB) *TasksStore {
	var format squirrel.PlaceholderFormat = squirrel.Question
	if db.DriverName() == DriverPostgres {
		format = squirrel.Dollar
	}
	return &TasksStore{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(format),
		now:     now,
	}
}

// now keeps microsecond precision, the finest both postgres and the
// sqlite timestamp text round-trip.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *TasksStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.CreatedAt = s.now()

	query, args, err := s.db.BindNamed(taskInsert, task)
	if err != nil {
		return err
	}
	return s.db.QueryRowxContext(ctx, query, args...).Scan(&task.Id)
}

func (s *TasksStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	return getTask(ctx, s.db, id)
}

func (s *TasksStore) ListTasks(ctx context.Context) ([]*models.Task, error) {
	query, args, err := s.listQuery()
	if err != nil {
		return nil, err
	}

	dst := []*models.Task{}
	if err := s.db.SelectContext(ctx, &dst, query, args...); err != nil {
		return nil, err
	}
	for _, task := range dst {
		task.CreatedAt = task.CreatedAt.UTC()
	}
	return dst, nil
}

func (s *TasksStore) UpdateTask(ctx context.Context, id int64, fields models.TaskFields) (*models.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint

	if !fields.Empty() {
		query, args, err := s.updateQuery(id, fields)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, storage.ErrTaskNotFound
		}
	}

	task, err := getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TasksStore) listQuery() (string, []interface{}, error) {
	return s.builder.
		Select(taskColumns...).
		From("tasks").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
}

// updateQuery sets only the submitted columns.
func (s *TasksStore) updateQuery(id int64, fields models.TaskFields) (string, []interface{}, error) {
	stmt := s.builder.Update("tasks")
	if fields.Title != nil {
		stmt = stmt.Set("title", *fields.Title)
	}
	if fields.Description != nil {
		stmt = stmt.Set("description", *fields.Description)
	}
	if fields.Completed != nil {
		stmt = stmt.Set("completed", *fields.Completed)
	}
	return stmt.Where(squirrel.Eq{"id": id}).ToSql()
}

func (s *TasksStore) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(taskDelete), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

func (s *TasksStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func getTask(ctx context.Context, q queryer, id int64) (*models.Task, error) {
	dst := new(models.Task)
	err := q.GetContext(ctx, dst, q.Rebind(taskFindByID), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	dst.CreatedAt = dst.CreatedAt.UTC()
	return dst, nil
}

var taskColumns = []string{
	"id",
	"title",
	"description",
	"completed",
	"created_at",
}

const taskFindByID = `
SELECT
 id
,title
,description
,completed
,created_at
FROM tasks
WHERE id = ?
`

const taskInsert = `
INSERT INTO tasks (
 title
,description
,completed
,created_at
) values (
 :title
,:description
,:completed
,:created_at
) RETURNING id
`

const taskDelete = `
DELETE FROM tasks
WHERE id = ?
`
