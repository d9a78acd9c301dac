package ldbstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	ldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/storage"
)

var _ storage.TasksStorage = (*TasksStore)(nil)

const (
	keyPrefix = "task-"
	seqKey    = "seq-task"
)

// TasksStore keeps gob-encoded tasks in LevelDB. Writes that read
// before they write are serialized by mu.
type TasksStore struct {
	mu  sync.Mutex
	db  *leveldb.DB
	now func() time.Time
}

func NewTasksStore(db *leveldb.DB) *TasksStore {
	return &TasksStore{db: db, now: now}
}

// Open opens (or creates) the database directory at path.
func Open(path string) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open leveldb %s: %w", path, err)
	}
	return db, nil
}

// OpenMemory opens a database that is discarded on close.
func OpenMemory() (*leveldb.DB, error) {
	return leveldb.Open(ldbstorage.NewMemStorage(), nil)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func taskKey(id int64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], uint64(id))
	return key
}

func (s *TasksStore) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.nextID()
	if err != nil {
		return err
	}

	stored := *task
	stored.Id = id
	stored.CreatedAt = s.now()

	data, err := encode(&stored)
	if err != nil {
		return err
	}

	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, uint64(id))

	batch := new(leveldb.Batch)
	batch.Put([]byte(seqKey), seq)
	batch.Put(taskKey(id), data)
	if err := s.db.Write(batch, nil); err != nil {
		return err
	}

	*task = stored
	return nil
}

func (s *TasksStore) nextID() (int64, error) {
	data, err := s.db.Get([]byte(seqKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(data)) + 1, nil
}

func (s *TasksStore) GetTask(_ context.Context, id int64) (*models.Task, error) {
	return s.get(id)
}

func (s *TasksStore) get(id int64) (*models.Task, error) {
	data, err := s.db.Get(taskKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, storage.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func (s *TasksStore) ListTasks(_ context.Context) ([]*models.Task, error) {
	tasks := make([]*models.Task, 0)

	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		task, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].Id > tasks[j].Id
	})
	return tasks, nil
}

func (s *TasksStore) UpdateTask(_ context.Context, id int64, fields models.TaskFields) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if fields.Empty() {
		return task, nil
	}

	fields.Apply(task)
	data, err := encode(task)
	if err != nil {
		return nil, err
	}
	if err := s.db.Put(taskKey(id), data, nil); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TasksStore) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.db.Has(taskKey(id), nil)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrTaskNotFound
	}
	return s.db.Delete(taskKey(id), nil)
}

// Ping reads a key to confirm the database is still open.
func (s *TasksStore) Ping(_ context.Context) error {
	_, err := s.db.Has([]byte(seqKey), nil)
	return err
}

func encode(task *models.Task) ([]byte, error) {
	var data bytes.Buffer
	if err := gob.NewEncoder(&data).Encode(task); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

func decode(data []byte) (*models.Task, error) {
	task := new(models.Task)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(task); err != nil {
		return nil, err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	return task, nil
}
