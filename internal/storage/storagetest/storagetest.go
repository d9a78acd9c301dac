// Package storagetest holds the behaviour every storage.TasksStorage
// backend must share.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/storage"
)

// Factory returns an empty storage. Cleanup is registered on t.
type Factory func(t *testing.T) storage.TasksStorage

func Run(t *testing.T, newStorage Factory) {
	t.Run("CreateAssignsIdAndTime", func(t *testing.T) { testCreate(t, newStorage(t)) })
	t.Run("GetRoundTrip", func(t *testing.T) { testGet(t, newStorage(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStorage(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testList(t, newStorage(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStorage(t)) })
	t.Run("UpdatePartial", func(t *testing.T) { testUpdate(t, newStorage(t)) })
	t.Run("UpdateNoFields", func(t *testing.T) { testUpdateNoFields(t, newStorage(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStorage(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStorage(t)) })
	t.Run("DeleteMissing", func(t *testing.T) { testDeleteMissing(t, newStorage(t)) })
	t.Run("ConcurrentCreate", func(t *testing.T) { testConcurrentCreate(t, newStorage(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStorage(t).Ping(context.Background())) })
}

func ptr[T any](v T) *T { return &v }

func create(t *testing.T, s storage.TasksStorage, title string) *models.Task {
	t.Helper()
	task := &models.Task{Title: title, Description: title + " description"}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func testCreate(t *testing.T, s storage.TasksStorage) {
	before := time.Now().UTC().Truncate(time.Microsecond)

	first := create(t, s, "Buy milk")
	second := create(t, s, "Walk dog")

	assert.NotZero(t, first.Id)
	assert.NotZero(t, second.Id)
	assert.NotEqual(t, first.Id, second.Id)
	assert.False(t, first.CreatedAt.Before(before), "created_at %s before %s", first.CreatedAt, before)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func testGet(t *testing.T, s storage.TasksStorage) {
	created := &models.Task{Title: "Buy milk", Description: "2 liters", Completed: true}
	require.NoError(t, s.CreateTask(context.Background(), created))

	got, err := s.GetTask(context.Background(), created.Id)
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
}

func testGetMissing(t *testing.T, s storage.TasksStorage) {
	_, err := s.GetTask(context.Background(), 424242)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func testList(t *testing.T, s storage.TasksStorage) {
	const n = 5
	var ids []int64
	for i := 0; i < n; i++ {
		ids = append(ids, create(t, s, "task").Id)
	}

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, n)

	for i := 1; i < len(tasks); i++ {
		prev, cur := tasks[i-1], tasks[i]
		assert.False(t, prev.CreatedAt.Before(cur.CreatedAt), "tasks not ordered by created_at desc")
		if prev.CreatedAt.Equal(cur.CreatedAt) {
			assert.Greater(t, prev.Id, cur.Id, "ties must break on id desc")
		}
	}
	assert.Equal(t, ids[n-1], tasks[0].Id)
	assert.Equal(t, ids[0], tasks[n-1].Id)
}

func testListEmpty(t *testing.T, s storage.TasksStorage) {
	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func testUpdate(t *testing.T, s storage.TasksStorage) {
	created := create(t, s, "Buy milk")

	updated, err := s.UpdateTask(context.Background(), created.Id, models.TaskFields{
		Completed: ptr(true),
	})
	require.NoError(t, err)

	want := *created
	want.Completed = true
	if diff := cmp.Diff(&want, updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}

	got, err := s.GetTask(context.Background(), created.Id)
	require.NoError(t, err)
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("stored mismatch (-want +got):\n%s", diff)
	}
}

func testUpdateNoFields(t *testing.T, s storage.TasksStorage) {
	created := create(t, s, "Buy milk")

	got, err := s.UpdateTask(context.Background(), created.Id, models.TaskFields{})
	require.NoError(t, err)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}
}

func testUpdateMissing(t *testing.T, s storage.TasksStorage) {
	_, err := s.UpdateTask(context.Background(), 424242, models.TaskFields{Title: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	_, err = s.UpdateTask(context.Background(), 424242, models.TaskFields{})
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func testDelete(t *testing.T, s storage.TasksStorage) {
	keep := create(t, s, "keep")
	gone := create(t, s, "gone")

	require.NoError(t, s.DeleteTask(context.Background(), gone.Id))

	_, err := s.GetTask(context.Background(), gone.Id)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.Id, tasks[0].Id)
}

func testDeleteMissing(t *testing.T, s storage.TasksStorage) {
	assert.ErrorIs(t, s.DeleteTask(context.Background(), 424242), storage.ErrTaskNotFound)
}

func testConcurrentCreate(t *testing.T, s storage.TasksStorage) {
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateTask(context.Background(), &models.Task{Title: "parallel"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tasks, err := s.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, n)

	seen := make(map[int64]bool, n)
	for _, task := range tasks {
		assert.False(t, seen[task.Id], "duplicate id %d", task.Id)
		seen[task.Id] = true
	}
}
