package models

import "time"

// Task is the stored record and its transport representation.
// ID and CreatedAt are assigned by storage and never change.
type Task struct {
	Id          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TaskFields holds the client-writable fields of a Task. A nil field
// was not submitted.
type TaskFields struct {
	Title       *string
	Description *string
	Completed   *bool
}

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
)

// Validate checks that the fields required for a create or a full
// update are present. Partial updates accept any subset.
func (f TaskFields) Validate(partial bool) error {
	if partial {
		return nil
	}
	if f.Title == nil {
		verr := NewValidationError()
		verr.Add(FieldTitle, MsgRequired)
		return verr
	}
	return nil
}

// Empty reports whether no field was submitted.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Completed == nil
}

// NewTask builds an unsaved Task from f, defaulting fields that were
// not submitted.
func (f TaskFields) NewTask() *Task {
	task := &Task{}
	f.Apply(task)
	return task
}

// Apply copies the submitted fields onto t.
func (f TaskFields) Apply(t *Task) {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Completed != nil {
		t.Completed = *f.Completed
	}
}
