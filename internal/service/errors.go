package service

import "errors"

var ErrNotFound = errors.New("not found")

const (
	ErrInternalMessage     = "Internal server error."
	ErrTaskNotFoundMessage = "Not found."
)
