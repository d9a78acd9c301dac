package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Novip1906/tasks-api/internal/contextkeys"
	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/serializer"
	"github.com/Novip1906/tasks-api/internal/service"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

const notFoundMessage = service.ErrTaskNotFoundMessage

func methodNotAllowedMessage(method string) string {
	return fmt.Sprintf("Method %q not allowed.", method)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		contextkeys.GetLogger(r.Context()).Error("health check failed", logging.Err(err))
		renderJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	renderJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.service.List(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	renderJSON(w, tasks, http.StatusOK)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	fields, err := s.decodeFields(w, r)
	if err != nil {
		s.renderError(w, err)
		return
	}

	task, err := s.service.Create(r.Context(), fields)
	if err != nil {
		s.renderError(w, err)
		return
	}
	renderJSON(w, task, http.StatusCreated)
}

func (s *Server) handleRetrieveTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		renderDetail(w, notFoundMessage, http.StatusNotFound)
		return
	}

	task, err := s.service.Retrieve(r.Context(), id)
	if err != nil {
		s.renderError(w, err)
		return
	}
	renderJSON(w, task, http.StatusOK)
}

func (s *Server) handleUpdateTask(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := taskID(r)
		if !ok {
			renderDetail(w, notFoundMessage, http.StatusNotFound)
			return
		}

		fields, err := s.decodeFields(w, r)
		if err != nil {
			s.renderError(w, err)
			return
		}

		task, err := s.service.Update(r.Context(), id, fields, partial)
		if err != nil {
			s.renderError(w, err)
			return
		}
		renderJSON(w, task, http.StatusOK)
	}
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		renderDetail(w, notFoundMessage, http.StatusNotFound)
		return
	}

	if err := s.service.Delete(r.Context(), id); err != nil {
		s.renderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// taskID parses the {id} route parameter. Anything that is not a
// positive integer cannot name a task.
func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) decodeFields(w http.ResponseWriter, r *http.Request) (models.TaskFields, error) {
	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		verr := models.NewValidationError()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			verr.Add(models.NonFieldErrors, fmt.Sprintf("Request body exceeds %d bytes.", maxErr.Limit))
		} else {
			verr.Add(models.NonFieldErrors, "Could not read request body.")
		}
		return models.TaskFields{}, verr
	}
	return serializer.DecodeTaskFields(data)
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		renderJSON(w, verr.Fields, http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		renderDetail(w, notFoundMessage, http.StatusNotFound)
	default:
		renderDetail(w, service.ErrInternalMessage, http.StatusInternalServerError)
	}
}
