package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Novip1906/tasks-api/internal/models"
)

// TasksService is the resource the routes below expose.
type TasksService interface {
	List(ctx context.Context) ([]*models.Task, error)
	Create(ctx context.Context, fields models.TaskFields) (*models.Task, error)
	Retrieve(ctx context.Context, id int64) (*models.Task, error)
	Update(ctx context.Context, id int64, fields models.TaskFields, partial bool) (*models.Task, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

type Options struct {
	// RequestTimeout bounds each request's context; zero disables it.
	RequestTimeout time.Duration
	// MaxBodyBytes caps request bodies; zero disables it.
	MaxBodyBytes int64
	// Middlewares run before routing, outermost first. They wrap the
	// panic recoverer, so they observe the 500 of a panicking handler.
	Middlewares []func(http.Handler) http.Handler
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
}

type Server struct {
	service TasksService
	opts    Options
	router  chi.Router
}

func NewServer(service TasksService, opts Options) *Server {
	s := &Server{service: service, opts: opts, router: chi.NewRouter()}

	r := s.router
	r.Use(chimw.StripSlashes)
	r.Use(opts.Middlewares...)
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(timeout(opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderDetail(w, notFoundMessage, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderDetail(w, methodNotAllowedMessage(r.Method), http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleRetrieveTask)
			r.Put("/", s.handleUpdateTask(false))
			r.Patch("/", s.handleUpdateTask(true))
			r.Delete("/", s.handleDeleteTask)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
