package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Novip1906/tasks-api/internal/models"
	"github.com/Novip1906/tasks-api/internal/service"
	"github.com/Novip1906/tasks-api/internal/storage/ldbstore"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	db, err := ldbstore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewTasksService(ldbstore.NewTasksStore(db), nil)
	ts := httptest.NewServer(NewServer(svc, opts))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeTask(t *testing.T, data []byte) models.Task {
	t.Helper()
	var task models.Task
	require.NoError(t, json.Unmarshal(data, &task), "body=%s", data)
	return task
}

func decodeList(t *testing.T, data []byte) []models.Task {
	t.Helper()
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(data, &tasks), "body=%s", data)
	return tasks
}

func taskURL(base string, id int64) string {
	return base + "/tasks/" + strconv.FormatInt(id, 10) + "/"
}

func TestCreateAndRetrieve(t *testing.T) {
	ts := newTestServer(t, Options{})
	before := time.Now().UTC().Truncate(time.Microsecond)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body=%s", body)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	created := decodeTask(t, body)
	assert.NotZero(t, created.Id)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "", created.Description)
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.Before(before))

	resp, body = doJSON(t, http.MethodGet, taskURL(ts.URL, created.Id), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "body=%s", body)
	got := decodeTask(t, body)
	assert.Equal(t, created.Id, got.Id)
	assert.Equal(t, created.Title, got.Title)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestTransportRepresentation(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, body := doJSON(t, http.MethodPost, ts.URL+"/tasks", `{"title":"Buy milk","description":"2 liters","completed":true}`)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.ElementsMatch(t,
		[]string{"id", "title", "description", "completed", "created_at"},
		keys(raw))

	_, err := time.Parse(time.RFC3339Nano, raw["created_at"].(string))
	assert.NoError(t, err)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestCreateIgnoresReadOnlyFields(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/",
		`{"id":777,"created_at":"2000-01-01T00:00:00Z","title":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body=%s", body)

	created := decodeTask(t, body)
	assert.NotEqual(t, int64(777), created.Id)
	assert.True(t, created.CreatedAt.After(time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"description":"x"}`, `{"title":["This field is required."]}`},
		{"wrong type", `{"title":false,"completed":"maybe"}`, `{"title":["Not a valid string."],"completed":["Must be a valid boolean."]}`},
		{"not an object", `["Buy milk"]`, `{"non_field_errors":["Invalid data. Expected a dictionary, but got list."]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, tt.want, string(body))
		})
	}

	_, body := doJSON(t, http.MethodGet, ts.URL+"/tasks/", "")
	assert.Empty(t, decodeList(t, body))
}

func TestCreateEmptyBody(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"title":["This field is required."]}`, string(body))

	_, body = doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk"}`)
	created := decodeTask(t, body)

	resp, body = doJSON(t, http.MethodPatch, taskURL(ts.URL, created.Id), "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "body=%s", body)
	assert.Equal(t, "Buy milk", decodeTask(t, body).Title)
}

func TestCreateCoercesScalars(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":42,"completed":"yes"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body=%s", body)

	created := decodeTask(t, body)
	assert.Equal(t, "42", created.Title)
	assert.True(t, created.Completed)
}

func TestListNewestFirst(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, body := doJSON(t, http.MethodGet, ts.URL+"/tasks/", "")
	assert.Equal(t, "[]\n", string(body))

	_, body = doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk"}`)
	milk := decodeTask(t, body)
	_, body = doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Walk dog"}`)
	dog := decodeTask(t, body)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/tasks/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tasks := decodeList(t, body)
	require.Len(t, tasks, 2)
	assert.Equal(t, []int64{dog.Id, milk.Id}, []int64{tasks[0].Id, tasks[1].Id})
	assert.Equal(t, "Walk dog", tasks[0].Title)
	assert.Equal(t, "Buy milk", tasks[1].Title)
}

func TestPatchChangesOnlySubmittedFields(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk","description":"2 liters"}`)
	created := decodeTask(t, body)

	resp, body := doJSON(t, http.MethodPatch, taskURL(ts.URL, created.Id), `{"completed":true,"id":5,"created_at":"2000-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body=%s", body)

	updated := decodeTask(t, body)
	assert.Equal(t, created.Id, updated.Id)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, "Buy milk", updated.Title)
	assert.Equal(t, "2 liters", updated.Description)
	assert.True(t, updated.Completed)
}

func TestPutRequiresTitle(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk"}`)
	created := decodeTask(t, body)

	resp, body := doJSON(t, http.MethodPut, taskURL(ts.URL, created.Id), `{"completed":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"title":["This field is required."]}`, string(body))

	resp, body = doJSON(t, http.MethodPut, taskURL(ts.URL, created.Id), `{"title":"Buy oat milk","completed":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body=%s", body)
	updated := decodeTask(t, body)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.True(t, updated.Completed)
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"Buy milk"}`)
	created := decodeTask(t, body)

	resp, body := doJSON(t, http.MethodDelete, taskURL(ts.URL, created.Id), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, body)

	resp, body = doJSON(t, http.MethodGet, taskURL(ts.URL, created.Id), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Not found."}`, string(body))
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/tasks/99/", ""},
		{http.MethodGet, "/tasks/99", ""},
		{http.MethodDelete, "/tasks/99/", ""},
		{http.MethodPatch, "/tasks/99/", `{"title":"x"}`},
		{http.MethodPut, "/tasks/99/", `{"title":"x"}`},
		{http.MethodGet, "/tasks/abc/", ""},
		{http.MethodGet, "/tasks/-1/", ""},
		{http.MethodGet, "/unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.JSONEq(t, `{"detail":"Not found."}`, string(body))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := doJSON(t, http.MethodDelete, ts.URL+"/tasks/", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Method \"DELETE\" not allowed."}`, string(body))

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/tasks/1/", `{"title":"x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMaxBodyBytes(t *testing.T) {
	ts := newTestServer(t, Options{MaxBodyBytes: 16})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/tasks/", `{"title":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"non_field_errors":["Request body exceeds 16 bytes."]}`, string(body))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "body=%s", body)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, Options{Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type brokenService struct{ TasksService }

func (brokenService) List(context.Context) ([]*models.Task, error) {
	return nil, errors.New("ListTasks: connection refused")
}

func (brokenService) Ping(context.Context) error { return errors.New("ping: connection refused") }

func TestInternalErrorsAreHidden(t *testing.T) {
	srv := NewServer(brokenService{}, Options{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error."}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddlewaresRun(t *testing.T) {
	var hits int
	count := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			next.ServeHTTP(w, r)
		})
	}
	ts := newTestServer(t, Options{Middlewares: []func(http.Handler) http.Handler{count}})

	doJSON(t, http.MethodGet, ts.URL+"/tasks/", "")
	doJSON(t, http.MethodGet, ts.URL+"/nowhere", "")
	assert.Equal(t, 2, hits)
}

func TestRequestTimeoutOnContext(t *testing.T) {
	var deadline bool
	srv := NewServer(deadlineService{seen: &deadline}, Options{RequestTimeout: time.Second})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deadline)
}

type deadlineService struct {
	TasksService
	seen *bool
}

func (d deadlineService) List(ctx context.Context) ([]*models.Task, error) {
	_, *d.seen = ctx.Deadline()
	return []*models.Task{}, nil
}

type panickingService struct{ TasksService }

func (panickingService) Retrieve(context.Context, int64) (*models.Task, error) {
	panic("nil task")
}

func TestPanicSeenByMiddlewares(t *testing.T) {
	var status int
	record := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status = ww.Status()
		})
	}
	srv := NewServer(panickingService{}, Options{Middlewares: []func(http.Handler) http.Handler{record}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/1/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, status)
}
