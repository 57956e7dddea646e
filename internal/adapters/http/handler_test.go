package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/dirg/internal/core/domain"
)

type fakeStatus struct {
	statuses map[string]*domain.ContainerStatus
	err      error
	logs     map[string][]string
	tail     string
}

func (f *fakeStatus) Status(_ context.Context, spec domain.ContainerSpec) (*domain.ContainerStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses[spec.Name], nil
}

type lineStream struct {
	lines []string
}

func (s *lineStream) Next() (domain.LogLine, error) {
	if len(s.lines) == 0 {
		return domain.LogLine{}, io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return domain.LogLine{Text: line}, nil
}

func (s *lineStream) Close() error { return nil }

func (f *fakeStatus) Logs(_ context.Context, spec domain.ContainerSpec, opts domain.LogOptions) (domain.Stream[domain.LogLine], error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tail = opts.Tail
	return &lineStream{lines: f.logs[spec.Name]}, nil
}

func newTestApp(service *fakeStatus) *fiber.App {
	topology := domain.NewTopology()
	for _, name := range []string{"db", "app"} {
		topology.Containers[name] = domain.ContainerSpec{Name: name, Image: name + ":latest"}
	}
	topology.Services["web"] = domain.ServiceSpec{Name: "web", Containers: []domain.ContainerSpec{topology.Containers["db"], topology.Containers["app"]}}
	topology.Services["tools"] = domain.ServiceSpec{Name: "tools", Containers: []domain.ContainerSpec{topology.Containers["app"]}}

	app := fiber.New()
	NewServiceHandler(topology, service).Register(app.Group("/api/v1"))
	return app
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestListServices(t *testing.T) {
	code, body := get(t, newTestApp(&fakeStatus{}), "/api/v1/services")
	require.Equal(t, fiber.StatusOK, code)

	var services []serviceSummary
	require.NoError(t, json.Unmarshal(body, &services))
	assert.Equal(t, []serviceSummary{
		{Name: "tools", Containers: []string{"app"}},
		{Name: "web", Containers: []string{"db", "app"}},
	}, services)
}

func TestGetService(t *testing.T) {
	app := newTestApp(&fakeStatus{})

	code, body := get(t, app, "/api/v1/services/web")
	require.Equal(t, fiber.StatusOK, code)
	var svc domain.ServiceSpec
	require.NoError(t, json.Unmarshal(body, &svc))
	assert.Equal(t, []string{"db", "app"}, svc.ContainerNames())

	code, _ = get(t, app, "/api/v1/services/nope")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestGetServiceStatus(t *testing.T) {
	service := &fakeStatus{statuses: map[string]*domain.ContainerStatus{
		"db": {ID: "abc", Name: "db", Status: "Up 3 days"},
	}}

	code, body := get(t, newTestApp(service), "/api/v1/services/web/status")
	require.Equal(t, fiber.StatusOK, code)

	var rows []containerStatus
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Available)
	assert.Equal(t, "Up 3 days", rows[0].Status.Status)
	assert.False(t, rows[1].Available)
	assert.Nil(t, rows[1].Status)
}

func TestGetServiceStatusWithoutEndpoint(t *testing.T) {
	service := &fakeStatus{err: &domain.EndpointUnresolvedError{Container: "db"}}

	code, body := get(t, newTestApp(service), "/api/v1/services/web/status")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Contains(t, string(body), "DOCKER_HOST not set")
}

func TestGetContainerLogs(t *testing.T) {
	service := &fakeStatus{logs: map[string][]string{"app": {"starting", "ready"}}}
	app := newTestApp(service)

	code, body := get(t, app, "/api/v1/services/web/containers/app/logs")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "starting\nready\n", string(body))
	assert.Equal(t, DefaultTail, service.tail)

	code, _ = get(t, app, "/api/v1/services/web/containers/app/logs?tail=5")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "5", service.tail)
}

func TestGetContainerLogsOutsideService(t *testing.T) {
	code, _ := get(t, newTestApp(&fakeStatus{}), "/api/v1/services/tools/containers/db/logs")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestGetContainerLogsMissingContainer(t *testing.T) {
	service := &fakeStatus{err: &domain.RuntimeError{Op: "logs", Container: "app", NotFound: true, Err: errors.New("No such container: app")}}

	code, _ := get(t, newTestApp(service), "/api/v1/services/web/containers/app/logs")
	assert.Equal(t, fiber.StatusNotFound, code)
}
