package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/endpoint"
	"github.com/melih/dirg/internal/core/ports"
)

const defaultHost = "tcp://default:2375"

type sliceStream[T any] struct {
	items  []T
	err    error
	closed *int
}

func (s *sliceStream[T]) Next() (T, error) {
	var zero T
	if len(s.items) == 0 {
		if s.err != nil {
			return zero, s.err
		}
		return zero, io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item, nil
}

func (s *sliceStream[T]) Close() error {
	if s.closed != nil {
		*s.closed++
	}
	return nil
}

// recorder is shared by every fake runtime so calls keep their global order.
type recorder struct {
	calls      []string
	hosts      map[string]string
	fail       map[string]error
	streamErr  map[string]error
	listErr    map[string]error
	connectErr map[string]error
	running    map[string][]domain.ContainerStatus
	logs       map[string][]string
	closed     int
}

func newRecorder() *recorder {
	return &recorder{
		hosts:      make(map[string]string),
		fail:       make(map[string]error),
		streamErr:  make(map[string]error),
		listErr:    make(map[string]error),
		connectErr: make(map[string]error),
		running:    make(map[string][]domain.ContainerStatus),
		logs:       make(map[string][]string),
	}
}

func (r *recorder) record(host, op, name string) error {
	call := fmt.Sprintf("%s(%s)", op, name)
	r.calls = append(r.calls, call)
	r.hosts[name] = host
	return r.fail[call]
}

func (r *recorder) Runtime(ep domain.Endpoint) (ports.ContainerRuntime, error) {
	if err := r.connectErr[ep.Host]; err != nil {
		return nil, err
	}
	return &fakeRuntime{host: ep.Host, rec: r}, nil
}

type fakeRuntime struct {
	host string
	rec  *recorder
}

func (f *fakeRuntime) CreateContainer(_ context.Context, spec domain.ContainerSpec) error {
	return f.rec.record(f.host, "create", spec.Name)
}

func (f *fakeRuntime) StartContainer(_ context.Context, spec domain.ContainerSpec) error {
	return f.rec.record(f.host, "start", spec.Name)
}

func (f *fakeRuntime) StopContainer(_ context.Context, name string) error {
	return f.rec.record(f.host, "stop", name)
}

func (f *fakeRuntime) RemoveContainer(_ context.Context, name string) error {
	return f.rec.record(f.host, "remove", name)
}

func (f *fakeRuntime) PullImage(_ context.Context, image string) (domain.Stream[domain.Progress], error) {
	if err := f.rec.record(f.host, "pull", image); err != nil {
		return nil, err
	}
	return &sliceStream[domain.Progress]{
		items:  []domain.Progress{{ID: image, Status: "Pulling"}},
		err:    f.rec.streamErr["pull("+image+")"],
		closed: &f.rec.closed,
	}, nil
}

func (f *fakeRuntime) BuildImage(_ context.Context, build domain.BuildContext, tag string) (domain.Stream[domain.BuildLine], error) {
	if err := f.rec.record(f.host, "build", tag); err != nil {
		return nil, err
	}
	return &sliceStream[domain.BuildLine]{
		items:  []domain.BuildLine{{Text: "Step 1/1 : FROM " + build.Dir}},
		closed: &f.rec.closed,
	}, nil
}

func (f *fakeRuntime) ContainerLogs(_ context.Context, name string, _ domain.LogOptions) (domain.Stream[domain.LogLine], error) {
	if err := f.rec.record(f.host, "logs", name); err != nil {
		return nil, err
	}
	var lines []domain.LogLine
	for _, l := range f.rec.logs[name] {
		lines = append(lines, domain.LogLine{Text: l})
	}
	return &sliceStream[domain.LogLine]{items: lines, closed: &f.rec.closed}, nil
}

func (f *fakeRuntime) ContainerStats(_ context.Context, name string, _ bool) (domain.Stream[domain.CPUStats], error) {
	if err := f.rec.record(f.host, "stats", name); err != nil {
		return nil, err
	}
	var stats domain.CPUStats
	stats.CPUUsage.TotalUsage = 42
	return &sliceStream[domain.CPUStats]{items: []domain.CPUStats{stats}, closed: &f.rec.closed}, nil
}

func (f *fakeRuntime) ListContainers(_ context.Context) ([]domain.ContainerStatus, error) {
	f.rec.calls = append(f.rec.calls, "list("+f.host+")")
	if err := f.rec.listErr[f.host]; err != nil {
		return nil, err
	}
	return f.rec.running[f.host], nil
}

type fakeSources struct {
	resolved []string
	cleaned  int
}

func (s *fakeSources) Resolve(_ context.Context, buildPath string) (domain.BuildContext, error) {
	s.resolved = append(s.resolved, buildPath)
	return domain.BuildContext{Dir: buildPath, Cleanup: func() { s.cleaned++ }}, nil
}

type fakeSelector struct {
	idx   int
	err   error
	calls int
}

func (s *fakeSelector) SelectContainer(domain.ServiceSpec) (int, error) {
	s.calls++
	return s.idx, s.err
}

type fakeReporter struct {
	events []string
	rows   []ports.StatusRow
	specs  []string
	logs   []string
	pulls  int
	stats  int
}

func (r *fakeReporter) ServiceStarted(verb domain.Verb, svc domain.ServiceSpec) {
	r.events = append(r.events, fmt.Sprintf("service %s %s", verb, svc.Name))
}

func (r *fakeReporter) ActionStarted(action domain.Action, spec domain.ContainerSpec) {
	r.events = append(r.events, fmt.Sprintf("%s %s", action, spec.Name))
}

func (r *fakeReporter) ActionDone(o domain.ContainerOutcome) {
	r.events = append(r.events, fmt.Sprintf("%s %s %s", o.Action, o.Container, o.Outcome))
}

func (r *fakeReporter) PullProgress(domain.Progress) { r.pulls++ }
func (r *fakeReporter) BuildOutput(domain.BuildLine) {}
func (r *fakeReporter) LogOutput(line domain.LogLine) { r.logs = append(r.logs, line.Text) }
func (r *fakeReporter) CPUStats(string, domain.CPUStats) { r.stats++ }
func (r *fakeReporter) ContainerSpec(s domain.ContainerSpec) { r.specs = append(r.specs, s.Name) }
func (r *fakeReporter) StatusTable(rows []ports.StatusRow) { r.rows = append(r.rows, rows...) }

type fixture struct {
	rec      *recorder
	sources  *fakeSources
	selector *fakeSelector
	reporter *fakeReporter
	topology *domain.Topology
	dispatch *Dispatcher
}

func container(name string) domain.ContainerSpec {
	return domain.ContainerSpec{Name: name, Image: name + "-image"}
}

func newFixture(defaultEndpoint *domain.Endpoint, services ...domain.ServiceSpec) *fixture {
	f := &fixture{
		rec:      newRecorder(),
		sources:  &fakeSources{},
		selector: &fakeSelector{},
		reporter: &fakeReporter{},
		topology: domain.NewTopology(),
	}
	for _, svc := range services {
		f.topology.Services[svc.Name] = svc
		for _, c := range svc.Containers {
			f.topology.Containers[c.Name] = c
		}
	}

	resolver := endpoint.NewResolver("")
	resolver.Getenv = func(string) string { return "" }

	ops := NewOperations(resolver, f.rec, f.sources, defaultEndpoint)
	svcs := NewServices(ops, f.reporter, f.selector, DefaultOptions())
	f.dispatch = NewDispatcher(f.topology, svcs)
	return f
}

func withDefault() *domain.Endpoint {
	return &domain.Endpoint{Host: defaultHost}
}

func notFound(op, name string) error {
	return &domain.RuntimeError{Op: op, Container: name, NotFound: true, Err: fmt.Errorf("No such container: %s", name)}
}
