package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/ports"
)

// Options tunes the streaming verbs.
type Options struct {
	Logs        domain.LogOptions
	StatsStream bool
}

// DefaultOptions follows logs and streams stats until interrupted.
func DefaultOptions() Options {
	return Options{
		Logs:        domain.LogOptions{Follow: true},
		StatsStream: true,
	}
}

type serviceFunc func(ctx context.Context, svc domain.ServiceSpec, report *domain.ServiceReport) error

type step func(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error)

// Services applies verbs to every container of a service, in declaration
// order. The first fatal container error stops the service.
type Services struct {
	ops      *Operations
	reporter ports.Reporter
	selector ports.ContainerSelector
	opts     Options
	verbs    map[domain.Verb]serviceFunc
}

// NewServices creates the service operations.
func NewServices(ops *Operations, reporter ports.Reporter, selector ports.ContainerSelector, opts Options) *Services {
	s := &Services{
		ops:      ops,
		reporter: reporter,
		selector: selector,
		opts:     opts,
	}
	s.verbs = map[domain.Verb]serviceFunc{
		domain.VerbRun:    s.sequence(s.create, s.start),
		domain.VerbStart:  s.sequence(s.start),
		domain.VerbStop:   s.sequence(s.stop),
		domain.VerbUpdate: s.sequence(s.pull, s.remove, s.create, s.start),
		domain.VerbBuild:  s.sequence(s.build),
		domain.VerbPull:   s.sequence(s.pull),
		domain.VerbRemove: s.sequence(s.remove),
		domain.VerbShow:   s.sequence(s.show),
		domain.VerbStats:  s.sequence(s.stats),
		domain.VerbLogs:   s.logs,
		domain.VerbList:   s.list,
	}
	return s
}

// Supports reports whether verb is known.
func (s *Services) Supports(verb domain.Verb) bool {
	_, ok := s.verbs[verb]
	return ok
}

// Execute runs verb on one service.
func (s *Services) Execute(ctx context.Context, verb domain.Verb, svc domain.ServiceSpec) (domain.ServiceReport, error) {
	report := domain.ServiceReport{Service: svc.Name, Verb: verb}

	run, ok := s.verbs[verb]
	if !ok {
		return report, &domain.ValidationError{Msg: fmt.Sprintf("unknown command %s", verb)}
	}

	log.WithField("service", svc.Name).WithField("verb", string(verb)).Debug("Executing")
	s.reporter.ServiceStarted(verb, svc)
	err := run(ctx, svc, &report)
	return report, err
}

func (s *Services) sequence(steps ...step) serviceFunc {
	return func(ctx context.Context, svc domain.ServiceSpec, report *domain.ServiceReport) error {
		for _, spec := range svc.Containers {
			for _, st := range steps {
				if err := ctx.Err(); err != nil {
					return err
				}
				outcome, err := st(ctx, spec)
				report.Add(outcome)
				if err != nil {
					return err
				}
			}
		}
		return nil
	}
}

func (s *Services) act(action domain.Action, spec domain.ContainerSpec, fn func() (domain.Outcome, error)) (domain.ContainerOutcome, error) {
	s.reporter.ActionStarted(action, spec)

	outcome := domain.ContainerOutcome{Container: spec.Name, Action: action}
	result, err := fn()
	if err != nil {
		outcome.Outcome = domain.OutcomeFailed
		outcome.Err = err
	} else {
		outcome.Outcome = result
	}

	s.reporter.ActionDone(outcome)
	return outcome, err
}

func succeeded(err error) (domain.Outcome, error) {
	return domain.OutcomeOK, err
}

func (s *Services) create(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionCreate, spec, func() (domain.Outcome, error) {
		return succeeded(s.ops.Create(ctx, spec))
	})
}

func (s *Services) start(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionStart, spec, func() (domain.Outcome, error) {
		return succeeded(s.ops.Start(ctx, spec))
	})
}

func (s *Services) stop(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionStop, spec, func() (domain.Outcome, error) {
		return succeeded(s.ops.Stop(ctx, spec))
	})
}

func (s *Services) remove(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionRemove, spec, func() (domain.Outcome, error) {
		return s.ops.Remove(ctx, spec)
	})
}

func (s *Services) pull(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionPull, spec, func() (domain.Outcome, error) {
		stream, err := s.ops.Pull(ctx, spec)
		if err != nil {
			return domain.OutcomeFailed, err
		}
		return succeeded(consume(ctx, stream, s.reporter.PullProgress))
	})
}

// build is a silent no-op for containers without a build path.
func (s *Services) build(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	if spec.BuildPath == "" {
		return domain.ContainerOutcome{Container: spec.Name, Action: domain.ActionBuild, Outcome: domain.OutcomeSkipped}, nil
	}
	return s.act(domain.ActionBuild, spec, func() (domain.Outcome, error) {
		stream, err := s.ops.Build(ctx, spec)
		if err != nil {
			return domain.OutcomeFailed, err
		}
		return succeeded(consume(ctx, stream, s.reporter.BuildOutput))
	})
}

func (s *Services) stats(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	return s.act(domain.ActionStats, spec, func() (domain.Outcome, error) {
		stream, err := s.ops.Stats(ctx, spec, s.opts.StatsStream)
		if err != nil {
			return domain.OutcomeFailed, err
		}
		return succeeded(consume(ctx, stream, func(stats domain.CPUStats) {
			s.reporter.CPUStats(spec.Name, stats)
		}))
	})
}

func (s *Services) show(_ context.Context, spec domain.ContainerSpec) (domain.ContainerOutcome, error) {
	s.reporter.ContainerSpec(spec)
	return domain.ContainerOutcome{Container: spec.Name, Action: domain.ActionShow, Outcome: domain.OutcomeOK}, nil
}

func (s *Services) logs(ctx context.Context, svc domain.ServiceSpec, report *domain.ServiceReport) error {
	if len(svc.Containers) == 0 {
		return nil
	}

	idx := 0
	if len(svc.Containers) > 1 {
		var err error
		if idx, err = s.selector.SelectContainer(svc); err != nil {
			return err
		}
	}
	if idx < 0 || idx >= len(svc.Containers) {
		return &domain.ValidationError{Msg: fmt.Sprintf("invalid container choice %d for service %s", idx+1, svc.Name)}
	}

	spec := svc.Containers[idx]
	outcome, err := s.act(domain.ActionLogs, spec, func() (domain.Outcome, error) {
		stream, err := s.ops.Logs(ctx, spec, s.opts.Logs)
		if err != nil {
			return domain.OutcomeFailed, err
		}
		return succeeded(consume(ctx, stream, s.reporter.LogOutput))
	})
	report.Add(outcome)
	return err
}

// list never fails on an unreachable container, it reports it as not
// available and moves on.
func (s *Services) list(ctx context.Context, svc domain.ServiceSpec, report *domain.ServiceReport) error {
	rows := make([]ports.StatusRow, 0, len(svc.Containers))
	defer func() { s.reporter.StatusTable(rows) }()

	for _, spec := range svc.Containers {
		status, err := s.ops.Status(ctx, spec)
		if err != nil {
			report.Add(domain.ContainerOutcome{Container: spec.Name, Action: domain.ActionStatus, Outcome: domain.OutcomeFailed, Err: err})
			return err
		}

		outcome := domain.ContainerOutcome{Container: spec.Name, Action: domain.ActionStatus, Outcome: domain.OutcomeOK, Status: status}
		if status == nil {
			outcome.Outcome = domain.OutcomeNotAvailable
		}
		report.Add(outcome)
		rows = append(rows, ports.StatusRow{Service: svc.Name, Container: spec, Status: status})
	}
	return nil
}

// consume reads a stream to its end. A nil stream is empty.
func consume[T any](ctx context.Context, stream domain.Stream[T], emit func(T)) error {
	if stream == nil {
		return nil
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		emit(rec)
	}
}
