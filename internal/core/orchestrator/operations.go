// Package orchestrator drives services through their lifecycle against the
// container engine, one container at a time.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/endpoint"
	"github.com/melih/dirg/internal/core/ports"
)

var log = logrus.WithField("component", "orchestrator")

// Operations performs single container actions. Each call resolves the
// endpoint serving the container and issues one remote operation.
type Operations struct {
	resolver        *endpoint.Resolver
	runtimes        ports.RuntimeFactory
	sources         ports.BuildContextResolver
	defaultEndpoint *domain.Endpoint
}

// NewOperations creates the container operations. defaultEndpoint may be nil,
// in which case only containers with their own docker_host can be reached.
func NewOperations(
	resolver *endpoint.Resolver,
	runtimes ports.RuntimeFactory,
	sources ports.BuildContextResolver,
	defaultEndpoint *domain.Endpoint,
) *Operations {
	return &Operations{
		resolver:        resolver,
		runtimes:        runtimes,
		sources:         sources,
		defaultEndpoint: defaultEndpoint,
	}
}

func (o *Operations) endpoint(spec domain.ContainerSpec) (domain.Endpoint, error) {
	ep, err := o.resolver.Resolve(o.defaultEndpoint, spec)
	if err != nil {
		return domain.Endpoint{}, err
	}
	log.WithFields(logrus.Fields{"container": spec.Name, "host": ep.Host}).Debug("Resolved endpoint")
	return ep, nil
}

func (o *Operations) connect(ep domain.Endpoint) (ports.ContainerRuntime, error) {
	rt, err := o.runtimes.Runtime(ep)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", ep.Host, err)
	}
	return rt, nil
}

func (o *Operations) runtime(spec domain.ContainerSpec) (ports.ContainerRuntime, error) {
	ep, err := o.endpoint(spec)
	if err != nil {
		return nil, err
	}
	return o.connect(ep)
}

// Create creates the container from its spec.
func (o *Operations) Create(ctx context.Context, spec domain.ContainerSpec) error {
	rt, err := o.runtime(spec)
	if err != nil {
		return err
	}
	return rt.CreateContainer(ctx, spec)
}

// Start starts a created container.
func (o *Operations) Start(ctx context.Context, spec domain.ContainerSpec) error {
	rt, err := o.runtime(spec)
	if err != nil {
		return err
	}
	return rt.StartContainer(ctx, spec)
}

// Stop stops a running container.
func (o *Operations) Stop(ctx context.Context, spec domain.ContainerSpec) error {
	rt, err := o.runtime(spec)
	if err != nil {
		return err
	}
	return rt.StopContainer(ctx, spec.Name)
}

// Remove stops and removes the container with its volumes. Engine failures
// are not fatal here: the container is reported as not found.
func (o *Operations) Remove(ctx context.Context, spec domain.ContainerSpec) (domain.Outcome, error) {
	rt, err := o.runtime(spec)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	if err := rt.StopContainer(ctx, spec.Name); err != nil {
		return o.removeFailed(ctx, spec, err)
	}
	if err := rt.RemoveContainer(ctx, spec.Name); err != nil {
		return o.removeFailed(ctx, spec, err)
	}
	return domain.OutcomeOK, nil
}

func (o *Operations) removeFailed(ctx context.Context, spec domain.ContainerSpec, err error) (domain.Outcome, error) {
	if ctx.Err() != nil {
		return domain.OutcomeFailed, ctx.Err()
	}
	log.WithFields(logrus.Fields{
		"container": spec.Name,
		"not_found": domain.IsNotFound(err),
		"error":     err.Error(),
	}).Debug("Remove failed")
	return domain.OutcomeNotFound, nil
}

// Pull pulls the container image.
func (o *Operations) Pull(ctx context.Context, spec domain.ContainerSpec) (domain.Stream[domain.Progress], error) {
	rt, err := o.runtime(spec)
	if err != nil {
		return nil, err
	}
	return rt.PullImage(ctx, spec.Image)
}

// Build builds the container image from its build path and tags it with the
// container image name. It returns a nil stream when the container has no
// build path.
func (o *Operations) Build(ctx context.Context, spec domain.ContainerSpec) (domain.Stream[domain.BuildLine], error) {
	if spec.BuildPath == "" {
		return nil, nil
	}

	rt, err := o.runtime(spec)
	if err != nil {
		return nil, err
	}

	build, err := o.sources.Resolve(ctx, spec.BuildPath)
	if err != nil {
		return nil, err
	}

	stream, err := rt.BuildImage(ctx, build, spec.Image)
	if err != nil {
		build.Cleanup()
		return nil, err
	}
	return &cleanupStream[domain.BuildLine]{Stream: stream, cleanup: build.Cleanup}, nil
}

// Logs fetches the combined stdout and stderr of the container.
func (o *Operations) Logs(ctx context.Context, spec domain.ContainerSpec, opts domain.LogOptions) (domain.Stream[domain.LogLine], error) {
	rt, err := o.runtime(spec)
	if err != nil {
		return nil, err
	}
	return rt.ContainerLogs(ctx, spec.Name, opts)
}

// Stats fetches the cpu statistics of the container.
func (o *Operations) Stats(ctx context.Context, spec domain.ContainerSpec, stream bool) (domain.Stream[domain.CPUStats], error) {
	rt, err := o.runtime(spec)
	if err != nil {
		return nil, err
	}
	return rt.ContainerStats(ctx, spec.Name, stream)
}

// Status looks the container up on its endpoint. It returns a nil status
// when the container is absent or the endpoint cannot be queried; only an
// unresolvable endpoint is an error.
func (o *Operations) Status(ctx context.Context, spec domain.ContainerSpec) (*domain.ContainerStatus, error) {
	ep, err := o.endpoint(spec)
	if err != nil {
		return nil, err
	}

	rt, err := o.connect(ep)
	if err != nil {
		log.WithField("container", spec.Name).WithError(err).Debug("Status not available")
		return nil, nil
	}

	containers, err := rt.ListContainers(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithField("container", spec.Name).WithError(err).Debug("Status not available")
		return nil, nil
	}

	for i := range containers {
		if containers[i].HasName(spec.Name) {
			return &containers[i], nil
		}
	}
	return nil, nil
}

type cleanupStream[T any] struct {
	domain.Stream[T]
	cleanup func()
}

func (s *cleanupStream[T]) Close() error {
	defer s.cleanup()
	return s.Stream.Close()
}
