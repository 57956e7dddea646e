package ports

import (
	"context"

	"github.com/melih/dirg/internal/core/domain"
)

// ContainerRuntime defines the engine operations the orchestrator needs.
// One runtime talks to exactly one endpoint. Failures are reported as
// *domain.RuntimeError so callers can tell a missing container apart.
type ContainerRuntime interface {
	CreateContainer(ctx context.Context, spec domain.ContainerSpec) error
	StartContainer(ctx context.Context, spec domain.ContainerSpec) error
	StopContainer(ctx context.Context, name string) error
	// RemoveContainer removes the container together with its volumes.
	RemoveContainer(ctx context.Context, name string) error
	PullImage(ctx context.Context, image string) (domain.Stream[domain.Progress], error)
	BuildImage(ctx context.Context, build domain.BuildContext, tag string) (domain.Stream[domain.BuildLine], error)
	ContainerLogs(ctx context.Context, name string, opts domain.LogOptions) (domain.Stream[domain.LogLine], error)
	// ContainerStats streams snapshots until the container stops, or returns a
	// single one when stream is false.
	ContainerStats(ctx context.Context, name string, stream bool) (domain.Stream[domain.CPUStats], error)
	ListContainers(ctx context.Context) ([]domain.ContainerStatus, error)
}

// RuntimeFactory hands out the runtime serving an endpoint.
type RuntimeFactory interface {
	Runtime(endpoint domain.Endpoint) (ContainerRuntime, error)
}
