package ports

import (
	"context"

	"github.com/melih/dirg/internal/core/domain"
)

// ConfigSource yields the resolved topology.
type ConfigSource interface {
	Load(ctx context.Context) (*domain.Topology, error)
}

// ContainerSelector picks the container whose logs are shown when a service
// has more than one. It returns a 0-based index into svc.Containers.
type ContainerSelector interface {
	SelectContainer(svc domain.ServiceSpec) (int, error)
}

// StatusRow is one line of the status listing.
type StatusRow struct {
	Service   string
	Container domain.ContainerSpec
	// Status is nil when the container is not available.
	Status *domain.ContainerStatus
}

// Reporter receives progress while service operations run.
type Reporter interface {
	ServiceStarted(verb domain.Verb, svc domain.ServiceSpec)
	ActionStarted(action domain.Action, spec domain.ContainerSpec)
	ActionDone(outcome domain.ContainerOutcome)

	PullProgress(p domain.Progress)
	BuildOutput(line domain.BuildLine)
	LogOutput(line domain.LogLine)
	CPUStats(container string, stats domain.CPUStats)

	ContainerSpec(spec domain.ContainerSpec)
	StatusTable(rows []StatusRow)
}
