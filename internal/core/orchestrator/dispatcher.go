package orchestrator

import (
	"context"
	"fmt"

	"github.com/melih/dirg/internal/core/domain"
)

// Dispatcher runs a verb across the requested services of a topology.
type Dispatcher struct {
	topology *domain.Topology
	services *Services
}

// NewDispatcher creates a dispatcher over a loaded topology.
func NewDispatcher(topology *domain.Topology, services *Services) *Dispatcher {
	return &Dispatcher{topology: topology, services: services}
}

// Validate resolves every name before anything runs, so a typo at the end of
// a batch cannot leave the first services half processed.
func (d *Dispatcher) Validate(names []string) ([]domain.ServiceSpec, error) {
	specs := make([]domain.ServiceSpec, 0, len(names))
	for _, name := range names {
		svc, ok := d.topology.Service(name)
		if !ok {
			return nil, &domain.ValidationError{Msg: fmt.Sprintf("Invalid service %s", name)}
		}
		specs = append(specs, svc)
	}
	return specs, nil
}

// Dispatch applies verb to the named services in request order and stops at
// the first fatal error. Reports of the services processed so far, including
// the failing one, are returned alongside the error.
func (d *Dispatcher) Dispatch(ctx context.Context, verb domain.Verb, names []string) ([]domain.ServiceReport, error) {
	if !d.services.Supports(verb) {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("unknown command %s", verb)}
	}

	specs, err := d.Validate(names)
	if err != nil {
		return nil, err
	}

	reports := make([]domain.ServiceReport, 0, len(specs))
	for _, svc := range specs {
		report, err := d.services.Execute(ctx, verb, svc)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// RunService applies verb to a single service. Hosts embedding the
// orchestrator use it to decide themselves whether to go on after a failure.
func (d *Dispatcher) RunService(ctx context.Context, verb domain.Verb, name string) (domain.ServiceReport, error) {
	specs, err := d.Validate([]string{name})
	if err != nil {
		return domain.ServiceReport{Service: name, Verb: verb}, err
	}
	return d.services.Execute(ctx, verb, specs[0])
}
