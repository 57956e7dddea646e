package domain

import (
	"fmt"
	"sort"
	"time"
)

// DefaultNetworkMode is used for containers that do not declare a network mode.
const DefaultNetworkMode = "bridge"

// ContainerSpec is the declarative definition of one container.
// Name doubles as the container name on the engine.
type ContainerSpec struct {
	Name           string            `yaml:"-" json:"name"`
	Image          string            `yaml:"image" json:"image"`
	Command        string            `yaml:"command,omitempty" json:"command,omitempty"`
	Ports          []string          `yaml:"ports,omitempty" json:"ports,omitempty"`
	PortBindings   map[string]string `yaml:"port_bindings,omitempty" json:"port_bindings,omitempty"`
	Environment    map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Volumes        []string          `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	VolumeBindings map[string]string `yaml:"volume_bindings,omitempty" json:"volume_bindings,omitempty"`
	Links          []string          `yaml:"links,omitempty" json:"links,omitempty"`
	NetworkMode    string            `yaml:"net,omitempty" json:"net,omitempty"`
	DockerHost     string            `yaml:"docker_host,omitempty" json:"docker_host,omitempty"`
	BuildPath      string            `yaml:"path,omitempty" json:"path,omitempty"`
}

// Network returns the network mode, falling back to DefaultNetworkMode.
func (c ContainerSpec) Network() string {
	if c.NetworkMode == "" {
		return DefaultNetworkMode
	}
	return c.NetworkMode
}

// ServiceSpec is a named, ordered group of containers operated on as a unit.
// The order of Containers is the order every lifecycle operation follows.
type ServiceSpec struct {
	Name       string          `json:"name"`
	Containers []ContainerSpec `json:"containers"`
}

// ContainerNames lists the service's containers in declaration order.
func (s ServiceSpec) ContainerNames() []string {
	names := make([]string, 0, len(s.Containers))
	for _, c := range s.Containers {
		names = append(names, c.Name)
	}
	return names
}

// Topology is the fully resolved model of one invocation. It is built once
// and never mutated afterwards.
type Topology struct {
	Containers map[string]ContainerSpec
	Services   map[string]ServiceSpec
}

// NewTopology creates an empty topology.
func NewTopology() *Topology {
	return &Topology{
		Containers: make(map[string]ContainerSpec),
		Services:   make(map[string]ServiceSpec),
	}
}

// Service looks a service up by name.
func (t *Topology) Service(name string) (ServiceSpec, bool) {
	svc, ok := t.Services[name]
	return svc, ok
}

// ServiceNames returns every service name, sorted.
func (t *Topology) ServiceNames() []string {
	names := make([]string, 0, len(t.Services))
	for name := range t.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that container names are set and consistent with their
// definitions and that every container a service lists is defined.
func (t *Topology) Validate() error {
	for key, c := range t.Containers {
		if c.Name == "" {
			return &ValidationError{Msg: fmt.Sprintf("container %q has an empty name", key)}
		}
		if c.Name != key {
			return &ValidationError{Msg: fmt.Sprintf("container %q is registered as %q", c.Name, key)}
		}
	}

	for _, name := range t.ServiceNames() {
		svc := t.Services[name]
		for _, c := range svc.Containers {
			if _, ok := t.Containers[c.Name]; !ok {
				return &ValidationError{Msg: fmt.Sprintf("%q not a valid container name for service %q", c.Name, svc.Name)}
			}
		}
	}
	return nil
}

// ContainerStatus is what the engine reports about a container.
type ContainerStatus struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Names   []string  `json:"-"`
	Image   string    `json:"image"`
	Status  string    `json:"status"`
	State   string    `json:"state"` // running, exited, etc.
	Created time.Time `json:"created"`
}

// HasName reports whether the engine knows the container under name.
// The engine prefixes container names with a slash.
func (s ContainerStatus) HasName(name string) bool {
	for _, n := range s.Names {
		if n == "/"+name {
			return true
		}
	}
	return false
}
