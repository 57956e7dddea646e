package docker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/melih/dirg/internal/core/domain"
)

// containerConfig translates a spec into the create request bodies.
func containerConfig(spec domain.ContainerSpec) (*container.Config, *container.HostConfig, error) {
	exposed := nat.PortSet{}
	for _, p := range spec.Ports {
		port, err := nat.NewPort(nat.SplitProtoPort(p))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
		exposed[port] = struct{}{}
	}

	bindings := nat.PortMap{}
	for containerPort, hostBinding := range spec.PortBindings {
		port, err := nat.NewPort(nat.SplitProtoPort(containerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port binding %q: %w", containerPort, err)
		}
		exposed[port] = struct{}{}
		ip, hostPort := splitHostBinding(hostBinding)
		bindings[port] = append(bindings[port], nat.PortBinding{HostIP: ip, HostPort: hostPort})
	}

	var volumes map[string]struct{}
	if len(spec.Volumes) > 0 {
		volumes = make(map[string]struct{}, len(spec.Volumes))
		for _, v := range spec.Volumes {
			volumes[v] = struct{}{}
		}
	}

	binds := make([]string, 0, len(spec.VolumeBindings))
	for host, target := range spec.VolumeBindings {
		binds = append(binds, host+":"+target)
	}
	sort.Strings(binds)

	env := make([]string, 0, len(spec.Environment))
	for k, v := range spec.Environment {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	links := make([]string, 0, len(spec.Links))
	for _, l := range spec.Links {
		if !strings.Contains(l, ":") {
			l = l + ":" + l
		}
		links = append(links, l)
	}

	cmd, err := splitCommand(spec.Command)
	if err != nil {
		return nil, nil, err
	}

	config := &container.Config{
		Hostname:     spec.Name,
		Image:        spec.Image,
		Cmd:          cmd,
		Env:          env,
		ExposedPorts: exposed,
		Volumes:      volumes,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindings,
		Binds:        binds,
		Links:        links,
		NetworkMode:  container.NetworkMode(spec.Network()),
	}
	return config, hostConfig, nil
}

// splitHostBinding splits "ip:port" and plain "port" host bindings.
func splitHostBinding(binding string) (string, string) {
	i := strings.LastIndex(binding, ":")
	if i < 0 {
		return "", binding
	}
	return binding[:i], binding[i+1:]
}

// splitCommand breaks a command line into arguments with POSIX shell rules.
func splitCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil
	}
	args, err := shlex.Split(command, true)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	return args, nil
}
