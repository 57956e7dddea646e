package docker

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/go-connections/tlsconfig"
	"github.com/sirupsen/logrus"

	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/ports"
)

var log = logrus.WithField("component", "docker")

// Factory hands out one Adapter per endpoint and reuses it for later calls.
type Factory struct {
	mu       sync.Mutex
	adapters map[domain.Endpoint]*Adapter
	opts     []client.Opt
}

// NewFactory creates a factory. The options are applied to every client
// after the endpoint settings.
func NewFactory(opts ...client.Opt) *Factory {
	return &Factory{
		adapters: make(map[domain.Endpoint]*Adapter),
		opts:     opts,
	}
}

// Runtime returns the adapter serving ep.
func (f *Factory) Runtime(ep domain.Endpoint) (ports.ContainerRuntime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if a, ok := f.adapters[ep]; ok {
		return a, nil
	}
	a, err := NewAdapter(ep, f.opts...)
	if err != nil {
		return nil, err
	}
	f.adapters[ep] = a
	return a, nil
}

// Close closes every client the factory created.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ep, a := range f.adapters {
		if err := a.cli.Close(); err != nil {
			log.WithField("host", ep.Host).WithError(err).Debug("Failed to close client")
		}
		delete(f.adapters, ep)
	}
	return nil
}

// Adapter implements ports.ContainerRuntime using Docker SDK
type Adapter struct {
	cli  *client.Client
	host string
}

// NewAdapter creates a new Docker adapter for one endpoint
func NewAdapter(ep domain.Endpoint, extra ...client.Opt) (*Adapter, error) {
	var opts []client.Opt
	if ep.TLS.Enabled() {
		httpClient, err := tlsHTTPClient(ep.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load tls configuration from %s: %w", ep.TLS.CertPath, err)
		}
		opts = append(opts, client.WithHTTPClient(httpClient))
	}
	opts = append(opts, extra...)
	opts = append(opts, client.WithHost(ep.Host))
	if ep.APIVersion != "" {
		opts = append(opts, client.WithVersion(ep.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli, host: ep.Host}, nil
}

func tlsHTTPClient(cfg domain.TLSConfig) (*http.Client, error) {
	tlsc, err := tlsconfig.Client(tlsconfig.Options{
		CAFile:             filepath.Join(cfg.CertPath, "ca.pem"),
		CertFile:           filepath.Join(cfg.CertPath, "cert.pem"),
		KeyFile:            filepath.Join(cfg.CertPath, "key.pem"),
		InsecureSkipVerify: !cfg.Verify,
	})
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport:     &http.Transport{TLSClientConfig: tlsc},
		CheckRedirect: client.CheckRedirect,
	}, nil
}

func wrap(op, name string, err error) error {
	return &domain.RuntimeError{Op: op, Container: name, NotFound: errdefs.IsNotFound(err), Err: err}
}

// CreateContainer creates a container named after the spec. Host level
// settings are attached at creation, engines no longer accept them on start.
func (a *Adapter) CreateContainer(ctx context.Context, spec domain.ContainerSpec) error {
	config, hostConfig, err := containerConfig(spec)
	if err != nil {
		return wrap("create", spec.Name, err)
	}

	resp, err := a.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return wrap("create", spec.Name, err)
	}
	for _, w := range resp.Warnings {
		log.WithField("container", spec.Name).Warn(w)
	}
	log.WithFields(logrus.Fields{"container": spec.Name, "id": resp.ID, "host": a.host}).Debug("Created container")
	return nil
}

// StartContainer starts a created container
func (a *Adapter) StartContainer(ctx context.Context, spec domain.ContainerSpec) error {
	if err := a.cli.ContainerStart(ctx, spec.Name, container.StartOptions{}); err != nil {
		return wrap("start", spec.Name, err)
	}
	return nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, name string) error {
	if err := a.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		return wrap("stop", name, err)
	}
	return nil
}

// RemoveContainer removes a container and its anonymous volumes
func (a *Adapter) RemoveContainer(ctx context.Context, name string) error {
	err := a.cli.ContainerRemove(ctx, name, container.RemoveOptions{RemoveVolumes: true})
	if err != nil {
		return wrap("remove", name, err)
	}
	return nil
}

// PullImage pulls an image and streams the engine's progress messages
func (a *Adapter) PullImage(ctx context.Context, image string) (domain.Stream[domain.Progress], error) {
	reader, err := a.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return nil, wrap("pull", image, err)
	}
	return &progressStream{messages: newMessages(reader, "pull", image)}, nil
}

// BuildImage sends the build context to the engine and streams the build output
func (a *Adapter) BuildImage(ctx context.Context, build domain.BuildContext, tag string) (domain.Stream[domain.BuildLine], error) {
	tar, err := archive.TarWithOptions(build.Dir, &archive.TarOptions{ExcludePatterns: build.Excludes})
	if err != nil {
		return nil, wrap("build", tag, fmt.Errorf("failed to create build context: %w", err))
	}

	var tags []string
	if tag != "" {
		tags = []string{tag}
	}

	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       tags,
		Dockerfile: "Dockerfile",
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		tar.Close()
		return nil, wrap("build", tag, err)
	}
	return &buildStream{messages: newMessages(resp.Body, "build", tag), context: tar}, nil
}

// ContainerLogs streams the combined stdout and stderr of a container
func (a *Adapter) ContainerLogs(ctx context.Context, name string, opts domain.LogOptions) (domain.Stream[domain.LogLine], error) {
	reader, err := a.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       opts.Tail,
	})
	if err != nil {
		return nil, wrap("logs", name, err)
	}
	return newLogStream(reader, name), nil
}

// ContainerStats streams the cpu statistics of a container
func (a *Adapter) ContainerStats(ctx context.Context, name string, stream bool) (domain.Stream[domain.CPUStats], error) {
	resp, err := a.cli.ContainerStats(ctx, name, stream)
	if err != nil {
		return nil, wrap("stats", name, err)
	}
	return newStatsStream(resp.Body, name), nil
}

// ListContainers returns the running containers of the endpoint
func (a *Adapter) ListContainers(ctx context.Context) ([]domain.ContainerStatus, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, wrap("list", "", fmt.Errorf("failed to list containers on %s: %w", a.host, err))
	}

	result := make([]domain.ContainerStatus, 0, len(containers))
	for _, c := range containers {
		// Use the first name if available, remove slash
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		id := c.ID
		if len(id) > 12 {
			id = id[:12] // Short ID
		}

		result = append(result, domain.ContainerStatus{
			ID:      id,
			Name:    name,
			Names:   c.Names,
			Image:   c.Image,
			Status:  c.Status,
			State:   c.State,
			Created: time.Unix(c.Created, 0),
		})
	}
	return result, nil
}
