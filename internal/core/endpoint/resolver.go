// Package endpoint decides which engine endpoint serves a container.
package endpoint

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"

	"github.com/melih/dirg/internal/core/domain"
)

// DefaultAPIVersion is the engine API version every endpoint is pinned to
// unless configured otherwise.
const DefaultAPIVersion = "1.41"

const (
	EnvHost      = "DOCKER_HOST"
	EnvCertPath  = "DOCKER_CERT_PATH"
	EnvTLSVerify = "DOCKER_TLS_VERIFY"
)

// Resolver builds endpoints from the process environment.
type Resolver struct {
	APIVersion string
	Getenv     func(string) string
}

// NewResolver creates a resolver reading the real environment.
func NewResolver(apiVersion string) *Resolver {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Resolver{APIVersion: apiVersion, Getenv: os.Getenv}
}

// FromEnvironment returns the process wide default endpoint taken from
// DOCKER_HOST, or nil when it is not set.
func (r *Resolver) FromEnvironment() *domain.Endpoint {
	host := r.Getenv(EnvHost)
	if host == "" {
		return nil
	}
	ep := r.endpoint(host)
	return &ep
}

// Resolve returns the endpoint serving spec. A container level docker_host
// always wins over the default.
func (r *Resolver) Resolve(defaultEndpoint *domain.Endpoint, spec domain.ContainerSpec) (domain.Endpoint, error) {
	if spec.DockerHost != "" {
		return r.endpoint(spec.DockerHost), nil
	}
	if defaultEndpoint != nil {
		return *defaultEndpoint, nil
	}
	return domain.Endpoint{}, &domain.EndpointUnresolvedError{Container: spec.Name}
}

func (r *Resolver) endpoint(host string) domain.Endpoint {
	ep := domain.Endpoint{Host: host, APIVersion: r.APIVersion}

	verify := r.Getenv(EnvTLSVerify) != ""
	certPath := r.Getenv(EnvCertPath)
	if certPath == "" && verify {
		if home, err := homedir.Dir(); err == nil {
			certPath = filepath.Join(home, ".docker")
		}
	}
	if certPath != "" {
		if expanded, err := homedir.Expand(certPath); err == nil {
			certPath = expanded
		}
	}

	ep.TLS = domain.TLSConfig{CertPath: certPath, Verify: verify}
	return ep
}
