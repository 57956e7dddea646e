package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/dirg/internal/core/domain"
)

func newTestResolver(env map[string]string) *Resolver {
	r := NewResolver("")
	r.Getenv = func(key string) string { return env[key] }
	return r
}

func TestResolveUsesOverride(t *testing.T) {
	r := newTestResolver(map[string]string{EnvCertPath: "/certs", EnvTLSVerify: "1"})
	def := &domain.Endpoint{Host: "tcp://default:2375", APIVersion: DefaultAPIVersion}

	ep, err := r.Resolve(def, domain.ContainerSpec{Name: "db", DockerHost: "tcp://db-host:2376"})
	require.NoError(t, err)

	assert.Equal(t, "tcp://db-host:2376", ep.Host)
	assert.Equal(t, DefaultAPIVersion, ep.APIVersion)
	assert.Equal(t, domain.TLSConfig{CertPath: "/certs", Verify: true}, ep.TLS)
}

func TestResolveUsesDefault(t *testing.T) {
	r := newTestResolver(nil)
	def := &domain.Endpoint{Host: "tcp://default:2375"}

	ep, err := r.Resolve(def, domain.ContainerSpec{Name: "web"})
	require.NoError(t, err)
	assert.Equal(t, *def, ep)
}

func TestResolveWithoutEndpoint(t *testing.T) {
	r := newTestResolver(nil)

	_, err := r.Resolve(nil, domain.ContainerSpec{Name: "web"})
	require.Error(t, err)

	var unresolved *domain.EndpointUnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "web", unresolved.Container)
	assert.Contains(t, err.Error(), "container web")
}

func TestResolveOverrideWithoutDefault(t *testing.T) {
	r := newTestResolver(nil)

	ep, err := r.Resolve(nil, domain.ContainerSpec{Name: "web", DockerHost: "unix:///var/run/docker.sock"})
	require.NoError(t, err)
	assert.Equal(t, "unix:///var/run/docker.sock", ep.Host)
	assert.False(t, ep.TLS.Enabled())
}

func TestFromEnvironment(t *testing.T) {
	var tests = []struct {
		name     string
		env      map[string]string
		expected *domain.Endpoint
	}{
		{"unset", map[string]string{}, nil},
		{"plain", map[string]string{EnvHost: "tcp://docker:2375"}, &domain.Endpoint{
			Host:       "tcp://docker:2375",
			APIVersion: DefaultAPIVersion,
		}},
		{"tls", map[string]string{EnvHost: "tcp://docker:2376", EnvCertPath: "/certs"}, &domain.Endpoint{
			Host:       "tcp://docker:2376",
			APIVersion: DefaultAPIVersion,
			TLS:        domain.TLSConfig{CertPath: "/certs"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, newTestResolver(tt.env).FromEnvironment())
		})
	}
}

func TestPinnedVersion(t *testing.T) {
	r := NewResolver("1.43")
	r.Getenv = func(string) string { return "" }

	ep, err := r.Resolve(nil, domain.ContainerSpec{Name: "web", DockerHost: "tcp://h:2375"})
	require.NoError(t, err)
	assert.Equal(t, "1.43", ep.APIVersion)
}
