package docker

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/dirg/internal/core/domain"
)

func TestSplitCommand(t *testing.T) {
	var tests = []struct {
		command  string
		expected []string
	}{
		{"", nil},
		{"   ", nil},
		{"redis-server", []string{"redis-server"}},
		{"python  -m http.server 8000", []string{"python", "-m", "http.server", "8000"}},
		{`sh -c "echo hello world"`, []string{"sh", "-c", "echo hello world"}},
		{`echo 'a "b" c'`, []string{"echo", `a "b" c`}},
		{`echo a\ b`, []string{"echo", "a b"}},
		{`sh -c "printf 'a\nb'"`, []string{"sh", "-c", `printf 'a\nb'`}},
		{`sh -c "echo \"quoted\" \\ done"`, []string{"sh", "-c", `echo "quoted" \ done`}},
		{`echo #not-a-comment`, []string{"echo", "#not-a-comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			args, err := splitCommand(tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestSplitCommandErrors(t *testing.T) {
	_, err := splitCommand(`echo "unterminated`)
	assert.Error(t, err)

	_, err = splitCommand(`echo \`)
	assert.Error(t, err)
}

func TestContainerConfig(t *testing.T) {
	config, hostConfig, err := containerConfig(domain.ContainerSpec{
		Name:         "dns",
		Image:        "coredns",
		Ports:        []string{"53/udp"},
		PortBindings: map[string]string{"53/udp": "5353", "8080": "0.0.0.0:80"},
		Volumes:      []string{"/data"},
		NetworkMode:  "host",
	})
	require.NoError(t, err)

	assert.Equal(t, "dns", config.Hostname)
	assert.Nil(t, []string(config.Cmd))
	assert.Contains(t, config.ExposedPorts, nat.Port("53/udp"))
	assert.Contains(t, config.ExposedPorts, nat.Port("8080/tcp"))
	assert.Contains(t, config.Volumes, "/data")

	assert.Equal(t, []nat.PortBinding{{HostPort: "5353"}}, hostConfig.PortBindings[nat.Port("53/udp")])
	assert.Equal(t, []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "80"}}, hostConfig.PortBindings[nat.Port("8080/tcp")])
	assert.Equal(t, "host", string(hostConfig.NetworkMode))
}

func TestContainerConfigRejectsBadPort(t *testing.T) {
	_, _, err := containerConfig(domain.ContainerSpec{Name: "web", Ports: []string{"http"}})
	assert.Error(t, err)
}
