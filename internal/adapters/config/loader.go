package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/melih/dirg/internal/core/domain"
)

const (
	// DefaultFile is looked up in the working directory.
	DefaultFile = "dirg.cfg"
	// EnvConfig names an additional config file read after DefaultFile.
	EnvConfig = "DIRG_CFG"
	// ServicesKey holds the path of the services document.
	ServicesKey = "dirg_services"

	defaultSection = "default"
)

var log = logrus.WithField("component", "config")

// Loader reads dirg.cfg and renders the services document it points to.
// It implements ports.ConfigSource.
type Loader struct {
	fs      afero.Fs
	getenv  func(string) string
	environ func() []string

	v     *viper.Viper
	files []string
}

// NewLoader creates a loader reading from fs. A nil fs means the OS filesystem.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs, getenv: os.Getenv, environ: os.Environ}
}

// WithEnv replaces the process environment, used by tests.
func (l *Loader) WithEnv(env map[string]string) *Loader {
	l.getenv = func(key string) string { return env[key] }
	l.environ = func() []string {
		pairs := make([]string, 0, len(env))
		for k, v := range env {
			pairs = append(pairs, k+"="+v)
		}
		return pairs
	}
	return l
}

// ReadConfig reads dirg.cfg from the working directory, then the file named
// by $DIRG_CFG on top of it. At least one of them must exist.
func (l *Loader) ReadConfig() error {
	var candidates []string
	if l.exists(DefaultFile) {
		candidates = append(candidates, DefaultFile)
	}
	if env := l.getenv(EnvConfig); env != "" {
		path, err := homedir.Expand(env)
		if err != nil {
			return &domain.ConfigError{Path: env, Err: err}
		}
		if l.exists(path) {
			candidates = append(candidates, path)
		} else {
			log.WithField("path", path).Debug("Config file named by " + EnvConfig + " does not exist")
		}
	}
	if len(candidates) == 0 {
		return &domain.ConfigError{Err: fmt.Errorf("%s not found and env variable %s not set", DefaultFile, EnvConfig)}
	}

	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigType("ini")
	for i, path := range candidates {
		v.SetConfigFile(path)
		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			return &domain.ConfigError{Path: path, Err: fmt.Errorf("failed to read config: %w", err)}
		}
		log.WithField("path", path).Debug("Read config")
	}

	l.v = v
	l.files = candidates
	return nil
}

func (l *Loader) exists(path string) bool {
	ok, err := afero.Exists(l.fs, path)
	return err == nil && ok
}

// ConfigFiles lists the config files read, in reading order.
func (l *Loader) ConfigFiles() []string {
	return l.files
}

// Get returns a key of the DEFAULT section.
func (l *Loader) Get(key string) string {
	if l.v == nil {
		return ""
	}
	key = strings.ToLower(key)
	if v := l.v.GetString(defaultSection + "." + key); v != "" {
		return v
	}
	return l.v.GetString(key)
}

// ServicesFile returns the path of the services document.
func (l *Loader) ServicesFile() (string, error) {
	if l.v == nil {
		if err := l.ReadConfig(); err != nil {
			return "", err
		}
	}
	path := l.Get(ServicesKey)
	if path == "" {
		return "", &domain.ConfigError{Path: l.lastFile(), Err: fmt.Errorf("dirg config needs a key called %q", ServicesKey)}
	}
	return homedir.Expand(path)
}

func (l *Loader) lastFile() string {
	if len(l.files) == 0 {
		return ""
	}
	return l.files[len(l.files)-1]
}

// Load renders the services document and resolves it into a validated topology.
func (l *Loader) Load(ctx context.Context) (*domain.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.ServicesFile()
	if err != nil {
		return nil, err
	}

	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Err: fmt.Errorf("can not read service config file: %w", err)}
	}
	log.WithField("path", path).Debug("Reading services")

	rendered, err := Render(path, content, l.templateData())
	if err != nil {
		return nil, &domain.ConfigError{Path: path, Err: err}
	}

	topology, err := Parse(rendered)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, &domain.ConfigError{Path: path, Err: fmt.Errorf("error reading service description: %w", err)}
	}
	return topology, nil
}

// templateData exposes the DEFAULT section keys and the environment as env.
func (l *Loader) templateData() map[string]interface{} {
	data := make(map[string]interface{})
	for key, value := range l.v.GetStringMapString(defaultSection) {
		data[key] = value
	}
	for _, key := range l.v.AllKeys() {
		if !strings.Contains(key, ".") {
			data[key] = l.v.GetString(key)
		}
	}

	env := make(map[string]string)
	for _, pair := range l.environ() {
		if k, v, ok := strings.Cut(pair, "="); ok {
			env[k] = v
		}
	}
	data["env"] = env
	return data
}

// Render executes the services document as a Django/Jinja style template.
// Undefined keys and unset environment variables render empty, like Jinja.
func Render(name string, content []byte, data map[string]interface{}) ([]byte, error) {
	tpl, err := pongo2.FromString("{% autoescape off %}" + string(content) + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	ctx := pongo2.Context{}
	for key, value := range data {
		// pongo2 refuses the whole context on a key it can not address
		if isIdentifier(key) {
			ctx[key] = value
		}
	}

	out, err := tpl.ExecuteBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return out, nil
}

func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	return strings.IndexFunc(key, func(r rune) bool {
		return r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	}) < 0
}

// Parse reads the two YAML documents of a rendered services description: the
// services (name to container names) and the containers (name to definition).
func Parse(content []byte) (*domain.Topology, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))

	var services map[string][]string
	if err := dec.Decode(&services); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("expected a services and a containers document, found none")
		}
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}

	var containers map[string]domain.ContainerSpec
	if err := dec.Decode(&containers); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("expected a containers document after the services")
		}
		return nil, fmt.Errorf("failed to decode containers: %w", err)
	}

	var extra interface{}
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("expected exactly two documents")
	}

	topology := domain.NewTopology()
	if services == nil || containers == nil {
		return topology, nil
	}

	for name, c := range containers {
		c.Name = name
		if c.NetworkMode == "" {
			c.NetworkMode = domain.DefaultNetworkMode
		}
		topology.Containers[name] = c
	}

	for name, refs := range services {
		svc := domain.ServiceSpec{Name: name, Containers: make([]domain.ContainerSpec, 0, len(refs))}
		for _, ref := range refs {
			c, ok := topology.Containers[ref]
			if !ok {
				return nil, &domain.ValidationError{Msg: fmt.Sprintf("%q not a valid container name for service %q", ref, name)}
			}
			svc.Containers = append(svc.Containers, c)
		}
		topology.Services[name] = svc
	}

	if err := topology.Validate(); err != nil {
		return nil, err
	}
	return topology, nil
}
