package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/melih/dirg/internal/adapters/builder"
	"github.com/melih/dirg/internal/adapters/config"
	"github.com/melih/dirg/internal/adapters/docker"
	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/endpoint"
	"github.com/melih/dirg/internal/core/orchestrator"
	"github.com/melih/dirg/internal/core/ports"
	"github.com/melih/dirg/internal/logging"
)

var log = logrus.WithField("component", "cmd")

const help = `Dirg reads a yaml file describing services made of docker container
definitions and applies lifecycle commands to these groups of containers.

The current directory needs a file called dirg.cfg, or the DIRG_CFG environment
variable has to point to one. Its dirg_services key names the services file.

DOCKER_HOST selects the docker engine, DOCKER_CERT_PATH and DOCKER_TLS_VERIFY
enable TLS. A container can name its own engine with docker_host.`

type app struct {
	v      *viper.Viper
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// env replaces the process environment when set
	env map[string]string
	// runtimes defaults to the docker engine
	runtimes ports.RuntimeFactory
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		v:      viper.New(),
		fs:     afero.NewOsFs(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

func (a *app) getenv(key string) string {
	if a.env != nil {
		return a.env[key]
	}
	return os.Getenv(key)
}

func (a *app) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dirg <command> [name...]",
		Short:         "Apply lifecycle commands to services made of docker containers",
		Long:          help,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(a.stderr, a.v.GetBool("debug"))
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.PersistentFlags().BoolP("debug", "d", false, "print the configuration and enable debug logging")
	cmd.PersistentFlags().String("api-version", endpoint.DefaultAPIVersion, "docker engine API version")
	a.v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	a.v.BindPFlag("api_version", cmd.PersistentFlags().Lookup("api-version"))

	for _, verb := range domain.Verbs {
		cmd.AddCommand(a.newVerbCommand(verb))
	}
	cmd.AddCommand(a.newInfoCommand())
	cmd.AddCommand(a.newServeCommand())
	cmd.AddCommand(a.newVersionCommand())
	return cmd
}

// execute runs the command line and returns the exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.newRootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(a.stdout, "Interrupted")
		return 0
	}
	if err != nil {
		fmt.Fprintln(a.stderr, color.RedString(err.Error()))
		return 1
	}
	return 0
}

func (a *app) loader() *config.Loader {
	l := config.NewLoader(a.fs)
	if a.env != nil {
		l.WithEnv(a.env)
	}
	return l
}

// session is everything a command needs once the configuration is loaded.
type session struct {
	loader   *config.Loader
	topology *domain.Topology
	ops      *orchestrator.Operations
	close    func()
}

func (a *app) open(ctx context.Context) (*session, error) {
	loader := a.loader()
	if a.v.GetBool("debug") {
		a.printInfo(loader)
	}

	topology, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	resolver := endpoint.NewResolver(a.v.GetString("api_version"))
	resolver.Getenv = a.getenv

	runtimes := a.runtimes
	closeFn := func() {}
	if runtimes == nil {
		factory := docker.NewFactory()
		runtimes = factory
		closeFn = func() { factory.Close() }
	}

	ops := orchestrator.NewOperations(resolver, runtimes, builder.NewResolver(""), resolver.FromEnvironment())
	return &session{loader: loader, topology: topology, ops: ops, close: closeFn}, nil
}

func orNone(value string) string {
	if value == "" {
		return "None"
	}
	return value
}

// printInfo prints the version, the environment and the configuration files.
func (a *app) printInfo(loader *config.Loader) {
	fmt.Fprintf(a.stdout, "Version %s\n", version)
	for _, key := range []string{config.EnvConfig, endpoint.EnvHost, endpoint.EnvCertPath, endpoint.EnvTLSVerify} {
		fmt.Fprintf(a.stdout, "%s = %s\n", key, orNone(a.getenv(key)))
	}

	if err := loader.ReadConfig(); err != nil {
		log.WithError(err).Debug("No configuration")
		fmt.Fprintf(a.stdout, "Config = %s\n", err)
		return
	}
	fmt.Fprintf(a.stdout, "Config files = %s\n", strings.Join(loader.ConfigFiles(), ", "))

	services, err := loader.ServicesFile()
	if err != nil {
		fmt.Fprintf(a.stdout, "Services file = %s\n", err)
		return
	}
	fmt.Fprintf(a.stdout, "Services file = %s\n", services)
}
