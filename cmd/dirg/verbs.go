package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/melih/dirg/internal/adapters/console"
	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/orchestrator"
	"github.com/melih/dirg/internal/core/ports"
)

var verbHelp = map[domain.Verb]string{
	domain.VerbRun:    "Create and start the containers of services",
	domain.VerbStart:  "Start the containers of services",
	domain.VerbStop:   "Stop the containers of services",
	domain.VerbRemove: "Stop and remove the containers of services",
	domain.VerbBuild:  "Build the images of containers that declare a path",
	domain.VerbList:   "Show the status of the containers of services",
	domain.VerbShow:   "Print the container definitions of services",
	domain.VerbPull:   "Pull the images of services",
	domain.VerbLogs:   "Show the logs of a container of a service",
	domain.VerbUpdate: "Pull, recreate and start the containers of services",
	domain.VerbStats:  "Show cpu statistics of the containers of services",
}

func (a *app) newVerbCommand(verb domain.Verb) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(verb) + " [name...]",
		Short: verbHelp[verb],
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"all"}
			}
			return a.runVerb(cmd.Context(), verb, args)
		},
	}

	switch verb {
	case domain.VerbLogs:
		cmd.Flags().Int("container", 0, "container to show, numbered from 1, instead of asking")
		cmd.Flags().Bool("follow", true, "keep streaming new output")
		cmd.Flags().String("tail", "all", "number of lines to show from the end of the logs")
		a.v.BindPFlag("logs.container", cmd.Flags().Lookup("container"))
		a.v.BindPFlag("logs.follow", cmd.Flags().Lookup("follow"))
		a.v.BindPFlag("logs.tail", cmd.Flags().Lookup("tail"))
	case domain.VerbStats:
		cmd.Flags().Bool("no-stream", false, "print a single sample per container")
		a.v.BindPFlag("stats.no_stream", cmd.Flags().Lookup("no-stream"))
	}
	return cmd
}

func (a *app) runVerb(ctx context.Context, verb domain.Verb, names []string) error {
	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	var selector ports.ContainerSelector = console.NewPromptSelector(a.stdin, a.stdout)
	if choice := a.v.GetInt("logs.container"); choice > 0 {
		selector = console.IndexSelector{Choice: choice}
	}

	opts := orchestrator.DefaultOptions()
	if verb == domain.VerbLogs {
		opts.Logs = domain.LogOptions{
			Follow: a.v.GetBool("logs.follow"),
			Tail:   a.v.GetString("logs.tail"),
		}
	}
	if verb == domain.VerbStats {
		opts.StatsStream = !a.v.GetBool("stats.no_stream")
	}

	services := orchestrator.NewServices(s.ops, console.NewReporter(a.stdout), selector, opts)
	_, err = orchestrator.NewDispatcher(s.topology, services).Dispatch(ctx, verb, names)
	return err
}
