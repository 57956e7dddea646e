package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/ryanuber/columnize"
	"gopkg.in/yaml.v3"

	"github.com/melih/dirg/internal/core/domain"
	"github.com/melih/dirg/internal/core/ports"
)

var serviceHeadings = map[domain.Verb]string{
	domain.VerbRun:    "Running",
	domain.VerbStart:  "Starting",
	domain.VerbStop:   "Stopping",
	domain.VerbUpdate: "Updating",
	domain.VerbBuild:  "Building",
	domain.VerbRemove: "Removing",
}

// inline actions print their outcome on the line that announced them
var inlineActions = map[domain.Action]string{
	domain.ActionCreate: "Creating container %s ... ",
	domain.ActionStart:  "Starting container %s ... ",
	domain.ActionStop:   "Stopping container %s ... ",
	domain.ActionRemove: "Removing container %s ... ",
}

// Reporter prints progress for a terminal. It implements ports.Reporter.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) ServiceStarted(verb domain.Verb, svc domain.ServiceSpec) {
	if heading, ok := serviceHeadings[verb]; ok {
		fmt.Fprintf(r.out, "%s service %s\n", heading, svc.Name)
	}
}

func (r *Reporter) ActionStarted(action domain.Action, spec domain.ContainerSpec) {
	if format, ok := inlineActions[action]; ok {
		fmt.Fprintf(r.out, format, spec.Name)
		return
	}

	switch action {
	case domain.ActionPull:
		fmt.Fprintf(r.out, "Pulling image %s ... \n", spec.Image)
	case domain.ActionBuild:
		fmt.Fprintf(r.out, "Building container %s ... \n", spec.Name)
	case domain.ActionLogs:
		fmt.Fprintf(r.out, "Showing logs for container %s ... \n", spec.Name)
	}
}

func (r *Reporter) ActionDone(o domain.ContainerOutcome) {
	_, inline := inlineActions[o.Action]

	switch o.Outcome {
	case domain.OutcomeOK:
		if inline {
			fmt.Fprintln(r.out, color.GreenString("ok"))
		}
	case domain.OutcomeNotFound:
		fmt.Fprintln(r.out, color.YellowString("not found"))
	case domain.OutcomeFailed:
		// the error itself is returned to the caller and printed once there
		if inline {
			fmt.Fprintln(r.out, color.RedString("failed"))
		}
	}
}

func (r *Reporter) PullProgress(p domain.Progress) {
	r.printJSON(p)
}

func (r *Reporter) BuildOutput(line domain.BuildLine) {
	fmt.Fprint(r.out, line.Text)
}

func (r *Reporter) LogOutput(line domain.LogLine) {
	fmt.Fprintln(r.out, line.Text)
}

func (r *Reporter) CPUStats(_ string, stats domain.CPUStats) {
	r.printJSON(stats)
}

func (r *Reporter) printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		fmt.Fprintln(r.out, color.RedString(err.Error()))
		return
	}
	fmt.Fprintln(r.out, string(data))
}

// ContainerSpec prints the definition the way it is written in the services
// document.
func (r *Reporter) ContainerSpec(spec domain.ContainerSpec) {
	fmt.Fprintf(r.out, "Container %s:\n\n", spec.Name)
	data, err := yaml.Marshal(spec)
	if err != nil {
		fmt.Fprintln(r.out, color.RedString(err.Error()))
		return
	}
	fmt.Fprintln(r.out, string(data))
}

func (r *Reporter) StatusTable(rows []ports.StatusRow) {
	output := []string{"SERVICE|CONTAINER|STATUS|HOST|CREATED"}
	for _, row := range rows {
		if row.Status == nil {
			output = append(output, strings.Join([]string{row.Service, row.Container.Name, "not available", row.Container.DockerHost, ""}, "|"))
			continue
		}
		output = append(output, strings.Join([]string{
			row.Service,
			row.Container.Name,
			row.Status.Status,
			row.Container.DockerHost,
			humanize.Time(row.Status.Created),
		}, "|"))
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, columnize.SimpleFormat(output))
	fmt.Fprintln(r.out)
}
