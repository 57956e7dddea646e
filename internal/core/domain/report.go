package domain

// Verb is a service level command.
type Verb string

const (
	VerbRun    Verb = "run"
	VerbStart  Verb = "start"
	VerbStop   Verb = "stop"
	VerbUpdate Verb = "update"
	VerbBuild  Verb = "build"
	VerbPull   Verb = "pull"
	VerbRemove Verb = "rm"
	VerbShow   Verb = "show"
	VerbLogs   Verb = "logs"
	VerbStats  Verb = "stats"
	VerbList   Verb = "ps"
)

// Verbs lists every verb in the order the CLI presents them.
var Verbs = []Verb{
	VerbRun, VerbStart, VerbStop, VerbRemove, VerbBuild, VerbList,
	VerbShow, VerbPull, VerbLogs, VerbUpdate, VerbStats,
}

// Action is a single container level operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionRemove Action = "remove"
	ActionPull   Action = "pull"
	ActionBuild  Action = "build"
	ActionLogs   Action = "logs"
	ActionStats  Action = "stats"
	ActionStatus Action = "status"
	ActionShow   Action = "show"
)

// Outcome classifies how a container operation ended.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeNotFound     Outcome = "not found"
	OutcomeNotAvailable Outcome = "not available"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeFailed       Outcome = "failed"
)

// ContainerOutcome is the result of one action on one container.
type ContainerOutcome struct {
	Container string
	Action    Action
	Outcome   Outcome
	// Status is set by status lookups that found the container.
	Status *ContainerStatus
	Err    error
}

// ServiceReport collects the outcomes of one verb on one service, in the
// order they happened.
type ServiceReport struct {
	Service  string
	Verb     Verb
	Outcomes []ContainerOutcome
}

// Add appends an outcome to the report.
func (r *ServiceReport) Add(o ContainerOutcome) {
	r.Outcomes = append(r.Outcomes, o)
}
