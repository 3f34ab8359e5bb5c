package draft

type State string

const (
	StateEmpty      State = "empty"
	StateBuilding   State = "building"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateFailed     State = "failed"
)

// Lifecycle tracks where a draft is between editing and submission. InFlight is
// set for the whole time a submission is outstanding.
type Lifecycle struct {
	State     State  `json:"state"`
	InFlight  bool   `json:"in_flight"`
	LastError string `json:"last_error,omitempty"`
	ResultID  string `json:"result_id,omitempty"`
}

func newLifecycle() Lifecycle {
	return Lifecycle{State: StateEmpty}
}

// Current exposes the lifecycle of whichever draft embeds it.
func (l *Lifecycle) Current() *Lifecycle {
	return l
}

func (l *Lifecycle) guard() error {
	if l.InFlight || l.State == StateSubmitting {
		return ErrSubmitInFlight
	}
	if l.State == StateSubmitted {
		return ErrAlreadySubmitted
	}
	return nil
}

func (l *Lifecycle) touch() {
	l.State = StateBuilding
	l.LastError = ""
}

// BeginSubmit freezes the draft. It fails when a submission is already
// outstanding or the draft was submitted before.
func (l *Lifecycle) BeginSubmit() error {
	if err := l.guard(); err != nil {
		return err
	}
	l.State = StateSubmitting
	l.InFlight = true
	l.LastError = ""
	return nil
}

// Complete records a successful submission and freezes the draft.
func (l *Lifecycle) Complete(resultID string) {
	l.State = StateSubmitted
	l.InFlight = false
	l.ResultID = resultID
	l.LastError = ""
}

// Fail releases the draft for editing and keeps its content intact.
func (l *Lifecycle) Fail(message string) {
	l.State = StateFailed
	l.InFlight = false
	l.LastError = message
}

// Submitter is implemented by every draft kind.
type Submitter interface {
	Current() *Lifecycle
	Submittable() bool
}
