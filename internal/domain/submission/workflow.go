package submission

import (
	"fmt"

	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// State is a workflow state name.
type State string

const (
	StateDataEntry  State = "data_entry"
	StateSubmitted  State = "submitted"
	StateProcessing State = "processing"
	StateFinalized  State = "finalized"
	StateRecalled   State = "recalled"
)

// Guard is a transition precondition.  It returns nil when the transition
// may run, or a descriptive reason when it may not; a failed guard is a
// user-facing validation error, never a fatal one.
type Guard func(s *Submission) error

// Transition is one edge of a workflow: it moves a submission from any of
// the From states to the To state, subject to its guard.
type Transition struct {
	Name string
	From []State
	To   State

	// Guard, when non-nil, must pass before the transition runs.
	Guard Guard

	// BecomesCurrent marks transitions whose target state makes this
	// version the authoritative one: siblings are superseded and
	// aggregation is recomputed atomically with the state change.
	BecomesCurrent bool

	// LeavesCurrent marks transitions (recall) that strip current status:
	// the most recent eligible prior version is promoted, or the
	// submission's aggregation contribution is purged.
	LeavesCurrent bool
}

// reachableFrom reports whether the transition can fire from state.
func (t *Transition) reachableFrom(state State) bool {
	for _, f := range t.From {
		if f == state {
			return true
		}
	}
	return false
}

// Workflow is the full state machine for one obligation type.
type Workflow struct {
	Name       string
	Obligation treaty.ObligationType
	Initial    State
	States     []State

	// Editable marks states in which the submission's raw data may still be
	// modified.  Editable versions are never current and never superseded.
	Editable map[State]bool

	// CurrentCapable marks states in which a version counts as (or may be
	// promoted back to) current.
	CurrentCapable map[State]bool

	// Terminal marks states with no outgoing transitions.
	Terminal map[State]bool

	transitions map[string]*Transition
	order       []string
}

// newWorkflow wires a workflow definition, deriving the Terminal set.
func newWorkflow(name string, obligation treaty.ObligationType, initial State,
	states []State, editable, currentCapable map[State]bool, transitions []*Transition) *Workflow {

	wf := &Workflow{
		Name:           name,
		Obligation:     obligation,
		Initial:        initial,
		States:         states,
		Editable:       editable,
		CurrentCapable: currentCapable,
		Terminal:       make(map[State]bool, len(states)),
		transitions:    make(map[string]*Transition, len(transitions)),
	}
	for _, t := range transitions {
		wf.transitions[t.Name] = t
		wf.order = append(wf.order, t.Name)
	}
	for _, s := range states {
		terminal := true
		for _, t := range transitions {
			if t.reachableFrom(s) {
				terminal = false
				break
			}
		}
		wf.Terminal[s] = terminal
	}
	return wf
}

// Transitions returns the workflow's transitions in definition order.
func (wf *Workflow) Transitions() []*Transition {
	out := make([]*Transition, 0, len(wf.order))
	for _, name := range wf.order {
		out = append(out, wf.transitions[name])
	}
	return out
}

// Resolve validates that the named transition exists, is reachable from the
// submission's current state, and that its guard holds.  The three failure
// modes carry three distinct error codes so callers can tell "no such
// transition" from "wrong state" from "precondition not met".
func (wf *Workflow) Resolve(s *Submission, name string) (*Transition, error) {
	t, ok := wf.transitions[name]
	if !ok {
		return nil, errors.UnknownTransition(
			fmt.Sprintf("transition %q is not defined in workflow %s", name, wf.Name))
	}
	if !t.reachableFrom(s.State) {
		return nil, errors.TransitionNotReachable(
			fmt.Sprintf("transition %q cannot fire from state %q", name, s.State))
	}
	if t.Guard != nil {
		if err := t.Guard(s); err != nil {
			return nil, errors.TransitionUnavailable(err.Error()).WithCause(err)
		}
	}
	return t, nil
}

// AvailableTransitions returns the transitions that can fire from the
// submission's current state with passing guards.  Used by the excluded
// admin layer to render action buttons.
func (wf *Workflow) AvailableTransitions(s *Submission) []*Transition {
	var out []*Transition
	for _, name := range wf.order {
		t := wf.transitions[name]
		if !t.reachableFrom(s.State) {
			continue
		}
		if t.Guard != nil && t.Guard(s) != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// registry maps obligation types to their workflow variants.  Populated in
// workflows.go at init time; read-only afterwards.
var registry = map[treaty.ObligationType]*Workflow{}

// WorkflowFor returns the workflow variant for an obligation type.  An
// unregistered obligation is a configuration error.
func WorkflowFor(obligation treaty.ObligationType) (*Workflow, error) {
	wf, ok := registry[obligation]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownWorkflow,
			fmt.Sprintf("no workflow registered for obligation %q", obligation))
	}
	return wf, nil
}
