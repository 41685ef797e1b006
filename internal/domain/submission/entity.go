// Package submission holds the Submission entity and the per-obligation
// workflow state machines that govern a report's progress from data entry to
// finalization, including versioning and "current version" supersession.
package submission

import (
	"time"

	"github.com/google/uuid"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// Submission is one specific version of a party's report for
// (obligation, period, party).  Versions accumulate; exactly one version is
// current (not superseded, not editable or recalled) at a time, enforced
// procedurally under row locks.
type Submission struct {
	ID         string
	PartyID    int64
	PeriodID   int64
	Obligation treaty.ObligationType
	Version    int
	State      State

	FlagSuperseded bool

	// FlagValid is tri-state: nil means not yet assessed.
	FlagValid *bool

	// FilledBy records which actor type entered the data.  At most one
	// editable data-entry submission may exist per (party, obligation,
	// period) per actor type.
	FilledBy treaty.ActorType

	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

// New constructs a submission in its workflow's initial state.  The version
// number is assigned by the lifecycle service under a row lock, not here.
func New(partyID, periodID int64, obligation treaty.ObligationType, filledBy treaty.ActorType) (*Submission, error) {
	wf, err := WorkflowFor(obligation)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Submission{
		ID:             uuid.New().String(),
		PartyID:        partyID,
		PeriodID:       periodID,
		Obligation:     obligation,
		State:          wf.Initial,
		FlagSuperseded: true, // not current until a becomes-current transition runs
		FilledBy:       filledBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsValidAssessed reports whether flag_valid has been set either way.
func (s *Submission) IsValidAssessed() bool {
	return s.FlagValid != nil
}

// IsInvalid reports whether the submission was assessed invalid.
func (s *Submission) IsInvalid() bool {
	return s.FlagValid != nil && !*s.FlagValid
}

// EligibleForPromotion reports whether this version may be promoted back to
// current when a sibling is recalled: it must sit in a current-capable state
// of its workflow and must not have been assessed invalid.
func (s *Submission) EligibleForPromotion(wf *Workflow) bool {
	return wf.CurrentCapable[s.State] && !s.IsInvalid()
}

// TransitionEvent is the audit record written for every executed transition.
type TransitionEvent struct {
	ID           string
	SubmissionID string
	Transition   string
	FromState    State
	ToState      State
	Actor        string
	At           time.Time
}

// NewTransitionEvent records a transition execution.
func NewTransitionEvent(s *Submission, transition string, from, to State, actor string) *TransitionEvent {
	return &TransitionEvent{
		ID:           uuid.New().String(),
		SubmissionID: s.ID,
		Transition:   transition,
		FromState:    from,
		ToState:      to,
		Actor:        actor,
		At:           time.Now().UTC(),
	}
}
