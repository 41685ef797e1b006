package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutisyag/ozone-sub000/pkg/errors"
	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

func mustWorkflow(t *testing.T, obl treaty.ObligationType) *Workflow {
	t.Helper()
	wf, err := WorkflowFor(obl)
	require.NoError(t, err)
	return wf
}

func newTestSubmission(t *testing.T, obl treaty.ObligationType) *Submission {
	t.Helper()
	s, err := New(1, 1, obl, treaty.ActorParty)
	require.NoError(t, err)
	return s
}

func TestWorkflowForUnknownObligation(t *testing.T) {
	_, err := WorkflowFor(treaty.ObligationType("no_such_obligation"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownWorkflow, errors.GetCode(err))
}

func TestEveryObligationHasAWorkflow(t *testing.T) {
	for _, obl := range []treaty.ObligationType{
		treaty.ObligationArticle7, treaty.ObligationArticle7Acc,
		treaty.ObligationExemption, treaty.ObligationExemptionAcc,
		treaty.ObligationTransfer, treaty.ObligationProcAgent,
	} {
		wf, err := WorkflowFor(obl)
		require.NoError(t, err, "obligation %s", obl)
		assert.Equal(t, StateDataEntry, wf.Initial)
		assert.True(t, wf.Editable[wf.Initial], "initial state must be editable")
	}
}

func TestNewSubmissionStartsEditableAndSuperseded(t *testing.T) {
	s := newTestSubmission(t, treaty.ObligationArticle7)
	assert.Equal(t, StateDataEntry, s.State)
	assert.True(t, s.FlagSuperseded, "a new version is not current until it submits")
	assert.Nil(t, s.FlagValid)
	assert.NotEmpty(t, s.ID)
}

func TestResolveUnknownTransition(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)

	_, err := wf.Resolve(s, "launch")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownTransition, errors.GetCode(err))
}

func TestResolveNotReachableFromState(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)

	// finalize exists but cannot fire from data_entry.
	_, err := wf.Resolve(s, "finalize")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransitionNotReachable, errors.GetCode(err))
}

func TestResolveGuardFailure(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)
	s.State = StateProcessing

	_, err := wf.Resolve(s, "finalize")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransitionUnavailable, errors.GetCode(err))

	valid := true
	s.FlagValid = &valid
	tr, err := wf.Resolve(s, "finalize")
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, tr.To)
}

func TestGuardAcceptsExplicitInvalid(t *testing.T) {
	// Assessed invalid still satisfies the guard: the requirement is that
	// the flag was assessed, not that it is true.
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)
	s.State = StateProcessing
	invalid := false
	s.FlagValid = &invalid

	_, err := wf.Resolve(s, "finalize")
	assert.NoError(t, err)
}

func TestExemptionFinalizeHasNoGuard(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationExemption)
	s := newTestSubmission(t, treaty.ObligationExemption)
	s.State = StateProcessing

	_, err := wf.Resolve(s, "finalize")
	assert.NoError(t, err, "exemption finalization does not require assessment")
}

func TestAvailableTransitionsFilterByStateAndGuard(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)

	names := func() []string {
		var out []string
		for _, tr := range wf.AvailableTransitions(s) {
			out = append(out, tr.Name)
		}
		return out
	}

	assert.Equal(t, []string{"submit"}, names())

	s.State = StateProcessing
	// finalize is guarded out until flag_valid is assessed.
	assert.Equal(t, []string{"recall"}, names())

	valid := true
	s.FlagValid = &valid
	assert.Equal(t, []string{"finalize", "recall"}, names())
}

func TestBecomesCurrentAndLeavesCurrentFlags(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)

	byName := map[string]*Transition{}
	for _, tr := range wf.Transitions() {
		byName[tr.Name] = tr
	}

	assert.True(t, byName["submit"].BecomesCurrent)
	assert.False(t, byName["process"].BecomesCurrent)
	assert.True(t, byName["recall"].LeavesCurrent)
	for _, name := range []string{"unrecall_to_submitted", "unrecall_to_processing", "unrecall_to_finalized"} {
		assert.True(t, byName[name].BecomesCurrent, "%s restores current status", name)
	}
}

func TestTerminalStates(t *testing.T) {
	a7 := mustWorkflow(t, treaty.ObligationArticle7)
	assert.False(t, a7.Terminal[StateFinalized], "finalized can still be recalled")
	assert.False(t, a7.Terminal[StateRecalled], "recalled can be unrecalled")

	transfer := mustWorkflow(t, treaty.ObligationTransfer)
	assert.True(t, transfer.Terminal[StateSubmitted])
}

func TestEligibleForPromotion(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7)
	s := newTestSubmission(t, treaty.ObligationArticle7)

	s.State = StateSubmitted
	assert.True(t, s.EligibleForPromotion(wf))

	invalid := false
	s.FlagValid = &invalid
	assert.False(t, s.EligibleForPromotion(wf), "assessed-invalid versions are never promoted")

	s.FlagValid = nil
	s.State = StateDataEntry
	assert.False(t, s.EligibleForPromotion(wf), "editable versions are not current-capable")
}

func TestAcceleratedFinalizeBecomesCurrentFromDataEntry(t *testing.T) {
	wf := mustWorkflow(t, treaty.ObligationArticle7Acc)
	s := newTestSubmission(t, treaty.ObligationArticle7Acc)
	valid := true
	s.FlagValid = &valid

	tr, err := wf.Resolve(s, "finalize")
	require.NoError(t, err)
	assert.True(t, tr.BecomesCurrent)
	assert.Equal(t, StateFinalized, tr.To)
}
