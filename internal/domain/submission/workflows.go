package submission

import (
	"errors"

	"github.com/mutisyag/ozone-sub000/pkg/types/treaty"
)

// guardValidAssessed blocks finalization while flag_valid is still tri-state
// unassessed.  The default Article-7 flow requires the secretariat to assess
// a submission before it can become final.
func guardValidAssessed(s *Submission) error {
	if !s.IsValidAssessed() {
		return errors.New("flag_valid must be assessed (true or false) before finalizing")
	}
	return nil
}

func init() {
	register(article7Default())
	register(article7Accelerated())
	register(exemptionDefault())
	register(exemptionAccelerated())
	register(transferWorkflow())
	register(processAgentWorkflow())
}

func register(wf *Workflow) {
	registry[wf.Obligation] = wf
}

// article7Default is the full Article-7 reporting flow: data entry, party
// submission, secretariat processing, finalization.  Submit and finalize
// both make the version current; recall strips current status, and each
// unrecall restores the pre-recall state.
func article7Default() *Workflow {
	return newWorkflow(
		"article7_default",
		treaty.ObligationArticle7,
		StateDataEntry,
		[]State{StateDataEntry, StateSubmitted, StateProcessing, StateFinalized, StateRecalled},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateSubmitted: true, StateProcessing: true, StateFinalized: true},
		[]*Transition{
			{Name: "submit", From: []State{StateDataEntry}, To: StateSubmitted, BecomesCurrent: true},
			{Name: "process", From: []State{StateSubmitted}, To: StateProcessing},
			{Name: "finalize", From: []State{StateProcessing}, To: StateFinalized, Guard: guardValidAssessed},
			{Name: "recall", From: []State{StateSubmitted, StateProcessing, StateFinalized}, To: StateRecalled, LeavesCurrent: true},
			{Name: "unrecall_to_submitted", From: []State{StateRecalled}, To: StateSubmitted, BecomesCurrent: true},
			{Name: "unrecall_to_processing", From: []State{StateRecalled}, To: StateProcessing, BecomesCurrent: true},
			{Name: "unrecall_to_finalized", From: []State{StateRecalled}, To: StateFinalized, BecomesCurrent: true},
		},
	)
}

// article7Accelerated skips the submitted/processing stages: the secretariat
// enters data and finalizes directly.
func article7Accelerated() *Workflow {
	return newWorkflow(
		"article7_accelerated",
		treaty.ObligationArticle7Acc,
		StateDataEntry,
		[]State{StateDataEntry, StateFinalized, StateRecalled},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateFinalized: true},
		[]*Transition{
			{Name: "finalize", From: []State{StateDataEntry}, To: StateFinalized, Guard: guardValidAssessed, BecomesCurrent: true},
			{Name: "recall", From: []State{StateFinalized}, To: StateRecalled, LeavesCurrent: true},
			{Name: "unrecall_to_finalized", From: []State{StateRecalled}, To: StateFinalized, BecomesCurrent: true},
		},
	)
}

// exemptionDefault mirrors the Article-7 default shape but without the
// validity-assessment guard: exemption filings are not assessed for
// flag_valid before finalization.
func exemptionDefault() *Workflow {
	return newWorkflow(
		"exemption_default",
		treaty.ObligationExemption,
		StateDataEntry,
		[]State{StateDataEntry, StateSubmitted, StateProcessing, StateFinalized, StateRecalled},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateSubmitted: true, StateProcessing: true, StateFinalized: true},
		[]*Transition{
			{Name: "submit", From: []State{StateDataEntry}, To: StateSubmitted, BecomesCurrent: true},
			{Name: "process", From: []State{StateSubmitted}, To: StateProcessing},
			{Name: "finalize", From: []State{StateProcessing}, To: StateFinalized},
			{Name: "recall", From: []State{StateSubmitted, StateProcessing, StateFinalized}, To: StateRecalled, LeavesCurrent: true},
			{Name: "unrecall_to_submitted", From: []State{StateRecalled}, To: StateSubmitted, BecomesCurrent: true},
			{Name: "unrecall_to_processing", From: []State{StateRecalled}, To: StateProcessing, BecomesCurrent: true},
			{Name: "unrecall_to_finalized", From: []State{StateRecalled}, To: StateFinalized, BecomesCurrent: true},
		},
	)
}

// exemptionAccelerated finalizes straight from data entry.
func exemptionAccelerated() *Workflow {
	return newWorkflow(
		"exemption_accelerated",
		treaty.ObligationExemptionAcc,
		StateDataEntry,
		[]State{StateDataEntry, StateFinalized, StateRecalled},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateFinalized: true},
		[]*Transition{
			{Name: "finalize", From: []State{StateDataEntry}, To: StateFinalized, BecomesCurrent: true},
			{Name: "recall", From: []State{StateFinalized}, To: StateRecalled, LeavesCurrent: true},
			{Name: "unrecall_to_finalized", From: []State{StateRecalled}, To: StateFinalized, BecomesCurrent: true},
		},
	)
}

// transferWorkflow is the minimal two-state flow for production-rights
// transfer notifications.  Submitted is terminal.
func transferWorkflow() *Workflow {
	return newWorkflow(
		"transfer",
		treaty.ObligationTransfer,
		StateDataEntry,
		[]State{StateDataEntry, StateSubmitted},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateSubmitted: true},
		[]*Transition{
			{Name: "submit", From: []State{StateDataEntry}, To: StateSubmitted, BecomesCurrent: true},
		},
	)
}

// processAgentWorkflow is the minimal two-state flow for process-agent
// reporting.
func processAgentWorkflow() *Workflow {
	return newWorkflow(
		"procagent",
		treaty.ObligationProcAgent,
		StateDataEntry,
		[]State{StateDataEntry, StateSubmitted},
		map[State]bool{StateDataEntry: true},
		map[State]bool{StateSubmitted: true},
		[]*Transition{
			{Name: "submit", From: []State{StateDataEntry}, To: StateSubmitted, BecomesCurrent: true},
		},
	)
}
