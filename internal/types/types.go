package types

import (
	"fmt"
	"time"
)

// VerificationResult captures one execution of the external verifier.
// It is immutable once produced: the mutation controller and the error
// classifier both read it, neither modifies it.
type VerificationResult struct {
	Success    bool   `json:"success"`
	RawOutput  string `json:"raw_output"`
	ExitStatus int    `json:"exit_status"`

	// Skipped is set when the verifier binary was unavailable and the
	// configured MissingRunnerPolicy decided the outcome. Callers must be
	// able to distinguish a policy decision from a real run.
	Skipped bool `json:"skipped,omitempty"`

	// TimedOut is set when the verifier exceeded the caller's timeout.
	// A timed-out run is always a failure.
	TimedOut bool `json:"timed_out,omitempty"`
}

// MutationOutcome is the terminal state of one safe-mutation transaction.
type MutationOutcome string

const (
	// OutcomeKept means the proposed content was verified and committed.
	OutcomeKept MutationOutcome = "kept"
	// OutcomeRolledBack means verification failed and the original content
	// was restored from the backup snapshot.
	OutcomeRolledBack MutationOutcome = "rolled_back"
	// OutcomeWriteFailed means the apply step itself failed; the original
	// content was restored before returning.
	OutcomeWriteFailed MutationOutcome = "write_failed"
	// OutcomeCriticalFailure means something unexpected happened mid
	// transaction. An emergency restore was attempted before surfacing.
	OutcomeCriticalFailure MutationOutcome = "critical_failure"
)

// IsValid checks if the outcome is a known value
func (o MutationOutcome) IsValid() bool {
	switch o {
	case OutcomeKept, OutcomeRolledBack, OutcomeWriteFailed, OutcomeCriticalFailure:
		return true
	}
	return false
}

// MutationResult is returned by the safe mutation controller. Exactly one
// transaction produces exactly one result; the target file is guaranteed to
// hold either the original or the verified proposed content, never anything
// in between.
type MutationResult struct {
	Target       string              `json:"target"`
	Outcome      MutationOutcome     `json:"outcome"`
	Verification *VerificationResult `json:"verification,omitempty"`
	// Err holds the underlying error for WriteFailed and CriticalFailure
	// outcomes. Expected failures are values, not raised errors.
	Err error `json:"-"`
}

// Kept reports whether the mutation was committed.
func (r *MutationResult) Kept() bool {
	return r.Outcome == OutcomeKept
}

// ErrorCategory is the coarse failure class extracted from verifier output.
type ErrorCategory string

const (
	CategoryAssertion ErrorCategory = "assertion_failure"
	CategoryAttribute ErrorCategory = "attribute_failure"
	CategoryType      ErrorCategory = "type_failure"
	CategoryValue     ErrorCategory = "value_failure"
	CategoryImport    ErrorCategory = "import_failure"
	CategoryUnknown   ErrorCategory = "unknown"
)

// IsValid checks if the category is a known value
func (c ErrorCategory) IsValid() bool {
	switch c {
	case CategoryAssertion, CategoryAttribute, CategoryType, CategoryValue,
		CategoryImport, CategoryUnknown:
		return true
	}
	return false
}

// ErrorClassification is the deterministic mapping of a verification result
// onto a failure category plus a short diagnostic excerpt.
type ErrorClassification struct {
	Category ErrorCategory `json:"category"`
	// MessageExcerpt is the line containing the first failure-indicating
	// token plus one line of following context. Empty for Unknown when no
	// pattern matched.
	MessageExcerpt string `json:"message_excerpt"`
}

// RepairStatus is the terminal state of a repair session.
type RepairStatus string

const (
	// RepairSucceeded means the verifier passed, either immediately or
	// after one or more applied fixes.
	RepairSucceeded RepairStatus = "success"
	// RepairExhausted means the retry budget ran out; manual intervention
	// is required.
	RepairExhausted RepairStatus = "max_retries"
	// RepairAborted means an unexpected error ended the session mid-loop
	// (e.g. the target file disappeared, or the caller canceled).
	RepairAborted RepairStatus = "error"
)

// RepairAttempt records one iteration of the repair loop. Attempts are
// append-only history: once recorded they are never mutated or discarded,
// even after the session terminates.
type RepairAttempt struct {
	AttemptNumber  int                 `json:"attempt_number"`
	Verification   *VerificationResult `json:"verification"`
	Classification ErrorClassification `json:"classification"`
	// SearchContext is present only on attempts at or past the search
	// threshold. Best-effort: may be empty if the search collaborator
	// failed or was not configured.
	SearchContext string `json:"search_context,omitempty"`
	// FixDescriptor is an opaque description of the externally generated
	// candidate fix that was applied this attempt.
	FixDescriptor   string          `json:"fix_descriptor,omitempty"`
	MutationOutcome MutationOutcome `json:"mutation_outcome,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// RepairResult is the full outcome of one repair session, including the
// complete attempt history for post-mortem inspection.
type RepairResult struct {
	SessionID    string           `json:"session_id"`
	Status       RepairStatus     `json:"status"`
	Attempts     []*RepairAttempt `json:"attempts"`
	FinalOutput  string           `json:"final_verification_output"`
	AbortReason  string           `json:"abort_reason,omitempty"`
	AttemptCount int              `json:"attempt_count"`
}

// Summary returns a one-line human-readable description of the session,
// with enough diagnostic context to support manual continuation.
func (r *RepairResult) Summary() string {
	switch r.Status {
	case RepairSucceeded:
		return fmt.Sprintf("fixed in %d attempt(s)", r.AttemptCount)
	case RepairExhausted:
		return fmt.Sprintf("failed to fix after %d attempt(s), manual intervention required", r.AttemptCount)
	case RepairAborted:
		return fmt.Sprintf("aborted after %d attempt(s): %s", r.AttemptCount, r.AbortReason)
	default:
		return string(r.Status)
	}
}

// Verdict is the final recommendation emitted by the report aggregator.
type Verdict string

const (
	VerdictReject      Verdict = "REJECT"
	VerdictConditional Verdict = "CONDITIONAL"
	VerdictApprove     Verdict = "APPROVE"
)
