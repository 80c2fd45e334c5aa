package types

import (
	"strings"
	"testing"
)

// TestMutationOutcomeIsValid verifies the known outcome values.
func TestMutationOutcomeIsValid(t *testing.T) {
	valid := []MutationOutcome{OutcomeKept, OutcomeRolledBack, OutcomeWriteFailed, OutcomeCriticalFailure}
	for _, o := range valid {
		if !o.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", o)
		}
	}
	if MutationOutcome("partial").IsValid() {
		t.Error("IsValid(partial) = true, want false")
	}
	if MutationOutcome("").IsValid() {
		t.Error("IsValid(empty) = true, want false")
	}
}

// TestErrorCategoryIsValid verifies the known category values.
func TestErrorCategoryIsValid(t *testing.T) {
	valid := []ErrorCategory{
		CategoryAssertion, CategoryAttribute, CategoryType,
		CategoryValue, CategoryImport, CategoryUnknown,
	}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", c)
		}
	}
	if ErrorCategory("syntax_failure").IsValid() {
		t.Error("IsValid(syntax_failure) = true, want false")
	}
}

// TestMutationResultKept verifies only the kept outcome counts as committed.
func TestMutationResultKept(t *testing.T) {
	if !(&MutationResult{Outcome: OutcomeKept}).Kept() {
		t.Error("Kept() = false for kept outcome")
	}
	for _, o := range []MutationOutcome{OutcomeRolledBack, OutcomeWriteFailed, OutcomeCriticalFailure} {
		if (&MutationResult{Outcome: o}).Kept() {
			t.Errorf("Kept() = true for outcome %q", o)
		}
	}
}

// TestRepairResultSummary verifies the one-line summaries carry the attempt
// count and, for aborts, the reason.
func TestRepairResultSummary(t *testing.T) {
	s := (&RepairResult{Status: RepairSucceeded, AttemptCount: 2}).Summary()
	if !strings.Contains(s, "2 attempt") {
		t.Errorf("Summary() = %q, want attempt count", s)
	}

	s = (&RepairResult{Status: RepairExhausted, AttemptCount: 5}).Summary()
	if !strings.Contains(s, "manual intervention") {
		t.Errorf("Summary() = %q, want manual intervention note", s)
	}

	s = (&RepairResult{Status: RepairAborted, AttemptCount: 1, AbortReason: "target disappeared"}).Summary()
	if !strings.Contains(s, "target disappeared") {
		t.Errorf("Summary() = %q, want abort reason", s)
	}
}
