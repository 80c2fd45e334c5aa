// Package verify runs the external test command that decides whether a
// mutation is kept or rolled back. The verifier is the only operation in a
// mutation transaction expected to block for a non-trivial duration, so every
// run is bounded by an explicit timeout.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fixpoint-ai/fixpoint/internal/types"
)

// DefaultTimeout bounds a verifier run when the caller does not set one.
// Sized for a small-to-medium test suite.
const DefaultTimeout = 2 * time.Minute

// Verifier executes an external check against a target and reports pass/fail.
// Implementations must return a result for every expected failure mode
// (test failures, timeouts, missing runner); the error return is reserved for
// conditions the caller cannot interpret as a verification outcome.
type Verifier interface {
	Run(ctx context.Context, target string) (*types.VerificationResult, error)
}

// MissingRunnerPolicy decides the verification outcome when the external
// runner binary is not installed. The choice must be explicit: silently
// treating a missing runner as success would defeat the safety protocol.
type MissingRunnerPolicy string

const (
	// PolicyFail treats a missing runner as a verification failure.
	// This is the default: no evidence of passing tests means no commit.
	PolicyFail MissingRunnerPolicy = "fail"
	// PolicyPass treats a missing runner as success. Only sensible for
	// targets that genuinely have no test suite. The result is still
	// flagged Skipped so callers can tell it apart from a real pass.
	PolicyPass MissingRunnerPolicy = "pass"
)

// CommandVerifier runs a test command (pytest, go test, etc.) as a
// subprocess. Pass/fail is derived from the exit status; output text
// matching is available only as an explicit opt-in fallback.
type CommandVerifier struct {
	// Command is the runner binary, e.g. "pytest".
	Command string
	// Args are passed before the target, e.g. ["-v", "--tb=short"].
	Args []string
	// Dir is the working directory for the run. Empty means inherit.
	Dir string
	// Timeout bounds the run. Zero means DefaultTimeout.
	Timeout time.Duration
	// Policy decides the outcome when Command is not installed.
	// Empty means PolicyFail.
	Policy MissingRunnerPolicy

	// TextFallback additionally accepts a run whose output contains a
	// "passed" marker and no "failed" marker, regardless of exit status.
	// This matches runners with unreliable exit codes but is fragile
	// (an unrelated log line containing "failed" flips the result), so
	// it is off by default.
	TextFallback bool
}

// NewCommandVerifier creates a verifier for the given runner command with
// the default timeout and failure policy.
func NewCommandVerifier(command string, args ...string) *CommandVerifier {
	return &CommandVerifier{
		Command: command,
		Args:    args,
		Timeout: DefaultTimeout,
		Policy:  PolicyFail,
	}
}

// Run executes the test command against the target and classifies the
// outcome. Expected failure modes (failing tests, timeout, missing runner)
// are returned as results, not errors.
func (v *CommandVerifier) Run(ctx context.Context, target string) (*types.VerificationResult, error) {
	if v.Command == "" {
		return nil, fmt.Errorf("verifier command is required")
	}

	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, v.Args...), target)
	cmd := exec.CommandContext(runCtx, v.Command, args...)
	if v.Dir != "" {
		cmd.Dir = v.Dir
	}

	output, err := cmd.CombinedOutput()
	result := &types.VerificationResult{
		RawOutput: string(output),
	}

	// Timeout is treated identically to a verification failure.
	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.Success = false
		result.ExitStatus = -1
		result.RawOutput += fmt.Sprintf("\nverification timed out after %v", timeout)
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitStatus = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			return v.runnerMissing(result), nil
		default:
			// Startup failures other than not-found (e.g. permission
			// denied) are not verification outcomes.
			return nil, fmt.Errorf("failed to run verifier %q: %w", v.Command, err)
		}
	}

	result.Success = result.ExitStatus == 0
	if !result.Success && v.TextFallback {
		result.Success = outputLooksPassing(result.RawOutput)
	}
	return result, nil
}

// runnerMissing applies the configured policy for an uninstalled runner.
func (v *CommandVerifier) runnerMissing(result *types.VerificationResult) *types.VerificationResult {
	result.Skipped = true
	result.ExitStatus = -1
	policy := v.Policy
	if policy == "" {
		policy = PolicyFail
	}
	result.Success = policy == PolicyPass
	result.RawOutput += fmt.Sprintf("verifier %q not found (policy: %s)", v.Command, policy)
	return result
}

// outputLooksPassing is the legacy text heuristic: a "passed" marker with no
// "failed" marker. Known-fragile, kept only behind TextFallback.
func outputLooksPassing(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "passed") && !strings.Contains(lower, "failed")
}
