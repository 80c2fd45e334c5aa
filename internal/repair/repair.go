// Package repair drives bounded iterative repair sessions: run the verifier,
// classify the failure, obtain a candidate fix from an external collaborator,
// apply it through the safe mutation controller, and repeat until the tests
// pass or the retry budget is exhausted.
//
// The loop handles iteration mechanics (budget, cancellation, history);
// judgment about what fix to propose belongs to the FixGenerator, and search
// assistance to the Searcher. Both are opaque collaborators.
package repair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fixpoint-ai/fixpoint/internal/classify"
	"github.com/fixpoint-ai/fixpoint/internal/mutate"
	"github.com/fixpoint-ai/fixpoint/internal/types"
	"github.com/fixpoint-ai/fixpoint/internal/verify"
)

const (
	// DefaultMaxRetries is the standard attempt budget for a session.
	DefaultMaxRetries = 5

	// SearchThreshold is the attempt number from which the search
	// collaborator is consulted. Attempt 1 never searches; attempts at or
	// past the threshold do.
	SearchThreshold = 2
)

// FixRequest carries everything the external fix generator needs to propose
// a candidate fix for the current failure.
type FixRequest struct {
	Target         string
	TestOutput     string
	Classification types.ErrorClassification
	SearchContext  string
	AttemptNumber  int
}

// Fix is an externally generated candidate fix: the full proposed content of
// the target plus a short opaque descriptor for the attempt history.
type Fix struct {
	Content    []byte
	Descriptor string
}

// FixGenerator produces candidate fixes. How the fix is produced is out of
// scope for the loop; the generator is typically LLM-backed.
type FixGenerator interface {
	GenerateFix(ctx context.Context, req *FixRequest) (*Fix, error)
}

// Searcher looks up external context for an error. Strictly best-effort:
// a failing or absent searcher never aborts the session.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Recorder persists attempt records as they are produced. Optional; a nil
// recorder disables persistence. Recorder failures never abort the session.
type Recorder interface {
	RecordAttempt(ctx context.Context, sessionID string, attempt *types.RepairAttempt) error
	RecordSession(ctx context.Context, target string, result *types.RepairResult) error
}

// Config holds repair session configuration.
type Config struct {
	// Target is the code file candidate fixes are applied to.
	Target string
	// TestTarget is what the verifier runs against (test file or suite).
	TestTarget string
	// MaxRetries is the attempt budget. Must be >= 1; zero or negative is
	// a configuration error.
	MaxRetries int

	Verifier   verify.Verifier
	Controller *mutate.Controller
	Fixer      FixGenerator
	Classifier *classify.Classifier // defaults to classify.New()
	Searcher   Searcher             // optional
	Recorder   Recorder             // optional
}

// Session is one run of the iterative repair loop. Sessions are single-use:
// construct, Run once, then inspect the result and history.
type Session struct {
	id       string
	cfg      Config
	attempts []*types.RepairAttempt
}

// NewSession validates the configuration and creates a repair session.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Target == "" {
		return nil, fmt.Errorf("target is required")
	}
	if cfg.TestTarget == "" {
		return nil, fmt.Errorf("test target is required")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if cfg.Fixer == nil {
		return nil, fmt.Errorf("fix generator is required")
	}
	if cfg.Controller == nil {
		cfg.Controller = mutate.NewController()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classify.New()
	}
	return &Session{
		id:  uuid.New().String(),
		cfg: cfg,
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// History returns the ordered attempt records accumulated so far. The
// returned slice is a copy; records themselves are never mutated after
// being appended.
func (s *Session) History() []*types.RepairAttempt {
	out := make([]*types.RepairAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// Run executes the repair loop until the verifier passes, the budget is
// exhausted, or an unexpected condition aborts the session. Attempts run
// strictly sequentially; each attempt's outcome is known before the next is
// planned. Cancellation is checked at the start of every iteration.
func (s *Session) Run(ctx context.Context) (*types.RepairResult, error) {
	result := &types.RepairResult{SessionID: s.id}

	var lastOutput string
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, result, types.RepairAborted, lastOutput,
				fmt.Sprintf("canceled before attempt %d: %v", attempt, err)), nil
		}

		// Verify first. A session whose tests already pass never
		// attempts a fix.
		verification, err := s.cfg.Verifier.Run(ctx, s.cfg.TestTarget)
		if err != nil {
			return s.finish(ctx, result, types.RepairAborted, lastOutput,
				fmt.Sprintf("verifier error on attempt %d: %v", attempt, err)), nil
		}
		lastOutput = verification.RawOutput

		if verification.Success {
			s.record(ctx, &types.RepairAttempt{
				AttemptNumber: attempt,
				Verification:  verification,
				Timestamp:     time.Now(),
			})
			return s.finish(ctx, result, types.RepairSucceeded, lastOutput, ""), nil
		}

		classification := s.cfg.Classifier.Classify(verification)

		// Search assistance kicks in once the session looks stuck.
		var searchContext string
		if attempt >= SearchThreshold && s.cfg.Searcher != nil {
			if found, searchErr := s.cfg.Searcher.Search(ctx, SearchQuery(classification)); searchErr == nil {
				searchContext = found
			}
		}

		record := &types.RepairAttempt{
			AttemptNumber:  attempt,
			Verification:   verification,
			Classification: classification,
			SearchContext:  searchContext,
			Timestamp:      time.Now(),
		}

		fix, fixErr := s.cfg.Fixer.GenerateFix(ctx, &FixRequest{
			Target:         s.cfg.Target,
			TestOutput:     verification.RawOutput,
			Classification: classification,
			SearchContext:  searchContext,
			AttemptNumber:  attempt,
		})
		if fixErr != nil {
			// A failed fix attempt is not fatal to the session; the
			// attempt is recorded and the budget keeps counting down.
			record.FixDescriptor = fmt.Sprintf("fix generation failed: %v", fixErr)
			s.record(ctx, record)
			continue
		}
		record.FixDescriptor = fix.Descriptor

		mutation, applyErr := s.cfg.Controller.Apply(ctx, s.cfg.Target, fix.Content, s.testVerifier())
		if applyErr != nil {
			s.record(ctx, record)
			if errors.Is(applyErr, mutate.ErrTargetNotFound) {
				return s.finish(ctx, result, types.RepairAborted, lastOutput,
					fmt.Sprintf("target disappeared mid-session: %v", applyErr)), nil
			}
			// Any other controller error means the safety guarantee is
			// in doubt; end the session rather than keep mutating.
			return s.finish(ctx, result, types.RepairAborted, lastOutput,
				fmt.Sprintf("mutation failed on attempt %d: %v", attempt, applyErr)), nil
		}
		record.MutationOutcome = mutation.Outcome
		if mutation.Verification != nil {
			lastOutput = mutation.Verification.RawOutput
		}
		s.record(ctx, record)

		if mutation.Kept() {
			return s.finish(ctx, result, types.RepairSucceeded, lastOutput, ""), nil
		}
	}

	return s.finish(ctx, result, types.RepairExhausted, lastOutput, ""), nil
}

// SearchQuery derives the best-effort search query for a failure category.
func SearchQuery(c types.ErrorClassification) string {
	return fmt.Sprintf("how to fix %s test failure", c.Category)
}

// testVerifier adapts the session verifier so the mutation controller, which
// verifies the file it just mutated, instead runs the session's test target.
func (s *Session) testVerifier() verify.Verifier {
	return verifierFunc(func(ctx context.Context, _ string) (*types.VerificationResult, error) {
		return s.cfg.Verifier.Run(ctx, s.cfg.TestTarget)
	})
}

type verifierFunc func(ctx context.Context, target string) (*types.VerificationResult, error)

func (f verifierFunc) Run(ctx context.Context, target string) (*types.VerificationResult, error) {
	return f(ctx, target)
}

// record appends an attempt to the in-memory history and, when a recorder is
// configured, persists it. Persistence failures are deliberately ignored;
// history survives in memory either way.
func (s *Session) record(ctx context.Context, attempt *types.RepairAttempt) {
	s.attempts = append(s.attempts, attempt)
	if s.cfg.Recorder != nil {
		_ = s.cfg.Recorder.RecordAttempt(ctx, s.id, attempt)
	}
}

// finish populates the terminal result and persists the session summary.
func (s *Session) finish(ctx context.Context, result *types.RepairResult, status types.RepairStatus, finalOutput, abortReason string) *types.RepairResult {
	result.Status = status
	result.Attempts = s.History()
	result.AttemptCount = len(result.Attempts)
	result.FinalOutput = finalOutput
	result.AbortReason = abortReason
	if s.cfg.Recorder != nil {
		_ = s.cfg.Recorder.RecordSession(ctx, s.cfg.Target, result)
	}
	return result
}
