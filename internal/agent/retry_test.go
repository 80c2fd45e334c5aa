package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// TestIsRetryable verifies the transient error markers.
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("rate limit exceeded"), true},
		{errors.New("Overloaded, please retry"), true},
		{errors.New("status 529"), true},
		{errors.New("502 Bad Gateway"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("invalid api key"), false},
		{errors.New("400 bad request"), false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// TestRetrySucceedsAfterTransientFailures verifies recovery within the
// budget.
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), "test-op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("429 rate limited")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d time(s), want 3", calls)
	}
}

// TestRetryStopsOnNonRetryable verifies permanent errors fail immediately.
func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid api key")
	err := retryWithBackoff(context.Background(), fastRetryConfig(), "test-op", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("retryWithBackoff() error = %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d time(s), want 1 for a non-retryable error", calls)
	}
}

// TestRetryExhaustsBudget verifies persistent transient errors eventually
// surface with the attempt count.
func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), "test-op", func(context.Context) error {
		calls++
		return errors.New("503 service unavailable")
	})
	if err == nil {
		t.Fatal("retryWithBackoff() succeeded, want exhaustion error")
	}
	if calls != 4 {
		t.Errorf("fn called %d time(s), want 4 (initial + 3 retries)", calls)
	}
}

// TestRetryRespectsCancellation verifies a canceled context stops the loop.
func TestRetryRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retryWithBackoff(ctx, fastRetryConfig(), "test-op", func(context.Context) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("retryWithBackoff() with canceled context succeeded, want error")
	}
	if calls != 0 {
		t.Errorf("fn called %d time(s) after cancel, want 0", calls)
	}
}

// TestExtractCodeBlock verifies fenced block parsing from model responses.
func TestExtractCodeBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			"block with language tag",
			"FIX: change status\n```python\nreturn 200\n```\ndone",
			"return 200\n",
			true,
		},
		{
			"block without language tag",
			"```\nx = 1\n```",
			"x = 1\n",
			true,
		},
		{"no block", "just prose", "", false},
		{"unterminated block", "```python\nreturn 200", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractCodeBlock(tt.text)
			if ok != tt.ok {
				t.Fatalf("extractCodeBlock() ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("extractCodeBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTruncateKeepsTail verifies truncation preserves the end of the text,
// where test runners put the failure summary.
func TestTruncateKeepsTail(t *testing.T) {
	long := fmt.Sprintf("%0100d tail-marker", 1)
	got := truncate(long, 20)
	if len(got) <= 20 && got == long {
		t.Error("truncate() did not shorten long text")
	}
	if got[len(got)-11:] != "tail-marker" {
		t.Errorf("truncate() = %q, want tail preserved", got)
	}

	if truncate("short", 20) != "short" {
		t.Error("truncate() modified text under the limit")
	}
}
