package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fixpoint-ai/fixpoint/internal/repair"
)

// Fixer adapts the debugging agent to the repair loop's FixGenerator
// interface. Each call reads the current target content, so consecutive
// attempts see the effect of earlier rolled-back or kept fixes.
type Fixer struct {
	Client *Client
}

var _ repair.FixGenerator = (*Fixer)(nil)

// GenerateFix proposes a corrected version of the target file based on the
// failing test output, the error classification, and any search context.
func (f *Fixer) GenerateFix(ctx context.Context, req *repair.FixRequest) (*repair.Fix, error) {
	current, err := os.ReadFile(req.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to read target %s: %w", req.Target, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a debugging engineer fixing a failing test.

Target file: %s

Current content:
%s

Failing test output:
%s

Error category: %s
`, req.Target, string(current), truncate(req.TestOutput, 8000), req.Classification.Category)

	if req.Classification.MessageExcerpt != "" {
		fmt.Fprintf(&b, "\nKey error lines:\n%s\n", req.Classification.MessageExcerpt)
	}
	if req.SearchContext != "" {
		fmt.Fprintf(&b, "\nExternal context that may help:\n%s\n", truncate(req.SearchContext, 2000))
	}
	fmt.Fprintf(&b, `
This is attempt %d. Earlier attempts (if any) did not fix the failure, so
propose a different approach than the obvious one if the error persists.

Respond with:
1. One line starting with "FIX:" summarizing the change.
2. The complete corrected file content in a single fenced code block.
Do not omit any part of the file.`, req.AttemptNumber)

	response, err := f.Client.complete(ctx, AgentDebugger, "generate-fix", b.String(), 8192)
	if err != nil {
		return nil, err
	}

	content, ok := extractCodeBlock(response)
	if !ok {
		return nil, fmt.Errorf("fix response contained no code block")
	}

	descriptor := "proposed fix"
	for _, line := range strings.Split(response, "\n") {
		if after, found := strings.CutPrefix(strings.TrimSpace(line), "FIX:"); found {
			descriptor = strings.TrimSpace(after)
			break
		}
	}

	return &repair.Fix{
		Content:    []byte(content),
		Descriptor: descriptor,
	}, nil
}

// extractCodeBlock returns the contents of the first fenced code block.
func extractCodeBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]
	// Skip the language tag line if present.
	if nl := strings.Index(rest, "\n"); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// truncate limits text to n bytes, keeping the tail where test runners put
// the failure summary.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return "... (truncated)\n" + text[len(text)-n:]
}
