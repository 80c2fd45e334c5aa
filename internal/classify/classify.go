// Package classify derives a coarse failure category and a short diagnostic
// excerpt from raw verifier output. Classification is deterministic, total,
// and driven by an ordered rule table so the rule set can be tested and
// extended independently of the scanning logic.
package classify

import (
	"strings"

	"github.com/fixpoint-ai/fixpoint/internal/types"
)

// Rule maps an error category to the keywords that indicate it.
type Rule struct {
	Category types.ErrorCategory
	Keywords []string
}

// DefaultRules is the standard rule table, in priority order. Rules are
// checked against the whole output one at a time; the first rule with a
// keyword hit anywhere decides the category, so a high-priority error on the
// last line beats a low-priority one on the first.
var DefaultRules = []Rule{
	{Category: types.CategoryAssertion, Keywords: []string{"AssertionError"}},
	{Category: types.CategoryAttribute, Keywords: []string{"AttributeError"}},
	{Category: types.CategoryType, Keywords: []string{"TypeError"}},
	{Category: types.CategoryValue, Keywords: []string{"ValueError"}},
	{Category: types.CategoryImport, Keywords: []string{"ImportError", "ModuleNotFoundError"}},
}

// excerptMarkers are the tokens that identify the first failure-indicating
// line used for the message excerpt.
var excerptMarkers = []string{"Error", "FAILED"}

// Classifier assigns failure categories to verification results.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the default rule table.
func New() *Classifier {
	return NewWithRules(DefaultRules)
}

// NewWithRules creates a classifier with a custom rule table. Rules are
// evaluated in the given order.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify maps a verification result onto an error classification. It is a
// total function: when no rule matches it returns CategoryUnknown with an
// empty excerpt rather than failing.
func (c *Classifier) Classify(result *types.VerificationResult) types.ErrorClassification {
	if result == nil {
		return types.ErrorClassification{Category: types.CategoryUnknown}
	}

	lines := strings.Split(result.RawOutput, "\n")

	classification := types.ErrorClassification{Category: types.CategoryUnknown}

	// Priority-first: each rule scans the full output before the next rule
	// is considered. Pytest tracebacks routinely mention other error types
	// in code frames above the decisive E line, so position cannot decide.
scan:
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(result.RawOutput, kw) {
				classification.Category = rule.Category
				break scan
			}
		}
	}

	classification.MessageExcerpt = excerpt(lines)
	return classification
}

// excerpt returns the first failure-indicating line plus one line of
// following context, or empty when no marker is present.
func excerpt(lines []string) string {
	for i, line := range lines {
		for _, marker := range excerptMarkers {
			if strings.Contains(line, marker) {
				out := strings.TrimSpace(line)
				if i+1 < len(lines) {
					next := strings.TrimSpace(lines[i+1])
					if next != "" {
						out += "\n" + next
					}
				}
				return out
			}
		}
	}
	return ""
}
