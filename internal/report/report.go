// Package report merges the independent specialist reports (security, code
// quality, test coverage) into a single severity-ranked audit with a final
// verdict. Classification is heuristic keyword matching over free text, with
// the rules expressed as data so they can be tested on their own.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fixpoint-ai/fixpoint/internal/types"
)

// Tier ranks a finding's severity.
type Tier int

const (
	TierCritical Tier = iota
	TierWarning
	TierSuggestion
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierWarning:
		return "warning"
	case TierSuggestion:
		return "suggestion"
	default:
		return "unknown"
	}
}

// Finding is one bucketed issue extracted from a specialist report.
type Finding struct {
	Tier   Tier
	Source string // SECURITY, QUALITY or TESTING
	Text   string
}

// Input holds the three specialist report blobs. Any of them may be empty.
type Input struct {
	Security  string
	Quality   string
	TestNotes string
}

// Aggregate is the merged audit: all findings, the verdict, and the
// formatted report text.
type Aggregate struct {
	Findings []Finding
	Verdict  types.Verdict
	Text     string
}

// securityTriggers marks a security report as containing critical content.
var securityTriggers = []string{"Critical", "High", "SQL", "injection"}

// securityDetailKeywords select the line quoted in the critical finding.
// Matched case-insensitively.
var securityDetailKeywords = []string{"sql injection", "xss", "critical", "high severity"}

var (
	scoreRe    = regexp.MustCompile(`(\d+\.?\d*)/10`)
	coverageRe = regexp.MustCompile(`(\d+)%`)
)

// qualityScoreRules bucket a pylint-style 0-10 score. First rule whose
// threshold exceeds the score wins.
var qualityScoreRules = []struct {
	Below  float64
	Tier   Tier
	Format string
}{
	{5.0, TierCritical, "Very low code quality score (%.1f/10)"},
	{7.0, TierWarning, "Below-average code quality score (%.1f/10)"},
}

// complexityGradeRules bucket radon-style complexity grades.
var complexityGradeRules = []struct {
	Grade string
	Tier  Tier
	Text  string
}{
	{"F", TierCritical, "Extremely complex code detected (Grade F)"},
	{"D", TierWarning, "Very complex code (Grade D) - refactoring recommended"},
	{"C", TierSuggestion, "Moderate complexity (Grade C) - consider simplification"},
}

// coverageRules bucket a test coverage percentage. First rule whose
// threshold exceeds the coverage wins; full coverage lands in the catch-all.
var coverageRules = []struct {
	Below  int
	Tier   Tier
	Format string
}{
	{50, TierCritical, "Very low test coverage (%d%%)"},
	{80, TierWarning, "Insufficient test coverage (%d%%)"},
	{101, TierSuggestion, "Good test coverage (%d%%)"},
}

// Build merges the specialist reports into a prioritized audit report.
// Verdict follows strict priority: any critical finding means REJECT, else
// any warning means CONDITIONAL, else APPROVE.
func Build(in Input) *Aggregate {
	agg := &Aggregate{}
	agg.Findings = append(agg.Findings, securityFindings(in.Security)...)
	agg.Findings = append(agg.Findings, qualityFindings(in.Quality)...)
	agg.Findings = append(agg.Findings, coverageFindings(in.TestNotes)...)
	agg.Verdict = verdict(agg.Findings)
	agg.Text = format(in, agg)
	return agg
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func securityFindings(report string) []Finding {
	if report == "" || !containsAny(report, securityTriggers) {
		return nil
	}
	// Quote the first line naming a concrete vulnerability; fall back to a
	// generic pointer at the detailed report.
	text := "Critical vulnerabilities detected - see detailed report"
	for _, line := range strings.Split(report, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range securityDetailKeywords {
			if strings.Contains(lower, kw) {
				text = strings.TrimSpace(line)
				return []Finding{{Tier: TierCritical, Source: "SECURITY", Text: text}}
			}
		}
	}
	return []Finding{{Tier: TierCritical, Source: "SECURITY", Text: text}}
}

func qualityFindings(report string) []Finding {
	if report == "" {
		return nil
	}
	var findings []Finding

	if m := scoreRe.FindStringSubmatch(report); m != nil {
		if score, err := strconv.ParseFloat(m[1], 64); err == nil {
			for _, rule := range qualityScoreRules {
				if score < rule.Below {
					findings = append(findings, Finding{
						Tier:   rule.Tier,
						Source: "QUALITY",
						Text:   fmt.Sprintf(rule.Format, score),
					})
					break
				}
			}
		}
	}

	for _, rule := range complexityGradeRules {
		if strings.Contains(report, "Grade: "+rule.Grade) || strings.Contains(report, "Grade "+rule.Grade) {
			findings = append(findings, Finding{Tier: rule.Tier, Source: "QUALITY", Text: rule.Text})
			break
		}
	}
	return findings
}

func coverageFindings(notes string) []Finding {
	if notes == "" {
		return nil
	}
	m := coverageRe.FindStringSubmatch(notes)
	if m == nil {
		return nil
	}
	coverage, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	for _, rule := range coverageRules {
		if coverage < rule.Below {
			return []Finding{{
				Tier:   rule.Tier,
				Source: "TESTING",
				Text:   fmt.Sprintf(rule.Format, coverage),
			}}
		}
	}
	return nil
}

func verdict(findings []Finding) types.Verdict {
	hasWarning := false
	for _, f := range findings {
		switch f.Tier {
		case TierCritical:
			return types.VerdictReject
		case TierWarning:
			hasWarning = true
		}
	}
	if hasWarning {
		return types.VerdictConditional
	}
	return types.VerdictApprove
}

func (a *Aggregate) byTier(tier Tier) []Finding {
	var out []Finding
	for _, f := range a.Findings {
		if f.Tier == tier {
			out = append(out, f)
		}
	}
	return out
}

const rule = "======================================================================"
const thinRule = "----------------------------------------------------------------------"

// format renders the audit report with the fixed section markers downstream
// consumers key on.
func format(in Input, agg *Aggregate) string {
	var b strings.Builder

	critical := agg.byTier(TierCritical)
	warnings := agg.byTier(TierWarning)
	suggestions := agg.byTier(TierSuggestion)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "COMPREHENSIVE CODE AUDIT REPORT\n")
	fmt.Fprintf(&b, "%s\n\n", rule)

	fmt.Fprintf(&b, "EXECUTIVE SUMMARY:\n%s\n", thinRule)
	if len(critical) > 0 {
		fmt.Fprintf(&b, "CRITICAL ISSUES FOUND - MUST FIX BEFORE MERGE:\n")
		for _, f := range critical {
			fmt.Fprintf(&b, "   [%s] %s\n", f.Source, f.Text)
		}
		b.WriteString("\n")
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "WARNINGS - SHOULD ADDRESS:\n")
		for _, f := range warnings {
			fmt.Fprintf(&b, "   [%s] %s\n", f.Source, f.Text)
		}
		b.WriteString("\n")
	}
	if len(suggestions) > 0 && len(critical) == 0 {
		fmt.Fprintf(&b, "SUGGESTIONS FOR IMPROVEMENT:\n")
		for _, f := range suggestions {
			fmt.Fprintf(&b, "   [%s] %s\n", f.Source, f.Text)
		}
		b.WriteString("\n")
	}
	if len(critical) == 0 && len(warnings) == 0 {
		fmt.Fprintf(&b, "No critical issues or warnings detected\n\n")
	}

	section := func(title, body, empty string) {
		fmt.Fprintf(&b, "%s\n%s:\n%s\n", rule, title, rule)
		if body != "" {
			fmt.Fprintf(&b, "%s\n\n", body)
		} else {
			fmt.Fprintf(&b, "%s\n\n", empty)
		}
	}
	section("SECURITY ANALYSIS", in.Security, "No security scan results provided.")
	section("CODE QUALITY ANALYSIS", in.Quality, "No quality analysis results provided.")
	section("TEST COVERAGE ANALYSIS", in.TestNotes, "No test coverage analysis provided.")

	fmt.Fprintf(&b, "%s\nFINAL RECOMMENDATION:\n%s\n", rule, rule)
	switch agg.Verdict {
	case types.VerdictReject:
		fmt.Fprintf(&b, "REJECT - DO NOT MERGE\n")
		fmt.Fprintf(&b, "   Found %d critical issue(s) requiring immediate attention.\n", len(critical))
	case types.VerdictConditional:
		fmt.Fprintf(&b, "CONDITIONAL APPROVAL\n")
		fmt.Fprintf(&b, "   Found %d warning(s) that should be addressed before merge.\n", len(warnings))
	default:
		fmt.Fprintf(&b, "APPROVE - READY FOR MERGE\n")
		fmt.Fprintf(&b, "   Code meets quality standards and security requirements.\n")
		if len(suggestions) > 0 {
			fmt.Fprintf(&b, "   Consider implementing %d suggestion(s) for further improvement.\n", len(suggestions))
		}
	}
	fmt.Fprintf(&b, "%s\n", rule)

	return b.String()
}
