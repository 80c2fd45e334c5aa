// Package repl is the interactive shell: it routes free-text requests to the
// specialist agents, runs comprehensive audits, and surfaces project memory.
// Routing is keyword-based; the routing table is data so it can be tested
// without a terminal.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/fixpoint-ai/fixpoint/internal/agent"
	"github.com/fixpoint-ai/fixpoint/internal/memory"
	"github.com/fixpoint-ai/fixpoint/internal/tools"
)

// Route identifies the specialist a request is dispatched to.
type Route string

const (
	RouteAudit    Route = "audit"
	RouteSecurity Route = "security"
	RouteQuality  Route = "quality"
	RouteTests    Route = "tests"
	RouteRepair   Route = "repair"
	RouteUnknown  Route = "unknown"
)

// routingRule maps request keywords to a route. Rules are checked in order;
// the first rule with a matching keyword wins, so the comprehensive-audit
// triggers outrank the single-specialist ones.
type routingRule struct {
	Route    Route
	Keywords []string
}

// routingTable is the dispatch order for free-text requests.
var routingTable = []routingRule{
	{RouteAudit, []string{"review", "audit", "comprehensive", "full analysis", "pr review", "merge ready", "merge readiness"}},
	{RouteSecurity, []string{"security", "vulnerab", "injection", "owasp"}},
	{RouteQuality, []string{"quality", "lint", "complexity", "refactor"}},
	// Repair outranks tests: "fix the failing test" is a repair request,
	// not a test-generation one.
	{RouteRepair, []string{"debug", "fix", "repair", "broken"}},
	{RouteTests, []string{"test"}},
}

// Classify routes a free-text request using the routing table.
func Classify(request string) Route {
	lower := strings.ToLower(request)
	for _, rule := range routingTable {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Route
			}
		}
	}
	return RouteUnknown
}

// ExtractTarget picks the path-looking token out of a request, if any.
func ExtractTarget(request string) string {
	for _, field := range strings.Fields(request) {
		trimmed := strings.Trim(field, `"'`)
		if strings.ContainsAny(trimmed, "./") && !strings.HasPrefix(trimmed, "-") {
			return trimmed
		}
	}
	return ""
}

// Config holds repl configuration.
type Config struct {
	Client *agent.Client
	Reader tools.Tool
	Memory *memory.Memory
	// Tools is the full capability registry, surfaced by the "tools"
	// built-in. Optional.
	Tools *tools.Registry
}

// REPL is the interactive shell.
type REPL struct {
	client *agent.Client
	reader tools.Tool
	memory *memory.Memory
	tools  *tools.Registry
	out    io.Writer
}

// New creates a repl instance.
func New(cfg *Config) (*REPL, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agent client is required")
	}
	if cfg.Reader == nil {
		return nil, fmt.Errorf("file reader tool is required")
	}
	return &REPL{
		client: cfg.Client,
		reader: cfg.Reader,
		memory: cfg.Memory,
		tools:  cfg.Tools,
	}, nil
}

// Run starts the interactive loop.
func (r *REPL) Run(ctx context.Context) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("fixpoint> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	r.out = rl.Stdout()

	r.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(r.out, "Goodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}

		if err := r.dispatch(ctx, line); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(r.out, "%s %v\n", red("Error:"), err)
		}
	}
}

func (r *REPL) printWelcome() {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(r.out, "%s\n", bold("fixpoint interactive shell"))
	fmt.Fprintln(r.out, `Describe what you need, naming a file. Examples:
  review app.py for merge readiness
  security scan app.py
  generate tests for app.py
Built-ins: memory, tools, help, exit`)
}

func (r *REPL) dispatch(ctx context.Context, line string) error {
	switch line {
	case "help":
		r.printWelcome()
		return nil
	case "memory":
		if r.memory == nil {
			return fmt.Errorf("project memory is not configured")
		}
		rendered, err := r.memory.Render()
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, rendered)
		return nil
	case "tools":
		if r.tools == nil {
			return fmt.Errorf("no tool registry configured")
		}
		for _, name := range r.tools.Names() {
			fmt.Fprintln(r.out, name)
		}
		return nil
	}

	route := Classify(line)
	target := ExtractTarget(line)
	if route == RouteUnknown {
		return fmt.Errorf("could not route request; try \"help\"")
	}
	if route != RouteRepair && target == "" {
		return fmt.Errorf("please name a file in the request")
	}

	switch route {
	case RouteAudit:
		agg, err := agent.Audit(ctx, r.client, r.reader, target)
		if err != nil {
			return err
		}
		fmt.Fprint(r.out, agg.Text)
	case RouteSecurity:
		return r.runSpecialist(ctx, target, r.client.SecurityScan)
	case RouteQuality:
		return r.runSpecialist(ctx, target, r.client.QualityCheck)
	case RouteTests:
		return r.runSpecialist(ctx, target, r.client.GenerateTests)
	case RouteRepair:
		// Repair needs a test target and mutates files; keep it behind
		// the explicit CLI command rather than a chat request.
		fmt.Fprintln(r.out, "Use: fixpoint repair --target <code-file> --tests <test-file>")
	}
	return nil
}

func (r *REPL) runSpecialist(ctx context.Context, target string, fn func(context.Context, string, string) (string, error)) error {
	code, err := r.reader.Invoke(ctx, target)
	if err != nil {
		return err
	}
	result, err := fn(ctx, target, code)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, result)
	return nil
}
