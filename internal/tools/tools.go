// Package tools defines the capability interface the agents and the repl
// depend on, plus the built-in file and shell capabilities. Callers see only
// the Tool interface, never concrete tool identities.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Tool is a named capability with a single text-in, text-out invocation.
type Tool interface {
	Name() string
	Invoke(ctx context.Context, input string) (string, error)
}

// Registry holds the tools available to a session.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a second tool under the same name is an
// error: tool identity must be unambiguous.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool must have a name")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Get returns the named tool, or an error if it is not registered.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrOutsideRoot is returned when a path escapes the project root. Path
// confinement blocks traversal out of the project directory.
var ErrOutsideRoot = errors.New("access denied: path is outside the project directory")

// confine resolves path and verifies it stays under root.
func confine(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, path)
	}
	abs = filepath.Clean(abs)
	if abs != absRoot && !strings.HasPrefix(abs, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return abs, nil
}

// FileReader reads files confined to a project root.
type FileReader struct {
	Root string
}

func (t *FileReader) Name() string { return "read_file" }

// Invoke reads the file at the given path (the whole input is the path).
func (t *FileReader) Invoke(_ context.Context, input string) (string, error) {
	path, err := confine(t.Root, strings.TrimSpace(input))
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not found at %s", input)
		}
		return "", fmt.Errorf("failed to read %s: %w", input, err)
	}
	return string(content), nil
}

// WriteRequest is the JSON input accepted by FileWriter.
type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FileWriter writes files confined to a project root. This is the raw write
// capability; mutations that need the backup/verify/rollback guarantee go
// through the mutation controller instead.
type FileWriter struct {
	Root string
}

func (t *FileWriter) Name() string { return "write_file" }

// Invoke writes the content from a JSON WriteRequest.
func (t *FileWriter) Invoke(_ context.Context, input string) (string, error) {
	var req WriteRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", fmt.Errorf("invalid write request: %w", err)
	}
	if req.Path == "" {
		return "", fmt.Errorf("write request requires a path")
	}
	path, err := confine(t.Root, req.Path)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(req.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", req.Path, err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(req.Content), filepath.Base(path)), nil
}

// MaxShellTimeout caps shell tool execution regardless of configuration.
const MaxShellTimeout = 60 * time.Second

// ShellTool runs a shell command with a capped timeout and captured output.
type ShellTool struct {
	Dir     string
	Timeout time.Duration // capped at MaxShellTimeout; zero means 30s
}

func (t *ShellTool) Name() string { return "run_shell" }

// Invoke executes the input as a shell command and returns a formatted
// transcript including the exit status.
func (t *ShellTool) Invoke(ctx context.Context, input string) (string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if timeout > MaxShellTimeout {
		timeout = MaxShellTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", input)
	if t.Dir != "" {
		cmd.Dir = t.Dir
	}
	output, err := cmd.CombinedOutput()

	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %v", timeout)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", fmt.Errorf("failed to run command: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\nExit Code: %d\n", input, exitCode)
	if len(output) > 0 {
		fmt.Fprintf(&b, "Output:\n%s", output)
	}
	return b.String(), nil
}
