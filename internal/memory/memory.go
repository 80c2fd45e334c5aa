// Package memory persists project context across sessions: what the project
// is, which files matter, and what past repair sessions learned. The repl
// surfaces it on request and repair sessions append learnings on completion.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Learning is one recorded insight from a past session.
type Learning struct {
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Solution    string    `json:"solution,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Context is the persisted project memory.
type Context struct {
	ProjectName string            `json:"project_name,omitempty"`
	LastUpdated time.Time         `json:"last_updated"`
	TechStack   []string          `json:"tech_stack,omitempty"`
	KeyFiles    map[string]string `json:"key_files,omitempty"`
	Learnings   []Learning        `json:"learnings,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Memory reads and writes the project context file.
type Memory struct {
	path string
}

// New creates a memory backed by the given file path.
func New(path string) *Memory {
	return &Memory{path: path}
}

// Load reads the context. A missing file yields an empty context, not an
// error: a fresh project simply has no memory yet.
func (m *Memory) Load() (*Context, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Context{}, nil
		}
		return nil, fmt.Errorf("failed to read project memory: %w", err)
	}
	var ctx Context
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("failed to parse project memory: %w", err)
	}
	return &ctx, nil
}

// Save writes the context back, stamping LastUpdated.
func (m *Memory) Save(ctx *Context) error {
	ctx.LastUpdated = time.Now()
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project memory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project memory: %w", err)
	}
	return nil
}

// AddLearning appends a learning and saves.
func (m *Memory) AddLearning(category, description, solution string) error {
	ctx, err := m.Load()
	if err != nil {
		return err
	}
	ctx.Learnings = append(ctx.Learnings, Learning{
		Category:    category,
		Description: description,
		Solution:    solution,
		RecordedAt:  time.Now(),
	})
	return m.Save(ctx)
}

// Render formats the context for display.
func (m *Memory) Render() (string, error) {
	ctx, err := m.Load()
	if err != nil {
		return "", err
	}
	if ctx.LastUpdated.IsZero() && ctx.ProjectName == "" && len(ctx.Learnings) == 0 {
		return "No project memory found. Starting fresh session.\n", nil
	}

	var b strings.Builder
	b.WriteString("PROJECT MEMORY\n")
	if ctx.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", ctx.ProjectName)
	}
	if !ctx.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "Last Updated: %s\n", ctx.LastUpdated.Format(time.RFC3339))
	}
	if len(ctx.TechStack) > 0 {
		fmt.Fprintf(&b, "Tech Stack: %s\n", strings.Join(ctx.TechStack, ", "))
	}
	if len(ctx.KeyFiles) > 0 {
		b.WriteString("Key Files:\n")
		for file, desc := range ctx.KeyFiles {
			fmt.Fprintf(&b, "  - %s: %s\n", file, desc)
		}
	}
	if len(ctx.Learnings) > 0 {
		b.WriteString("Recent Learnings:\n")
		start := 0
		if len(ctx.Learnings) > 5 {
			start = len(ctx.Learnings) - 5
		}
		for _, l := range ctx.Learnings[start:] {
			fmt.Fprintf(&b, "  - [%s] %s", l.Category, l.Description)
			if l.Solution != "" {
				fmt.Fprintf(&b, " -> %s", l.Solution)
			}
			b.WriteString("\n")
		}
	}
	if len(ctx.Preferences) > 0 {
		b.WriteString("Preferences:\n")
		for key, value := range ctx.Preferences {
			fmt.Fprintf(&b, "  - %s: %s\n", key, value)
		}
	}
	return b.String(), nil
}
