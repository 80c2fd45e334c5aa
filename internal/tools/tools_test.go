package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRegistry verifies registration, lookup, and duplicate rejection.
func TestRegistry(t *testing.T) {
	r := NewRegistry()
	reader := &FileReader{Root: "."}
	writer := &FileWriter{Root: "."}

	if err := r.Register(reader); err != nil {
		t.Fatalf("Register(reader) error = %v", err)
	}
	if err := r.Register(writer); err != nil {
		t.Fatalf("Register(writer) error = %v", err)
	}
	if err := r.Register(&FileReader{Root: "/other"}); err == nil {
		t.Error("Register() accepted a duplicate name, want error")
	}

	got, err := r.Get("read_file")
	if err != nil {
		t.Fatalf("Get(read_file) error = %v", err)
	}
	if got != Tool(reader) {
		t.Error("Get(read_file) returned a different tool")
	}
	if _, err := r.Get("no_such_tool"); err == nil {
		t.Error("Get() of unknown tool succeeded, want error")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "read_file" || names[1] != "write_file" {
		t.Errorf("Names() = %v, want sorted [read_file write_file]", names)
	}
}

// TestFileReader verifies confined reads and the not-found message.
func TestFileReader(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "app.py"), []byte("print('hi')\n"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	reader := &FileReader{Root: root}

	content, err := reader.Invoke(context.Background(), "app.py")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if content != "print('hi')\n" {
		t.Errorf("Invoke() = %q, want file content", content)
	}

	if _, err := reader.Invoke(context.Background(), "missing.py"); err == nil {
		t.Error("Invoke() of missing file succeeded, want error")
	}
}

// TestPathConfinement verifies traversal out of the project root is blocked
// for both reads and writes.
func TestPathConfinement(t *testing.T) {
	root := t.TempDir()
	reader := &FileReader{Root: root}
	writer := &FileWriter{Root: root}

	escapes := []string{
		"../outside.txt",
		"../../etc/passwd",
		"sub/../../outside.txt",
		"/etc/passwd",
	}
	for _, path := range escapes {
		if _, err := reader.Invoke(context.Background(), path); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("reader.Invoke(%q) error = %v, want ErrOutsideRoot", path, err)
		}
		input := `{"path": "` + path + `", "content": "x"}`
		if _, err := writer.Invoke(context.Background(), input); !errors.Is(err, ErrOutsideRoot) {
			t.Errorf("writer.Invoke(%q) error = %v, want ErrOutsideRoot", path, err)
		}
	}

	// A dot segment that stays inside the root is fine.
	if err := os.WriteFile(filepath.Join(root, "ok.txt"), []byte("ok"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}
	if _, err := reader.Invoke(context.Background(), "sub/../ok.txt"); err != nil {
		t.Errorf("reader.Invoke(inside path) error = %v", err)
	}
}

// TestFileWriter verifies JSON-driven writes and input validation.
func TestFileWriter(t *testing.T) {
	root := t.TempDir()
	writer := &FileWriter{Root: root}

	out, err := writer.Invoke(context.Background(), `{"path": "new.txt", "content": "hello"}`)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(out, "5 bytes") {
		t.Errorf("Invoke() = %q, want byte count in confirmation", out)
	}
	content, err := os.ReadFile(filepath.Join(root, "new.txt"))
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("written content = %q, want %q", content, "hello")
	}

	if _, err := writer.Invoke(context.Background(), "not json"); err == nil {
		t.Error("Invoke() with invalid JSON succeeded, want error")
	}
	if _, err := writer.Invoke(context.Background(), `{"content": "no path"}`); err == nil {
		t.Error("Invoke() without path succeeded, want error")
	}
}

// TestShellTool verifies command execution, exit code reporting, and the
// timeout cap.
func TestShellTool(t *testing.T) {
	shell := &ShellTool{}

	out, err := shell.Invoke(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(out, "Exit Code: 0") || !strings.Contains(out, "hello") {
		t.Errorf("Invoke() = %q, want transcript with exit code and output", out)
	}

	out, err = shell.Invoke(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !strings.Contains(out, "Exit Code: 3") {
		t.Errorf("Invoke() = %q, want exit code 3 in transcript", out)
	}
}

// TestShellToolTimeout verifies a long-running command is cut off.
func TestShellToolTimeout(t *testing.T) {
	shell := &ShellTool{Timeout: 100 * time.Millisecond}
	if _, err := shell.Invoke(context.Background(), "sleep 5"); err == nil {
		t.Error("Invoke() of slow command succeeded, want timeout error")
	}
}
