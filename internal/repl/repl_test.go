package repl

import "testing"

// TestClassify verifies the keyword routing table, including the precedence
// of comprehensive-audit triggers over single-specialist ones.
func TestClassify(t *testing.T) {
	tests := []struct {
		request string
		want    Route
	}{
		{"review app.py for merge readiness", RouteAudit},
		{"is utils.py merge ready?", RouteAudit},
		{"run a comprehensive check on app.py", RouteAudit},
		{"security scan app.py", RouteSecurity},
		{"check app.py for SQL injection", RouteSecurity},
		{"check the complexity of utils.py", RouteQuality},
		{"lint app.py", RouteQuality},
		{"generate tests for app.py", RouteTests},
		{"fix the broken login handler", RouteRepair},
		{"debug app.py", RouteRepair},
		// Mixed keywords: repair outranks test generation.
		{"fix the failing test in app.py", RouteRepair},
		{"debug the test suite", RouteRepair},
		{"what time is it", RouteUnknown},
		// "review the test quality" matches the audit trigger first.
		{"review the test quality of app.py", RouteAudit},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			if got := Classify(tt.request); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.request, got, tt.want)
			}
		})
	}
}

// TestExtractTarget verifies path extraction from free text.
func TestExtractTarget(t *testing.T) {
	tests := []struct {
		request string
		want    string
	}{
		{"review app.py for merge readiness", "app.py"},
		{"scan src/handlers/login.py please", "src/handlers/login.py"},
		{`audit "app.py"`, "app.py"},
		{"fix the login handler", ""},
		{"run with --verbose flag", ""},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			if got := ExtractTarget(tt.request); got != tt.want {
				t.Errorf("ExtractTarget(%q) = %q, want %q", tt.request, got, tt.want)
			}
		})
	}
}

// TestNewValidation verifies required collaborators.
func TestNewValidation(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Error("New() without client succeeded, want error")
	}
}
