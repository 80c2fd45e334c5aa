package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestSearchFormatsResults verifies query encoding and result formatting
// against a fake instant answer endpoint.
func TestSearchFormatsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "how to fix assertion_failure test failure" {
			t.Errorf("query = %q, want the search query", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		w.Write([]byte(`{
			"AbstractText": "AssertionError is raised when an assert statement fails.",
			"AbstractURL": "https://example.org/assert",
			"RelatedTopics": [
				{"Text": "Debugging assertion errors", "FirstURL": "https://example.org/debug"},
				{"Text": "", "FirstURL": "https://example.org/empty"},
				{"Text": "pytest assertion rewriting", "FirstURL": "https://example.org/pytest"}
			]
		}`))
	}))
	defer server.Close()

	c := &Client{Endpoint: server.URL, MaxResults: 5, HTTPClient: server.Client()}
	out, err := c.Search(context.Background(), "how to fix assertion_failure test failure")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, want := range []string{
		"AssertionError is raised",
		"Source: https://example.org/assert",
		"1. Debugging assertion errors",
		"2. pytest assertion rewriting",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Search() output missing %q:\n%s", want, out)
		}
	}
}

// TestSearchMaxResults verifies the related-topic cap.
func TestSearchMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RelatedTopics": [
			{"Text": "one"}, {"Text": "two"}, {"Text": "three"}
		]}`))
	}))
	defer server.Close()

	c := &Client{Endpoint: server.URL, MaxResults: 2, HTTPClient: server.Client()}
	out, err := c.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if strings.Contains(out, "three") {
		t.Errorf("Search() exceeded max results:\n%s", out)
	}
}

// TestSearchEmptyAnswer verifies the no-results message.
func TestSearchEmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := &Client{Endpoint: server.URL, HTTPClient: server.Client()}
	out, err := c.Search(context.Background(), "obscure query")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !strings.Contains(out, "No results found.") {
		t.Errorf("Search() = %q, want no-results message", out)
	}
}

// TestSearchServerError verifies non-200 responses surface as errors the
// repair loop can ignore.
func TestSearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := &Client{Endpoint: server.URL, HTTPClient: server.Client()}
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Error("Search() against failing server succeeded, want error")
	}
}
