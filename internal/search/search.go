// Package search provides the external search collaborator consulted by the
// repair loop once a session looks stuck. Search is strictly best-effort:
// every failure mode degrades to "no context" rather than an error the loop
// would have to care about.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the DuckDuckGo instant answer API, which needs no key.
const DefaultEndpoint = "https://api.duckduckgo.com/"

// DefaultMaxResults caps how many related topics are included.
const DefaultMaxResults = 5

// Client queries a web search endpoint for error context.
type Client struct {
	Endpoint   string
	MaxResults int
	HTTPClient *http.Client
}

// NewClient creates a search client against the default endpoint.
func NewClient() *Client {
	return &Client{
		Endpoint:   DefaultEndpoint,
		MaxResults: DefaultMaxResults,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// instantAnswer is the subset of the response we consume.
type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search runs the query and returns a formatted summary of results.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return "", fmt.Errorf("failed to parse search response: %w", err)
	}

	return c.formatAnswer(query, &answer), nil
}

func (c *Client) formatAnswer(query string, answer *instantAnswer) string {
	max := c.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n", query)
	if answer.AbstractText != "" {
		fmt.Fprintf(&b, "%s\n", answer.AbstractText)
		if answer.AbstractURL != "" {
			fmt.Fprintf(&b, "Source: %s\n", answer.AbstractURL)
		}
	}
	count := 0
	for _, topic := range answer.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		count++
		fmt.Fprintf(&b, "%d. %s", count, topic.Text)
		if topic.FirstURL != "" {
			fmt.Fprintf(&b, " (%s)", topic.FirstURL)
		}
		b.WriteString("\n")
		if count >= max {
			break
		}
	}
	if answer.AbstractText == "" && count == 0 {
		fmt.Fprintf(&b, "No results found.\n")
	}
	return b.String()
}
