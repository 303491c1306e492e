package tools

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

// FetchConfig controls the HTTP fetch tool.
type FetchConfig struct {
	// MaxBytes caps the response body. Default: 100000.
	MaxBytes int

	// Timeout bounds one fetch. Default: 30s.
	Timeout time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

type fetchURLInput struct {
	URL string `json:"url" jsonschema:"description=The http or https URL to fetch"`
}

// FetchURLTool retrieves a URL and returns the response body, truncated to
// the configured byte limit.
type FetchURLTool struct {
	client   *http.Client
	maxBytes int
}

// NewFetchURLTool creates a fetch tool.
func NewFetchURLTool(config FetchConfig) *FetchURLTool {
	if config.MaxBytes <= 0 {
		config.MaxBytes = 100000
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &FetchURLTool{client: client, maxBytes: config.MaxBytes}
}

func (t *FetchURLTool) Name() string { return "fetch_url" }

func (t *FetchURLTool) Description() string {
	return "Fetch a URL over HTTP and return the response body as text."
}

func (t *FetchURLTool) Schema() json.RawMessage {
	return reflectSchema(&fetchURLInput{})
}

func (t *FetchURLTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var input fetchURLInput
	if err := json.Unmarshal(params, &input); err != nil {
		return "", fmt.Errorf("invalid parameters: %w", err)
	}

	parsed, err := url.Parse(strings.TrimSpace(input.URL))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", parsed.String(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxBytes)+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	truncated := false
	if len(body) > t.maxBytes {
		body = body[:t.maxBytes]
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP %d\n\n", resp.StatusCode)
	b.Write(body)
	if truncated {
		b.WriteString("\n[truncated]")
	}
	return b.String(), nil
}
