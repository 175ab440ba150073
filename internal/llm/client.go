// Package llm improvises speech lines with a local Ollama model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"
)

// Defaults for a local Ollama install.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "phi3:mini"
	DefaultTimeout = 30 * time.Second
)

// Config holds LLM client configuration.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to Ollama's HTTP API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client, filling zero fields with the defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate sends a prompt and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "")
}

// GenerateJSON sends a prompt and asks for JSON output.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt, "json")
}

func (c *Client) generate(ctx context.Context, prompt, format string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Format: format})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var out generateResponse
	if err := c.do(ctx, http.MethodPost, "/api/generate", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// Ping checks that Ollama answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/tags", nil, nil)
}

// Models lists the installed model names.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var tags tagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// CheckModel reports whether the configured model is installed, along with
// everything that is.
func (c *Client) CheckModel(ctx context.Context) (bool, []string, error) {
	names, err := c.Models(ctx)
	if err != nil {
		return false, nil, err
	}
	return slices.Contains(names, c.model), names, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
