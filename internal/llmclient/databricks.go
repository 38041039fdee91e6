package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DatabricksClient calls a Databricks Model Serving endpoint
// (OpenAI-compatible chat completions).
// See: https://docs.databricks.com/machine-learning/model-serving/
type DatabricksClient struct {
	http     *http.Client
	token    string
	model    string
	endpoint string
}

// NewDatabricksClient creates a client for host + endpoint path
// (e.g. /serving-endpoints/databricks-gpt-oss-120b/invocations).
// If token is empty, it falls back to the DATABRICKS_TOKEN env var.
func NewDatabricksClient(host, endpoint, token string) (*DatabricksClient, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	endpoint = strings.TrimSpace(endpoint)
	if host == "" {
		return nil, fmt.Errorf("databricks host is required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("databricks serving endpoint is required")
	}
	if !strings.HasPrefix(endpoint, "/serving-endpoints/") {
		return nil, fmt.Errorf("endpoint must look like /serving-endpoints/<model>/invocations, got %q", endpoint)
	}
	if token == "" {
		token = os.Getenv("DATABRICKS_TOKEN")
	}
	return &DatabricksClient{
		http:     &http.Client{Timeout: 120 * time.Second},
		token:    token,
		model:    modelFromEndpoint(endpoint),
		endpoint: host + endpoint,
	}, nil
}

func (c *DatabricksClient) Name() string { return "Databricks:" + c.model }
func (c *DatabricksClient) Close() error { return nil }

// Model returns the serving endpoint's model name segment.
func (c *DatabricksClient) Model() string { return c.model }

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends one system+user exchange and returns the assistant text.
func (c *DatabricksClient) Chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: c.capTokens(maxTokens),
	}
	// databricks-gpt-5 rejects custom temperature; leave it to the default there.
	if !strings.Contains(strings.ToLower(c.model), "gpt-5") {
		t := float32(0.7)
		reqBody.Temperature = &t
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("databricks: unexpected status %s: %s", resp.Status, string(body))
		if resp.StatusCode == 400 && strings.Contains(string(body), "context_length_exceeded") {
			return "", NewPermanentError(err)
		}
		return "", err
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("databricks: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := decodeContent(out.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *DatabricksClient) capTokens(maxTokens int) int {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	model := strings.ToLower(c.model)
	switch {
	case strings.Contains(model, "gpt-5"), strings.Contains(model, "gemini"):
		return minInt(maxTokens, 32000)
	default:
		return minInt(maxTokens, 8192)
	}
}

// decodeContent handles the content field being a plain string, a list of
// parts, or a {"type":"text","text":...} object, which serving endpoints
// return depending on the hosted model.
func decodeContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if t, ok := obj["text"].(string); ok {
			return t
		}
		if t, ok := obj["content"].(string); ok {
			return t
		}
		return ""
	}
	var parts []any
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			switch v := p.(type) {
			case string:
				b.WriteString(v)
				b.WriteByte('\n')
			case map[string]any:
				if t, ok := v["text"].(string); ok {
					b.WriteString(t)
					b.WriteByte('\n')
				}
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return ""
}

func modelFromEndpoint(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return "unknown"
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
