package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewDatabricksClientValidation(t *testing.T) {
	if _, err := NewDatabricksClient("", "/serving-endpoints/m/invocations", "tok"); err == nil {
		t.Fatalf("expected error for empty host")
	}
	if _, err := NewDatabricksClient("https://dbc.example.com", "", "tok"); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
	if _, err := NewDatabricksClient("https://dbc.example.com", "/api/other", "tok"); err == nil {
		t.Fatalf("expected error for malformed endpoint")
	}
	c, err := NewDatabricksClient("https://dbc.example.com/", "/serving-endpoints/databricks-gpt-oss-120b/invocations", "tok")
	if err != nil {
		t.Fatalf("NewDatabricksClient() error = %v", err)
	}
	if c.Model() != "databricks-gpt-oss-120b" {
		t.Fatalf("Model() = %q", c.Model())
	}
}

func TestDatabricksChat(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello report"}},
			},
		})
	}))
	defer srv.Close()

	c, err := NewDatabricksClient(srv.URL, "/serving-endpoints/test-model/invocations", "secret")
	if err != nil {
		t.Fatalf("NewDatabricksClient() error = %v", err)
	}
	out, err := c.Chat(context.Background(), "sys", "user", 500)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if out != "hello report" {
		t.Fatalf("Chat() = %q", out)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.Temperature == nil {
		t.Fatalf("temperature should be set for non gpt-5 models")
	}
}

func TestDatabricksChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewDatabricksClient(srv.URL, "/serving-endpoints/test-model/invocations", "tok")
	_, err := c.Chat(context.Background(), "sys", "user", 100)
	if err == nil {
		t.Fatalf("expected error on 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("error should carry the status: %v", err)
	}
	if IsPermanent(err) {
		t.Fatalf("503 should not be permanent")
	}
}

func TestDatabricksChatContextLengthIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"context_length_exceeded"}}`))
	}))
	defer srv.Close()

	c, _ := NewDatabricksClient(srv.URL, "/serving-endpoints/test-model/invocations", "tok")
	_, err := c.Chat(context.Background(), "sys", "user", 100)
	if !IsPermanent(err) {
		t.Fatalf("context_length_exceeded should be permanent, got %v", err)
	}
}

func TestDecodeContentShapes(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"plain"`, "plain"},
		{`{"type":"text","text":"from object"}`, "from object"},
		{`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`, "a\nb"},
		{`["x","y"]`, "x\ny"},
	}
	for _, tc := range cases {
		if got := decodeContent(json.RawMessage(tc.raw)); got != tc.want {
			t.Fatalf("decodeContent(%s) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
