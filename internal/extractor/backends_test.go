package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		got = nil
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"{\"legs\":[]}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	c, err := NewOpenAIClient("gpt-test", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	text, err := c.Complete(context.Background(), Prompt{System: "s", User: "u", MaxTokens: 64, JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"legs":[]}` {
		t.Errorf("unexpected text %q", text)
	}

	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", got["response_format"])
	}
	temp, ok := got["temperature"].(float64)
	if !ok || temp <= 0 || temp > 1e-6 {
		t.Errorf("expected a near-zero temperature, got %v", got["temperature"])
	}
	if msgs, _ := got["messages"].([]any); len(msgs) != 2 {
		t.Errorf("expected system and user messages, got %v", got["messages"])
	}

	if _, err := c.Complete(context.Background(), Prompt{System: "s", User: "u"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["response_format"]; ok {
		t.Errorf("text task should not request JSON, got %v", got["response_format"])
	}
}

func TestOpenAIClientRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIClient("gpt-test", ""); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}
}

func TestOllamaClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		got = nil
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"{\"aircraft\":null}"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewOllamaClient("llama3", srv.URL)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	text, err := c.Complete(context.Background(), Prompt{System: "s", User: "u", JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"aircraft":null}` {
		t.Errorf("unexpected text %q", text)
	}
	if got["format"] != "json" {
		t.Errorf("expected json format, got %v", got["format"])
	}
	if got["model"] != "llama3" {
		t.Errorf("unexpected model %v", got["model"])
	}

	if _, err := c.Complete(context.Background(), Prompt{System: "s", User: "u"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f, _ := got["format"].(string); f == "json" {
		t.Error("text task should not request json format")
	}
}
