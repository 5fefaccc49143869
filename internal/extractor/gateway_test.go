package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type recordingCompleter struct {
	got   Prompt
	reply string
	err   error
	delay time.Duration
}

func (r *recordingCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	r.got = p
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.reply, r.err
}

func TestGatewayExtract_EmbedsPayloadVerbatim(t *testing.T) {
	c := &recordingCompleter{reply: `{"legs":[]}`}
	g := NewGateway(c, 512, time.Second, nil)

	payload := "TEB -> VNY 6/20, 5 pax\n\"quoted\" {braces}"
	text, err := g.Extract(context.Background(), TaskTripRequest, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"legs":[]}` {
		t.Errorf("raw text altered: %q", text)
	}
	if !strings.Contains(c.got.User, payload) {
		t.Error("payload not embedded verbatim in user segment")
	}
	if c.got.Temperature != 0 || c.got.MaxTokens != 512 || !c.got.JSON {
		t.Errorf("unexpected prompt settings: %+v", c.got)
	}
}

func TestGatewayExtract_WrapsFailure(t *testing.T) {
	cause := errors.New("connection refused")
	g := NewGateway(&recordingCompleter{err: cause}, 0, time.Second, nil)

	_, err := g.Extract(context.Background(), TaskEmailQuote, "hello")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.Task != TaskEmailQuote || !errors.Is(err, cause) {
		t.Errorf("unexpected wrapped error: %+v", gwErr)
	}
}

func TestGatewayExtract_Timeout(t *testing.T) {
	g := NewGateway(&recordingCompleter{reply: "{}", delay: time.Second}, 0, 20*time.Millisecond, nil)

	_, err := g.Extract(context.Background(), TaskPDFQuote, "slow")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestGatewayExtract_UnknownTask(t *testing.T) {
	g := NewGateway(&recordingCompleter{}, 0, 0, nil)
	_, err := g.Extract(context.Background(), TaskKind("poetry"), "x")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestParseTaskKind(t *testing.T) {
	cases := map[string]TaskKind{
		"trip":      TaskTripRequest,
		"Email":     TaskEmailQuote,
		"pdf-quote": TaskPDFQuote,
		"summary":   TaskChatSummary,
	}
	for in, want := range cases {
		got, err := ParseTaskKind(in)
		if err != nil || got != want {
			t.Errorf("ParseTaskKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTaskKind("fax"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestBuildPrompt_JSONTasks(t *testing.T) {
	for _, kind := range []TaskKind{TaskTripRequest, TaskEmailQuote, TaskPDFQuote} {
		p, err := BuildPrompt(kind, "x")
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if !p.JSON {
			t.Errorf("%s: expected a JSON answer", kind)
		}
	}
	p, err := BuildPrompt(TaskChatSummary, "ana: hi")
	if err != nil {
		t.Fatal(err)
	}
	if p.JSON {
		t.Error("chat summary should be plain text")
	}
	if !strings.HasSuffix(p.User, "ana: hi") {
		t.Errorf("chat not embedded: %q", p.User)
	}
}

func TestClientComplete_PrefillsJSON(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"\"legs\":[]}"}],"usage":{"input_tokens":10,"output_tokens":4}}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "test-key", Model: "m", Endpoint: srv.URL, HTTPClient: srv.Client()}
	text, err := c.Complete(context.Background(), Prompt{System: "s", User: "u", MaxTokens: 100, JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"legs":[]}` {
		t.Errorf("expected prefilled JSON, got %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "{" {
		t.Errorf("expected assistant prefill, got %+v", got.Messages)
	}
	if got.MaxTokens != 100 || got.System != "s" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestClientComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := &Client{APIKey: "k", Model: "m", Endpoint: srv.URL, HTTPClient: srv.Client()}
	_, err := c.Complete(context.Background(), Prompt{User: "u"})
	if err == nil || !strings.Contains(err.Error(), "rate_limit_error") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}
