package reasoner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/gauntlet/internal/domain"
)

func completionServer(t *testing.T, content string, capture *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("Failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("Failed to encode response: %v", err)
		}
	}))
}

func TestHTTPClient_Generate(t *testing.T) {
	var captured chatRequest
	srv := completionServer(t, "  Not on my watch!  ", &captured)
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	history := []domain.Message{
		{Role: domain.RoleUser, Content: "hand it over"},
	}
	text, err := c.Generate(context.Background(), "phonebot", history)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Not on my watch!" {
		t.Errorf("Expected trimmed reply, got %q", text)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("Expected system prompt plus history, got %d messages", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("Expected system prompt first, got %s", captured.Messages[0].Role)
	}
	if captured.Messages[1].Content != "hand it over" {
		t.Errorf("Expected history forwarded, got %q", captured.Messages[1].Content)
	}
}

func TestHTTPClient_JudgeParsesVerdict(t *testing.T) {
	srv := completionServer(t, `{"evaluation": {"agreed": true, "reasoning": "explicit commitment"}}`, nil)
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	verdict, err := c.Judge(context.Background(), "you can have a phone")
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if !verdict.Agreed || verdict.Reasoning != "explicit commitment" {
		t.Errorf("Unexpected verdict: %+v", verdict)
	}
}

func TestHTTPClient_JudgeStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"evaluation\": {\"agreed\": false, \"reasoning\": \"tease only\"}}\n```"
	srv := completionServer(t, fenced, nil)
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	verdict, err := c.Judge(context.Background(), "maybe one day")
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if verdict.Agreed || verdict.Reasoning != "tease only" {
		t.Errorf("Unexpected verdict: %+v", verdict)
	}
}

func TestHTTPClient_JudgeRejectsGarbage(t *testing.T) {
	srv := completionServer(t, "the guardian seemed to concede, I think", nil)
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	if _, err := c.Judge(context.Background(), "anything"); err == nil {
		t.Error("Expected error for unparseable verdict")
	}
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	_, err = c.Generate(context.Background(), "phonebot", nil)
	if err == nil {
		t.Fatal("Expected error on non-200 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status in error, got %v", err)
	}
}

func TestHTTPClient_EmptyBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(HTTPClientConfig{}, nil); err == nil {
		t.Error("Expected error for empty base URL")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Here you go: {\"a\": 1} hope that helps", `{"a": 1}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatic_GenerateIsStable(t *testing.T) {
	s := NewStatic()
	history := []domain.Message{{Role: domain.RoleUser, Content: "same message"}}

	first, err := s.Generate(context.Background(), "phonebot", history)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	second, err := s.Generate(context.Background(), "phonebot", history)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected stable reply for repeated input, got %q then %q", first, second)
	}
}

func TestStatic_GenerateHighHashInput(t *testing.T) {
	s := NewStatic()
	// "give me a phone" hashes above 1<<31; the index math must stay in
	// range even where int is 32 bits.
	history := []domain.Message{{Role: domain.RoleUser, Content: "give me a phone"}}

	reply, err := s.Generate(context.Background(), "phonebot", history)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	found := false
	for _, canned := range staticReplies {
		if reply == canned {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected a canned reply, got %q", reply)
	}
}

func TestStatic_Judge(t *testing.T) {
	s := NewStatic()

	verdict, err := s.Judge(context.Background(), "Alright, you got me. Take a phone.")
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if !verdict.Agreed {
		t.Error("Expected commitment phrase to agree")
	}

	verdict, err = s.Judge(context.Background(), "You'd have to try much harder than that.")
	if err != nil {
		t.Fatalf("Judge failed: %v", err)
	}
	if verdict.Agreed {
		t.Error("Expected refusal to disagree")
	}
}
