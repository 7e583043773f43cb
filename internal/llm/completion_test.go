package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Epistemic-Technology/article-summarizer/internal/logger"
)

const chatResponse = `{
  "id": "chatcmpl-test",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.3-70b-versatile",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}]
}`

func newChatServer(t *testing.T, handler http.HandlerFunc) *ChatCompleter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewChatCompleter("test-key", server.URL+"/v1/", "llama-3.3-70b-versatile", logger.NewNoOpLogger())
}

func TestChatCompleter_Complete(t *testing.T) {
	var body map[string]any
	c := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, chatResponse, "  A generated summary.  ")
	})

	out, err := c.Complete(context.Background(), CompletionRequest{
		SystemPrompt:    "system text",
		UserPrompt:      "user text",
		MaxOutputTokens: 2000,
		Temperature:     0.3,
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "A generated summary." {
		t.Errorf("Complete() = %q", out)
	}

	if body["model"] != "llama-3.3-70b-versatile" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_completion_tokens"] != float64(2000) {
		t.Errorf("max_completion_tokens = %v, want 2000", body["max_completion_tokens"])
	}
	if body["temperature"] != 0.3 {
		t.Errorf("temperature = %v, want 0.3", body["temperature"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v, want system and user", body["messages"])
	}
}

func TestChatCompleter_EmptyContent(t *testing.T) {
	c := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, chatResponse, "   ")
	})
	_, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("Complete() error = %v, want ErrMalformedResponse", err)
	}
}

func TestChatCompleter_ServerError(t *testing.T) {
	calls := 0
	c := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	})
	_, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "x"})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("Complete() error = %v, want ErrServiceUnavailable", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, SDK retries should be disabled", calls)
	}
}

func TestChatCompleter_Timeout(t *testing.T) {
	c := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	_, err := c.Complete(context.Background(), CompletionRequest{UserPrompt: "x", Timeout: 50 * time.Millisecond})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Complete() error = %v, want ErrTimeout", err)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"canceled", context.Canceled, context.Canceled},
		{"already classified", ErrMalformedResponse, ErrMalformedResponse},
		{"transport", errors.New("connection refused"), ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) should be nil")
	}
}

func TestChatCompleter_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		t.Skip("GROQ_API_KEY not set, skipping integration test")
	}

	c := NewChatCompleter(apiKey, "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", logger.NewNoOpLogger())
	out, err := c.Complete(context.Background(), CompletionRequest{
		SystemPrompt:    "You are a terse assistant.",
		UserPrompt:      "Reply with the single word: ready",
		MaxOutputTokens: 10,
		Temperature:     0,
		Timeout:         30 * time.Second,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out == "" {
		t.Error("expected non-empty completion")
	}
}
