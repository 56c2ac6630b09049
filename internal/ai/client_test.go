package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatParsesLooseContentType(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Some gateways answer JSON as text/plain; the client must
		// still parse it.
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, `{"choices": [{"message": {"content": "pong"}}]}`)
	}))
	defer srv.Close()

	client, err := NewChatClient(Options{Provider: "openai", APIKey: "test", Model: "m", BaseURL: srv.URL, MaxTokens: 512})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	got, err := client.Chat(context.Background(), "system", "ping")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got != "pong" {
		t.Errorf("content = %q", got)
	}
	if gotReq.MaxTokens != 512 {
		t.Errorf("max_tokens = %d, want 512", gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
}

func TestChatMissingKeyIsConfigError(t *testing.T) {
	if _, err := NewChatClient(Options{Provider: "openai"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
