package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIGeneratorSendsSystemAndUserMessages(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(completionResponse{
			Choices: []struct {
				Message completionMessage `json:"message"`
			}{
				{Message: completionMessage{Role: "assistant", Content: "  a reply  "}},
			},
		})
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(srv.URL+"/v1/", "sk-test", "local-model")
	text, err := g.GenerateText(context.Background(), "be helpful", "write a poem")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "a reply" {
		t.Fatalf("response not trimmed: %q", text)
	}
	if got.Model != "local-model" {
		t.Fatalf("unexpected model: %q", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOpenAIGeneratorRequiresModel(t *testing.T) {
	g := NewOpenAIGenerator("http://localhost:8000/v1", "", "")
	if _, err := g.GenerateText(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for missing model")
	}
}
