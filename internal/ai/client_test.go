package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateParsesResponsesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["model"] != "gpt-test" {
			t.Errorf("unexpected model %v", payload["model"])
		}

		_, _ = w.Write([]byte(`{
			"model": "gpt-test-2024",
			"output": [{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"ok\":true}"}]}],
			"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Generate(context.Background(), GenerateRequest{
		Model: "gpt-test",
		Input: "analyze this",
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Text != `{"ok":true}` {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.ModelID != "gpt-test-2024" {
		t.Fatalf("unexpected model id %q", result.ModelID)
	}
	if result.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage %+v", result.Usage)
	}
}

func TestGenerateSendsImagesAsContentParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Input []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL string `json:"image_url"`
				} `json:"content"`
			} `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Input) != 1 || payload.Input[0].Role != "user" {
			t.Errorf("expected one user message, got %+v", payload.Input)
		}
		content := payload.Input[0].Content
		if len(content) != 3 {
			t.Fatalf("expected text + 2 image parts, got %d", len(content))
		}
		if content[0].Type != "input_text" || content[0].Text != "read these" {
			t.Errorf("unexpected text part %+v", content[0])
		}
		if content[1].Type != "input_image" || content[1].ImageURL != "data:image/png;base64,aaa" {
			t.Errorf("data URLs must pass through unchanged, got %+v", content[1])
		}
		if content[2].ImageURL != "data:image/jpeg;base64,bbb" {
			t.Errorf("bare base64 must be wrapped, got %+v", content[2])
		}
		_, _ = w.Write([]byte(`{"model":"m","output_text":"ok"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{
		Model:  "m",
		Input:  "read these",
		Images: []string{"data:image/png;base64,aaa", "bbb"},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
}

func TestGeneratePrefersOutputTextField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","output_text":"  direct text  "}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	result, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if result.Text != "direct text" {
		t.Fatalf("unexpected text %q", result.Text)
	}
}

func TestGenerateClassifiesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`upstream overloaded`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", httpErr.StatusCode)
	}
	if !IsTransient(err) {
		t.Fatal("503 must classify as transient")
	}
}

func TestGenerateRejectsBadRequestPermanently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`bad input`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Fatal("422 must not classify as transient")
	}
}

func TestGenerateTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("timeout must classify as transient: %v", err)
	}
}

func TestGenerateWithoutKeyReturnsUnavailable(t *testing.T) {
	client := NewClient(ClientConfig{})
	if client.Available() {
		t.Fatal("client without key must not report available")
	}
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
