package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func chatHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}
}

func newTestGenerator(baseURL string, maxRetries int) *HTTPGenerator {
	g := NewHTTPGenerator(Config{
		Name:       "test",
		BaseURL:    baseURL,
		Model:      "test-model",
		MaxRetries: maxRetries,
	})
	g.backoffFunc = func(int) time.Duration { return 0 }
	return g
}

func TestHTTPGeneratorGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(chatHandler(t, "  A considered reply.  "))
		defer srv.Close()

		g := newTestGenerator(srv.URL, 0)
		got, err := g.Generate(context.Background(), "prompt text")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if got != "A considered reply." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("RetriesOn500", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			chatHandler(t, "recovered")(w, r)
		}))
		defer srv.Close()

		g := newTestGenerator(srv.URL, 3)
		got, err := g.Generate(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if got != "recovered" {
			t.Errorf("got %q", got)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("DoesNotRetryOn400", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		g := newTestGenerator(srv.URL, 3)
		if _, err := g.Generate(context.Background(), "prompt"); err == nil {
			t.Fatal("expected error")
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("ExhaustedRetriesFail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		g := newTestGenerator(srv.URL, 1)
		if _, err := g.Generate(context.Background(), "prompt"); err == nil {
			t.Fatal("expected error after exhausting retries")
		}
	})

	t.Run("UpstreamErrorPayload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "model overloaded"},
			})
		}))
		defer srv.Close()

		g := newTestGenerator(srv.URL, 0)
		_, err := g.Generate(context.Background(), "prompt")
		if err == nil {
			t.Fatal("expected error")
		}
		serviceErr, ok := err.(*ServiceError)
		if !ok {
			t.Fatalf("expected ServiceError, got %T", err)
		}
		if serviceErr.Message != "model overloaded" {
			t.Errorf("message = %q", serviceErr.Message)
		}
	})

	t.Run("NoEndpointConfigured", func(t *testing.T) {
		g := NewHTTPGenerator(Config{Name: "test"})
		if g.Available() {
			t.Error("generator without base URL should not be available")
		}
		if _, err := g.Generate(context.Background(), "prompt"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	mock := NewMockGenerator("hello")
	reg.Register(mock)

	got, err := reg.Get("mock")
	if err != nil {
		t.Fatalf("mock generator not found: %v", err)
	}
	if got.Name() != "mock" {
		t.Errorf("name = %q", got.Name())
	}

	if _, err := reg.Get("missing"); err == nil {
		t.Error("expected error for missing generator")
	}

	if generators := reg.List(); len(generators) != 1 {
		t.Errorf("List() returned %d generators", len(generators))
	}
}
