package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studytec-client/internal/domain"
)

func completion(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(body)
}

func TestGenerateSendsPromptAndKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("expected key query param")
		}
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, `"Photosynthesis"`) {
			t.Errorf("prompt missing topic: %+v", req)
		}
		_, _ = w.Write([]byte(completion("```json\n" + photosynthesis + "\n```")))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL+"/models", "test-model", nil)
	artifact, err := c.Generate(context.Background(), "Photosynthesis", "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(artifact.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(artifact.Questions))
	}
}

func TestGenerateFailuresCollapse(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"quota": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
		},
		"no candidates": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(completion("I am not JSON")))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			_, err := NewClient(srv.Client(), srv.URL, "m", nil).Generate(context.Background(), "x", "k")
			if !errors.Is(err, domain.ErrGeneration) {
				t.Fatalf("expected generation error, got %v", err)
			}
		})
	}
}

func TestGenerateTransportErrorHidesKey(t *testing.T) {
	c := NewClient(nil, "http://127.0.0.1:1", "m", nil)
	_, err := c.Generate(context.Background(), "x", "super-secret")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if strings.Contains(err.Error(), "super-secret") {
		t.Fatalf("error leaks api key: %v", err)
	}
}
