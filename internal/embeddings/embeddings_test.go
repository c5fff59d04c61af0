package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// stubOllama answers /api/embeddings with a vector whose first component is
// the prompt length, so tests can tie results back to their inputs.
func stubOllama(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "explode" {
			http.Error(w, "model blew up", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{float32(len(req.Prompt)), 1},
		})
	}))
}

func TestEmbedAllKeepsInputOrder(t *testing.T) {
	srv := stubOllama(t, nil)
	defer srv.Close()

	svc := NewService(Config{BaseURL: srv.URL, Workers: 3})
	defer svc.Close()

	// More texts than the work queue holds, so enqueueing must not give up
	// or deadlock while workers drain.
	texts := make([]string, 150)
	for i := range texts {
		texts[i] = fmt.Sprintf("line %03d", i)
	}

	results := svc.EmbedAll(context.Background(), texts)
	if len(results) != len(texts) {
		t.Fatalf("got %d results for %d texts", len(results), len(texts))
	}
	for i, r := range results {
		if r.Error != nil {
			t.Fatalf("result %d failed: %v", i, r.Error)
		}
		if r.Content != texts[i] {
			t.Fatalf("result %d is for %q, want %q", i, r.Content, texts[i])
		}
		if len(r.Embedding) == 0 || r.Embedding[0] != float32(len(texts[i])) {
			t.Fatalf("result %d embedding = %v", i, r.Embedding)
		}
	}
}

func TestEmbedAllReportsPerItemErrors(t *testing.T) {
	srv := stubOllama(t, nil)
	defer srv.Close()

	svc := NewService(Config{BaseURL: srv.URL, Workers: 2})
	defer svc.Close()

	results := svc.EmbedAll(context.Background(), []string{"fine", "explode", "also fine"})
	if results[0].Error != nil || results[2].Error != nil {
		t.Fatalf("healthy lines failed: %v / %v", results[0].Error, results[2].Error)
	}
	if results[1].Error == nil {
		t.Fatal("server error should surface on the failing line")
	}
	if results[1].Embedding != nil {
		t.Fatalf("failed line carries a vector: %v", results[1].Embedding)
	}
}

func TestEmbedCachesRepeatedContent(t *testing.T) {
	var hits atomic.Int64
	srv := stubOllama(t, &hits)
	defer srv.Close()

	svc := NewService(Config{BaseURL: srv.URL, Workers: 1})
	defer svc.Close()

	ctx := context.Background()
	first, err := svc.Embed(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Embed(ctx, "same text")
	if err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("cache returned a different vector: %v vs %v", first, second)
	}

	// The pool shares the cache, so a batched request for the same content
	// also skips the endpoint.
	results := svc.EmbedAll(ctx, []string{"same text"})
	if results[0].Error != nil {
		t.Fatal(results[0].Error)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times after batch, want 1", hits.Load())
	}
}
