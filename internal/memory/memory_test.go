package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/openpawz/pawgo/internal/store"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "pawd.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreAndSearchKeywordOnly(t *testing.T) {
	db := openTestDB(t)
	eng := New(db, nil)

	if _, err := eng.Store(context.Background(), "default", "the user's favorite color is blue", "preference", 5); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := eng.Store(context.Background(), "default", "the weather today is sunny", "fact", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}

	results, err := eng.Search(context.Background(), "default", "favorite color", 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Content == "" {
		t.Error("expected non-empty content")
	}
}

func TestSearchWithEmbeddingsFusesBranches(t *testing.T) {
	db := openTestDB(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"the user prefers dark mode in all apps": {1, 0, 0},
		"dark mode preference":                   {1, 0, 0},
		"unrelated fact about rainfall":          {0, 1, 0},
	}}
	eng := New(db, embedder)

	if _, err := eng.Store(context.Background(), "default", "the user prefers dark mode in all apps", "preference", 5); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := eng.Store(context.Background(), "default", "unrelated fact about rainfall", "fact", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}

	results, err := eng.Search(context.Background(), "default", "dark mode preference", 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Category != "preference" {
		t.Errorf("expected dark mode preference to rank first, got %+v", results[0])
	}
}

func TestCosineSimilarity(t *testing.T) {
	if sim := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); sim < 0.99 {
		t.Errorf("expected ~1.0 for identical vectors, got %f", sim)
	}
	if sim := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); sim > 0.01 {
		t.Errorf("expected ~0 for orthogonal vectors, got %f", sim)
	}
	if sim := cosineSimilarity(nil, []float32{1}); sim != 0 {
		t.Errorf("expected 0 for empty vector, got %f", sim)
	}
}

func TestBackfillPopulatesMissingEmbeddings(t *testing.T) {
	db := openTestDB(t)
	id, err := db.Memory.Store(store.Memory{AgentID: "default", Content: "needs an embedding"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	embedder := &fakeEmbedder{vectors: map[string][]float32{"needs an embedding": {0.5, 0.5, 0}}}
	eng := New(db, embedder)

	n, err := eng.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 backfilled, got %d", n)
	}

	missing, err := db.Memory.WithoutEmbedding(10)
	if err != nil {
		t.Fatalf("WithoutEmbedding: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no remaining unembedded rows, got %d", len(missing))
	}
	_ = id
}
