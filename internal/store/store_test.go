package store

import (
	"path/filepath"
	"testing"

	"github.com/openpawz/pawgo/internal/providers"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pawd.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSessionStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)

	key := "agent:default:telegram:direct:123"
	db.Sessions.GetOrCreate(key)
	db.Sessions.AddMessage(key, providers.Message{Role: "user", Content: "hello"})
	db.Sessions.AddMessage(key, providers.Message{Role: "assistant", Content: "hi there"})
	db.Sessions.SetLabel(key, "test session")

	if err := db.Sessions.Save(key); err != nil {
		t.Fatalf("Save: %v", err)
	}

	history := db.Sessions.GetHistory(key)
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "hi there" {
		t.Errorf("unexpected message content: %+v", history)
	}
}

func TestSessionStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pawd.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := "agent:default:cli:direct:me"
	db1.Sessions.GetOrCreate(key)
	db1.Sessions.AddMessage(key, providers.Message{Role: "user", Content: "remember this"})
	if err := db1.Sessions.Save(key); err != nil {
		t.Fatalf("Save: %v", err)
	}
	db1.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	history := db2.Sessions.GetHistory(key)
	if len(history) != 1 || history[0].Content != "remember this" {
		t.Fatalf("expected persisted message, got %+v", history)
	}
}

func TestMemoryStoreBM25AndSubstring(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Memory.Store(Memory{AgentID: "default", Content: "the user prefers dark mode", Category: "preference"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := db.Memory.Store(Memory{AgentID: "default", Content: "the weather today is sunny", Category: "fact"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	results, err := db.Memory.BM25Search("default", "dark mode", 5)
	if err != nil {
		t.Fatalf("BM25Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 BM25 match, got %d", len(results))
	}

	sub, err := db.Memory.SubstringSearch("default", "sunny", 5)
	if err != nil {
		t.Fatalf("SubstringSearch: %v", err)
	}
	if len(sub) != 1 {
		t.Fatalf("expected 1 substring match, got %d", len(sub))
	}
}

func TestMemoryStoreWithoutEmbedding(t *testing.T) {
	db := openTestDB(t)

	id, err := db.Memory.Store(Memory{AgentID: "a", Content: "needs embedding"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	missing, err := db.Memory.WithoutEmbedding(10)
	if err != nil {
		t.Fatalf("WithoutEmbedding: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("expected 1 memory without embedding, got %d", len(missing))
	}

	if err := db.Memory.SetEmbedding(id, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}

	missing, err = db.Memory.WithoutEmbedding(10)
	if err != nil {
		t.Fatalf("WithoutEmbedding after set: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected 0 memories without embedding, got %d", len(missing))
	}
}

func TestPairingStoreFlow(t *testing.T) {
	db := openTestDB(t)

	code, err := db.Pairing.CreatePending("telegram", "user-1")
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}

	// Repeat call dedups to the same code.
	code2, err := db.Pairing.CreatePending("telegram", "user-1")
	if err != nil {
		t.Fatalf("CreatePending (repeat): %v", err)
	}
	if code2 != code {
		t.Fatalf("expected stable code on repeat, got %q vs %q", code2, code)
	}

	pu, ok, err := db.Pairing.FindByCode("telegram", code)
	if err != nil || !ok {
		t.Fatalf("FindByCode: ok=%v err=%v", ok, err)
	}
	if pu.SenderID != "user-1" {
		t.Fatalf("unexpected sender: %q", pu.SenderID)
	}

	if err := db.Pairing.Promote("telegram", "user-1"); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	paired, err := db.Pairing.IsPaired("telegram", "user-1")
	if err != nil || !paired {
		t.Fatalf("expected paired=true, got %v (err=%v)", paired, err)
	}

	if _, ok, _ := db.Pairing.FindByCode("telegram", code); ok {
		t.Error("expected pending entry to be gone after promote")
	}
}
