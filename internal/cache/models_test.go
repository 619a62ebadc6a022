package cache

import (
	"testing"
	"time"
)

func TestModelListRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if _, err := ReadModels("openai"); err == nil {
		t.Fatal("expected error reading missing cache")
	}

	models := []Model{
		{ID: "gpt-5.2", DisplayName: "GPT-5.2"},
		{ID: "o3-mini"},
	}
	if err := WriteModels("openai", models); err != nil {
		t.Fatalf("WriteModels: %v", err)
	}

	list, err := ReadModels("openai")
	if err != nil {
		t.Fatalf("ReadModels: %v", err)
	}
	if len(list.Models) != 2 {
		t.Fatalf("got %d models, want 2", len(list.Models))
	}
	if list.Models[0].ID != "gpt-5.2" || list.Models[0].DisplayName != "GPT-5.2" {
		t.Fatalf("first entry = %+v", list.Models[0])
	}
	if !list.Fresh() {
		t.Fatal("freshly written list should be fresh")
	}

	// Listings for other providers stay separate.
	if _, err := ReadModels("ollama"); err == nil {
		t.Fatal("expected error for provider with no cache")
	}
}

func TestModelListFresh(t *testing.T) {
	var nilList *ModelList
	if nilList.Fresh() {
		t.Fatal("nil list must not be fresh")
	}
	stale := &ModelList{FetchedAt: time.Now().Add(-ModelListTTL - time.Minute)}
	if stale.Fresh() {
		t.Fatal("expired list must not be fresh")
	}
	current := &ModelList{FetchedAt: time.Now()}
	if !current.Fresh() {
		t.Fatal("recent list must be fresh")
	}
}
