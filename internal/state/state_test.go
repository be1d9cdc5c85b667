package state

import (
	"path/filepath"
	"testing"
)

// TestHashTextNormalisesWhitespace verifies that line endings and repeated
// spaces do not change the hash.
func TestHashTextNormalisesWhitespace(t *testing.T) {
	a := HashText("Leg Day\nSet 1: 60 kg × 8 reps\n")
	b := HashText("  Leg Day\r\n\r\nSet 1:  60 kg ×  8 reps")
	if a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if c := HashText("Leg Day\nSet 1: 60 kg × 9 reps"); c == a {
		t.Error("different text produced the same hash")
	}
}

// TestLookupAndMark verifies the submit round trip and that an unknown hash
// is reported as not found.
func TestLookupAndMark(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	hash := HashText("Push Day")
	if _, ok, err := db.Lookup(hash); err != nil || ok {
		t.Fatalf("Lookup before mark = (%v, %v), want (false, nil)", ok, err)
	}

	if err := db.MarkSubmitted(hash, "i12345"); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}
	id, ok, err := db.Lookup(hash)
	if err != nil || !ok {
		t.Fatalf("Lookup after mark = (%v, %v), want (true, nil)", ok, err)
	}
	if id != "i12345" {
		t.Errorf("activity id = %q, want %q", id, "i12345")
	}

	// Re-marking replaces the activity.
	if err := db.MarkSubmitted(hash, "i999"); err != nil {
		t.Fatalf("MarkSubmitted again: %v", err)
	}
	if id, _, _ := db.Lookup(hash); id != "i999" {
		t.Errorf("activity id after replace = %q, want %q", id, "i999")
	}
}

// TestOpenCreatesDir verifies that Open creates a missing state directory.
func TestOpenCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open(%s): %v", dir, err)
	}
	db.Close()
}
