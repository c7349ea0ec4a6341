package memory

import (
	"testing"
	"time"
)

func TestMergeHistoryDedup(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session := []ConversationMessage{
		NewMessage(RoleUser, "hola", base),
		NewMessage(RoleModel, "buenas", base.Add(time.Second)),
	}
	// Short-term overlaps the session plus one newer turn.
	shortTerm := []ConversationMessage{
		NewMessage(RoleModel, "buenas", base.Add(time.Second)),
		NewMessage(RoleUser, "qué tal", base.Add(2*time.Second)),
	}

	merged := MergeHistory(shortTerm, session)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged messages, got %d", len(merged))
	}
	wantTexts := []string{"hola", "buenas", "qué tal"}
	for i, want := range wantTexts {
		if merged[i].Text() != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, merged[i].Text())
		}
	}
}

func TestMergeHistoryOrdering(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session := []ConversationMessage{
		NewMessage(RoleUser, "segundo", base.Add(2*time.Second)),
	}
	shortTerm := []ConversationMessage{
		NewMessage(RoleUser, "primero", base.Add(time.Second)),
		NewMessage(RoleUser, "sin fecha", time.Time{}),
	}

	merged := MergeHistory(shortTerm, session)
	if len(merged) != 3 {
		t.Fatalf("expected 3, got %d", len(merged))
	}
	if merged[0].Text() != "sin fecha" {
		t.Fatalf("zero-timestamp message should sort first, got %q", merged[0].Text())
	}
	if merged[1].Text() != "primero" || merged[2].Text() != "segundo" {
		t.Fatalf("wrong chronological order: %q, %q", merged[1].Text(), merged[2].Text())
	}
}

func TestMergeHistorySameTextDifferentRole(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session := []ConversationMessage{NewMessage(RoleUser, "ok", base)}
	shortTerm := []ConversationMessage{NewMessage(RoleModel, "ok", base)}

	merged := MergeHistory(shortTerm, session)
	if len(merged) != 2 {
		t.Fatalf("same text with different roles must not dedup, got %d", len(merged))
	}
}

func TestMergeHistoryIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session := []ConversationMessage{
		NewMessage(RoleUser, "hola", base),
		NewMessage(RoleModel, "buenas", base.Add(time.Second)),
	}
	shortTerm := []ConversationMessage{
		NewMessage(RoleUser, "qué tal", base.Add(2*time.Second)),
	}

	once := MergeHistory(shortTerm, session)
	twice := MergeHistory(once, once)
	if len(twice) != len(once) {
		t.Fatalf("merge is not idempotent: %d then %d", len(once), len(twice))
	}
}
