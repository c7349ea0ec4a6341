package memory

import (
	"fmt"
	"testing"
	"time"
)

func TestShortTermCapFIFO(t *testing.T) {
	m := NewShortTermMemory(5, time.Minute, time.Minute)
	defer m.Close()

	for i := 0; i < 6; i++ {
		m.Add("u1", NewMessage(RoleUser, fmt.Sprintf("msg-%d", i), time.Now()))
	}

	got := m.Get("u1")
	if len(got) != 5 {
		t.Fatalf("expected 5 messages after 6 adds, got %d", len(got))
	}
	for i, msg := range got {
		want := fmt.Sprintf("msg-%d", i+1)
		if msg.Text() != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, msg.Text())
		}
	}
}

func TestShortTermGetReturnsCopy(t *testing.T) {
	m := NewShortTermMemory(5, time.Minute, time.Minute)
	defer m.Close()

	m.Add("u1", NewMessage(RoleUser, "original", time.Now()))

	first := m.Get("u1")
	first[0] = NewMessage(RoleUser, "mutated", time.Now())

	second := m.Get("u1")
	if second[0].Text() != "original" {
		t.Fatalf("internal state mutated through returned slice: %q", second[0].Text())
	}
}

func TestShortTermTTLExpiry(t *testing.T) {
	m := NewShortTermMemory(5, 20*time.Millisecond, time.Minute)
	defer m.Close()

	m.Add("u1", NewMessage(RoleUser, "hola", time.Now()))
	time.Sleep(50 * time.Millisecond)

	if got := m.Get("u1"); got != nil {
		t.Fatalf("expected nil for expired entry, got %d messages", len(got))
	}
	if m.Size() != 0 {
		t.Fatalf("expired entry not purged on read, size=%d", m.Size())
	}
}

func TestShortTermSlidingTTLOnRead(t *testing.T) {
	m := NewShortTermMemory(5, 60*time.Millisecond, time.Minute)
	defer m.Close()

	m.Add("u1", NewMessage(RoleUser, "hola", time.Now()))

	// Each read lands inside the window and refreshes it; the entry stays
	// alive well past the original TTL.
	for i := 0; i < 3; i++ {
		time.Sleep(40 * time.Millisecond)
		if got := m.Get("u1"); got == nil {
			t.Fatalf("read %d: entry expired despite sliding TTL", i)
		}
	}
}

func TestShortTermSweepPurges(t *testing.T) {
	m := NewShortTermMemory(5, 10*time.Millisecond, 20*time.Millisecond)
	defer m.Close()

	m.Add("u1", NewMessage(RoleUser, "hola", time.Now()))
	time.Sleep(80 * time.Millisecond)

	if m.Size() != 0 {
		t.Fatalf("sweep did not purge expired entry, size=%d", m.Size())
	}
}

func TestShortTermClear(t *testing.T) {
	m := NewShortTermMemory(5, time.Minute, time.Minute)
	defer m.Close()

	m.Add("u1", NewMessage(RoleUser, "uno", time.Now()))
	m.Add("u2", NewMessage(RoleUser, "dos", time.Now()))

	m.Clear("u1")
	if m.Get("u1") != nil {
		t.Fatal("u1 should be gone after Clear")
	}
	if m.Get("u2") == nil {
		t.Fatal("u2 should survive Clear of u1")
	}

	m.ClearAll()
	if m.Size() != 0 {
		t.Fatalf("size after ClearAll = %d", m.Size())
	}
}

func TestShortTermCloseIdempotent(t *testing.T) {
	m := NewShortTermMemory(5, time.Minute, time.Minute)
	m.Close()
	m.Close()
}
