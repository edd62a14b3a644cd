package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAppendReadAll_RoundTrip(t *testing.T) {
	t.Parallel()

	log, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := Entry{
		ID:        "1",
		Recipient: "alice@example.com",
		Success:   true,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		RelayID:   "main",
	}
	second := Entry{
		ID:         "2",
		Recipient:  "bob@example.com",
		Success:    false,
		Error:      "connection refused",
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
		RelayID:    "main",
		TemplateID: "welcome",
	}

	if err := log.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "1" || entries[1].ID != "2" {
		t.Errorf("entries out of write order: %+v", entries)
	}
	if entries[1].Error != "connection refused" || entries[1].TemplateID != "welcome" {
		t.Errorf("entry fields lost: %+v", entries[1])
	}
}

func TestReadAll_NoLogYet(t *testing.T) {
	t.Parallel()

	log, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want empty", len(entries))
	}
}

func TestReadAll_SkipsMalformedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := log.Append(Entry{ID: "1", Recipient: "a@example.com"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("not json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	if err := log.Append(Entry{ID: "2", Recipient: "b@example.com"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "1" || entries[1].ID != "2" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestAppend_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	log, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			e := Entry{
				ID:        fmt.Sprintf("%d", n),
				Recipient: fmt.Sprintf("user%d@example.com", n),
				Success:   n%2 == 0,
				Timestamp: time.Now().UTC(),
			}
			if err := log.Append(e); err != nil {
				t.Errorf("append %d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := log.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != writers {
		t.Fatalf("got %d entries, want %d", len(entries), writers)
	}
	seen := make(map[string]bool, writers)
	for _, e := range entries {
		if e.ID == "" {
			t.Fatalf("interleaved record: %+v", e)
		}
		seen[e.ID] = true
	}
	if len(seen) != writers {
		t.Errorf("got %d distinct ids, want %d", len(seen), writers)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	log, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := log.Append(Entry{ID: "1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := os.Stat(log.Path()); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
