package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Put(ctx, "documents/o1/a.pdf", strings.NewReader("pdf-bytes"), 9, "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, size, err := s.Get(ctx, "documents/o1/a.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "pdf-bytes" || size != 9 {
		t.Fatalf("Get = (%q, %d)", data, size)
	}

	s.Remove(ctx, "documents/o1/a.pdf")
	if _, _, err := s.Get(ctx, "documents/o1/a.pdf"); err == nil {
		t.Fatalf("expected error after Remove")
	}

	s.Fail = errors.New("unavailable")
	if _, _, err := s.Get(ctx, "anything"); !errors.Is(err, s.Fail) {
		t.Fatalf("Fail not returned: %v", err)
	}
}
