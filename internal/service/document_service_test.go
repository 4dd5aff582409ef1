package service

import (
	"strings"
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
)

func TestStoredFileName(t *testing.T) {
	tests := []struct {
		category, original string
		prior              bool
		want               string
	}{
		{entity.DocumentPI, "invoice-v1.pdf", false, "invoice-v1.pdf"},
		{entity.DocumentPI, "invoice-v2.pdf", true, "revised_PI.pdf"},
		{entity.DocumentLC, "lc scan.PDF", false, "Amended_LC.PDF"},
		{entity.DocumentLC, "lc.pdf", true, "Amended_LC.pdf"},
		{"other", "dir/photo.jpg", true, "photo.jpg"},
	}
	for _, tt := range tests {
		if got := storedFileName(tt.category, tt.original, tt.prior); got != tt.want {
			t.Errorf("storedFileName(%q, %q, %v) = %q, want %q", tt.category, tt.original, tt.prior, got, tt.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	a := objectName("documents", "order-1", "Spec Sheet.PDF")
	b := objectName("documents", "order-1", "Spec Sheet.PDF")
	if a == b {
		t.Fatalf("object names should be unique, got %q twice", a)
	}
	if !strings.HasPrefix(a, "documents/order-1/") || !strings.HasSuffix(a, ".pdf") {
		t.Errorf("object name = %q", a)
	}
}
