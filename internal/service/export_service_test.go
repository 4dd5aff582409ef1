package service

import (
	"testing"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
)

func TestHumanizeKey(t *testing.T) {
	tests := map[string]string{
		"labDip":      "Lab Dip",
		"qualityTest": "Quality Test",
		"bulk_swatch": "Bulk Swatch",
		"aop":         "Aop",
		"strike-off":  "Strike Off",
	}
	for in, want := range tests {
		if got := HumanizeKey(in); got != want {
			t.Errorf("HumanizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTNAHeaders(t *testing.T) {
	headers := TNAHeaders()
	if headers[0] != "PO Number" {
		t.Errorf("first header = %q", headers[0])
	}
	gates := headers[len(headers)-len(entity.ApprovalTypes):]
	for i, gate := range entity.ApprovalTypes {
		if gates[i] != HumanizeKey(gate) {
			t.Errorf("gate column %d = %q, want %q", i, gates[i], HumanizeKey(gate))
		}
	}
}

func TestSafeFileName(t *testing.T) {
	if got := safeFileName("PO 12/34"); got != "PO_12_34" {
		t.Errorf("safeFileName = %q, want PO_12_34", got)
	}
	if got := safeFileName(""); got != "order" {
		t.Errorf("safeFileName(\"\") = %q, want order", got)
	}
}
