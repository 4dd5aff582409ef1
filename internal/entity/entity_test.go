package entity

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-04")
	if err != nil || d.String() != "2026-03-04" {
		t.Fatalf("ParseDate = (%v, %v)", d, err)
	}
	d, err = ParseDate("2026-03-04T23:10:00Z")
	if err != nil || d.String() != "2026-03-04" {
		t.Fatalf("ParseDate RFC3339 = (%v, %v)", d, err)
	}
	if _, err := ParseDate("04/03/2026"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		ETD *Date `json:"etd"`
		ETA *Date `json:"eta"`
	}
	if err := json.Unmarshal([]byte(`{"etd":"2026-07-01","eta":null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.ETD == nil || v.ETD.String() != "2026-07-01" || v.ETA != nil {
		t.Fatalf("decoded = %+v", v)
	}
	b, _ := json.Marshal(v)
	if string(b) != `{"etd":"2026-07-01","eta":null}` {
		t.Errorf("marshal = %s", b)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)); err != nil || d.String() != "2026-01-02" {
		t.Fatalf("scan time = (%v, %v)", d, err)
	}
	if err := d.Scan([]byte("2026-02-03")); err != nil || d.String() != "2026-02-03" {
		t.Fatalf("scan bytes = (%v, %v)", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error scanning int")
	}
}

func TestDaysUntil(t *testing.T) {
	today := NewDate(time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC))
	later := NewDate(time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	if got := later.DaysUntil(today); got != 3 {
		t.Errorf("DaysUntil = %d, want 3", got)
	}
	if got := today.DaysUntil(later); got != -3 {
		t.Errorf("DaysUntil = %d, want -3", got)
	}
}

func TestMinDate(t *testing.T) {
	a := DatePtr(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	b := DatePtr(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if got := MinDate(nil, a, &Date{}, b); got == nil || got.String() != "2026-04-01" {
		t.Fatalf("MinDate = %v", got)
	}
	if MinDate(nil, &Date{}) != nil {
		t.Fatalf("MinDate of empty dates should be nil")
	}
}

func TestApprovalStatusMapScan(t *testing.T) {
	var m ApprovalStatusMap
	if err := m.Scan([]byte(`{"labDip":"approved","price":"","legacy":true}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(m) != 1 || m.Get(ApprovalLabDip) != ApprovalStatusApproved {
		t.Fatalf("scanned = %v", m)
	}

	var empty ApprovalStatusMap
	v, err := empty.Value()
	if err != nil || v != "{}" {
		t.Fatalf("nil map value = (%v, %v)", v, err)
	}
}

func TestApprovalStatusMapSet(t *testing.T) {
	var m ApprovalStatusMap
	m.Set(ApprovalPrice, ApprovalStatusSubmission)
	if !m.HasPending() {
		t.Fatalf("submission should be pending")
	}
	clone := m.Clone()
	m.Set(ApprovalPrice, "")
	if _, ok := m[ApprovalPrice]; ok {
		t.Errorf("empty status should delete key")
	}
	if clone.Get(ApprovalPrice) != ApprovalStatusSubmission {
		t.Errorf("clone should be independent")
	}
}

func TestOrderOwner(t *testing.T) {
	merch, creator, empty := "m1", "c1", ""
	if got := (&Order{MerchandiserID: &merch, CreatedBy: &creator}).Owner(); got != "m1" {
		t.Errorf("owner = %q, want merchandiser", got)
	}
	if got := (&Order{MerchandiserID: &empty, CreatedBy: &creator}).Owner(); got != "c1" {
		t.Errorf("owner = %q, want creator fallback", got)
	}
	if got := (&Order{}).Owner(); got != "" {
		t.Errorf("owner = %q, want empty", got)
	}
	if !(&Order{Category: CategoryArchived}).IsClosed() {
		t.Errorf("archived order should be closed")
	}
}
