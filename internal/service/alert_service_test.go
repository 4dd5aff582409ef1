package service

import (
	"strings"
	"testing"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

func TestClassifyDays(t *testing.T) {
	tests := []struct {
		days       int
		level, sev string
		ok         bool
	}{
		{-3, LevelOverdue, entity.SeverityCritical, true},
		{-1, LevelOverdue, entity.SeverityCritical, true},
		{0, LevelHigh, entity.SeverityCritical, true},
		{5, LevelHigh, entity.SeverityCritical, true},
		{6, LevelMedium, entity.SeverityWarning, true},
		{10, LevelMedium, entity.SeverityWarning, true},
		{11, "", "", false},
	}
	for _, tt := range tests {
		level, sev, ok := ClassifyDays(tt.days)
		if level != tt.level || sev != tt.sev || ok != tt.ok {
			t.Errorf("ClassifyDays(%d) = (%q, %q, %v), want (%q, %q, %v)",
				tt.days, level, sev, ok, tt.level, tt.sev, tt.ok)
		}
	}
}

func alertOrder(id string, etd entity.Date, merchandiser, creator *string) entity.Order {
	return entity.Order{
		ID:             id,
		UID:            "ORD-2026-" + id,
		OrderNumber:    "PO-" + id,
		MerchandiserID: merchandiser,
		CreatedBy:      creator,
		Styles: []entity.Style{{
			Lines: []entity.Line{{ID: id + "-l1", ETD: &etd}},
		}},
	}
}

func TestPlanAlerts(t *testing.T) {
	today := entity.NewDate(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	in := func(days int) entity.Date { return entity.NewDate(today.AddDate(0, 0, days)) }

	closed := alertOrder("closed", in(2), strPtr("u1"), nil)
	closed.Status = entity.StatusCompleted

	orders := []entity.Order{
		alertOrder("soon", in(4), strPtr("u1"), strPtr("creator")),
		alertOrder("medium", in(8), nil, strPtr("creator")),
		alertOrder("far", in(30), strPtr("u1"), nil),
		alertOrder("late", in(-2), strPtr("u2"), nil),
		alertOrder("nobody", in(1), nil, nil),
		closed,
	}

	notes, deduped := PlanAlerts(today, KindETD, orders, nil)
	if deduped != 0 {
		t.Fatalf("deduped = %d, want 0", deduped)
	}
	if len(notes) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(notes))
	}

	byOrder := map[string]entity.Notification{}
	for _, n := range notes {
		byOrder[n.RelatedID] = n
	}

	soon := byOrder["soon"]
	if soon.UserID != "u1" || soon.Severity != entity.SeverityCritical || soon.Type != entity.NotificationETDAlert {
		t.Errorf("soon alert = %+v", soon)
	}
	if soon.Metadata["alert_level"] != "etd_alert_high" {
		t.Errorf("soon alert_level = %v", soon.Metadata["alert_level"])
	}
	if !strings.Contains(soon.Message, "4 days") || !strings.Contains(soon.Message, in(4).String()) {
		t.Errorf("soon message = %q", soon.Message)
	}

	// 没有跟单时发给创建人
	if got := byOrder["medium"]; got.UserID != "creator" || got.Severity != entity.SeverityWarning {
		t.Errorf("medium alert = %+v", got)
	}

	late := byOrder["late"]
	if late.Metadata["alert_level"] != "etd_alert_overdue" || !strings.Contains(late.Message, "2 days overdue") {
		t.Errorf("late alert = %+v", late)
	}

	// 同一天再跑：全部去重
	existing := map[repository.DedupeKey]bool{}
	for _, n := range notes {
		existing[repository.DedupeKey{UserID: n.UserID, Type: n.Type, RelatedID: n.RelatedID}] = true
	}
	again, deduped := PlanAlerts(today, KindETD, orders, existing)
	if len(again) != 0 || deduped != 3 {
		t.Fatalf("rerun planned %d, deduped %d; want 0, 3", len(again), deduped)
	}
}

func TestPlanAlertsToday(t *testing.T) {
	today := entity.NewDate(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	order := alertOrder("o", today, strPtr("u1"), nil)
	order.Styles[0].Lines[0].ETD = nil
	order.ETA = &today

	notes, _ := PlanAlerts(today, KindETA, []entity.Order{order}, nil)
	if len(notes) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notes))
	}
	if !strings.Contains(notes[0].Title, "Today") || !strings.Contains(notes[0].Message, "is today") {
		t.Errorf("today alert = %q / %q", notes[0].Title, notes[0].Message)
	}
	if notes[0].Type != entity.NotificationETAAlert {
		t.Errorf("type = %q, want eta alert", notes[0].Type)
	}
}

func TestPlanReminders(t *testing.T) {
	today := entity.NewDate(time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	past := entity.NewDate(today.AddDate(0, 0, -3))
	future := entity.NewDate(today.AddDate(0, 0, 3))

	orders := []entity.Order{
		alertOrder("missing", past, strPtr("u1"), nil),
		alertOrder("delivered", past, strPtr("u1"), nil),
		alertOrder("future", future, strPtr("u1"), nil),
		alertOrder("today", today, strPtr("u1"), nil),
	}
	delivered := map[string]bool{"delivered": true}

	notes, _ := PlanReminders(today, orders, delivered, nil)
	if len(notes) != 1 || notes[0].RelatedID != "missing" {
		t.Fatalf("expected one reminder for 'missing', got %+v", notes)
	}
	n := notes[0]
	if n.Type != entity.NotificationETDReminder || n.Severity != entity.SeverityWarning {
		t.Errorf("reminder = %+v", n)
	}
	if !strings.Contains(n.Message, "3 days ago") {
		t.Errorf("message = %q", n.Message)
	}
}

func TestNextRunAt(t *testing.T) {
	loc := time.UTC
	before := time.Date(2026, 5, 10, 5, 0, 0, 0, loc)
	next, err := NextRunAt(before, "06:30", loc)
	if err != nil {
		t.Fatalf("NextRunAt: %v", err)
	}
	if want := time.Date(2026, 5, 10, 6, 30, 0, 0, loc); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	after := time.Date(2026, 5, 10, 6, 30, 0, 0, loc)
	next, _ = NextRunAt(after, "06:30", loc)
	if want := time.Date(2026, 5, 11, 6, 30, 0, 0, loc); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	if _, err := NextRunAt(before, "6pm", loc); err == nil {
		t.Errorf("expected error for invalid run_at")
	}
}
