package service

import (
	"testing"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

func lineWith(id string, statuses map[string]string) entity.Line {
	return entity.Line{ID: id, ApprovalStatus: entity.ApprovalStatusMap(statuses)}
}

func TestRollupApproval(t *testing.T) {
	const gate = entity.ApprovalLabDip
	tests := []struct {
		name   string
		lines  []entity.Line
		want   string
		wantOK bool
	}{
		{"no lines", nil, "", false},
		{"all approved", []entity.Line{
			lineWith("a", map[string]string{gate: "approved"}),
			lineWith("b", map[string]string{gate: "approved"}),
		}, "approved", true},
		{"rejected wins", []entity.Line{
			lineWith("a", map[string]string{gate: "approved"}),
			lineWith("b", map[string]string{gate: "resubmission"}),
			lineWith("c", map[string]string{gate: "rejected"}),
		}, "rejected", true},
		{"resubmission over submission", []entity.Line{
			lineWith("a", map[string]string{gate: "submission"}),
			lineWith("b", map[string]string{gate: "resubmission"}),
		}, "resubmission", true},
		{"submission with unset", []entity.Line{
			lineWith("a", map[string]string{gate: "submission"}),
			lineWith("b", nil),
		}, "submission", true},
		{"approved with unset is not all approved", []entity.Line{
			lineWith("a", map[string]string{gate: "approved"}),
			lineWith("b", nil),
		}, "", false},
		{"all unset", []entity.Line{lineWith("a", nil)}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RollupApproval(tt.lines, gate)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("RollupApproval = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestApplyRollup(t *testing.T) {
	order := &entity.Order{ApprovalStatus: entity.ApprovalStatusMap{entity.ApprovalLabDip: "submission"}}
	lines := []entity.Line{
		lineWith("a", map[string]string{entity.ApprovalLabDip: "approved"}),
		lineWith("b", map[string]string{entity.ApprovalLabDip: "approved"}),
		lineWith("c", map[string]string{entity.ApprovalLabDip: "resubmission"}),
	}
	if !ApplyRollup(order, lines, entity.ApprovalLabDip) {
		t.Fatalf("expected rollup to change order")
	}
	if got := order.ApprovalStatus.Get(entity.ApprovalLabDip); got != "resubmission" {
		t.Fatalf("order labDip = %q, want resubmission", got)
	}

	lines[2].ApprovalStatus.Set(entity.ApprovalLabDip, "approved")
	ApplyRollup(order, lines, entity.ApprovalLabDip)
	if got := order.ApprovalStatus.Get(entity.ApprovalLabDip); got != "approved" {
		t.Fatalf("order labDip = %q, want approved", got)
	}
	if ApplyRollup(order, lines, entity.ApprovalLabDip) {
		t.Errorf("second rollup with same lines should report no change")
	}

	// 行没有该关卡状态时订单保持原值
	order.ApprovalStatus.Set(entity.ApprovalPrice, "rejected")
	if ApplyRollup(order, lines, entity.ApprovalPrice) {
		t.Errorf("rollup without line values should not change order")
	}
	if got := order.ApprovalStatus.Get(entity.ApprovalPrice); got != "rejected" {
		t.Errorf("order price = %q, want rejected kept", got)
	}
}

func TestShouldLogApproval(t *testing.T) {
	tests := []struct {
		prev, next string
		want       bool
	}{
		{"", "submission", true},
		{"submission", "submission", false},
		{"submission", "approved", true},
		{"approved", "", false},
	}
	for _, tt := range tests {
		if got := ShouldLogApproval(tt.prev, tt.next); got != tt.want {
			t.Errorf("ShouldLogApproval(%q, %q) = %v, want %v", tt.prev, tt.next, got, tt.want)
		}
	}
}

func historyRow(id string, lineID, styleID, color *string, orderID, gate, status string, at time.Time) repository.HistoryRow {
	return repository.HistoryRow{
		ApprovalHistory: entity.ApprovalHistory{
			ID:           id,
			OrderID:      orderID,
			LineID:       lineID,
			ApprovalType: gate,
			Status:       status,
			CreatedAt:    at,
		},
		LineStyleID:   styleID,
		LineColorCode: color,
	}
}

func TestProjectHistory(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	line := entity.Line{ID: "line-1", StyleID: "style-1", ColorCode: strPtr("NAV")}

	rows := []repository.HistoryRow{
		historyRow("h1", strPtr("line-1"), strPtr("style-1"), strPtr("NAV"), "order-1", entity.ApprovalLabDip, "submission", base),
		// 行重建后的旧行：同款同色
		historyRow("h2", strPtr("line-old"), strPtr("style-1"), strPtr("NAV"), "order-1", entity.ApprovalLabDip, "resubmission", base.Add(time.Hour)),
		// 不同颜色
		historyRow("h3", strPtr("line-red"), strPtr("style-1"), strPtr("RED"), "order-1", entity.ApprovalLabDip, "approved", base.Add(2*time.Hour)),
		// 行已删除的孤儿记录
		historyRow("h4", nil, nil, nil, "order-1", entity.ApprovalPrice, "approved", base.Add(3*time.Hour)),
		// 其他订单的孤儿记录
		historyRow("h5", nil, nil, nil, "order-2", entity.ApprovalPrice, "rejected", base.Add(4*time.Hour)),
	}

	got := ProjectHistory(rows, line, "order-1")
	if len(got) != 3 {
		t.Fatalf("expected 3 projected rows, got %d", len(got))
	}
	wantOrder := []struct{ id, match string }{
		{"h4", MatchOrphan},
		{"h2", MatchStyleColor},
		{"h1", MatchLine},
	}
	for i, w := range wantOrder {
		if got[i].ID != w.id || got[i].MatchedBy != w.match {
			t.Errorf("row %d = (%s, %s), want (%s, %s)", i, got[i].ID, got[i].MatchedBy, w.id, w.match)
		}
	}

	status := ProjectStatus(got)
	if status.Get(entity.ApprovalLabDip) != "resubmission" {
		t.Errorf("projected labDip = %q, want resubmission", status.Get(entity.ApprovalLabDip))
	}
	if status.Get(entity.ApprovalPrice) != "approved" {
		t.Errorf("projected price = %q, want approved", status.Get(entity.ApprovalPrice))
	}
}

func TestMatchHistoryIgnoresCAD(t *testing.T) {
	line := entity.Line{ID: "l1", StyleID: "s1", ColorCode: strPtr("NAV"), CADCode: strPtr("CAD-2")}
	row := historyRow("h", strPtr("l0"), strPtr("s1"), strPtr("NAV"), "o1", entity.ApprovalLabDip, "submission", time.Now())
	row.LineCADCode = strPtr("CAD-1")
	if got := MatchHistory(row, line, "o1"); got != MatchStyleColor {
		t.Fatalf("MatchHistory = %q, want %q", got, MatchStyleColor)
	}

	other := entity.Line{ID: "l2", StyleID: "s2", ColorCode: strPtr("NAV")}
	if got := MatchHistory(row, other, "o1"); got != "" {
		t.Fatalf("different style should not match, got %q", got)
	}
}

func TestApplyRollupAll(t *testing.T) {
	order := &entity.Order{ApprovalStatus: entity.ApprovalStatusMap{
		entity.ApprovalLabDip: "submission",
		entity.ApprovalPrice:  "rejected",
	}}
	// 待审的行已删除，剩下的行全部通过
	lines := []entity.Line{
		lineWith("b", map[string]string{entity.ApprovalLabDip: "approved"}),
	}
	if !ApplyRollupAll(order, lines) {
		t.Fatalf("expected rollup change")
	}
	if got := order.ApprovalStatus.Get(entity.ApprovalLabDip); got != "approved" {
		t.Errorf("labDip = %q, want approved", got)
	}
	if got := order.ApprovalStatus.Get(entity.ApprovalPrice); got != "rejected" {
		t.Errorf("price = %q, want rejected kept", got)
	}
	if ApplyRollupAll(order, lines) {
		t.Errorf("second pass should report no change")
	}
}
