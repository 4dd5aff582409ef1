package service

import (
	"sort"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

// RollupApproval 行状态汇总到订单；ok=false 表示保持订单原值
//
// 全部 approved -> approved；否则 rejected > resubmission > submission。
func RollupApproval(lines []entity.Line, approvalType string) (status string, ok bool) {
	if len(lines) == 0 {
		return "", false
	}

	counts := make(map[string]int)
	for _, l := range lines {
		counts[l.ApprovalStatus.Get(approvalType)]++
	}

	switch {
	case counts[entity.ApprovalStatusApproved] == len(lines):
		return entity.ApprovalStatusApproved, true
	case counts[entity.ApprovalStatusRejected] > 0:
		return entity.ApprovalStatusRejected, true
	case counts[entity.ApprovalStatusResubmission] > 0:
		return entity.ApprovalStatusResubmission, true
	case counts[entity.ApprovalStatusSubmission] > 0:
		return entity.ApprovalStatusSubmission, true
	}
	return "", false
}

// ApplyRollup 更新订单汇总，返回是否有变化
func ApplyRollup(order *entity.Order, lines []entity.Line, approvalType string) bool {
	status, ok := RollupApproval(lines, approvalType)
	if !ok || order.ApprovalStatus.Get(approvalType) == status {
		return false
	}
	order.ApprovalStatus.Set(approvalType, status)
	return true
}

// ApplyRollupAll 对全部关卡重新汇总，返回是否有变化
func ApplyRollupAll(order *entity.Order, lines []entity.Line) bool {
	changed := false
	for _, gate := range entity.ApprovalTypes {
		if ApplyRollup(order, lines, gate) {
			changed = true
		}
	}
	return changed
}

// ShouldLogApproval 新状态非空且与原状态不同才写历史
func ShouldLogApproval(previous, next string) bool {
	return next != "" && previous != next
}

// 历史匹配方式
const (
	MatchLine       = "line"
	MatchStyleColor = "style_color"
	MatchOrphan     = "orphan"
)

// MatchHistory 判断历史记录是否属于该行；返回匹配方式，空串为不匹配
//
// (a) 指向该行；(b) 所指行与该行同款式同颜色（忽略CAD）；(c) 行引用为空且属于同一订单。
func MatchHistory(row repository.HistoryRow, line entity.Line, orderID string) string {
	if row.LineID != nil {
		if *row.LineID == line.ID {
			return MatchLine
		}
		if row.LineStyleID != nil && *row.LineStyleID == line.StyleID &&
			deref(row.LineColorCode) == deref(line.ColorCode) {
			return MatchStyleColor
		}
		return ""
	}
	if row.OrderID == orderID {
		return MatchOrphan
	}
	return ""
}

// ProjectedHistory 行的历史视图条目
type ProjectedHistory struct {
	repository.HistoryRow
	MatchedBy string
}

// ProjectHistory 过滤出属于该行的历史，按时间倒序
func ProjectHistory(rows []repository.HistoryRow, line entity.Line, orderID string) []ProjectedHistory {
	out := make([]ProjectedHistory, 0, len(rows))
	for _, row := range rows {
		if m := MatchHistory(row, line, orderID); m != "" {
			out = append(out, ProjectedHistory{HistoryRow: row, MatchedBy: m})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ProjectStatus 按历史视图推算各关卡当前状态（最新一条）
func ProjectStatus(history []ProjectedHistory) entity.ApprovalStatusMap {
	out := entity.ApprovalStatusMap{}
	for _, h := range history {
		if _, seen := out[h.ApprovalType]; seen {
			continue
		}
		out.Set(h.ApprovalType, h.Status)
	}
	return out
}
