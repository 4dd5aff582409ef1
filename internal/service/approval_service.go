package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"gorm.io/gorm"
)

// ApprovalService 审批状态与审批历史
type ApprovalService struct {
	repos *repository.Repositories
	sched config.SchedulerConfig
	now   func() time.Time
}

func NewApprovalService(repos *repository.Repositories, sched config.SchedulerConfig) *ApprovalService {
	return &ApprovalService{
		repos: repos,
		sched: sched,
		now:   time.Now,
	}
}

// ChangeApprovalRequest 审批状态变更
type ChangeApprovalRequest struct {
	ApprovalType    string `json:"approval_type" binding:"required,approval_type"`
	Status          string `json:"status" binding:"omitempty,approval_status"`
	OrderLineID     string `json:"order_line_id"`
	CustomTimestamp string `json:"custom_timestamp"`
	Notes           string `json:"notes"`
}

// ChangeApprovalResult 变更结果
type ChangeApprovalResult struct {
	Order   *entity.Order           `json:"order"`
	Line    *entity.Line            `json:"line,omitempty"`
	History *entity.ApprovalHistory `json:"history,omitempty"`
	Logged  bool                    `json:"logged"`
}

// parseTimestamp 解析补录时间（RFC3339 或 YYYY-MM-DD），不能晚于当前时间
func parseTimestamp(raw string, loc *time.Location, now time.Time, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		d, derr := time.ParseInLocation(entity.DateLayout, raw, loc)
		if derr != nil {
			return time.Time{}, NewValidationError(field, "must be RFC3339 or YYYY-MM-DD")
		}
		t = d
	}
	if t.After(now) {
		return time.Time{}, NewValidationError(field, "must not be in the future")
	}
	return t, nil
}

// ChangeApproval 修改行（或订单级）审批状态，汇总到订单并按规则写历史（单事务）
func (s *ApprovalService) ChangeApproval(ctx context.Context, actor Actor, orderID string, req *ChangeApprovalRequest) (*ChangeApprovalResult, error) {
	approvalType := strings.TrimSpace(req.ApprovalType)
	status := strings.TrimSpace(req.Status)

	v := &ValidationError{}
	if !entity.IsApprovalType(approvalType) {
		v.Add("approval_type", fmt.Sprintf("invalid approval type %q", approvalType))
	}
	if status != "" && !entity.IsApprovalStatus(status) {
		v.Add("status", fmt.Sprintf("invalid approval status %q", status))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	loc := s.sched.Location()
	var custom *time.Time
	if req.CustomTimestamp != "" {
		t, err := parseTimestamp(req.CustomTimestamp, loc, now, "custom_timestamp")
		if err != nil {
			return nil, err
		}
		custom = &t
	}

	result := &ChangeApprovalResult{}
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, orderID, true)
		if err != nil {
			return err
		}

		var (
			previous string
			lineID   *string
		)
		if req.OrderLineID != "" {
			line, err := r.Line.FindInOrderForUpdate(ctx, orderID, req.OrderLineID)
			if errors.Is(err, repository.ErrNotFound) {
				return NewValidationError("order_line_id", "line does not belong to this order")
			}
			if err != nil {
				return fmt.Errorf("find line: %w", err)
			}
			previous = line.ApprovalStatus.Get(approvalType)
			line.ApprovalStatus.Set(approvalType, status)
			if status == entity.ApprovalStatusApproved && line.ApprovalDate == nil {
				when := now.In(loc)
				if custom != nil {
					when = custom.In(loc)
				}
				line.ApprovalDate = entity.DatePtr(when)
			}
			if err := r.Line.UpdateColumns(ctx, line.ID, map[string]interface{}{
				"approval_status": line.ApprovalStatus,
				"approval_date":   line.ApprovalDate,
			}); err != nil {
				return fmt.Errorf("update line approval: %w", err)
			}
			if _, err := s.rollup(ctx, r, order, approvalType); err != nil {
				return err
			}
			lineID = &line.ID
			result.Line = line
		} else {
			previous = order.ApprovalStatus.Get(approvalType)
			order.ApprovalStatus.Set(approvalType, status)
			if err := r.Order.UpdateColumns(ctx, order.ID, map[string]interface{}{
				"approval_status": order.ApprovalStatus,
			}); err != nil {
				return fmt.Errorf("update order approval: %w", err)
			}
		}

		if !ShouldLogApproval(previous, status) {
			return nil
		}

		h := &entity.ApprovalHistory{
			OrderID:      orderID,
			LineID:       lineID,
			ApprovalType: approvalType,
			Status:       status,
			ChangedBy:    actor.UserID,
			Notes:        req.Notes,
		}
		if err := r.Approval.Create(ctx, h); err != nil {
			return fmt.Errorf("create approval history: %w", err)
		}
		if custom != nil {
			if err := r.Approval.SetCreatedAt(ctx, h.ID, *custom); err != nil {
				return fmt.Errorf("set history timestamp: %w", err)
			}
			h.CreatedAt = *custom
		}
		result.History = h
		result.Logged = true

		desc := fmt.Sprintf("%s: %s", approvalType, status)
		if previous != "" {
			desc = fmt.Sprintf("%s: %s -> %s", approvalType, previous, status)
		}
		meta := map[string]interface{}{"approval_type": approvalType, "from": previous, "to": status}
		if lineID != nil {
			meta["line_id"] = *lineID
		}
		return logTimeline(ctx, r, actor, orderID, entity.EventApprovalChanged, "Approval changed", desc, meta)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

// rollup 按当前行状态重新汇总订单某关卡
func (s *ApprovalService) rollup(ctx context.Context, r *repository.Repositories, order *entity.Order, approvalType string) (bool, error) {
	lines, err := r.Line.FindByOrder(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("find lines: %w", err)
	}
	if !ApplyRollup(order, lines, approvalType) {
		return false, nil
	}
	if err := r.Order.UpdateColumns(ctx, order.ID, map[string]interface{}{
		"approval_status": order.ApprovalStatus,
	}); err != nil {
		return false, fmt.Errorf("update order approval: %w", err)
	}
	return true, nil
}

// HistoryEntry 行历史视图条目
type HistoryEntry struct {
	entity.ApprovalHistory
	StyleNumber string `json:"style_number"`
	ColorCode   string `json:"color_code"`
	CADCode     string `json:"cad_code"`
	MatchedBy   string `json:"matched_by"`
}

// LineHistoryView 行审批历史
type LineHistoryView struct {
	LineID          string                   `json:"line_id"`
	StyleNumber     string                   `json:"style_number"`
	ApprovalStatus  entity.ApprovalStatusMap `json:"approval_status"`
	ProjectedStatus entity.ApprovalStatusMap `json:"projected_status"`
	History         []HistoryEntry           `json:"history"`
}

// LineHistory 行的审批历史（兼容行重建：同款同色、孤儿记录也计入）
func (s *ApprovalService) LineHistory(ctx context.Context, actor Actor, orderID, lineID, approvalType string) (*LineHistoryView, error) {
	order, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false)
	if err != nil {
		return nil, err
	}
	if approvalType != "" && !entity.IsApprovalType(approvalType) {
		return nil, NewValidationError("approval_type", fmt.Sprintf("invalid approval type %q", approvalType))
	}

	var (
		line        *entity.Line
		styleNumber string
	)
	for i := range order.Styles {
		for j := range order.Styles[i].Lines {
			if order.Styles[i].Lines[j].ID == lineID {
				line = &order.Styles[i].Lines[j]
				styleNumber = order.Styles[i].StyleNumber
			}
		}
	}
	if line == nil {
		return nil, notFoundf("line %s not found in order", lineID)
	}

	rows, err := s.repos.Approval.FindRowsByOrder(ctx, orderID, approvalType)
	if err != nil {
		return nil, fmt.Errorf("find approval history: %w", err)
	}
	projected := ProjectHistory(rows, *line, orderID)

	userIDs := make([]string, 0, len(projected))
	for _, p := range projected {
		if p.ChangedBy != "" {
			userIDs = append(userIDs, p.ChangedBy)
		}
	}
	users, err := s.repos.User.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	view := &LineHistoryView{
		LineID:          line.ID,
		StyleNumber:     styleNumber,
		ApprovalStatus:  line.ApprovalStatus,
		ProjectedStatus: ProjectStatus(projected),
		History:         make([]HistoryEntry, 0, len(projected)),
	}
	for _, p := range projected {
		h := p.ApprovalHistory
		if u, ok := users[h.ChangedBy]; ok {
			h.ChangedByName = u.FullName
		}
		view.History = append(view.History, HistoryEntry{
			ApprovalHistory: h,
			StyleNumber:     styleNumber,
			ColorCode:       deref(line.ColorCode),
			CADCode:         deref(line.CADCode),
			MatchedBy:       p.MatchedBy,
		})
	}
	return view, nil
}

// EditHistoryRequest 管理员修改历史
type EditHistoryRequest struct {
	Status    *string `json:"status" binding:"omitempty,approval_status"`
	Notes     *string `json:"notes"`
	CreatedAt *string `json:"created_at"`
}

// EditHistory 管理员修改历史记录；状态变更同步到行缓存并重新汇总
func (s *ApprovalService) EditHistory(ctx context.Context, actor Actor, orderID, historyID string, req *EditHistoryRequest) (*entity.ApprovalHistory, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenf("only admins can edit approval history")
	}

	var out *entity.ApprovalHistory
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := r.Order.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		h, err := r.Approval.FindByID(ctx, historyID)
		if err != nil {
			return err
		}
		if h.OrderID != orderID {
			return repository.ErrNotFound
		}

		statusChanged := false
		if req.Status != nil {
			status := strings.TrimSpace(*req.Status)
			if !entity.IsApprovalStatus(status) {
				return NewValidationError("status", fmt.Sprintf("invalid approval status %q", status))
			}
			statusChanged = status != h.Status
			h.Status = status
		}
		if req.Notes != nil {
			h.Notes = *req.Notes
		}
		if req.CreatedAt != nil && strings.TrimSpace(*req.CreatedAt) != "" {
			t, err := parseTimestamp(*req.CreatedAt, s.sched.Location(), s.now(), "created_at")
			if err != nil {
				return err
			}
			h.CreatedAt = t
		}

		if err := r.Approval.Update(ctx, h); err != nil {
			return fmt.Errorf("update approval history: %w", err)
		}

		if statusChanged {
			if err := s.setCachedStatus(ctx, r, order, h.LineID, h.ApprovalType, h.Status); err != nil {
				return err
			}
		}
		out = h
		return logTimeline(ctx, r, actor, orderID, entity.EventApprovalChanged, "Approval history edited",
			fmt.Sprintf("%s: %s", h.ApprovalType, h.Status),
			map[string]interface{}{"history_id": h.ID, "approval_type": h.ApprovalType})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteHistory 管理员删除历史记录；行缓存回退到剩余最新记录（无则清除）并重新汇总
func (s *ApprovalService) DeleteHistory(ctx context.Context, actor Actor, orderID, historyID string) error {
	if !actor.IsAdmin() {
		return forbiddenf("only admins can delete approval history")
	}

	return s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := r.Order.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		h, err := r.Approval.FindByID(ctx, historyID)
		if err != nil {
			return err
		}
		if h.OrderID != orderID {
			return repository.ErrNotFound
		}
		if err := r.Approval.Delete(ctx, h.ID); err != nil {
			return fmt.Errorf("delete approval history: %w", err)
		}

		var latest *entity.ApprovalHistory
		if h.LineID != nil {
			latest, err = r.Approval.LatestForLine(ctx, *h.LineID, h.ApprovalType)
		} else {
			latest, err = r.Approval.LatestOrderLevel(ctx, orderID, h.ApprovalType)
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find latest history: %w", err)
		}
		rewind := ""
		if latest != nil {
			rewind = latest.Status
		}
		if err := s.setCachedStatus(ctx, r, order, h.LineID, h.ApprovalType, rewind); err != nil {
			return err
		}
		return logTimeline(ctx, r, actor, orderID, entity.EventApprovalChanged, "Approval history deleted",
			fmt.Sprintf("%s: %s removed", h.ApprovalType, h.Status),
			map[string]interface{}{"history_id": h.ID, "approval_type": h.ApprovalType, "rewound_to": rewind})
	})
}

// setCachedStatus 更新行（或订单级）审批缓存，随后按现有行重新汇总；
// 行引用为空的记录（旧订单级或行已删除）先写订单键，有行时由行状态覆盖
func (s *ApprovalService) setCachedStatus(ctx context.Context, r *repository.Repositories, order *entity.Order, lineID *string, approvalType, status string) error {
	if lineID == nil {
		order.ApprovalStatus.Set(approvalType, status)
		if err := r.Order.UpdateColumns(ctx, order.ID, map[string]interface{}{
			"approval_status": order.ApprovalStatus,
		}); err != nil {
			return fmt.Errorf("update order approval: %w", err)
		}
		_, err := s.rollup(ctx, r, order, approvalType)
		return err
	}

	line, err := r.Line.FindInOrderForUpdate(ctx, order.ID, *lineID)
	switch {
	case err == nil:
		line.ApprovalStatus.Set(approvalType, status)
		if err := r.Line.UpdateColumns(ctx, line.ID, map[string]interface{}{
			"approval_status": line.ApprovalStatus,
		}); err != nil {
			return fmt.Errorf("update line approval: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("find line: %w", err)
	}

	_, err = s.rollup(ctx, r, order, approvalType)
	return err
}
