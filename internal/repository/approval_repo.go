package repository

import (
	"context"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// ApprovalRepository 审批历史仓库
type ApprovalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// HistoryRow 审批历史及其所指行的当前款式/颜色
type HistoryRow struct {
	entity.ApprovalHistory
	LineStyleID   *string `gorm:"column:line_style_id"`
	LineColorCode *string `gorm:"column:line_color_code"`
	LineCADCode   *string `gorm:"column:line_cad_code"`
}

// Create 追加一条审批历史
func (r *ApprovalRepository) Create(ctx context.Context, h *entity.ApprovalHistory) error {
	if h.ID == "" {
		h.ID = newID()
	}
	return r.db.WithContext(ctx).Create(h).Error
}

// SetCreatedAt 覆盖创建时间（补录）
func (r *ApprovalRepository) SetCreatedAt(ctx context.Context, id string, createdAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.ApprovalHistory{}).
		Where("id = ?", id).
		UpdateColumn("created_at", createdAt).Error
}

// FindByID 根据ID查找
func (r *ApprovalRepository) FindByID(ctx context.Context, id string) (*entity.ApprovalHistory, error) {
	var h entity.ApprovalHistory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&h).Error; err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// Update 更新（管理员修改）
func (r *ApprovalRepository) Update(ctx context.Context, h *entity.ApprovalHistory) error {
	return r.db.WithContext(ctx).
		Model(&entity.ApprovalHistory{}).
		Where("id = ?", h.ID).
		UpdateColumns(map[string]interface{}{
			"status":     h.Status,
			"notes":      h.Notes,
			"created_at": h.CreatedAt,
		}).Error
}

// Delete 删除（管理员）
func (r *ApprovalRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ApprovalHistory{}).Error
}

// LatestForLine 行在某关卡上最近一条记录
func (r *ApprovalRepository) LatestForLine(ctx context.Context, lineID, approvalType string) (*entity.ApprovalHistory, error) {
	var h entity.ApprovalHistory
	err := r.db.WithContext(ctx).
		Where("line_id = ? AND approval_type = ?", lineID, approvalType).
		Order("created_at DESC, id DESC").
		First(&h).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// LatestOrderLevel 订单级（无行）最近一条记录
func (r *ApprovalRepository) LatestOrderLevel(ctx context.Context, orderID, approvalType string) (*entity.ApprovalHistory, error) {
	var h entity.ApprovalHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND line_id IS NULL AND approval_type = ?", orderID, approvalType).
		Order("created_at DESC, id DESC").
		First(&h).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// FindByOrder 订单的审批历史，approvalType 为空时不过滤
func (r *ApprovalRepository) FindByOrder(ctx context.Context, orderID, approvalType string) ([]entity.ApprovalHistory, error) {
	var items []entity.ApprovalHistory
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if approvalType != "" {
		query = query.Where("approval_type = ?", approvalType)
	}
	err := query.Order("created_at DESC, id DESC").Find(&items).Error
	return items, err
}

// FindRowsByOrder 订单的审批历史，带所指行的款式/颜色，用于历史视图匹配
func (r *ApprovalRepository) FindRowsByOrder(ctx context.Context, orderID, approvalType string) ([]HistoryRow, error) {
	var rows []HistoryRow
	query := r.db.WithContext(ctx).
		Table("approval_history").
		Select(`approval_history.*,
			order_lines.style_id AS line_style_id,
			order_lines.color_code AS line_color_code,
			order_lines.cad_code AS line_cad_code`).
		Joins("LEFT JOIN order_lines ON order_lines.id = approval_history.line_id").
		Where("approval_history.order_id = ?", orderID)
	if approvalType != "" {
		query = query.Where("approval_history.approval_type = ?", approvalType)
	}
	err := query.Order("approval_history.created_at DESC, approval_history.id DESC").Scan(&rows).Error
	return rows, err
}

// CountByOrder 订单历史条数
func (r *ApprovalRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.ApprovalHistory{}).Where("order_id = ?", orderID).Count(&n).Error
	return n, err
}
