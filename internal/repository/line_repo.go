package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LineRepository 订单行仓库
type LineRepository struct {
	db *gorm.DB
}

func NewLineRepository(db *gorm.DB) *LineRepository {
	return &LineRepository{db: db}
}

// FindInOrder 按ID查找行，并校验其当前款式属于该订单（不限定款式）
func (r *LineRepository) FindInOrder(ctx context.Context, orderID, lineID string) (*entity.Line, error) {
	var line entity.Line
	err := r.db.WithContext(ctx).
		Joins("JOIN order_styles ON order_styles.id = order_lines.style_id").
		Where("order_lines.id = ? AND order_styles.order_id = ?", lineID, orderID).
		First(&line).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// FindInOrderForUpdate 同 FindInOrder，加行锁
func (r *LineRepository) FindInOrderForUpdate(ctx context.Context, orderID, lineID string) (*entity.Line, error) {
	var line entity.Line
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "order_lines"}}).
		Joins("JOIN order_styles ON order_styles.id = order_lines.style_id").
		Where("order_lines.id = ? AND order_styles.order_id = ?", lineID, orderID).
		First(&line).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// FindByOrder 订单下全部行
func (r *LineRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.Line, error) {
	var items []entity.Line
	err := r.db.WithContext(ctx).
		Joins("JOIN order_styles ON order_styles.id = order_lines.style_id").
		Where("order_styles.order_id = ?", orderID).
		Order("order_lines.created_at ASC, order_lines.id ASC").
		Find(&items).Error
	return items, err
}

// FindByStyle 款式下全部行
func (r *LineRepository) FindByStyle(ctx context.Context, styleID string) ([]entity.Line, error) {
	var items []entity.Line
	err := r.db.WithContext(ctx).
		Where("style_id = ?", styleID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByKey 款式内按 (color_code, cad_code) 查找，空值按空串
func (r *LineRepository) FindByKey(ctx context.Context, styleID string, key entity.LineKey) (*entity.Line, error) {
	var line entity.Line
	err := r.db.WithContext(ctx).
		Where("style_id = ? AND COALESCE(color_code, '') = ? AND COALESCE(cad_code, '') = ?",
			styleID, key.ColorCode, key.CADCode).
		First(&line).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &line, nil
}

// Create 创建行
func (r *LineRepository) Create(ctx context.Context, line *entity.Line) error {
	if line.ID == "" {
		line.ID = newID()
	}
	if line.ApprovalStatus == nil {
		line.ApprovalStatus = entity.ApprovalStatusMap{}
	}
	return r.db.WithContext(ctx).Create(line).Error
}

// Update 保存行
func (r *LineRepository) Update(ctx context.Context, line *entity.Line) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// UpdateColumns 更新部分字段
func (r *LineRepository) UpdateColumns(ctx context.Context, id string, values map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&entity.Line{}).Where("id = ?", id).Updates(values).Error
}

// SetStatusForOrder 批量设置订单下全部行状态
func (r *LineRepository) SetStatusForOrder(ctx context.Context, orderID, status string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Line{}).
		Where("style_id IN (?)", r.db.Model(&entity.Style{}).Select("id").Where("order_id = ?", orderID)).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// Delete 删除行；审批历史、附件、台账的行引用置空而不删除
func (r *LineRepository) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&entity.ApprovalHistory{},
			&entity.Document{},
			&entity.SupplierDelivery{},
			&entity.ProductionEntry{},
			&entity.MillOffer{},
		} {
			if err := tx.Model(model).Where("line_id IN ?", ids).Update("line_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Where("id IN ?", ids).Delete(&entity.Line{}).Error
	})
}
