package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// TimelineRepository 订单时间线仓库
type TimelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Create 写入事件
func (r *TimelineRepository) Create(ctx context.Context, event *entity.TimelineEvent) error {
	if event.ID == "" {
		event.ID = newID()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByOrder 订单时间线（新在前）
func (r *TimelineRepository) FindByOrder(ctx context.Context, orderID string, page, pageSize int) ([]entity.TimelineEvent, int64, error) {
	var items []entity.TimelineEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.TimelineEvent{}).Where("order_id = ?", orderID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}
