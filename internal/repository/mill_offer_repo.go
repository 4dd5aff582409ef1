package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// MillOfferRepository 工厂报价仓库
type MillOfferRepository struct {
	db *gorm.DB
}

func NewMillOfferRepository(db *gorm.DB) *MillOfferRepository {
	return &MillOfferRepository{db: db}
}

// FindAll 查询报价
func (r *MillOfferRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.MillOffer, int64, error) {
	var items []entity.MillOffer
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MillOffer{})
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if lineID := filters["line_id"]; lineID != "" {
		query = query.Where("line_id = ?", lineID)
	}
	if mill := filters["mill_name"]; mill != "" {
		query = query.Where("mill_name ILIKE ?", "%"+mill+"%")
	}
	if owner := filters["owner_id"]; owner != "" {
		query = query.Where("order_id IN (?)", ownedOrderIDs(r.db, owner))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindByID 根据ID查找
func (r *MillOfferRepository) FindByID(ctx context.Context, id string) (*entity.MillOffer, error) {
	var item entity.MillOffer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// Create 创建
func (r *MillOfferRepository) Create(ctx context.Context, item *entity.MillOffer) error {
	if item.ID == "" {
		item.ID = newID()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新
func (r *MillOfferRepository) Update(ctx context.Context, item *entity.MillOffer) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete 删除
func (r *MillOfferRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.MillOffer{}).Error
}
