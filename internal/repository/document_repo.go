package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// DocumentRepository 订单附件仓库
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// FindByOrder 订单附件，category 为空时不过滤
func (r *DocumentRepository) FindByOrder(ctx context.Context, orderID, category string) ([]entity.Document, error) {
	var items []entity.Document
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("created_at DESC").Find(&items).Error
	return items, err
}

// FindByOrders 多个订单的附件（导出用）
func (r *DocumentRepository) FindByOrders(ctx context.Context, orderIDs []string, categories []string) ([]entity.Document, error) {
	var items []entity.Document
	if len(orderIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where("order_id IN ? AND category IN ?", orderIDs, categories).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// FindByID 订单内查找附件
func (r *DocumentRepository) FindByID(ctx context.Context, orderID, id string) (*entity.Document, error) {
	var doc entity.Document
	if err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", id, orderID).First(&doc).Error; err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// Create 创建
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = newID()
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

// Delete 删除
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Document{}).Error
}

// DeleteByIDs 批量删除
func (r *DocumentRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&entity.Document{}).Error
}

// FilePathsByOrder 订单全部对象存储key（删除订单后清理）
func (r *DocumentRepository) FilePathsByOrder(ctx context.Context, orderID string) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).
		Model(&entity.Document{}).
		Where("order_id = ?", orderID).
		Pluck("file_path", &paths).Error
	return paths, err
}
