package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// DeliveryRepository 交货台账仓库
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// FindAll 查询交货记录
func (r *DeliveryRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.SupplierDelivery, int64, error) {
	var items []entity.SupplierDelivery
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.SupplierDelivery{})
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if lineID := filters["line_id"]; lineID != "" {
		query = query.Where("line_id = ?", lineID)
	}
	if owner := filters["owner_id"]; owner != "" {
		query = query.Where("order_id IN (?)", ownedOrderIDs(r.db, owner))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("delivery_date DESC, created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindByID 根据ID查找
func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.SupplierDelivery, error) {
	var item entity.SupplierDelivery
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// Create 创建
func (r *DeliveryRepository) Create(ctx context.Context, item *entity.SupplierDelivery) error {
	if item.ID == "" {
		item.ID = newID()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新
func (r *DeliveryRepository) Update(ctx context.Context, item *entity.SupplierDelivery) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete 删除
func (r *DeliveryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.SupplierDelivery{}).Error
}

// SumByOrders 按订单汇总交货数量
func (r *DeliveryRepository) SumByOrders(ctx context.Context, orderIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		OrderID string
		Total   float64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.SupplierDelivery{}).
		Select("order_id, COALESCE(SUM(delivered_quantity), 0) AS total").
		Where("order_id IN ?", orderIDs).
		Group("order_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OrderID] = row.Total
	}
	return out, nil
}

// SumByLine 订单内按行汇总交货数量
func (r *DeliveryRepository) SumByLine(ctx context.Context, orderID string) (map[string]float64, error) {
	var rows []struct {
		LineID string
		Total  float64
	}
	err := r.db.WithContext(ctx).
		Model(&entity.SupplierDelivery{}).
		Select("line_id, COALESCE(SUM(delivered_quantity), 0) AS total").
		Where("order_id = ? AND line_id IS NOT NULL", orderID).
		Group("line_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.LineID] = row.Total
	}
	return out, nil
}

// OrdersWithDeliveries 有交货记录的订单集合
func (r *DeliveryRepository) OrdersWithDeliveries(ctx context.Context, orderIDs []string) (map[string]bool, error) {
	sums, err := r.SumByOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(sums))
	for id := range sums {
		out[id] = true
	}
	return out, nil
}

// ProductionRepository 生产台账仓库
type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

// FindAll 查询生产记录
func (r *ProductionRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionEntry, int64, error) {
	var items []entity.ProductionEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionEntry{})
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if lineID := filters["line_id"]; lineID != "" {
		query = query.Where("line_id = ?", lineID)
	}
	if entryType := filters["entry_type"]; entryType != "" {
		query = query.Where("entry_type = ?", entryType)
	}
	if owner := filters["owner_id"]; owner != "" {
		query = query.Where("order_id IN (?)", ownedOrderIDs(r.db, owner))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("entry_date DESC, created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindByID 根据ID查找
func (r *ProductionRepository) FindByID(ctx context.Context, id string) (*entity.ProductionEntry, error) {
	var item entity.ProductionEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// Create 创建
func (r *ProductionRepository) Create(ctx context.Context, item *entity.ProductionEntry) error {
	if item.ID == "" {
		item.ID = newID()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// Update 更新
func (r *ProductionRepository) Update(ctx context.Context, item *entity.ProductionEntry) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete 删除
func (r *ProductionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProductionEntry{}).Error
}

// ProductionSum 按行和类型汇总
type ProductionSum struct {
	LineID    *string
	EntryType string
	Total     float64
}

// SumByOrder 订单内按 (行, 类型) 汇总
func (r *ProductionRepository) SumByOrder(ctx context.Context, orderID string) ([]ProductionSum, error) {
	var rows []ProductionSum
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionEntry{}).
		Select("line_id, entry_type, COALESCE(SUM(quantity), 0) AS total").
		Where("order_id = ?", orderID).
		Group("line_id, entry_type").
		Scan(&rows).Error
	return rows, err
}
