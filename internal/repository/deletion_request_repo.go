package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeletionRequestRepository 删除申请仓库
type DeletionRequestRepository struct {
	db *gorm.DB
}

func NewDeletionRequestRepository(db *gorm.DB) *DeletionRequestRepository {
	return &DeletionRequestRepository{db: db}
}

// FindAll 查询删除申请；user_id 限定为申请人或审批人
func (r *DeletionRequestRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.DeletionRequest, int64, error) {
	var items []entity.DeletionRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DeletionRequest{})
	if userID := filters["user_id"]; userID != "" {
		query = query.Where("requester_id = ? OR approver_id = ?", userID, userID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Requester").
		Preload("Approver").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// FindByID 根据ID查找
func (r *DeletionRequestRepository) FindByID(ctx context.Context, id string) (*entity.DeletionRequest, error) {
	var item entity.DeletionRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Approver").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindByIDForUpdate 加锁读取
func (r *DeletionRequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.DeletionRequest, error) {
	var item entity.DeletionRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindPendingByOrder 订单的待处理申请
func (r *DeletionRequestRepository) FindPendingByOrder(ctx context.Context, orderID string) (*entity.DeletionRequest, error) {
	var item entity.DeletionRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, entity.DeletionStatusPending).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// CountPendingByOrder 订单待处理申请数
func (r *DeletionRequestRepository) CountPendingByOrder(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.DeletionRequest{}).
		Where("order_id = ? AND status = ?", orderID, entity.DeletionStatusPending).
		Count(&n).Error
	return n, err
}

// Create 创建
func (r *DeletionRequestRepository) Create(ctx context.Context, item *entity.DeletionRequest) error {
	if item.ID == "" {
		item.ID = newID()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// Update 更新
func (r *DeletionRequestRepository) Update(ctx context.Context, item *entity.DeletionRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}
