package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单仓库（含款式）
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func preloadGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Styles", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_number ASC, created_at ASC")
		}).
		Preload("Styles.Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

// applyOrderFilters 列表过滤；owner_id 限定跟单可见范围
func applyOrderFilters(query *gorm.DB, filters map[string]string) *gorm.DB {
	if owner := filters["owner_id"]; owner != "" {
		query = query.Where("orders.merchandiser_id = ? OR orders.created_by = ?", owner, owner)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if category := filters["category"]; category != "" {
		query = query.Where("orders.category = ?", category)
	}
	if stage := filters["current_stage"]; stage != "" {
		query = query.Where("orders.current_stage = ?", stage)
	}
	if orderType := filters["order_type"]; orderType != "" {
		query = query.Where("orders.order_type = ?", orderType)
	}
	if merch := filters["merchandiser_id"]; merch != "" {
		query = query.Where("orders.merchandiser_id = ?", merch)
	}
	if search := filters["search"]; search != "" {
		like := "%" + search + "%"
		query = query.Where("orders.order_number ILIKE ? OR orders.customer_name ILIKE ? OR orders.buyer_name ILIKE ? OR orders.uid ILIKE ?",
			like, like, like, like)
	}
	return query
}

// FindAll 查询订单列表
func (r *OrderRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Order, int64, error) {
	var items []entity.Order
	var total int64

	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := preloadGraph(query).
		Preload("Merchandiser").
		Order("orders.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error

	return items, total, err
}

// FindAllUnpaged 导出/统计用，不分页
func (r *OrderRepository) FindAllUnpaged(ctx context.Context, filters map[string]string) ([]entity.Order, error) {
	var items []entity.Order
	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)
	err := preloadGraph(query).
		Preload("Merchandiser").
		Order("orders.created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找订单（含款式和行）
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := preloadGraph(r.db.WithContext(ctx)).
		Preload("Merchandiser").
		Preload("Creator").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// FindByIDForUpdate 行锁读取订单（不含关联）
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// FindByOrderNumberForUpdate 按PO号查找最早的订单并加锁
func (r *OrderRepository) FindByOrderNumberForUpdate(ctx context.Context, orderNumber string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number = ?", orderNumber).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// LockOrderNumber 事务级咨询锁，串行化同一PO号的创建/合并
func (r *OrderRepository) LockOrderNumber(ctx context.Context, orderNumber string) error {
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "order_number:"+orderNumber).Error
}

// NumbersByIDs 批量查询 id -> PO号
func (r *OrderRepository) NumbersByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID          string
		OrderNumber string
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Select("id, order_number").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.OrderNumber
	}
	return out, nil
}

// Create 创建订单（不级联关联）
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	if order.ID == "" {
		order.ID = newID()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

// Update 保存订单字段（不级联关联）
func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// UpdateColumns 更新部分字段
func (r *OrderRepository) UpdateColumns(ctx context.Context, id string, values map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).Where("id = ?", id).Updates(values).Error
}

// Delete 删除订单及全部从属数据
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		styleIDs := tx.Model(&entity.Style{}).Select("id").Where("order_id = ?", id)
		steps := []struct {
			model interface{}
			query interface{}
			args  []interface{}
		}{
			{&entity.ApprovalHistory{}, "order_id = ?", []interface{}{id}},
			{&entity.SupplierDelivery{}, "order_id = ?", []interface{}{id}},
			{&entity.ProductionEntry{}, "order_id = ?", []interface{}{id}},
			{&entity.Document{}, "order_id = ?", []interface{}{id}},
			{&entity.ProformaInvoice{}, "order_id = ?", []interface{}{id}},
			{&entity.LetterOfCredit{}, "order_id = ?", []interface{}{id}},
			{&entity.MillOffer{}, "order_id = ?", []interface{}{id}},
			{&entity.DeletionRequest{}, "order_id = ?", []interface{}{id}},
			{&entity.TimelineEvent{}, "order_id = ?", []interface{}{id}},
			{&entity.Line{}, "style_id IN (?)", []interface{}{styleIDs}},
			{&entity.Style{}, "order_id = ?", []interface{}{id}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&entity.Order{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GenerateUID 生成订单内部编号 ORD-{year}-{4位}
func (r *OrderRepository) GenerateUID(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("ORD-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Order{}).
		Select("COALESCE(MAX(uid), '')").
		Where("uid LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "ORD-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("ORD-%s-%04d", year, seq), nil
}

// CountByCategory 按分类统计
func (r *OrderRepository) CountByCategory(ctx context.Context, filters map[string]string) (map[string]int64, error) {
	var rows []struct {
		Category string
		Count    int64
	}
	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)
	err := query.Select("orders.category AS category, COUNT(*) AS count").
		Group("orders.category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Category] = row.Count
	}
	return out, nil
}

// FindRecent 最近创建的订单
func (r *OrderRepository) FindRecent(ctx context.Context, filters map[string]string, limit int) ([]entity.Order, error) {
	var items []entity.Order
	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)
	err := query.Order("orders.created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func openOrders(query *gorm.DB) *gorm.DB {
	return query.
		Where("orders.status <> ?", entity.StatusCompleted).
		Where("orders.category <> ?", entity.CategoryArchived)
}

// FindUpcomingETD ETD 落在 [from, to] 的未完成订单
func (r *OrderRepository) FindUpcomingETD(ctx context.Context, filters map[string]string, from, to entity.Date) ([]entity.Order, error) {
	var items []entity.Order
	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)
	err := openOrders(query).
		Where("orders.etd BETWEEN ? AND ?", from, to).
		Preload("Merchandiser").
		Order("orders.etd ASC").
		Find(&items).Error
	return items, err
}

// FindStuckApprovals 存在待审关卡且长时间未更新的订单
func (r *OrderRepository) FindStuckApprovals(ctx context.Context, filters map[string]string, updatedBefore time.Time) ([]entity.Order, error) {
	var items []entity.Order
	query := applyOrderFilters(r.db.WithContext(ctx).Model(&entity.Order{}), filters)
	err := openOrders(query).
		Where("orders.updated_at <= ?", updatedBefore).
		Where(`EXISTS (SELECT 1 FROM jsonb_each_text(orders.approval_status) AS a WHERE a.value IN (?, ?))`,
			entity.ApprovalStatusSubmission, entity.ApprovalStatusResubmission).
		Preload("Merchandiser").
		Order("orders.updated_at ASC").
		Find(&items).Error
	return items, err
}

// FindOpenForAlerts 告警扫描：未完成、未归档订单（含款式和行）
func (r *OrderRepository) FindOpenForAlerts(ctx context.Context) ([]entity.Order, error) {
	var items []entity.Order
	err := preloadGraph(openOrders(r.db.WithContext(ctx).Model(&entity.Order{}))).
		Order("orders.created_at ASC").
		Find(&items).Error
	return items, err
}

// === 款式 ===

// FindStyles 订单下的款式
func (r *OrderRepository) FindStyles(ctx context.Context, orderID string) ([]entity.Style, error) {
	var items []entity.Style
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("sequence_number ASC").
		Find(&items).Error
	return items, err
}

// FindStyle 查找订单内的款式
func (r *OrderRepository) FindStyle(ctx context.Context, orderID, styleID string) (*entity.Style, error) {
	var style entity.Style
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", styleID, orderID).
		First(&style).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &style, nil
}

// NextStyleSequence 下一个款式序号
func (r *OrderRepository) NextStyleSequence(ctx context.Context, orderID string) (int, error) {
	var maxSeq int
	err := r.db.WithContext(ctx).
		Model(&entity.Style{}).
		Select("COALESCE(MAX(sequence_number), 0)").
		Where("order_id = ?", orderID).
		Scan(&maxSeq).Error
	return maxSeq + 1, err
}

// CreateStyle 创建款式
func (r *OrderRepository) CreateStyle(ctx context.Context, style *entity.Style) error {
	if style.ID == "" {
		style.ID = newID()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(style).Error
}

// UpdateStyle 保存款式
func (r *OrderRepository) UpdateStyle(ctx context.Context, style *entity.Style) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(style).Error
}

// DeleteStyle 删除空款式
func (r *OrderRepository) DeleteStyle(ctx context.Context, styleID string) error {
	return r.db.WithContext(ctx).Where("id = ?", styleID).Delete(&entity.Style{}).Error
}
