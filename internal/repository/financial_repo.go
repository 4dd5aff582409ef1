package repository

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FinancialRepository PI/LC仓库
type FinancialRepository struct {
	db *gorm.DB
}

func NewFinancialRepository(db *gorm.DB) *FinancialRepository {
	return &FinancialRepository{db: db}
}

func applyFinancialFilters(r *FinancialRepository, query *gorm.DB, filters map[string]string) *gorm.DB {
	if orderID := filters["order_id"]; orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if currency := filters["currency"]; currency != "" {
		query = query.Where("currency = ?", currency)
	}
	if owner := filters["owner_id"]; owner != "" {
		query = query.Where("order_id IN (?)", ownedOrderIDs(r.db, owner))
	}
	return query
}

// === PI ===

// FindPIs 查询PI列表
func (r *FinancialRepository) FindPIs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProformaInvoice, int64, error) {
	var items []entity.ProformaInvoice
	var total int64

	query := applyFinancialFilters(r, r.db.WithContext(ctx).Model(&entity.ProformaInvoice{}), filters)
	if search := filters["search"]; search != "" {
		query = query.Where("pi_number ILIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindPIByID 根据ID查找PI
func (r *FinancialRepository) FindPIByID(ctx context.Context, id string) (*entity.ProformaInvoice, error) {
	var pi entity.ProformaInvoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pi).Error; err != nil {
		return nil, notFound(err)
	}
	return &pi, nil
}

// MaxPIVersion 订单当前最大PI版本
func (r *FinancialRepository) MaxPIVersion(ctx context.Context, orderID string) (int, error) {
	var v int
	err := r.db.WithContext(ctx).
		Model(&entity.ProformaInvoice{}).
		Select("COALESCE(MAX(version), 0)").
		Where("order_id = ?", orderID).
		Scan(&v).Error
	return v, err
}

// CreatePI 创建PI
func (r *FinancialRepository) CreatePI(ctx context.Context, pi *entity.ProformaInvoice) error {
	if pi.ID == "" {
		pi.ID = newID()
	}
	return r.db.WithContext(ctx).Create(pi).Error
}

// UpdatePI 更新PI
func (r *FinancialRepository) UpdatePI(ctx context.Context, pi *entity.ProformaInvoice) error {
	return r.db.WithContext(ctx).Save(pi).Error
}

// DeletePI 删除PI
func (r *FinancialRepository) DeletePI(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProformaInvoice{}).Error
}

// === LC ===

// FindLCs 查询LC列表
func (r *FinancialRepository) FindLCs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.LetterOfCredit, int64, error) {
	var items []entity.LetterOfCredit
	var total int64

	query := applyFinancialFilters(r, r.db.WithContext(ctx).Model(&entity.LetterOfCredit{}), filters)
	if search := filters["search"]; search != "" {
		query = query.Where("lc_number ILIKE ? OR issuing_bank ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindLCByID 根据ID查找LC
func (r *FinancialRepository) FindLCByID(ctx context.Context, id string) (*entity.LetterOfCredit, error) {
	var lc entity.LetterOfCredit
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lc).Error; err != nil {
		return nil, notFound(err)
	}
	return &lc, nil
}

// CreateLC 创建LC
func (r *FinancialRepository) CreateLC(ctx context.Context, lc *entity.LetterOfCredit) error {
	if lc.ID == "" {
		lc.ID = newID()
	}
	return r.db.WithContext(ctx).Create(lc).Error
}

// UpdateLC 更新LC
func (r *FinancialRepository) UpdateLC(ctx context.Context, lc *entity.LetterOfCredit) error {
	return r.db.WithContext(ctx).Save(lc).Error
}

// DeleteLC 删除LC
func (r *FinancialRepository) DeleteLC(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.LetterOfCredit{}).Error
}

// StatusTotal 按状态和币种汇总
type StatusTotal struct {
	Status   string
	Currency string
	Count    int64
	Amount   decimal.Decimal
}

func (r *FinancialRepository) totals(ctx context.Context, model interface{}, filters map[string]string) ([]StatusTotal, error) {
	var rows []StatusTotal
	query := applyFinancialFilters(r, r.db.WithContext(ctx).Model(model), filters)
	err := query.
		Select("status, currency, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group("status, currency").
		Order("status, currency").
		Scan(&rows).Error
	return rows, err
}

// PITotals PI按状态汇总
func (r *FinancialRepository) PITotals(ctx context.Context, filters map[string]string) ([]StatusTotal, error) {
	return r.totals(ctx, &entity.ProformaInvoice{}, filters)
}

// LCTotals LC按状态汇总
func (r *FinancialRepository) LCTotals(ctx context.Context, filters map[string]string) ([]StatusTotal, error) {
	return r.totals(ctx, &entity.LetterOfCredit{}, filters)
}
