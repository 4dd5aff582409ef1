package repository

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	User            *UserRepository
	Order           *OrderRepository
	Line            *LineRepository
	Approval        *ApprovalRepository
	Delivery        *DeliveryRepository
	Production      *ProductionRepository
	Financial       *FinancialRepository
	DeletionRequest *DeletionRequestRepository
	Notification    *NotificationRepository
	Document        *DocumentRepository
	MillOffer       *MillOfferRepository
	Timeline        *TimelineRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:              db,
		User:            NewUserRepository(db),
		Order:           NewOrderRepository(db),
		Line:            NewLineRepository(db),
		Approval:        NewApprovalRepository(db),
		Delivery:        NewDeliveryRepository(db),
		Production:      NewProductionRepository(db),
		Financial:       NewFinancialRepository(db),
		DeletionRequest: NewDeletionRequestRepository(db),
		Notification:    NewNotificationRepository(db),
		Document:        NewDocumentRepository(db),
		MillOffer:       NewMillOfferRepository(db),
		Timeline:        NewTimelineRepository(db),
	}
}

// WithTx 绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// DB 底层连接
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// IsUniqueViolation 唯一约束冲突（SQLSTATE 23505）
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// ConstraintName 违反的约束名
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// ownedOrderIDs 跟单或创建人为 owner 的订单ID子查询
func ownedOrderIDs(db *gorm.DB, owner string) *gorm.DB {
	return db.Table("orders").Select("id").Where("merchandiser_id = ? OR created_by = ?", owner, owner)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
