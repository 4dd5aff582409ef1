package service

import (
	"context"
	"io"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// BlobStore 对象存储
type BlobStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	Remove(ctx context.Context, objectName string) error
	URL(ctx context.Context, objectName string) (string, error)
}

// TokenStore refresh token 存储
type TokenStore interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	Consume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
}

// Locker 跨进程任务锁
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Dependencies 外部依赖
type Dependencies struct {
	Blob   BlobStore
	Tokens TokenStore
	Locker Locker
	Logger *zap.Logger
}

// Services 服务集合
type Services struct {
	Auth         *AuthService
	User         *UserService
	Order        *OrderService
	Approval     *ApprovalService
	Ledger       *LedgerService
	Deletion     *DeletionService
	Alert        *AlertService
	Document     *DocumentService
	Financial    *FinancialService
	Notification *NotificationService
	MillOffer    *MillOfferService
	Export       *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
	}

	return &Services{
		Auth:         NewAuthService(repos, deps.Tokens, cfg.JWT),
		User:         NewUserService(repos),
		Order:        NewOrderService(repos, deps.Blob, cfg.Scheduler, logger),
		Approval:     NewApprovalService(repos, cfg.Scheduler),
		Ledger:       NewLedgerService(repos),
		Deletion:     NewDeletionService(repos, deps.Blob, logger),
		Alert:        NewAlertService(repos, deps.Locker, cfg.Scheduler, logger),
		Document:     NewDocumentService(repos, deps.Blob, logger),
		Financial:    NewFinancialService(repos, deps.Blob, logger),
		Notification: NewNotificationService(repos),
		MillOffer:    NewMillOfferService(repos),
		Export:       NewExportService(repos),
	}
}

// Actor 当前操作人
type Actor struct {
	UserID string
	Name   string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

// Restricted 跟单只能看到自己负责或创建的订单
func (a Actor) Restricted() bool {
	return a.Role == entity.RoleMerchandiser || a.Role == ""
}

// CanSee 订单是否对当前用户可见
func (a Actor) CanSee(order *entity.Order) bool {
	if !a.Restricted() {
		return true
	}
	if order.MerchandiserID != nil && *order.MerchandiserID == a.UserID {
		return true
	}
	return order.CreatedBy != nil && *order.CreatedBy == a.UserID
}

// Scope 把可见范围并入列表过滤条件
func (a Actor) Scope(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters)+1)
	for k, v := range filters {
		out[k] = v
	}
	delete(out, "owner_id")
	if a.Restricted() {
		out["owner_id"] = a.UserID
	}
	return out
}

// loadVisibleOrder 读取订单并检查可见性（不可见按不存在处理）
func loadVisibleOrder(ctx context.Context, repos *repository.Repositories, actor Actor, id string, forUpdate bool) (*entity.Order, error) {
	var (
		order *entity.Order
		err   error
	)
	if forUpdate {
		order, err = repos.Order.FindByIDForUpdate(ctx, id)
	} else {
		order, err = repos.Order.FindByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(order) {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

// logTimeline 在当前事务中写入时间线
func logTimeline(ctx context.Context, repos *repository.Repositories, actor Actor, orderID, eventType, title, description string, metadata map[string]interface{}) error {
	event := &entity.TimelineEvent{
		OrderID:      orderID,
		EventType:    eventType,
		Title:        title,
		Description:  description,
		OperatorID:   actor.UserID,
		OperatorName: actor.Name,
	}
	if len(metadata) > 0 {
		event.Metadata = datatypes.JSONMap(metadata)
	}
	return repos.Timeline.Create(ctx, event)
}

// removeBlobs 提交后清理对象存储，失败只记录日志
func removeBlobs(ctx context.Context, blob BlobStore, logger *zap.Logger, paths []string) {
	if blob == nil {
		return
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := blob.Remove(ctx, p); err != nil {
			logger.Warn("remove blob failed", zap.String("path", p), zap.Error(err))
		}
	}
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
