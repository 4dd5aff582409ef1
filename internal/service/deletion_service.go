package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeletionService 订单删除申请
type DeletionService struct {
	repos  *repository.Repositories
	blob   BlobStore
	logger *zap.Logger
	now    func() time.Time
}

func NewDeletionService(repos *repository.Repositories, blob BlobStore, logger *zap.Logger) *DeletionService {
	return &DeletionService{
		repos:  repos,
		blob:   blob,
		logger: logger,
		now:    time.Now,
	}
}

// CreateDeletionRequest 申请删除订单
type CreateDeletionRequest struct {
	Reason string `json:"reason"`
}

// RespondDeletionRequest 审批删除申请
type RespondDeletionRequest struct {
	ResponseNote string `json:"response_note"`
}

// RequestDeletion 非创建人申请删除订单，通知创建人
func (s *DeletionService) RequestDeletion(ctx context.Context, actor Actor, orderID string, req *CreateDeletionRequest) (*entity.DeletionRequest, error) {
	var item *entity.DeletionRequest
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, orderID, true)
		if err != nil {
			return err
		}
		if order.CreatedBy == nil || *order.CreatedBy == "" {
			return NewValidationError("order", "order has no creator to approve the deletion")
		}
		if *order.CreatedBy == actor.UserID {
			return NewValidationError("order", "you created this order; delete it directly")
		}

		pending, err := r.DeletionRequest.CountPendingByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("count pending requests: %w", err)
		}
		if pending > 0 {
			return conflictf("a deletion request for this order is already pending")
		}

		item = &entity.DeletionRequest{
			OrderID:     orderID,
			RequesterID: actor.UserID,
			ApproverID:  *order.CreatedBy,
			Status:      entity.DeletionStatusPending,
			Reason:      req.Reason,
		}
		if err := r.DeletionRequest.Create(ctx, item); err != nil {
			return uniqueOr(err, "a deletion request for this order is already pending")
		}

		requester := actor.Name
		if requester == "" {
			requester = "A user"
		}
		message := fmt.Sprintf("%s requested deletion of PO %s (%s).", requester, order.OrderNumber, order.UID)
		if req.Reason != "" {
			message += " Reason: " + req.Reason
		}
		return r.Notification.Create(ctx, &entity.Notification{
			UserID:      item.ApproverID,
			Title:       "Deletion Request",
			Message:     message,
			Type:        entity.NotificationDeletionRequest,
			Severity:    entity.SeverityWarning,
			RelatedID:   item.ID,
			RelatedType: entity.RelatedDeletionRequest,
			Metadata: datatypes.JSONMap{
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
				"requester_id": actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.DeletionRequest.FindByID(ctx, item.ID)
}

// ListRequests 删除申请列表；管理员看全部，其他人看自己发起或待自己审批的
func (s *DeletionService) ListRequests(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.DeletionRequest, int64, error) {
	scoped := make(map[string]string, len(filters)+1)
	for k, v := range filters {
		scoped[k] = v
	}
	delete(scoped, "user_id")
	if !actor.IsAdmin() {
		scoped["user_id"] = actor.UserID
	}

	items, total, err := s.repos.DeletionRequest.FindAll(ctx, page, pageSize, scoped)
	if err != nil {
		return nil, 0, err
	}
	if err := s.fillOrderNumbers(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetRequest 删除申请详情
func (s *DeletionService) GetRequest(ctx context.Context, actor Actor, id string) (*entity.DeletionRequest, error) {
	item, err := s.repos.DeletionRequest.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && item.RequesterID != actor.UserID && item.ApproverID != actor.UserID {
		return nil, repository.ErrNotFound
	}
	items := []entity.DeletionRequest{*item}
	if err := s.fillOrderNumbers(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *DeletionService) fillOrderNumbers(ctx context.Context, items []entity.DeletionRequest) error {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].OrderID)
	}
	numbers, err := s.repos.Order.NumbersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find order numbers: %w", err)
	}
	for i := range items {
		items[i].OrderNumber = numbers[items[i].OrderID]
	}
	return nil
}

// Approve 审批人同意：删除订单，更新原通知并通知申请人
func (s *DeletionService) Approve(ctx context.Context, actor Actor, id string, req *RespondDeletionRequest) (*entity.DeletionRequest, error) {
	var (
		item  *entity.DeletionRequest
		paths []string
	)
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		var err error
		item, err = s.lockPending(ctx, r, actor, id)
		if err != nil {
			return err
		}
		orderNumber := s.orderNumber(ctx, r, item.OrderID)

		paths, err = r.Document.FilePathsByOrder(ctx, item.OrderID)
		if err != nil {
			return fmt.Errorf("find documents: %w", err)
		}

		s.respond(item, entity.DeletionStatusApproved, req)
		if err := r.DeletionRequest.Update(ctx, item); err != nil {
			return fmt.Errorf("update deletion request: %w", err)
		}
		if err := s.retitleApproverNotice(ctx, r, item, "Deletion Approved",
			fmt.Sprintf("You approved deletion of PO %s.", orderNumber)); err != nil {
			return err
		}
		if err := r.Notification.Create(ctx, &entity.Notification{
			UserID:      item.RequesterID,
			Title:       "Deletion Approved",
			Message:     fmt.Sprintf("Your request to delete PO %s was approved. The order has been deleted.", orderNumber),
			Type:        entity.NotificationDeletionApproved,
			Severity:    entity.SeverityInfo,
			RelatedID:   item.ID,
			RelatedType: entity.RelatedDeletionRequest,
			Metadata:    datatypes.JSONMap{"order_number": orderNumber},
		}); err != nil {
			return fmt.Errorf("notify requester: %w", err)
		}

		if err := r.Order.Delete(ctx, item.OrderID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete order: %w", err)
		}
		item.OrderNumber = orderNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	removeBlobs(ctx, s.blob, s.logger, paths)
	return item, nil
}

// Decline 审批人拒绝：订单不变，更新原通知并通知申请人
func (s *DeletionService) Decline(ctx context.Context, actor Actor, id string, req *RespondDeletionRequest) (*entity.DeletionRequest, error) {
	var item *entity.DeletionRequest
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		var err error
		item, err = s.lockPending(ctx, r, actor, id)
		if err != nil {
			return err
		}
		orderNumber := s.orderNumber(ctx, r, item.OrderID)

		s.respond(item, entity.DeletionStatusDeclined, req)
		if err := r.DeletionRequest.Update(ctx, item); err != nil {
			return fmt.Errorf("update deletion request: %w", err)
		}
		if err := s.retitleApproverNotice(ctx, r, item, "Deletion Declined",
			fmt.Sprintf("You declined deletion of PO %s.", orderNumber)); err != nil {
			return err
		}

		message := fmt.Sprintf("Your request to delete PO %s was declined.", orderNumber)
		if item.ResponseNote != "" {
			message += " Note: " + item.ResponseNote
		}
		if err := r.Notification.Create(ctx, &entity.Notification{
			UserID:      item.RequesterID,
			Title:       "Deletion Declined",
			Message:     message,
			Type:        entity.NotificationDeletionDeclined,
			Severity:    entity.SeverityWarning,
			RelatedID:   item.ID,
			RelatedType: entity.RelatedDeletionRequest,
			Metadata:    datatypes.JSONMap{"order_id": item.OrderID, "order_number": orderNumber},
		}); err != nil {
			return fmt.Errorf("notify requester: %w", err)
		}
		item.OrderNumber = orderNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// lockPending 加锁读取待审批申请，只有审批人可以处理
func (s *DeletionService) lockPending(ctx context.Context, r *repository.Repositories, actor Actor, id string) (*entity.DeletionRequest, error) {
	item, err := r.DeletionRequest.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.ApproverID != actor.UserID {
		if item.RequesterID == actor.UserID || actor.IsAdmin() {
			return nil, forbiddenf("only the order creator can respond to this request")
		}
		return nil, repository.ErrNotFound
	}
	if item.Status != entity.DeletionStatusPending {
		return nil, conflictf("deletion request is already %s", item.Status)
	}
	return item, nil
}

func (s *DeletionService) respond(item *entity.DeletionRequest, status string, req *RespondDeletionRequest) {
	now := s.now()
	item.Status = status
	item.RespondedAt = &now
	if req != nil {
		item.ResponseNote = req.ResponseNote
	}
}

func (s *DeletionService) orderNumber(ctx context.Context, r *repository.Repositories, orderID string) string {
	numbers, err := r.Order.NumbersByIDs(ctx, []string{orderID})
	if err != nil {
		s.logger.Warn("find order number failed", zap.String("order_id", orderID), zap.Error(err))
		return orderID
	}
	if n, ok := numbers[orderID]; ok {
		return n
	}
	return orderID
}

// retitleApproverNotice 更新审批人收到的原申请通知
func (s *DeletionService) retitleApproverNotice(ctx context.Context, r *repository.Repositories, item *entity.DeletionRequest, title, message string) error {
	n, err := r.Notification.FindByRelated(ctx, item.ApproverID, entity.NotificationDeletionRequest, entity.RelatedDeletionRequest, item.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find request notification: %w", err)
	}
	n.Title = title
	n.Message = message
	n.IsRead = true
	if err := r.Notification.Update(ctx, n); err != nil {
		return fmt.Errorf("update request notification: %w", err)
	}
	return nil
}
