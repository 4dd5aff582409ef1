package service

import (
	"context"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

// NotificationService 站内通知，用户只能操作自己的通知
type NotificationService struct {
	repos *repository.Repositories
}

func NewNotificationService(repos *repository.Repositories) *NotificationService {
	return &NotificationService{repos: repos}
}

// List 通知列表
func (s *NotificationService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.Notification, int64, error) {
	return s.repos.Notification.FindByUser(ctx, actor.UserID, page, pageSize, filters)
}

// UnreadCount 未读数
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	return s.repos.Notification.CountUnread(ctx, actor.UserID)
}

// MarkRead 标记已读
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id string) (*entity.Notification, error) {
	n, err := s.repos.Notification.MarkRead(ctx, actor.UserID, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return s.repos.Notification.FindByID(ctx, actor.UserID, id)
}

// MarkAllRead 全部已读
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	return s.repos.Notification.MarkAllRead(ctx, actor.UserID)
}

// Clear 删除一条
func (s *NotificationService) Clear(ctx context.Context, actor Actor, id string) error {
	n, err := s.repos.Notification.Delete(ctx, actor.UserID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ClearAll 清空
func (s *NotificationService) ClearAll(ctx context.Context, actor Actor) (int64, error) {
	return s.repos.Notification.DeleteAll(ctx, actor.UserID)
}
