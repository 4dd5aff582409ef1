package repository

import (
	"context"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓库
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FindByUser 用户通知列表
func (r *NotificationRepository) FindByUser(ctx context.Context, userID string, page, pageSize int, filters map[string]string) ([]entity.Notification, int64, error) {
	var items []entity.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Notification{}).Where("user_id = ?", userID)
	if isRead := filters["is_read"]; isRead != "" {
		query = query.Where("is_read = ?", isRead == "true")
	}
	if t := filters["notification_type"]; t != "" {
		query = query.Where("notification_type = ?", t)
	}
	if severity := filters["severity"]; severity != "" {
		query = query.Where("severity = ?", severity)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindByID 用户的某条通知
func (r *NotificationRepository) FindByID(ctx context.Context, userID, id string) (*entity.Notification, error) {
	var n entity.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// FindByRelated 按关联对象查找用户通知
func (r *NotificationRepository) FindByRelated(ctx context.Context, userID, notificationType, relatedType, relatedID string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND notification_type = ? AND related_type = ? AND related_id = ?",
			userID, notificationType, relatedType, relatedID).
		Order("created_at DESC").
		First(&n).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

// Create 创建通知
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// Update 更新通知
func (r *NotificationRepository) Update(ctx context.Context, n *entity.Notification) error {
	return r.db.WithContext(ctx).Save(n).Error
}

// CountUnread 未读数
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead 标记已读
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// MarkAllRead 全部标记已读
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// Delete 清除一条
func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}

// DeleteAll 清除全部
func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&entity.Notification{})
	return res.RowsAffected, res.Error
}

// DedupeKey 告警去重键
type DedupeKey struct {
	UserID    string
	Type      string
	RelatedID string
}

// FindKeysBetween [start, end) 内已存在的 (user, type, related) 集合
func (r *NotificationRepository) FindKeysBetween(ctx context.Context, types []string, start, end time.Time) (map[DedupeKey]bool, error) {
	var rows []struct {
		UserID           string
		NotificationType string
		RelatedID        string
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Select("DISTINCT user_id, notification_type, related_id").
		Where("notification_type IN ? AND created_at >= ? AND created_at < ?", types, start, end).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[DedupeKey]bool, len(rows))
	for _, row := range rows {
		out[DedupeKey{UserID: row.UserID, Type: row.NotificationType, RelatedID: row.RelatedID}] = true
	}
	return out, nil
}

// ExistsBetween 单条去重检查
func (r *NotificationRepository) ExistsBetween(ctx context.Context, key DedupeKey, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND notification_type = ? AND related_id = ? AND created_at >= ? AND created_at < ?",
			key.UserID, key.Type, key.RelatedID, start, end).
		Count(&count).Error
	return count > 0, err
}
