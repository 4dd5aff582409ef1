package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 通知级别
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// 通知类型
const (
	NotificationDeletionRequest  = "deletion_request"
	NotificationDeletionApproved = "deletion_approved"
	NotificationDeletionDeclined = "deletion_declined"
	NotificationETDAlert         = "etd_alert"
	NotificationETAAlert         = "eta_alert"
	NotificationETDReminder      = "etd_reminder"
)

// 关联对象类型
const (
	RelatedOrder           = "order"
	RelatedDeletionRequest = "deletion_request"
)

// Notification 站内通知
type Notification struct {
	ID          string            `json:"id" gorm:"primaryKey;size:32"`
	UserID      string            `json:"user_id" gorm:"size:32;not null;index:idx_notifications_user"`
	Title       string            `json:"title" gorm:"size:200;not null"`
	Message     string            `json:"message" gorm:"type:text"`
	Type        string            `json:"notification_type" gorm:"column:notification_type;size:50;not null;index:idx_notifications_dedupe"`
	Severity    string            `json:"severity" gorm:"size:20;default:info"`
	RelatedID   string            `json:"related_id" gorm:"size:32;index:idx_notifications_dedupe"`
	RelatedType string            `json:"related_type" gorm:"size:50"`
	IsRead      bool              `json:"is_read" gorm:"default:false;index:idx_notifications_user"`
	Metadata    datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
