package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 时间线事件类型
const (
	EventOrderCreated     = "order_created"
	EventOrderMerged      = "order_merged"
	EventOrderUpdated     = "order_updated"
	EventStageChanged     = "stage_changed"
	EventApprovalChanged  = "approval_changed"
	EventLineStatus       = "line_status"
	EventDocumentUploaded = "document_uploaded"
	EventDocumentDeleted  = "document_deleted"
	EventPICreated        = "pi_created"
	EventPIStatus         = "pi_status"
	EventLCCreated        = "lc_created"
	EventLCStatus         = "lc_status"
	EventDelivery         = "delivery"
	EventProduction       = "production"
)

// TimelineEvent 订单时间线
type TimelineEvent struct {
	ID           string            `json:"id" gorm:"primaryKey;size:32"`
	OrderID      string            `json:"order_id" gorm:"size:32;not null;index"`
	EventType    string            `json:"event_type" gorm:"size:50;not null"`
	Title        string            `json:"title" gorm:"size:200;not null"`
	Description  string            `json:"description" gorm:"type:text"`
	Metadata     datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	OperatorID   string            `json:"operator_id" gorm:"size:32"`
	OperatorName string            `json:"operator_name" gorm:"size:200"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (TimelineEvent) TableName() string {
	return "order_timeline"
}
