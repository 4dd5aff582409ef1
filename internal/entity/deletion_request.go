package entity

import "time"

// DeletionRequest 订单删除申请
type DeletionRequest struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	OrderID      string     `json:"order_id" gorm:"size:32;not null;index"`
	RequesterID  string     `json:"requester_id" gorm:"size:32;not null;index"`
	ApproverID   string     `json:"approver_id" gorm:"size:32;not null;index"` // = order.created_by
	Status       string     `json:"status" gorm:"size:20;not null;default:pending"`
	Reason       string     `json:"reason" gorm:"type:text"`
	ResponseNote string     `json:"response_note" gorm:"type:text"`
	RespondedAt  *time.Time `json:"responded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Requester   *User  `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Approver    *User  `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
	OrderNumber string `json:"order_number,omitempty" gorm:"-"`
}

func (DeletionRequest) TableName() string {
	return "deletion_requests"
}

// DeletionRequest 状态
const (
	DeletionStatusPending  = "pending"
	DeletionStatusApproved = "approved"
	DeletionStatusDeclined = "declined"
)
