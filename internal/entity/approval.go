package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 审批关卡
const (
	ApprovalLabDip      = "labDip"
	ApprovalStrikeOff   = "strikeOff"
	ApprovalHandloom    = "handloom"
	ApprovalAOP         = "aop"
	ApprovalQualityTest = "qualityTest"
	ApprovalQuality     = "quality"
	ApprovalBulkSwatch  = "bulkSwatch"
	ApprovalPrice       = "price"
	ApprovalPPSample    = "ppSample"
)

// ApprovalTypes 全部审批关卡（导出/TNA列顺序）
var ApprovalTypes = []string{
	ApprovalLabDip,
	ApprovalStrikeOff,
	ApprovalHandloom,
	ApprovalAOP,
	ApprovalQualityTest,
	ApprovalQuality,
	ApprovalBulkSwatch,
	ApprovalPrice,
	ApprovalPPSample,
}

// 审批状态，未设置用缺少key表示
const (
	ApprovalStatusSubmission   = "submission"
	ApprovalStatusResubmission = "resubmission"
	ApprovalStatusApproved     = "approved"
	ApprovalStatusRejected     = "rejected"
)

func IsApprovalType(t string) bool {
	for _, v := range ApprovalTypes {
		if v == t {
			return true
		}
	}
	return false
}

func IsApprovalStatus(s string) bool {
	switch s {
	case ApprovalStatusSubmission, ApprovalStatusResubmission, ApprovalStatusApproved, ApprovalStatusRejected:
		return true
	}
	return false
}

// ApprovalStatusMap 审批关卡 -> 状态
type ApprovalStatusMap map[string]string

func (m ApprovalStatusMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ApprovalStatusMap) Scan(value interface{}) error {
	if value == nil {
		*m = ApprovalStatusMap{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan ApprovalStatusMap: %v", value)
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	out := ApprovalStatusMap{}
	for k, v := range raw {
		// 非字符串值（历史数据）忽略
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	*m = out
	return nil
}

// Get 读取状态，未设置返回空串
func (m ApprovalStatusMap) Get(approvalType string) string {
	if m == nil {
		return ""
	}
	return m[approvalType]
}

// Set 设置状态，空状态删除key
func (m *ApprovalStatusMap) Set(approvalType, status string) {
	if *m == nil {
		*m = ApprovalStatusMap{}
	}
	if status == "" {
		delete(*m, approvalType)
		return
	}
	(*m)[approvalType] = status
}

// Clone 复制
func (m ApprovalStatusMap) Clone() ApprovalStatusMap {
	out := make(ApprovalStatusMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HasPending 是否存在待审（submission/resubmission）关卡
func (m ApprovalStatusMap) HasPending() bool {
	for _, v := range m {
		if v == ApprovalStatusSubmission || v == ApprovalStatusResubmission {
			return true
		}
	}
	return false
}

// ApprovalHistory 审批历史（追加写）
type ApprovalHistory struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID      string    `json:"order_id" gorm:"size:32;not null;index:idx_approval_history_order"`
	LineID       *string   `json:"line_id" gorm:"size:32;index:idx_approval_history_line"` // 行删除后置空
	ApprovalType string    `json:"approval_type" gorm:"size:30;not null;index:idx_approval_history_order"`
	Status       string    `json:"status" gorm:"size:20;not null"`
	ChangedBy    string    `json:"changed_by" gorm:"size:32"`
	Notes        string    `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`

	ChangedByName string `json:"changed_by_name,omitempty" gorm:"-"`
}

func (ApprovalHistory) TableName() string {
	return "approval_history"
}
