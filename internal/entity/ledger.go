package entity

import "time"

// SupplierDelivery 供应商交货记录
type SupplierDelivery struct {
	ID                string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID           string  `json:"order_id" gorm:"size:32;not null;index"`
	LineID            *string `json:"line_id" gorm:"size:32;index"`
	StyleID           *string `json:"style_id" gorm:"size:32"`
	StyleNumber       string  `json:"style_number" gorm:"size:100"`
	ColorCode         string  `json:"color_code" gorm:"size:100"`
	DeliveryDate      Date    `json:"delivery_date" gorm:"not null"`
	DeliveredQuantity float64 `json:"delivered_quantity" gorm:"type:numeric(14,2);not null"`
	Unit              string  `json:"unit" gorm:"size:20;default:yards"`
	Notes             string  `json:"notes" gorm:"type:text"`
	CreatedBy         string  `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupplierDelivery) TableName() string {
	return "supplier_deliveries"
}

// 生产记录类型
const (
	EntryKnitting  = "knitting"
	EntryDyeing    = "dyeing"
	EntryFinishing = "finishing"
)

func IsEntryType(t string) bool {
	return t == EntryKnitting || t == EntryDyeing || t == EntryFinishing
}

// ProductionEntry 本地生产记录
type ProductionEntry struct {
	ID        string  `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string  `json:"order_id" gorm:"size:32;not null;index"`
	LineID    *string `json:"line_id" gorm:"size:32;index"`
	EntryType string  `json:"entry_type" gorm:"size:20;not null"`
	EntryDate Date    `json:"entry_date" gorm:"not null"`
	Quantity  float64 `json:"quantity" gorm:"type:numeric(14,2);not null"`
	Unit      string  `json:"unit" gorm:"size:20;default:kg"`
	Notes     string  `json:"notes" gorm:"type:text"`
	CreatedBy string  `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProductionEntry) TableName() string {
	return "production_entries"
}
