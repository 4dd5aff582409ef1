package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MillOffer 工厂报价
type MillOffer struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string          `json:"order_id" gorm:"size:32;not null;index"`
	LineID    *string         `json:"line_id" gorm:"size:32"`
	MillName  string          `json:"mill_name" gorm:"size:200;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(14,4);not null"`
	Currency  string          `json:"currency" gorm:"size:10;default:USD"`
	OfferDate *Date           `json:"offer_date"`
	Notes     string          `json:"notes" gorm:"type:text"`
	CreatedBy string          `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MillOffer) TableName() string {
	return "mill_offers"
}
