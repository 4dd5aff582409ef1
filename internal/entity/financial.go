package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PI 状态
const (
	PIStatusDraft     = "draft"
	PIStatusSent      = "sent"
	PIStatusConfirmed = "confirmed"
	PIStatusCancelled = "cancelled"
)

// ValidPITransitions PI状态流转
var ValidPITransitions = map[string][]string{
	PIStatusDraft: {PIStatusSent, PIStatusCancelled},
	PIStatusSent:  {PIStatusConfirmed, PIStatusCancelled},
}

// ProformaInvoice 形式发票（按订单递增版本）
type ProformaInvoice struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	OrderID   string          `json:"order_id" gorm:"size:32;not null;index"`
	PINumber  string          `json:"pi_number" gorm:"column:pi_number;size:100;uniqueIndex;not null"`
	Version   int             `json:"version" gorm:"not null;default:1"`
	Status    string          `json:"status" gorm:"size:20;not null;default:draft"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:numeric(16,2);not null"`
	Currency  string          `json:"currency" gorm:"size:10;default:USD"`
	IssueDate *Date           `json:"issue_date"`
	PDFFile   string          `json:"pdf_file" gorm:"column:pdf_file;size:500"`
	Notes     string          `json:"notes" gorm:"type:text"`
	CreatedBy string          `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PDFURL      string `json:"pdf_url,omitempty" gorm:"-"`
	OrderNumber string `json:"order_number,omitempty" gorm:"-"`
}

func (ProformaInvoice) TableName() string {
	return "proforma_invoices"
}

// LC 状态
const (
	LCStatusPending   = "pending"
	LCStatusIssued    = "issued"
	LCStatusConfirmed = "confirmed"
	LCStatusExpired   = "expired"
)

// ValidLCTransitions LC状态流转
var ValidLCTransitions = map[string][]string{
	LCStatusPending:   {LCStatusIssued, LCStatusExpired},
	LCStatusIssued:    {LCStatusConfirmed, LCStatusExpired},
	LCStatusConfirmed: {LCStatusExpired},
}

// LetterOfCredit 信用证
type LetterOfCredit struct {
	ID          string          `json:"id" gorm:"primaryKey;size:32"`
	OrderID     string          `json:"order_id" gorm:"size:32;not null;index"`
	LCNumber    string          `json:"lc_number" gorm:"column:lc_number;size:100;uniqueIndex;not null"`
	Status      string          `json:"status" gorm:"size:20;not null;default:pending"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(16,2);not null"`
	Currency    string          `json:"currency" gorm:"size:10;default:USD"`
	IssueDate   *Date           `json:"issue_date"`
	ExpiryDate  *Date           `json:"expiry_date"`
	IssuingBank string          `json:"issuing_bank" gorm:"size:200"`
	Notes       string          `json:"notes" gorm:"type:text"`
	CreatedBy   string          `json:"created_by" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderNumber string `json:"order_number,omitempty" gorm:"-"`
}

func (LetterOfCredit) TableName() string {
	return "letters_of_credit"
}

// CanTransition 检查状态流转是否允许
func CanTransition(transitions map[string][]string, from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
