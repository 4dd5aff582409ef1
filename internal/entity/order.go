package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 订单状态（与行状态共用取值）
const (
	StatusUpcoming      = "upcoming"
	StatusInDevelopment = "in_development"
	StatusRunning       = "running"
	StatusBulk          = "bulk"
	StatusCompleted     = "completed"
	StatusArchived      = "archived"
)

// LineStatuses 行状态取值
var LineStatuses = []string{
	StatusUpcoming,
	StatusInDevelopment,
	StatusRunning,
	StatusBulk,
	StatusCompleted,
	StatusArchived,
}

func IsLineStatus(s string) bool {
	for _, v := range LineStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// 订单分类
const (
	CategoryUpcoming = "upcoming"
	CategoryRunning  = "running"
	CategoryArchived = "archived"
)

func IsOrderCategory(c string) bool {
	return c == CategoryUpcoming || c == CategoryRunning || c == CategoryArchived
}

// 订单阶段
const (
	StageDesign        = "Design"
	StageGreige        = "Greige"
	StageLetMeKnow     = "Let Me Know"
	StageInDevelopment = "In Development"
	StageProduction    = "Production"
	StageDelivered     = "Delivered"
)

var OrderStages = []string{
	StageDesign,
	StageGreige,
	StageLetMeKnow,
	StageInDevelopment,
	StageProduction,
	StageDelivered,
}

func IsOrderStage(s string) bool {
	for _, v := range OrderStages {
		if v == s {
			return true
		}
	}
	return false
}

// 订单类型
const (
	OrderTypeLocal   = "local"
	OrderTypeForeign = "foreign"
)

// Order 订单（PO号可重复，uid唯一）
type Order struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	UID         string `json:"uid" gorm:"size:32;uniqueIndex;not null"` // ORD-2024-0001
	OrderNumber string `json:"order_number" gorm:"size:100;not null;index"`

	CustomerName string `json:"customer_name" gorm:"size:200"`
	BuyerName    string `json:"buyer_name" gorm:"size:200"`
	Description  string `json:"description" gorm:"type:text"`

	FabricType           string `json:"fabric_type" gorm:"size:100"`
	FabricSpecifications string `json:"fabric_specifications" gorm:"type:text"`
	Composition          string `json:"composition" gorm:"size:200"`
	GSM                  string `json:"gsm" gorm:"size:50"`
	FinishType           string `json:"finish_type" gorm:"size:100"`
	Construction         string `json:"construction" gorm:"size:200"`

	MillName   string              `json:"mill_name" gorm:"size:200"`
	MillPrice  decimal.NullDecimal `json:"mill_price" gorm:"type:numeric(14,4)"`
	ProvaPrice decimal.NullDecimal `json:"prova_price" gorm:"type:numeric(14,4)"`
	Commission decimal.NullDecimal `json:"commission" gorm:"type:numeric(14,4)"`
	Currency   string              `json:"currency" gorm:"size:10;default:USD"`
	Quantity   float64             `json:"quantity" gorm:"type:numeric(14,2);default:0"`
	Unit       string              `json:"unit" gorm:"size:20;default:yards"`

	Status       string `json:"status" gorm:"size:20;default:upcoming;index"`
	Category     string `json:"category" gorm:"size:20;default:upcoming;index"`
	CurrentStage string `json:"current_stage" gorm:"size:30;default:Design"`
	OrderType    string `json:"order_type" gorm:"size:20;default:foreign"`

	MerchandiserID *string `json:"merchandiser_id" gorm:"size:32;index"`
	CreatedBy      *string `json:"created_by" gorm:"size:32;index"`

	OrderDate            *Date `json:"order_date"`
	ExpectedDeliveryDate *Date `json:"expected_delivery_date"`
	ActualDeliveryDate   *Date `json:"actual_delivery_date"`
	ETD                  *Date `json:"etd" gorm:"column:etd"`
	ETA                  *Date `json:"eta" gorm:"column:eta"`

	ApprovalStatus ApprovalStatusMap `json:"approval_status" gorm:"type:jsonb;default:'{}'"`
	Metadata       datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	Notes          string            `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Styles       []Style `json:"styles,omitempty" gorm:"foreignKey:OrderID"`
	Merchandiser *User   `json:"merchandiser,omitempty" gorm:"foreignKey:MerchandiserID"`
	Creator      *User   `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
}

func (Order) TableName() string {
	return "orders"
}

// IsClosed 已完成或已归档
func (o *Order) IsClosed() bool {
	return o.Status == StatusCompleted || o.Category == CategoryArchived
}

// Lines 展开全部行
func (o *Order) Lines() []Line {
	var lines []Line
	for _, s := range o.Styles {
		lines = append(lines, s.Lines...)
	}
	return lines
}

// Owner 告警接收人：跟单优先，否则创建人
func (o *Order) Owner() string {
	if o.MerchandiserID != nil && *o.MerchandiserID != "" {
		return *o.MerchandiserID
	}
	if o.CreatedBy != nil {
		return *o.CreatedBy
	}
	return ""
}

// Style 款式
type Style struct {
	ID             string `json:"id" gorm:"primaryKey;size:32"`
	OrderID        string `json:"order_id" gorm:"size:32;not null;uniqueIndex:uq_order_styles_number"`
	StyleNumber    string `json:"style_number" gorm:"size:100;not null;uniqueIndex:uq_order_styles_number"`
	SequenceNumber int    `json:"sequence_number"`
	Description    string `json:"description" gorm:"type:text"`

	FabricType           string `json:"fabric_type" gorm:"size:100"`
	FabricSpecifications string `json:"fabric_specifications" gorm:"type:text"`
	Composition          string `json:"composition" gorm:"size:200"`
	GSM                  string `json:"gsm" gorm:"size:50"`
	FinishType           string `json:"finish_type" gorm:"size:100"`
	Construction         string `json:"construction" gorm:"size:200"`
	CuttableWidth        string `json:"cuttable_width" gorm:"size:50"`

	ETD            *Date  `json:"etd" gorm:"column:etd"`
	ETA            *Date  `json:"eta" gorm:"column:eta"`
	SubmissionDate *Date  `json:"submission_date"`
	Notes          string `json:"notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines []Line `json:"lines" gorm:"foreignKey:StyleID"`
}

func (Style) TableName() string {
	return "order_styles"
}

// Line 订单行（款式+颜色+CAD）
type Line struct {
	ID        string  `json:"id" gorm:"primaryKey;size:32"`
	StyleID   string  `json:"style_id" gorm:"size:32;not null;index"`
	ColorCode *string `json:"color_code" gorm:"size:100"`
	ColorName string  `json:"color_name" gorm:"size:100"`
	CADCode   *string `json:"cad_code" gorm:"column:cad_code;size:100"`
	CADName   string  `json:"cad_name" gorm:"column:cad_name;size:100"`

	Quantity   float64             `json:"quantity" gorm:"type:numeric(14,2);default:0"`
	Unit       string              `json:"unit" gorm:"size:20;default:yards"`
	MillName   string              `json:"mill_name" gorm:"size:200"`
	MillPrice  decimal.NullDecimal `json:"mill_price" gorm:"type:numeric(14,4)"`
	ProvaPrice decimal.NullDecimal `json:"prova_price" gorm:"type:numeric(14,4)"`
	Commission decimal.NullDecimal `json:"commission" gorm:"type:numeric(14,4)"`
	Currency   string              `json:"currency" gorm:"size:10"`

	ETD            *Date `json:"etd" gorm:"column:etd"`
	ETA            *Date `json:"eta" gorm:"column:eta"`
	SubmissionDate *Date `json:"submission_date"`
	ApprovalDate   *Date `json:"approval_date"`

	ApprovalStatus ApprovalStatusMap `json:"approval_status" gorm:"type:jsonb;default:'{}'"`
	Status         string            `json:"status" gorm:"size:20;default:upcoming"`

	SwatchReceivedDate *Date `json:"swatch_received_date"`
	SwatchSentDate     *Date `json:"swatch_sent_date"`

	// 本地生产
	ProductionStartDate *Date    `json:"production_start_date"`
	ProductionEndDate   *Date    `json:"production_end_date"`
	ProcessLossPercent  *float64 `json:"process_loss_percent" gorm:"type:numeric(6,2)"`
	GreigeQuantity      *float64 `json:"greige_quantity" gorm:"type:numeric(14,2)"`
	YarnRequired        *float64 `json:"yarn_required" gorm:"type:numeric(14,2)"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Line) TableName() string {
	return "order_lines"
}

// Key (color_code, cad_code)，空值按空串处理
func (l *Line) Key() LineKey {
	return NewLineKey(l.ColorCode, l.CADCode)
}

// HasPrices 同时有工厂价和报价
func (l *Line) HasPrices() bool {
	return l.MillPrice.Valid && l.ProvaPrice.Valid
}

// LineKey 行在款式内的唯一键
type LineKey struct {
	ColorCode string
	CADCode   string
}

func NewLineKey(colorCode, cadCode *string) LineKey {
	var k LineKey
	if colorCode != nil {
		k.ColorCode = *colorCode
	}
	if cadCode != nil {
		k.CADCode = *cadCode
	}
	return k
}

func (k LineKey) String() string {
	return k.ColorCode + "/" + k.CADCode
}
