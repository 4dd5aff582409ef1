package service

import (
	"fmt"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/shopspring/decimal"
)

// LineInput 行输入；不含 approval_status 和 status，这两个字段只能通过专用接口修改
type LineInput struct {
	ID        *string `json:"id"`
	ColorCode *string `json:"color_code"`
	ColorName *string `json:"color_name"`
	CADCode   *string `json:"cad_code"`
	CADName   *string `json:"cad_name"`

	Quantity   *float64             `json:"quantity"`
	Unit       *string              `json:"unit"`
	MillName   *string              `json:"mill_name"`
	MillPrice  *decimal.NullDecimal `json:"mill_price"`
	ProvaPrice *decimal.NullDecimal `json:"prova_price"`
	Commission *decimal.NullDecimal `json:"commission"`
	Currency   *string              `json:"currency"`

	ETD            *entity.Date `json:"etd"`
	ETA            *entity.Date `json:"eta"`
	SubmissionDate *entity.Date `json:"submission_date"`

	ProductionStartDate *entity.Date `json:"production_start_date"`
	ProductionEndDate   *entity.Date `json:"production_end_date"`
	ProcessLossPercent  *float64     `json:"process_loss_percent"`
	GreigeQuantity      *float64     `json:"greige_quantity"`
	YarnRequired        *float64     `json:"yarn_required"`

	Notes *string `json:"notes"`
}

// hasID 是否引用已有行
func (in *LineInput) hasID() bool {
	return in.ID != nil && strings.TrimSpace(*in.ID) != ""
}

// StyleInput 款式输入；lines 优先，colors 为兼容别名
type StyleInput struct {
	ID          *string `json:"id"`
	StyleNumber *string `json:"style_number"`
	Description *string `json:"description"`

	FabricType           *string `json:"fabric_type"`
	FabricSpecifications *string `json:"fabric_specifications"`
	Composition          *string `json:"composition"`
	GSM                  *string `json:"gsm"`
	FinishType           *string `json:"finish_type"`
	Construction         *string `json:"construction"`
	CuttableWidth        *string `json:"cuttable_width"`

	ETD            *entity.Date `json:"etd"`
	ETA            *entity.Date `json:"eta"`
	SubmissionDate *entity.Date `json:"submission_date"`
	Notes          *string      `json:"notes"`

	Lines  []LineInput `json:"lines"`
	Colors []LineInput `json:"colors"`
}

// LineInputs lines 为空时回退到 colors
func (in *StyleInput) LineInputs() []LineInput {
	if len(in.Lines) > 0 {
		return in.Lines
	}
	return in.Colors
}

func (in *StyleInput) styleNumber() string {
	if in.StyleNumber == nil {
		return ""
	}
	return strings.TrimSpace(*in.StyleNumber)
}

// OrderFields 订单可编辑字段
type OrderFields struct {
	CustomerName *string `json:"customer_name"`
	BuyerName    *string `json:"buyer_name"`
	Description  *string `json:"description"`

	FabricType           *string `json:"fabric_type"`
	FabricSpecifications *string `json:"fabric_specifications"`
	Composition          *string `json:"composition"`
	GSM                  *string `json:"gsm"`
	FinishType           *string `json:"finish_type"`
	Construction         *string `json:"construction"`

	MillName   *string              `json:"mill_name"`
	MillPrice  *decimal.NullDecimal `json:"mill_price"`
	ProvaPrice *decimal.NullDecimal `json:"prova_price"`
	Commission *decimal.NullDecimal `json:"commission"`
	Currency   *string              `json:"currency"`
	Unit       *string              `json:"unit"`

	Status    *string `json:"status"`
	Category  *string `json:"category"`
	OrderType *string `json:"order_type"`

	MerchandiserID *string `json:"merchandiser_id"`

	OrderDate            *entity.Date `json:"order_date"`
	ExpectedDeliveryDate *entity.Date `json:"expected_delivery_date"`
	ETD                  *entity.Date `json:"etd"`
	ETA                  *entity.Date `json:"eta"`

	Metadata map[string]interface{} `json:"metadata"`
	Notes    *string                `json:"notes"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	OrderFields
	Styles []StyleInput `json:"styles"`
}

// UpdateOrderRequest 更新订单请求；styles 缺省时不触碰款式和行
type UpdateOrderRequest struct {
	OrderNumber *string  `json:"order_number"`
	Quantity    *float64 `json:"quantity"`
	OrderFields
	Styles *[]StyleInput `json:"styles"`
}

// === 字段赋值 ===

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// setOptString 空串清空
func setOptString(dst **string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if v == "" {
		*dst = nil
		return
	}
	*dst = &v
}

// setDate 零值日期清空
func setDate(dst **entity.Date, src *entity.Date) {
	if src == nil {
		return
	}
	if src.IsZero() {
		*dst = nil
		return
	}
	v := *src
	*dst = &v
}

func setDecimal(dst *decimal.NullDecimal, src *decimal.NullDecimal) {
	if src != nil {
		*dst = *src
	}
}

func setFloatPtr(dst **float64, src *float64) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func applyOrderFields(o *entity.Order, in *OrderFields) {
	setString(&o.CustomerName, in.CustomerName)
	setString(&o.BuyerName, in.BuyerName)
	setString(&o.Description, in.Description)
	setString(&o.FabricType, in.FabricType)
	setString(&o.FabricSpecifications, in.FabricSpecifications)
	setString(&o.Composition, in.Composition)
	setString(&o.GSM, in.GSM)
	setString(&o.FinishType, in.FinishType)
	setString(&o.Construction, in.Construction)
	setString(&o.MillName, in.MillName)
	setDecimal(&o.MillPrice, in.MillPrice)
	setDecimal(&o.ProvaPrice, in.ProvaPrice)
	setDecimal(&o.Commission, in.Commission)
	setString(&o.Currency, in.Currency)
	setString(&o.Unit, in.Unit)
	setString(&o.Status, in.Status)
	setString(&o.Category, in.Category)
	setString(&o.OrderType, in.OrderType)
	setOptString(&o.MerchandiserID, in.MerchandiserID)
	setDate(&o.OrderDate, in.OrderDate)
	setDate(&o.ExpectedDeliveryDate, in.ExpectedDeliveryDate)
	setDate(&o.ETD, in.ETD)
	setDate(&o.ETA, in.ETA)
	if in.Metadata != nil {
		o.Metadata = in.Metadata
	}
	setString(&o.Notes, in.Notes)
}

func validateOrderFields(o *entity.Order, v *ValidationError) {
	if o.Status != "" && !entity.IsLineStatus(o.Status) {
		v.Add("status", fmt.Sprintf("invalid status %q", o.Status))
	}
	if o.Category != "" && !entity.IsOrderCategory(o.Category) {
		v.Add("category", fmt.Sprintf("invalid category %q", o.Category))
	}
	if o.OrderType != "" && o.OrderType != entity.OrderTypeLocal && o.OrderType != entity.OrderTypeForeign {
		v.Add("order_type", fmt.Sprintf("invalid order type %q", o.OrderType))
	}
	if o.MillPrice.Valid && o.MillPrice.Decimal.IsNegative() {
		v.Add("mill_price", "must not be negative")
	}
	if o.ProvaPrice.Valid && o.ProvaPrice.Decimal.IsNegative() {
		v.Add("prova_price", "must not be negative")
	}
	if o.Quantity < 0 {
		v.Add("quantity", "must not be negative")
	}
}

func applyStyleFields(s *entity.Style, in *StyleInput) {
	setString(&s.Description, in.Description)
	setString(&s.FabricType, in.FabricType)
	setString(&s.FabricSpecifications, in.FabricSpecifications)
	setString(&s.Composition, in.Composition)
	setString(&s.GSM, in.GSM)
	setString(&s.FinishType, in.FinishType)
	setString(&s.Construction, in.Construction)
	setString(&s.CuttableWidth, in.CuttableWidth)
	setDate(&s.ETD, in.ETD)
	setDate(&s.ETA, in.ETA)
	setDate(&s.SubmissionDate, in.SubmissionDate)
	setString(&s.Notes, in.Notes)
}

func applyLineFields(l *entity.Line, in *LineInput) {
	setOptString(&l.ColorCode, in.ColorCode)
	setString(&l.ColorName, in.ColorName)
	setOptString(&l.CADCode, in.CADCode)
	setString(&l.CADName, in.CADName)
	if in.Quantity != nil {
		l.Quantity = *in.Quantity
	}
	setString(&l.Unit, in.Unit)
	setString(&l.MillName, in.MillName)
	setDecimal(&l.MillPrice, in.MillPrice)
	setDecimal(&l.ProvaPrice, in.ProvaPrice)
	setDecimal(&l.Commission, in.Commission)
	setString(&l.Currency, in.Currency)
	setDate(&l.ETD, in.ETD)
	setDate(&l.ETA, in.ETA)
	setDate(&l.SubmissionDate, in.SubmissionDate)
	setDate(&l.ProductionStartDate, in.ProductionStartDate)
	setDate(&l.ProductionEndDate, in.ProductionEndDate)
	setFloatPtr(&l.ProcessLossPercent, in.ProcessLossPercent)
	setFloatPtr(&l.GreigeQuantity, in.GreigeQuantity)
	setFloatPtr(&l.YarnRequired, in.YarnRequired)
	setString(&l.Notes, in.Notes)
}

// validateLineInput 单行校验
func validateLineInput(in *LineInput, field string, v *ValidationError) {
	if in.Quantity != nil && *in.Quantity < 0 {
		v.Add(field+".quantity", "must not be negative")
	}
	if in.MillPrice != nil && in.MillPrice.Valid && in.MillPrice.Decimal.IsNegative() {
		v.Add(field+".mill_price", "must not be negative")
	}
	if in.ProvaPrice != nil && in.ProvaPrice.Valid && in.ProvaPrice.Decimal.IsNegative() {
		v.Add(field+".prova_price", "must not be negative")
	}
	if in.ProcessLossPercent != nil && (*in.ProcessLossPercent < 0 || *in.ProcessLossPercent > 100) {
		v.Add(field+".process_loss_percent", "must be between 0 and 100")
	}
	if in.GreigeQuantity != nil && *in.GreigeQuantity < 0 {
		v.Add(field+".greige_quantity", "must not be negative")
	}
	if in.YarnRequired != nil && *in.YarnRequired < 0 {
		v.Add(field+".yarn_required", "must not be negative")
	}
}

// inputKey 输入行的 (color_code, cad_code)
func inputKey(in *LineInput) entity.LineKey {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	return entity.NewLineKey(trim(in.ColorCode), trim(in.CADCode))
}

// validateCreateStyles 创建/合并时的款式和行校验
func validateCreateStyles(styles []StyleInput, v *ValidationError) {
	if len(styles) == 0 {
		v.Add("styles", "at least one style is required")
		return
	}
	seenStyles := make(map[string]int)
	for i := range styles {
		field := fmt.Sprintf("styles[%d]", i)
		if num := styles[i].styleNumber(); num != "" {
			if prev, ok := seenStyles[num]; ok {
				v.Add(field+".style_number", fmt.Sprintf("duplicates styles[%d]", prev))
			}
			seenStyles[num] = i
		}
		lines := styles[i].LineInputs()
		if len(lines) == 0 {
			v.Add(field+".lines", "at least one line is required")
			continue
		}
		seenKeys := make(map[entity.LineKey]int)
		for j := range lines {
			lf := fmt.Sprintf("%s.lines[%d]", field, j)
			validateLineInput(&lines[j], lf, v)
			key := inputKey(&lines[j])
			if prev, ok := seenKeys[key]; ok {
				v.Add(lf, fmt.Sprintf("duplicate color_code/cad_code %s (same as lines[%d])", key, prev))
			}
			seenKeys[key] = j
		}
	}
}
