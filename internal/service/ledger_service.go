package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"gorm.io/gorm"
)

// LedgerService 交货台账与生产台账
type LedgerService struct {
	repos *repository.Repositories
}

func NewLedgerService(repos *repository.Repositories) *LedgerService {
	return &LedgerService{repos: repos}
}

// CreateDeliveryRequest 新增交货
type CreateDeliveryRequest struct {
	OrderID           string      `json:"order_id" binding:"required"`
	LineID            *string     `json:"line_id"`
	DeliveryDate      entity.Date `json:"delivery_date"`
	DeliveredQuantity float64     `json:"delivered_quantity" binding:"required,gt=0"`
	Unit              string      `json:"unit"`
	Notes             string      `json:"notes"`
}

// UpdateDeliveryRequest 修改交货
type UpdateDeliveryRequest struct {
	LineID            *string      `json:"line_id"`
	DeliveryDate      *entity.Date `json:"delivery_date"`
	DeliveredQuantity *float64     `json:"delivered_quantity" binding:"omitempty,gt=0"`
	Unit              *string      `json:"unit"`
	Notes             *string      `json:"notes"`
}

// CreateProductionRequest 新增生产记录
type CreateProductionRequest struct {
	OrderID   string      `json:"order_id" binding:"required"`
	LineID    *string     `json:"line_id"`
	EntryType string      `json:"entry_type" binding:"required,oneof=knitting dyeing finishing"`
	EntryDate entity.Date `json:"entry_date"`
	Quantity  float64     `json:"quantity" binding:"required,gt=0"`
	Unit      string      `json:"unit"`
	Notes     string      `json:"notes"`
}

// UpdateProductionRequest 修改生产记录
type UpdateProductionRequest struct {
	LineID    *string      `json:"line_id"`
	EntryType *string      `json:"entry_type" binding:"omitempty,oneof=knitting dyeing finishing"`
	EntryDate *entity.Date `json:"entry_date"`
	Quantity  *float64     `json:"quantity" binding:"omitempty,gt=0"`
	Unit      *string      `json:"unit"`
	Notes     *string      `json:"notes"`
}

// resolveLine 校验行属于订单；空 id 返回 nil
func resolveLine(ctx context.Context, r *repository.Repositories, orderID string, lineID *string) (*entity.Line, error) {
	if lineID == nil || strings.TrimSpace(*lineID) == "" {
		return nil, nil
	}
	line, err := r.Line.FindInOrder(ctx, orderID, strings.TrimSpace(*lineID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewValidationError("line_id", "line does not belong to this order")
	}
	if err != nil {
		return nil, fmt.Errorf("find line: %w", err)
	}
	return line, nil
}

// snapshotLine 交货记录冗余行的款式/颜色
func snapshotLine(ctx context.Context, r *repository.Repositories, orderID string, item *entity.SupplierDelivery, line *entity.Line) error {
	if line == nil {
		item.LineID = nil
		item.StyleID = nil
		item.StyleNumber = ""
		item.ColorCode = ""
		return nil
	}
	style, err := r.Order.FindStyle(ctx, orderID, line.StyleID)
	if err != nil {
		return fmt.Errorf("find style: %w", err)
	}
	item.LineID = strPtr(line.ID)
	item.StyleID = strPtr(style.ID)
	item.StyleNumber = style.StyleNumber
	item.ColorCode = deref(line.ColorCode)
	return nil
}

// === 交货 ===

// ListDeliveries 交货列表
func (s *LedgerService) ListDeliveries(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.SupplierDelivery, int64, error) {
	return s.repos.Delivery.FindAll(ctx, page, pageSize, actor.Scope(filters))
}

// GetDelivery 交货详情
func (s *LedgerService) GetDelivery(ctx context.Context, actor Actor, id string) (*entity.SupplierDelivery, error) {
	item, err := s.repos.Delivery.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleOrder(ctx, s.repos, actor, item.OrderID, false); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateDelivery 新增交货
func (s *LedgerService) CreateDelivery(ctx context.Context, actor Actor, req *CreateDeliveryRequest) (*entity.SupplierDelivery, error) {
	if req.DeliveredQuantity <= 0 {
		return nil, NewValidationError("delivered_quantity", "must be greater than 0")
	}
	if req.DeliveryDate.IsZero() {
		return nil, NewValidationError("delivery_date", "is required")
	}

	var item *entity.SupplierDelivery
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, req.OrderID, false)
		if err != nil {
			return err
		}
		line, err := resolveLine(ctx, r, order.ID, req.LineID)
		if err != nil {
			return err
		}

		item = &entity.SupplierDelivery{
			OrderID:           order.ID,
			DeliveryDate:      req.DeliveryDate,
			DeliveredQuantity: req.DeliveredQuantity,
			Unit:              req.Unit,
			Notes:             req.Notes,
			CreatedBy:         actor.UserID,
		}
		if item.Unit == "" {
			item.Unit = order.Unit
		}
		if err := snapshotLine(ctx, r, order.ID, item, line); err != nil {
			return err
		}
		if err := r.Delivery.Create(ctx, item); err != nil {
			return fmt.Errorf("create delivery: %w", err)
		}

		desc := fmt.Sprintf("%.2f %s delivered on %s", item.DeliveredQuantity, item.Unit, item.DeliveryDate)
		if item.StyleNumber != "" {
			desc = fmt.Sprintf("%s (%s/%s)", desc, item.StyleNumber, item.ColorCode)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventDelivery, "Delivery recorded", desc,
			map[string]interface{}{"delivery_id": item.ID, "quantity": item.DeliveredQuantity})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateDelivery 修改交货
func (s *LedgerService) UpdateDelivery(ctx context.Context, actor Actor, id string, req *UpdateDeliveryRequest) (*entity.SupplierDelivery, error) {
	item, err := s.GetDelivery(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.LineID != nil {
		line, err := resolveLine(ctx, s.repos, item.OrderID, req.LineID)
		if err != nil {
			return nil, err
		}
		if err := snapshotLine(ctx, s.repos, item.OrderID, item, line); err != nil {
			return nil, err
		}
	}
	if req.DeliveryDate != nil {
		if req.DeliveryDate.IsZero() {
			return nil, NewValidationError("delivery_date", "must not be empty")
		}
		item.DeliveryDate = *req.DeliveryDate
	}
	if req.DeliveredQuantity != nil {
		if *req.DeliveredQuantity <= 0 {
			return nil, NewValidationError("delivered_quantity", "must be greater than 0")
		}
		item.DeliveredQuantity = *req.DeliveredQuantity
	}
	setString(&item.Unit, req.Unit)
	setString(&item.Notes, req.Notes)

	if err := s.repos.Delivery.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update delivery: %w", err)
	}
	return item, nil
}

// DeleteDelivery 删除交货
func (s *LedgerService) DeleteDelivery(ctx context.Context, actor Actor, id string) error {
	item, err := s.GetDelivery(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Delivery.Delete(ctx, item.ID)
}

// LineDelivery 行交货汇总
type LineDelivery struct {
	LineID      string `json:"line_id"`
	StyleNumber string `json:"style_number"`
	ColorCode   string `json:"color_code"`
	CADCode     string `json:"cad_code"`
	LineMetrics
}

// OrderDeliverySummary 订单交货汇总
type OrderDeliverySummary struct {
	OrderID string `json:"order_id"`
	OrderMetrics
	Lines []LineDelivery `json:"lines"`
}

// DeliverySummary 订单及各行交货汇总
func (s *LedgerService) DeliverySummary(ctx context.Context, actor Actor, orderID string) (*OrderDeliverySummary, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "is required")
	}
	order, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false)
	if err != nil {
		return nil, err
	}
	totals, err := s.repos.Delivery.SumByOrders(ctx, []string{orderID})
	if err != nil {
		return nil, fmt.Errorf("sum deliveries: %w", err)
	}
	byLine, err := s.repos.Delivery.SumByLine(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sum line deliveries: %w", err)
	}

	out := &OrderDeliverySummary{
		OrderID:      orderID,
		OrderMetrics: ComputeOrderMetrics(order, totals[orderID]),
		Lines:        []LineDelivery{},
	}
	for i := range order.Styles {
		st := &order.Styles[i]
		for j := range st.Lines {
			l := &st.Lines[j]
			out.Lines = append(out.Lines, LineDelivery{
				LineID:      l.ID,
				StyleNumber: st.StyleNumber,
				ColorCode:   deref(l.ColorCode),
				CADCode:     deref(l.CADCode),
				LineMetrics: ComputeLineMetrics(l, byLine[l.ID]),
			})
		}
	}
	return out, nil
}

// === 生产 ===

// ListProduction 生产记录列表
func (s *LedgerService) ListProduction(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.ProductionEntry, int64, error) {
	return s.repos.Production.FindAll(ctx, page, pageSize, actor.Scope(filters))
}

// GetProduction 生产记录详情
func (s *LedgerService) GetProduction(ctx context.Context, actor Actor, id string) (*entity.ProductionEntry, error) {
	item, err := s.repos.Production.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleOrder(ctx, s.repos, actor, item.OrderID, false); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateProduction 新增生产记录
func (s *LedgerService) CreateProduction(ctx context.Context, actor Actor, req *CreateProductionRequest) (*entity.ProductionEntry, error) {
	v := &ValidationError{}
	if req.Quantity <= 0 {
		v.Add("quantity", "must be greater than 0")
	}
	if !entity.IsEntryType(req.EntryType) {
		v.Add("entry_type", fmt.Sprintf("invalid entry type %q", req.EntryType))
	}
	if req.EntryDate.IsZero() {
		v.Add("entry_date", "is required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var item *entity.ProductionEntry
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, req.OrderID, false)
		if err != nil {
			return err
		}
		line, err := resolveLine(ctx, r, order.ID, req.LineID)
		if err != nil {
			return err
		}

		item = &entity.ProductionEntry{
			OrderID:   order.ID,
			EntryType: req.EntryType,
			EntryDate: req.EntryDate,
			Quantity:  req.Quantity,
			Unit:      req.Unit,
			Notes:     req.Notes,
			CreatedBy: actor.UserID,
		}
		if line != nil {
			item.LineID = strPtr(line.ID)
		}
		if item.Unit == "" {
			item.Unit = "kg"
		}
		if err := r.Production.Create(ctx, item); err != nil {
			return fmt.Errorf("create production entry: %w", err)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventProduction, "Production recorded",
			fmt.Sprintf("%s %.2f %s on %s", item.EntryType, item.Quantity, item.Unit, item.EntryDate),
			map[string]interface{}{"entry_id": item.ID, "entry_type": item.EntryType, "quantity": item.Quantity})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateProduction 修改生产记录
func (s *LedgerService) UpdateProduction(ctx context.Context, actor Actor, id string, req *UpdateProductionRequest) (*entity.ProductionEntry, error) {
	item, err := s.GetProduction(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.LineID != nil {
		line, err := resolveLine(ctx, s.repos, item.OrderID, req.LineID)
		if err != nil {
			return nil, err
		}
		item.LineID = nil
		if line != nil {
			item.LineID = strPtr(line.ID)
		}
	}
	if req.EntryType != nil {
		if !entity.IsEntryType(*req.EntryType) {
			return nil, NewValidationError("entry_type", fmt.Sprintf("invalid entry type %q", *req.EntryType))
		}
		item.EntryType = *req.EntryType
	}
	if req.EntryDate != nil {
		if req.EntryDate.IsZero() {
			return nil, NewValidationError("entry_date", "must not be empty")
		}
		item.EntryDate = *req.EntryDate
	}
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, NewValidationError("quantity", "must be greater than 0")
		}
		item.Quantity = *req.Quantity
	}
	setString(&item.Unit, req.Unit)
	setString(&item.Notes, req.Notes)

	if err := s.repos.Production.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update production entry: %w", err)
	}
	return item, nil
}

// DeleteProduction 删除生产记录
func (s *LedgerService) DeleteProduction(ctx context.Context, actor Actor, id string) error {
	item, err := s.GetProduction(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Production.Delete(ctx, item.ID)
}

// LineProduction 行生产进度
type LineProduction struct {
	LineID      string `json:"line_id"`
	StyleNumber string `json:"style_number"`
	ColorCode   string `json:"color_code"`
	ProductionProgress
}

// OrderProductionSummary 订单生产进度
type OrderProductionSummary struct {
	OrderID string `json:"order_id"`
	ProductionProgress
	Lines []LineProduction `json:"lines"`
}

// ProductionSummary 订单及各行生产进度
func (s *LedgerService) ProductionSummary(ctx context.Context, actor Actor, orderID string) (*OrderProductionSummary, error) {
	if orderID == "" {
		return nil, NewValidationError("order_id", "is required")
	}
	order, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false)
	if err != nil {
		return nil, err
	}
	sums, err := s.repos.Production.SumByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("sum production: %w", err)
	}

	lines := order.Lines()
	out := &OrderProductionSummary{
		OrderID:            orderID,
		ProductionProgress: ComputeProgress(lines, sums, ""),
		Lines:              []LineProduction{},
	}
	for i := range order.Styles {
		st := &order.Styles[i]
		for j := range st.Lines {
			l := &st.Lines[j]
			out.Lines = append(out.Lines, LineProduction{
				LineID:             l.ID,
				StyleNumber:        st.StyleNumber,
				ColorCode:          deref(l.ColorCode),
				ProductionProgress: ComputeProgress(lines, sums, l.ID),
			})
		}
	}
	return out, nil
}
