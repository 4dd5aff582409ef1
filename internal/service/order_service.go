package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 订单服务（订单/款式/行）
type OrderService struct {
	repos  *repository.Repositories
	blob   BlobStore
	sched  config.SchedulerConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(repos *repository.Repositories, blob BlobStore, sched config.SchedulerConfig, logger *zap.Logger) *OrderService {
	return &OrderService{
		repos:  repos,
		blob:   blob,
		sched:  sched,
		logger: logger,
		now:    time.Now,
	}
}

// today 调度时区下的今天
func (s *OrderService) today() entity.Date {
	return entity.NewDate(s.now().In(s.sched.Location()))
}

// CreateOrder 创建订单；PO号已存在时合并到最早的同号订单，merged=true
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req *CreateOrderRequest) (*entity.Order, bool, error) {
	orderNumber := strings.TrimSpace(req.OrderNumber)

	v := &ValidationError{}
	if orderNumber == "" {
		v.Add("order_number", "is required")
	}
	validateCreateStyles(req.Styles, v)
	if err := v.Err(); err != nil {
		return nil, false, err
	}

	var (
		orderID string
		merged  bool
	)
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		if err := r.Order.LockOrderNumber(ctx, orderNumber); err != nil {
			return fmt.Errorf("lock order number: %w", err)
		}

		order, err := r.Order.FindByOrderNumberForUpdate(ctx, orderNumber)
		switch {
		case err == nil:
			merged = true
		case errors.Is(err, repository.ErrNotFound):
			order, err = s.newOrder(ctx, r, actor, orderNumber, req)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("find order: %w", err)
		}
		orderID = order.ID

		added, err := s.mergeStyles(ctx, r, order, req.Styles)
		if err != nil {
			return err
		}

		if merged {
			order.Quantity += added
			if order.MerchandiserID == nil || *order.MerchandiserID == "" {
				order.MerchandiserID = strPtr(actor.UserID)
			}
			if err := r.Order.Update(ctx, order); err != nil {
				return fmt.Errorf("update order: %w", err)
			}
			return logTimeline(ctx, r, actor, order.ID, entity.EventOrderMerged, "Order merged",
				fmt.Sprintf("%d style(s) merged into PO %s", len(req.Styles), orderNumber),
				map[string]interface{}{"added_quantity": added})
		}

		order.Quantity = added
		if err := r.Order.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventOrderCreated, "Order created",
			fmt.Sprintf("PO %s created", orderNumber), nil)
	})
	if err != nil {
		return nil, false, err
	}

	order, err := s.repos.Order.FindByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return order, merged, nil
}

// newOrder 创建订单头
func (s *OrderService) newOrder(ctx context.Context, r *repository.Repositories, actor Actor, orderNumber string, req *CreateOrderRequest) (*entity.Order, error) {
	uid, err := r.Order.GenerateUID(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate uid: %w", err)
	}

	order := &entity.Order{
		UID:            uid,
		OrderNumber:    orderNumber,
		Currency:       "USD",
		Unit:           "yards",
		Status:         entity.StatusUpcoming,
		Category:       entity.CategoryUpcoming,
		CurrentStage:   entity.StageDesign,
		OrderType:      entity.OrderTypeForeign,
		CreatedBy:      strPtr(actor.UserID),
		ApprovalStatus: entity.ApprovalStatusMap{},
	}
	applyOrderFields(order, &req.OrderFields)
	if order.MerchandiserID == nil {
		order.MerchandiserID = strPtr(actor.UserID)
	}

	v := &ValidationError{}
	validateOrderFields(order, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := r.Order.Create(ctx, order); err != nil {
		return nil, uniqueOr(err, "order uid %s already exists, retry", uid)
	}
	return order, nil
}

// mergeStyles 按款号查找款式、按 (color, cad) 查找行，已有行累加数量；返回新增数量
func (s *OrderService) mergeStyles(ctx context.Context, r *repository.Repositories, order *entity.Order, styles []StyleInput) (float64, error) {
	added := 0.0
	for i := range styles {
		in := &styles[i]

		style, err := s.findOrCreateStyle(ctx, r, order, in)
		if err != nil {
			return 0, err
		}

		lines := in.LineInputs()
		for j := range lines {
			lin := &lines[j]
			qty := 0.0
			if lin.Quantity != nil {
				qty = *lin.Quantity
			}
			added += qty

			existing, err := r.Line.FindByKey(ctx, style.ID, inputKey(lin))
			if err == nil {
				existing.Quantity += qty
				if err := r.Line.UpdateColumns(ctx, existing.ID, map[string]interface{}{"quantity": existing.Quantity}); err != nil {
					return 0, fmt.Errorf("update line quantity: %w", err)
				}
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return 0, fmt.Errorf("find line: %w", err)
			}

			line := newLine(style, order, lin)
			if err := r.Line.Create(ctx, line); err != nil {
				return 0, s.lineSaveError(err, fmt.Sprintf("styles[%d].lines[%d]", i, j), line)
			}
		}
	}
	return added, nil
}

func (s *OrderService) findOrCreateStyle(ctx context.Context, r *repository.Repositories, order *entity.Order, in *StyleInput) (*entity.Style, error) {
	number := in.styleNumber()
	if number != "" {
		styles, err := r.Order.FindStyles(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("find styles: %w", err)
		}
		for i := range styles {
			if styles[i].StyleNumber == number {
				applyStyleFields(&styles[i], in)
				if err := r.Order.UpdateStyle(ctx, &styles[i]); err != nil {
					return nil, fmt.Errorf("update style: %w", err)
				}
				return &styles[i], nil
			}
		}
	}
	return s.createStyle(ctx, r, order, in, number)
}

func (s *OrderService) createStyle(ctx context.Context, r *repository.Repositories, order *entity.Order, in *StyleInput, number string) (*entity.Style, error) {
	seq, err := r.Order.NextStyleSequence(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("next style sequence: %w", err)
	}
	if number == "" {
		number = fmt.Sprintf("%s-%d", order.OrderNumber, seq)
	}

	style := &entity.Style{
		OrderID:        order.ID,
		StyleNumber:    number,
		SequenceNumber: seq,
	}
	applyStyleFields(style, in)
	if err := r.Order.CreateStyle(ctx, style); err != nil {
		return nil, uniqueOr(err, "style number %s already exists in this order", number)
	}
	return style, nil
}

func newLine(style *entity.Style, order *entity.Order, in *LineInput) *entity.Line {
	line := &entity.Line{
		StyleID:        style.ID,
		Unit:           order.Unit,
		Currency:       order.Currency,
		Status:         entity.StatusUpcoming,
		ApprovalStatus: entity.ApprovalStatusMap{},
	}
	applyLineFields(line, in)
	return line
}

// lineSaveError 行唯一键冲突转为字段校验错误
func (s *OrderService) lineSaveError(err error, field string, line *entity.Line) error {
	if repository.IsUniqueViolation(err) {
		return NewValidationError(field, fmt.Sprintf("duplicate color_code/cad_code %s in style", line.Key()))
	}
	return fmt.Errorf("save line: %w", err)
}

// UpdateOrder 更新订单及嵌套款式/行（单事务）
//
// 带 id 的行按 id 在订单范围内查找（不限款式），款式不同则改挂；无 id 的行新建；
// 未出现在请求中的行删除（历史记录行引用置空）；款式不会被隐式删除。
func (s *OrderService) UpdateOrder(ctx context.Context, actor Actor, id string, req *UpdateOrderRequest) (*entity.Order, error) {
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, id, true)
		if err != nil {
			return err
		}

		v := &ValidationError{}
		if req.OrderNumber != nil {
			num := strings.TrimSpace(*req.OrderNumber)
			if num == "" {
				v.Add("order_number", "must not be empty")
			}
			order.OrderNumber = num
		}
		applyOrderFields(order, &req.OrderFields)
		if req.Quantity != nil {
			order.Quantity = *req.Quantity
		}
		validateOrderFields(order, v)

		if req.Styles != nil {
			validateUpdateStyles(*req.Styles, v)
		}
		if err := v.Err(); err != nil {
			return err
		}

		if req.Styles != nil {
			total, err := s.syncStyles(ctx, r, order, *req.Styles)
			if err != nil {
				return err
			}
			if req.Quantity == nil {
				order.Quantity = total
			}
			lines, err := r.Line.FindByOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("find lines: %w", err)
			}
			ApplyRollupAll(order, lines)
		}

		if err := r.Order.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventOrderUpdated, "Order updated", "", nil)
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Order.FindByID(ctx, id)
}

// validateUpdateStyles 更新时的款式/行校验
func validateUpdateStyles(styles []StyleInput, v *ValidationError) {
	seenIDs := make(map[string]string)
	for i := range styles {
		field := fmt.Sprintf("styles[%d]", i)
		lines := styles[i].LineInputs()
		for j := range lines {
			lf := fmt.Sprintf("%s.lines[%d]", field, j)
			validateLineInput(&lines[j], lf, v)
			if lines[j].hasID() {
				lid := strings.TrimSpace(*lines[j].ID)
				if prev, ok := seenIDs[lid]; ok {
					v.Add(lf+".id", "line referenced twice (also at "+prev+")")
				}
				seenIDs[lid] = lf
			}
		}
	}
}

// syncStyles 同步款式和行，返回订单行总数量
func (s *OrderService) syncStyles(ctx context.Context, r *repository.Repositories, order *entity.Order, styles []StyleInput) (float64, error) {
	existingStyles, err := r.Order.FindStyles(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("find styles: %w", err)
	}
	existingLines, err := r.Line.FindByOrder(ctx, order.ID)
	if err != nil {
		return 0, fmt.Errorf("find lines: %w", err)
	}

	// 先删除未被引用的行，避免与新建行的唯一键冲突
	referenced := make(map[string]bool)
	for i := range styles {
		for _, lin := range styles[i].LineInputs() {
			if lin.hasID() {
				referenced[strings.TrimSpace(*lin.ID)] = true
			}
		}
	}
	var stale []string
	for _, l := range existingLines {
		if !referenced[l.ID] {
			stale = append(stale, l.ID)
		}
	}
	if err := r.Line.Delete(ctx, stale); err != nil {
		return 0, fmt.Errorf("delete lines: %w", err)
	}

	byID := make(map[string]*entity.Style, len(existingStyles))
	byNumber := make(map[string]*entity.Style, len(existingStyles))
	for i := range existingStyles {
		byID[existingStyles[i].ID] = &existingStyles[i]
		byNumber[existingStyles[i].StyleNumber] = &existingStyles[i]
	}

	total := 0.0
	for i := range styles {
		in := &styles[i]
		field := fmt.Sprintf("styles[%d]", i)

		style, err := s.resolveStyle(ctx, r, order, in, field, byID, byNumber)
		if err != nil {
			return 0, err
		}

		lines := in.LineInputs()
		for j := range lines {
			lin := &lines[j]
			lf := fmt.Sprintf("%s.lines[%d]", field, j)

			if lin.hasID() {
				line, err := r.Line.FindInOrderForUpdate(ctx, order.ID, strings.TrimSpace(*lin.ID))
				if errors.Is(err, repository.ErrNotFound) {
					return 0, NewValidationError(lf+".id", "line does not belong to this order")
				}
				if err != nil {
					return 0, fmt.Errorf("find line: %w", err)
				}
				if line.StyleID != style.ID {
					line.StyleID = style.ID
				}
				applyLineFields(line, lin)
				if err := r.Line.Update(ctx, line); err != nil {
					return 0, s.lineSaveError(err, lf, line)
				}
				total += line.Quantity
				continue
			}

			line := newLine(style, order, lin)
			if err := r.Line.Create(ctx, line); err != nil {
				return 0, s.lineSaveError(err, lf, line)
			}
			total += line.Quantity
		}
	}
	return total, nil
}

// resolveStyle id 优先，其次款号，否则新建
func (s *OrderService) resolveStyle(ctx context.Context, r *repository.Repositories, order *entity.Order, in *StyleInput, field string,
	byID, byNumber map[string]*entity.Style) (*entity.Style, error) {

	number := in.styleNumber()

	var style *entity.Style
	if in.ID != nil && *in.ID != "" {
		style = byID[*in.ID]
	}
	if style == nil && number != "" {
		style = byNumber[number]
	}
	if style == nil {
		created, err := s.createStyle(ctx, r, order, in, number)
		if err != nil {
			return nil, err
		}
		byID[created.ID] = created
		byNumber[created.StyleNumber] = created
		return created, nil
	}

	if number != "" && number != style.StyleNumber {
		if other, ok := byNumber[number]; ok && other.ID != style.ID {
			return nil, NewValidationError(field+".style_number", fmt.Sprintf("style number %s already exists in this order", number))
		}
		delete(byNumber, style.StyleNumber)
		style.StyleNumber = number
		byNumber[number] = style
	}
	applyStyleFields(style, in)
	if err := r.Order.UpdateStyle(ctx, style); err != nil {
		return nil, uniqueOr(err, "style number %s already exists in this order", style.StyleNumber)
	}
	return style, nil
}

// DeleteOrder 删除订单；仅创建人或管理员
func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id string) error {
	order, err := loadVisibleOrder(ctx, s.repos, actor, id, false)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && (order.CreatedBy == nil || *order.CreatedBy != actor.UserID) {
		if order.CreatedBy == nil {
			return forbiddenf("order has no creator; only an admin can delete it")
		}
		apErr := &ApprovalRequiredError{CreatorID: *order.CreatedBy}
		if order.Creator != nil {
			apErr.CreatorName = order.Creator.FullName
			apErr.CreatorEmail = order.Creator.Email
		}
		return apErr
	}

	paths, err := s.repos.Document.FilePathsByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("find documents: %w", err)
	}
	if err := s.repos.Order.Delete(ctx, id); err != nil {
		return err
	}
	removeBlobs(ctx, s.blob, s.logger, paths)
	return nil
}

// DeleteStyle 显式删除款式及其行（历史记录保留）
func (s *OrderService) DeleteStyle(ctx context.Context, actor Actor, orderID, styleID string) error {
	return s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, orderID, true)
		if err != nil {
			return err
		}
		style, err := r.Order.FindStyle(ctx, orderID, styleID)
		if err != nil {
			return err
		}
		lines, err := r.Line.FindByStyle(ctx, style.ID)
		if err != nil {
			return fmt.Errorf("find lines: %w", err)
		}
		ids := make([]string, 0, len(lines))
		removed := 0.0
		for _, l := range lines {
			ids = append(ids, l.ID)
			removed += l.Quantity
		}
		if err := r.Line.Delete(ctx, ids); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := r.Order.DeleteStyle(ctx, style.ID); err != nil {
			return fmt.Errorf("delete style: %w", err)
		}

		order.Quantity -= removed
		if order.Quantity < 0 {
			order.Quantity = 0
		}
		remaining, err := r.Line.FindByOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("find lines: %w", err)
		}
		ApplyRollupAll(order, remaining)
		if err := r.Order.UpdateColumns(ctx, order.ID, map[string]interface{}{
			"quantity":        order.Quantity,
			"approval_status": order.ApprovalStatus,
		}); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventOrderUpdated, "Style removed",
			fmt.Sprintf("Style %s removed with %d line(s)", style.StyleNumber, len(ids)), nil)
	})
}

// === 阶段与行状态 ===

// ChangeStage 修改订单阶段；进入 Delivered 时完成并归档
func (s *OrderService) ChangeStage(ctx context.Context, actor Actor, id, stage string) (*entity.Order, error) {
	stage = strings.TrimSpace(stage)
	if !entity.IsOrderStage(stage) {
		return nil, NewValidationError("stage", fmt.Sprintf("invalid stage %q", stage))
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, id, true)
		if err != nil {
			return err
		}
		previous := order.CurrentStage
		ApplyStage(order, stage, s.today())

		if err := r.Order.Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventStageChanged, stage,
			fmt.Sprintf("Stage changed from %s to %s", previous, stage),
			map[string]interface{}{"from": previous, "to": stage})
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Order.FindByID(ctx, id)
}

// ApplyStage 设置阶段；Delivered 时 status=completed、category=archived，实际交期缺省为今天
func ApplyStage(order *entity.Order, stage string, today entity.Date) {
	order.CurrentStage = stage
	if stage != entity.StageDelivered {
		return
	}
	order.Status = entity.StatusCompleted
	order.Category = entity.CategoryArchived
	if order.ActualDeliveryDate == nil || order.ActualDeliveryDate.IsZero() {
		d := today
		order.ActualDeliveryDate = &d
	}
}

// UpdateLineStatus 修改单行状态
func (s *OrderService) UpdateLineStatus(ctx context.Context, actor Actor, orderID, lineID, status string) (*entity.Line, error) {
	if !entity.IsLineStatus(status) {
		return nil, NewValidationError("status", fmt.Sprintf("invalid status %q", status))
	}

	var line *entity.Line
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		if _, err := loadVisibleOrder(ctx, r, actor, orderID, true); err != nil {
			return err
		}
		var err error
		line, err = r.Line.FindInOrderForUpdate(ctx, orderID, lineID)
		if err != nil {
			return err
		}
		previous := line.Status
		line.Status = status
		if err := r.Line.UpdateColumns(ctx, line.ID, map[string]interface{}{"status": status}); err != nil {
			return fmt.Errorf("update line status: %w", err)
		}
		return logTimeline(ctx, r, actor, orderID, entity.EventLineStatus, "Line status changed",
			fmt.Sprintf("%s: %s -> %s", line.Key(), previous, status),
			map[string]interface{}{"line_id": line.ID, "from": previous, "to": status})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// BulkUpdateLineStatus 订单全部行设置同一状态，返回影响行数
func (s *OrderService) BulkUpdateLineStatus(ctx context.Context, actor Actor, orderID, status string) (int64, error) {
	if !entity.IsLineStatus(status) {
		return 0, NewValidationError("status", fmt.Sprintf("invalid status %q", status))
	}

	var affected int64
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		if _, err := loadVisibleOrder(ctx, r, actor, orderID, true); err != nil {
			return err
		}
		var err error
		affected, err = r.Line.SetStatusForOrder(ctx, orderID, status)
		if err != nil {
			return fmt.Errorf("update line status: %w", err)
		}
		return logTimeline(ctx, r, actor, orderID, entity.EventLineStatus, "All lines status changed",
			fmt.Sprintf("%d line(s) set to %s", affected, status),
			map[string]interface{}{"to": status, "count": affected})
	})
	return affected, err
}

// SwatchDatesRequest 色样日期
type SwatchDatesRequest struct {
	SwatchReceivedDate *entity.Date `json:"swatch_received_date"`
	SwatchSentDate     *entity.Date `json:"swatch_sent_date"`
}

// UpdateSwatchDates 修改行的色样收发日期
func (s *OrderService) UpdateSwatchDates(ctx context.Context, actor Actor, orderID, lineID string, req *SwatchDatesRequest) (*entity.Line, error) {
	if _, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false); err != nil {
		return nil, err
	}
	line, err := s.repos.Line.FindInOrder(ctx, orderID, lineID)
	if err != nil {
		return nil, err
	}
	setDate(&line.SwatchReceivedDate, req.SwatchReceivedDate)
	setDate(&line.SwatchSentDate, req.SwatchSentDate)

	if err := s.repos.Line.UpdateColumns(ctx, line.ID, map[string]interface{}{
		"swatch_received_date": line.SwatchReceivedDate,
		"swatch_sent_date":     line.SwatchSentDate,
	}); err != nil {
		return nil, fmt.Errorf("update swatch dates: %w", err)
	}
	return line, nil
}
