package service

import (
	"context"
	"fmt"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
)

// OrderListItem 列表项：订单加派生值
type OrderListItem struct {
	*entity.Order
	OrderMetrics
}

// OrderDetail 订单详情
type OrderDetail struct {
	*entity.Order
	OrderMetrics
	ProductionProgress *ProductionProgress           `json:"production_progress,omitempty"`
	LCIssueDate        *entity.Date                  `json:"lc_issue_date"`
	PISentDate         *entity.Date                  `json:"pi_sent_date"`
	EffectiveETD       *entity.Date                  `json:"effective_etd"`
	EffectiveETA       *entity.Date                  `json:"effective_eta"`
	LineMetrics        map[string]LineMetrics        `json:"line_metrics"`
	LineProgress       map[string]ProductionProgress `json:"line_progress,omitempty"`
}

// EffectiveETD 订单/款式/行中最早的 ETD
func EffectiveETD(order *entity.Order) *entity.Date {
	dates := []*entity.Date{order.ETD}
	for i := range order.Styles {
		dates = append(dates, order.Styles[i].ETD)
		for j := range order.Styles[i].Lines {
			dates = append(dates, order.Styles[i].Lines[j].ETD)
		}
	}
	return entity.MinDate(dates...)
}

// EffectiveETA 订单/款式/行中最早的 ETA
func EffectiveETA(order *entity.Order) *entity.Date {
	dates := []*entity.Date{order.ETA}
	for i := range order.Styles {
		dates = append(dates, order.Styles[i].ETA)
		for j := range order.Styles[i].Lines {
			dates = append(dates, order.Styles[i].Lines[j].ETA)
		}
	}
	return entity.MinDate(dates...)
}

// earliestDocumentDate 某分类文档中最早的日期（document_date 或上传时间）
func earliestDocumentDate(docs []entity.Document, category string) *entity.Date {
	var out *entity.Date
	for i := range docs {
		if docs[i].Category != category {
			continue
		}
		d := docs[i].EffectiveDate()
		if out == nil || d.Before(*out) {
			out = &d
		}
	}
	return out
}

// ListOrders 订单列表（按角色过滤）
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]OrderListItem, int64, error) {
	orders, total, err := s.repos.Order.FindAll(ctx, page, pageSize, actor.Scope(filters))
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
	}
	delivered, err := s.repos.Delivery.SumByOrders(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("sum deliveries: %w", err)
	}

	items := make([]OrderListItem, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		items = append(items, OrderListItem{
			Order:        o,
			OrderMetrics: ComputeOrderMetrics(o, delivered[o.ID]),
		})
	}
	return items, total, nil
}

// GetOrder 订单详情
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (*OrderDetail, error) {
	order, err := loadVisibleOrder(ctx, s.repos, actor, id, false)
	if err != nil {
		return nil, err
	}

	delivered, err := s.repos.Delivery.SumByOrders(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("sum deliveries: %w", err)
	}
	byLine, err := s.repos.Delivery.SumByLine(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sum line deliveries: %w", err)
	}
	docs, err := s.repos.Document.FindByOrder(ctx, id, "")
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}

	detail := &OrderDetail{
		Order:        order,
		OrderMetrics: ComputeOrderMetrics(order, delivered[id]),
		LCIssueDate:  earliestDocumentDate(docs, entity.DocumentLC),
		PISentDate:   earliestDocumentDate(docs, entity.DocumentPI),
		EffectiveETD: EffectiveETD(order),
		EffectiveETA: EffectiveETA(order),
		LineMetrics:  make(map[string]LineMetrics),
	}

	lines := order.Lines()
	for i := range lines {
		detail.LineMetrics[lines[i].ID] = ComputeLineMetrics(&lines[i], byLine[lines[i].ID])
	}

	if order.OrderType == entity.OrderTypeLocal {
		sums, err := s.repos.Production.SumByOrder(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("sum production: %w", err)
		}
		p := ComputeProgress(lines, sums, "")
		detail.ProductionProgress = &p
		detail.LineProgress = make(map[string]ProductionProgress, len(lines))
		for i := range lines {
			detail.LineProgress[lines[i].ID] = ComputeProgress(lines, sums, lines[i].ID)
		}
	}
	return detail, nil
}

// OrderStats 统计
type OrderStats struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
	Upcoming   int64            `json:"upcoming"`
	Running    int64            `json:"running"`
	Archived   int64            `json:"archived"`
	Recent     []entity.Order   `json:"recent"`
}

// Stats 按分类计数和最近订单
func (s *OrderService) Stats(ctx context.Context, actor Actor) (*OrderStats, error) {
	filters := actor.Scope(nil)

	counts, err := s.repos.Order.CountByCategory(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	recent, err := s.repos.Order.FindRecent(ctx, filters, 5)
	if err != nil {
		return nil, fmt.Errorf("find recent orders: %w", err)
	}

	stats := &OrderStats{
		ByCategory: counts,
		Upcoming:   counts[entity.CategoryUpcoming],
		Running:    counts[entity.CategoryRunning],
		Archived:   counts[entity.CategoryArchived],
		Recent:     recent,
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// UpcomingETD ETD 落在 [今天, 今天+days] 的未完成订单；days<=0 用默认窗口
func (s *OrderService) UpcomingETD(ctx context.Context, actor Actor, days int) ([]entity.Order, error) {
	if days <= 0 {
		days = s.sched.UpcomingETDDays
	}
	if days <= 0 {
		days = 7
	}
	today := s.today()
	to := entity.NewDate(today.AddDate(0, 0, days))
	return s.repos.Order.FindUpcomingETD(ctx, actor.Scope(nil), today, to)
}

// StuckApprovals 存在待审关卡且超过 N 天未更新的订单
func (s *OrderService) StuckApprovals(ctx context.Context, actor Actor) ([]entity.Order, error) {
	days := s.sched.StuckApprovalDays
	if days <= 0 {
		days = 3
	}
	before := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	return s.repos.Order.FindStuckApprovals(ctx, actor.Scope(nil), before)
}

// ListTimeline 订单时间线
func (s *OrderService) ListTimeline(ctx context.Context, actor Actor, orderID string, page, pageSize int) ([]entity.TimelineEvent, int64, error) {
	if _, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false); err != nil {
		return nil, 0, err
	}
	return s.repos.Timeline.FindByOrder(ctx, orderID, page, pageSize)
}
