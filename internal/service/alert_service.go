package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// 告警任务
const (
	JobETDAlerts   = "etd"
	JobETAAlerts   = "eta"
	JobETDReminder = "reminders"
)

// Jobs 全部每日任务
var Jobs = []string{JobETDAlerts, JobETAAlerts, JobETDReminder}

// 告警级别
const (
	LevelOverdue = "overdue"
	LevelHigh    = "high"
	LevelMedium  = "medium"
)

// AlertKind ETD 或 ETA
type AlertKind struct {
	Name             string // ETD / ETA
	NotificationType string
	Effective        func(*entity.Order) *entity.Date
}

var (
	KindETD = AlertKind{Name: "ETD", NotificationType: entity.NotificationETDAlert, Effective: EffectiveETD}
	KindETA = AlertKind{Name: "ETA", NotificationType: entity.NotificationETAAlert, Effective: EffectiveETA}
)

// ClassifyDays 按剩余天数分级；ok=false 表示暂不告警
func ClassifyDays(days int) (level, severity string, ok bool) {
	switch {
	case days < 0:
		return LevelOverdue, entity.SeverityCritical, true
	case days <= 5:
		return LevelHigh, entity.SeverityCritical, true
	case days <= 10:
		return LevelMedium, entity.SeverityWarning, true
	}
	return "", "", false
}

func plural(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}

// alertMessage 告警文案，包含有效日期和剩余天数（逾期用绝对值）
func alertMessage(kind AlertKind, order *entity.Order, effective entity.Date, days int) (string, string) {
	po := order.OrderNumber
	switch {
	case days < 0:
		return fmt.Sprintf("%s Overdue: PO %s", kind.Name, po),
			fmt.Sprintf("%s for PO %s (%s) was %s, %s overdue.", kind.Name, po, order.UID, effective, plural(-days))
	case days == 0:
		return fmt.Sprintf("%s Today: PO %s", kind.Name, po),
			fmt.Sprintf("%s for PO %s (%s) is today (%s).", kind.Name, po, order.UID, effective)
	}
	return fmt.Sprintf("%s Approaching: PO %s", kind.Name, po),
		fmt.Sprintf("%s for PO %s (%s) is in %s (%s).", kind.Name, po, order.UID, plural(days), effective)
}

// PlanAlerts 计算需要插入的 ETD/ETA 告警；existing 为当天已存在的 (用户,类型,订单)
//
// 返回待插入通知和因去重跳过的数量。
func PlanAlerts(today entity.Date, kind AlertKind, orders []entity.Order, existing map[repository.DedupeKey]bool) ([]entity.Notification, int) {
	seen := make(map[repository.DedupeKey]bool, len(existing))
	for k, v := range existing {
		seen[k] = v
	}

	var (
		out     []entity.Notification
		deduped int
	)
	for i := range orders {
		o := &orders[i]
		if o.IsClosed() {
			continue
		}
		effective := kind.Effective(o)
		if effective == nil {
			continue
		}
		recipient := o.Owner()
		if recipient == "" {
			continue
		}
		days := effective.DaysUntil(today)
		level, severity, ok := ClassifyDays(days)
		if !ok {
			continue
		}

		key := repository.DedupeKey{UserID: recipient, Type: kind.NotificationType, RelatedID: o.ID}
		if seen[key] {
			deduped++
			continue
		}
		seen[key] = true

		title, message := alertMessage(kind, o, *effective, days)
		out = append(out, entity.Notification{
			UserID:      recipient,
			Title:       title,
			Message:     message,
			Type:        kind.NotificationType,
			Severity:    severity,
			RelatedID:   o.ID,
			RelatedType: entity.RelatedOrder,
			Metadata: datatypes.JSONMap{
				"alert_level":    kind.NotificationType + "_" + level,
				"effective_date": effective.String(),
				"days_until":     days,
				"order_number":   o.OrderNumber,
				"uid":            o.UID,
			},
		})
	}
	return out, deduped
}

// PlanReminders ETD 已过且无交货记录的订单提醒
func PlanReminders(today entity.Date, orders []entity.Order, delivered map[string]bool, existing map[repository.DedupeKey]bool) ([]entity.Notification, int) {
	seen := make(map[repository.DedupeKey]bool, len(existing))
	for k, v := range existing {
		seen[k] = v
	}

	var (
		out     []entity.Notification
		deduped int
	)
	for i := range orders {
		o := &orders[i]
		if o.IsClosed() || delivered[o.ID] {
			continue
		}
		etd := EffectiveETD(o)
		if etd == nil || !etd.Before(today) {
			continue
		}
		recipient := o.Owner()
		if recipient == "" {
			continue
		}

		key := repository.DedupeKey{UserID: recipient, Type: entity.NotificationETDReminder, RelatedID: o.ID}
		if seen[key] {
			deduped++
			continue
		}
		seen[key] = true

		days := today.DaysUntil(*etd)
		out = append(out, entity.Notification{
			UserID: recipient,
			Title:  fmt.Sprintf("Delivery Missing: PO %s", o.OrderNumber),
			Message: fmt.Sprintf("ETD for PO %s (%s) was %s, %s ago, and no supplier delivery has been recorded.",
				o.OrderNumber, o.UID, etd, plural(days)),
			Type:        entity.NotificationETDReminder,
			Severity:    entity.SeverityWarning,
			RelatedID:   o.ID,
			RelatedType: entity.RelatedOrder,
			Metadata: datatypes.JSONMap{
				"effective_date": etd.String(),
				"days_overdue":   days,
				"order_number":   o.OrderNumber,
				"uid":            o.UID,
			},
		})
	}
	return out, deduped
}

// JobResult 单次任务结果
type JobResult struct {
	Job     string `json:"job"`
	Day     string `json:"day"`
	Scanned int    `json:"scanned"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Locked  bool   `json:"locked"`
}

// AlertService 每日告警任务
type AlertService struct {
	repos  *repository.Repositories
	locker Locker
	sched  config.SchedulerConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewAlertService(repos *repository.Repositories, locker Locker, sched config.SchedulerConfig, logger *zap.Logger) *AlertService {
	return &AlertService{
		repos:  repos,
		locker: locker,
		sched:  sched,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock 替换时钟
func (s *AlertService) SetClock(now func() time.Time) {
	s.now = now
}

// dayBounds 调度时区下当天的 [start, end)
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Run 执行一个任务
func (s *AlertService) Run(ctx context.Context, job string) (*JobResult, error) {
	loc := s.sched.Location()
	now := s.now().In(loc)
	today := entity.NewDate(now)
	start, end := dayBounds(now, loc)

	result := &JobResult{Job: job, Day: today.String()}

	var notificationType string
	switch job {
	case JobETDAlerts:
		notificationType = entity.NotificationETDAlert
	case JobETAAlerts:
		notificationType = entity.NotificationETAAlert
	case JobETDReminder:
		notificationType = entity.NotificationETDReminder
	default:
		return nil, fmt.Errorf("unknown job %q (expected %s)", job, strings.Join(Jobs, ", "))
	}

	if s.locker != nil {
		lockKey := job + ":" + today.String()
		acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL())
		switch {
		case err != nil:
			s.logger.Warn("acquire job lock failed, relying on dedupe", zap.String("job", job), zap.Error(err))
		case !acquired:
			result.Locked = true
			s.logger.Info("job already running", zap.String("job", job), zap.String("day", result.Day))
			return result, nil
		default:
			defer func() {
				if err := s.locker.Release(context.Background(), lockKey); err != nil {
					s.logger.Warn("release job lock failed", zap.String("job", job), zap.Error(err))
				}
			}()
		}
	}

	orders, err := s.repos.Order.FindOpenForAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("find open orders: %w", err)
	}
	result.Scanned = len(orders)

	existing, err := s.repos.Notification.FindKeysBetween(ctx, []string{notificationType}, start, end)
	if err != nil {
		return nil, fmt.Errorf("find existing notifications: %w", err)
	}

	var plan []entity.Notification
	switch job {
	case JobETDAlerts:
		plan, result.Skipped = PlanAlerts(today, KindETD, orders, existing)
	case JobETAAlerts:
		plan, result.Skipped = PlanAlerts(today, KindETA, orders, existing)
	case JobETDReminder:
		ids := make([]string, 0, len(orders))
		for i := range orders {
			ids = append(ids, orders[i].ID)
		}
		delivered, err := s.repos.Delivery.OrdersWithDeliveries(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("find deliveries: %w", err)
		}
		plan, result.Skipped = PlanReminders(today, orders, delivered, existing)
	}

	for i := range plan {
		n := plan[i]
		if err := s.repos.Notification.Create(ctx, &n); err != nil {
			result.Failed++
			s.logger.Error("insert notification failed",
				zap.String("job", job),
				zap.String("order_id", n.RelatedID),
				zap.String("user_id", n.UserID),
				zap.Error(err),
			)
			continue
		}
		result.Created++
	}

	s.logger.Info("alert job finished",
		zap.String("job", job),
		zap.String("day", result.Day),
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// RunAll 依次执行全部任务，单个失败不影响后续
func (s *AlertService) RunAll(ctx context.Context) ([]*JobResult, error) {
	var (
		results  []*JobResult
		firstErr error
	)
	for _, job := range Jobs {
		res, err := s.Run(ctx, job)
		if err != nil {
			s.logger.Error("alert job failed", zap.String("job", job), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

func (s *AlertService) lockTTL() time.Duration {
	if s.sched.LockTTL > 0 {
		return s.sched.LockTTL
	}
	return 30 * time.Minute
}

// NextRunAt 下一次执行时间（runAt 为 HH:MM，调度时区）
func NextRunAt(now time.Time, runAt string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(runAt))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run_at %q, expected HH:MM", runAt)
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
