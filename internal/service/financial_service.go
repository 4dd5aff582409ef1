package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FinancialService PI / LC 与利润分析
type FinancialService struct {
	repos  *repository.Repositories
	blob   BlobStore
	logger *zap.Logger
}

func NewFinancialService(repos *repository.Repositories, blob BlobStore, logger *zap.Logger) *FinancialService {
	return &FinancialService{repos: repos, blob: blob, logger: logger}
}

// CreatePIRequest 新建PI
type CreatePIRequest struct {
	OrderID   string          `json:"order_id" binding:"required"`
	PINumber  string          `json:"pi_number"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	IssueDate *entity.Date    `json:"issue_date"`
	Notes     string          `json:"notes"`
}

// UpdatePIRequest 修改PI
type UpdatePIRequest struct {
	PINumber  *string          `json:"pi_number"`
	Amount    *decimal.Decimal `json:"amount"`
	Currency  *string          `json:"currency"`
	IssueDate *entity.Date     `json:"issue_date"`
	Notes     *string          `json:"notes"`
}

// CreateLCRequest 新建LC
type CreateLCRequest struct {
	OrderID     string          `json:"order_id" binding:"required"`
	LCNumber    string          `json:"lc_number" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IssueDate   *entity.Date    `json:"issue_date"`
	ExpiryDate  *entity.Date    `json:"expiry_date"`
	IssuingBank string          `json:"issuing_bank"`
	Notes       string          `json:"notes"`
}

// UpdateLCRequest 修改LC
type UpdateLCRequest struct {
	LCNumber    *string          `json:"lc_number"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	IssueDate   *entity.Date     `json:"issue_date"`
	ExpiryDate  *entity.Date     `json:"expiry_date"`
	IssuingBank *string          `json:"issuing_bank"`
	Notes       *string          `json:"notes"`
}

// StatusRequest 状态流转
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// === PI ===

// ListPIs PI列表
func (s *FinancialService) ListPIs(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.ProformaInvoice, int64, error) {
	items, total, err := s.repos.Financial.FindPIs(ctx, page, pageSize, actor.Scope(filters))
	if err != nil {
		return nil, 0, err
	}
	if err := s.decoratePIs(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetPI PI详情
func (s *FinancialService) GetPI(ctx context.Context, actor Actor, id string) (*entity.ProformaInvoice, error) {
	pi, err := s.repos.Financial.FindPIByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleOrder(ctx, s.repos, actor, pi.OrderID, false); err != nil {
		return nil, err
	}
	items := []entity.ProformaInvoice{*pi}
	if err := s.decoratePIs(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CreatePI 新建PI，版本号按订单递增；未填编号时生成 PI-<uid>-V<n>
func (s *FinancialService) CreatePI(ctx context.Context, actor Actor, req *CreatePIRequest) (*entity.ProformaInvoice, error) {
	if req.Amount.IsNegative() {
		return nil, NewValidationError("amount", "must not be negative")
	}

	var pi *entity.ProformaInvoice
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, req.OrderID, true)
		if err != nil {
			return err
		}
		maxVersion, err := r.Financial.MaxPIVersion(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("max pi version: %w", err)
		}
		version := maxVersion + 1

		number := strings.TrimSpace(req.PINumber)
		if number == "" {
			number = fmt.Sprintf("PI-%s-V%d", order.UID, version)
		}
		currency := req.Currency
		if currency == "" {
			currency = order.Currency
		}

		pi = &entity.ProformaInvoice{
			OrderID:   order.ID,
			PINumber:  number,
			Version:   version,
			Status:    entity.PIStatusDraft,
			Amount:    req.Amount,
			Currency:  currency,
			IssueDate: req.IssueDate,
			Notes:     req.Notes,
			CreatedBy: actor.UserID,
		}
		if err := r.Financial.CreatePI(ctx, pi); err != nil {
			return uniqueOr(err, "pi number %s already exists", number)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventPICreated, "PI created",
			fmt.Sprintf("%s (version %d) %s %s", pi.PINumber, pi.Version, pi.Amount.StringFixed(2), pi.Currency),
			map[string]interface{}{"pi_id": pi.ID, "version": pi.Version})
	})
	if err != nil {
		return nil, err
	}
	return s.GetPI(ctx, actor, pi.ID)
}

// UpdatePI 修改PI
func (s *FinancialService) UpdatePI(ctx context.Context, actor Actor, id string, req *UpdatePIRequest) (*entity.ProformaInvoice, error) {
	pi, err := s.GetPI(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.PINumber != nil {
		number := strings.TrimSpace(*req.PINumber)
		if number == "" {
			return nil, NewValidationError("pi_number", "must not be empty")
		}
		pi.PINumber = number
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, NewValidationError("amount", "must not be negative")
		}
		pi.Amount = *req.Amount
	}
	setString(&pi.Currency, req.Currency)
	setDate(&pi.IssueDate, req.IssueDate)
	setString(&pi.Notes, req.Notes)

	if err := s.repos.Financial.UpdatePI(ctx, pi); err != nil {
		return nil, uniqueOr(err, "pi number %s already exists", pi.PINumber)
	}
	return pi, nil
}

// ChangePIStatus PI状态流转
func (s *FinancialService) ChangePIStatus(ctx context.Context, actor Actor, id, status string) (*entity.ProformaInvoice, error) {
	pi, err := s.GetPI(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(entity.ValidPITransitions, pi.Status, status) {
		return nil, NewValidationError("status", fmt.Sprintf("cannot change pi status from %s to %s", pi.Status, status))
	}

	err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		previous := pi.Status
		pi.Status = status
		if err := r.Financial.UpdatePI(ctx, pi); err != nil {
			return fmt.Errorf("update pi: %w", err)
		}
		return logTimeline(ctx, r, actor, pi.OrderID, entity.EventPIStatus, "PI "+status,
			fmt.Sprintf("%s: %s -> %s", pi.PINumber, previous, status),
			map[string]interface{}{"pi_id": pi.ID, "from": previous, "to": status})
	})
	if err != nil {
		return nil, err
	}
	return pi, nil
}

// UploadPIPDF 上传PI的PDF，替换旧文件
func (s *FinancialService) UploadPIPDF(ctx context.Context, actor Actor, id string, in *UploadInput) (*entity.ProformaInvoice, error) {
	if in.Reader == nil || in.FileName == "" {
		return nil, NewValidationError("file", "is required")
	}
	if s.blob == nil {
		return nil, storageUnavailable(fmt.Errorf("no blob store configured"))
	}
	pi, err := s.GetPI(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	previous := pi.PDFFile
	pi.PDFFile = objectName("financials/pi", pi.OrderID, in.FileName)
	if err := s.blob.Put(ctx, pi.PDFFile, in.Reader, in.Size, in.ContentType); err != nil {
		return nil, storageUnavailable(err)
	}
	if err := s.repos.Financial.UpdatePI(ctx, pi); err != nil {
		removeBlobs(ctx, s.blob, s.logger, []string{pi.PDFFile})
		return nil, fmt.Errorf("update pi: %w", err)
	}
	removeBlobs(ctx, s.blob, s.logger, []string{previous})
	return s.GetPI(ctx, actor, id)
}

// DeletePI 删除PI
func (s *FinancialService) DeletePI(ctx context.Context, actor Actor, id string) error {
	pi, err := s.GetPI(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repos.Financial.DeletePI(ctx, pi.ID); err != nil {
		return err
	}
	removeBlobs(ctx, s.blob, s.logger, []string{pi.PDFFile})
	return nil
}

func (s *FinancialService) decoratePIs(ctx context.Context, items []entity.ProformaInvoice) error {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].OrderID)
	}
	numbers, err := s.repos.Order.NumbersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find order numbers: %w", err)
	}
	for i := range items {
		items[i].OrderNumber = numbers[items[i].OrderID]
		if items[i].PDFFile == "" || s.blob == nil {
			continue
		}
		url, err := s.blob.URL(ctx, items[i].PDFFile)
		if err != nil {
			s.logger.Warn("presign pi pdf failed", zap.String("pi_id", items[i].ID), zap.Error(err))
			continue
		}
		items[i].PDFURL = url
	}
	return nil
}

// === LC ===

func validateLCDates(issue, expiry *entity.Date) error {
	if issue != nil && expiry != nil && !issue.IsZero() && !expiry.IsZero() && expiry.Before(*issue) {
		return NewValidationError("expiry_date", "must not be before issue_date")
	}
	return nil
}

// ListLCs LC列表
func (s *FinancialService) ListLCs(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.LetterOfCredit, int64, error) {
	items, total, err := s.repos.Financial.FindLCs(ctx, page, pageSize, actor.Scope(filters))
	if err != nil {
		return nil, 0, err
	}
	if err := s.fillLCOrderNumbers(ctx, items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetLC LC详情
func (s *FinancialService) GetLC(ctx context.Context, actor Actor, id string) (*entity.LetterOfCredit, error) {
	lc, err := s.repos.Financial.FindLCByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleOrder(ctx, s.repos, actor, lc.OrderID, false); err != nil {
		return nil, err
	}
	items := []entity.LetterOfCredit{*lc}
	if err := s.fillLCOrderNumbers(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// CreateLC 新建LC
func (s *FinancialService) CreateLC(ctx context.Context, actor Actor, req *CreateLCRequest) (*entity.LetterOfCredit, error) {
	number := strings.TrimSpace(req.LCNumber)
	v := &ValidationError{}
	if number == "" {
		v.Add("lc_number", "is required")
	}
	if req.Amount.IsNegative() {
		v.Add("amount", "must not be negative")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := validateLCDates(req.IssueDate, req.ExpiryDate); err != nil {
		return nil, err
	}

	var lc *entity.LetterOfCredit
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, req.OrderID, false)
		if err != nil {
			return err
		}
		currency := req.Currency
		if currency == "" {
			currency = order.Currency
		}
		lc = &entity.LetterOfCredit{
			OrderID:     order.ID,
			LCNumber:    number,
			Status:      entity.LCStatusPending,
			Amount:      req.Amount,
			Currency:    currency,
			IssueDate:   req.IssueDate,
			ExpiryDate:  req.ExpiryDate,
			IssuingBank: req.IssuingBank,
			Notes:       req.Notes,
			CreatedBy:   actor.UserID,
		}
		if err := r.Financial.CreateLC(ctx, lc); err != nil {
			return uniqueOr(err, "lc number %s already exists", number)
		}
		return logTimeline(ctx, r, actor, order.ID, entity.EventLCCreated, "LC created",
			fmt.Sprintf("%s %s %s", lc.LCNumber, lc.Amount.StringFixed(2), lc.Currency),
			map[string]interface{}{"lc_id": lc.ID})
	})
	if err != nil {
		return nil, err
	}
	return s.GetLC(ctx, actor, lc.ID)
}

// UpdateLC 修改LC
func (s *FinancialService) UpdateLC(ctx context.Context, actor Actor, id string, req *UpdateLCRequest) (*entity.LetterOfCredit, error) {
	lc, err := s.GetLC(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.LCNumber != nil {
		number := strings.TrimSpace(*req.LCNumber)
		if number == "" {
			return nil, NewValidationError("lc_number", "must not be empty")
		}
		lc.LCNumber = number
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, NewValidationError("amount", "must not be negative")
		}
		lc.Amount = *req.Amount
	}
	setString(&lc.Currency, req.Currency)
	setDate(&lc.IssueDate, req.IssueDate)
	setDate(&lc.ExpiryDate, req.ExpiryDate)
	setString(&lc.IssuingBank, req.IssuingBank)
	setString(&lc.Notes, req.Notes)
	if err := validateLCDates(lc.IssueDate, lc.ExpiryDate); err != nil {
		return nil, err
	}

	if err := s.repos.Financial.UpdateLC(ctx, lc); err != nil {
		return nil, uniqueOr(err, "lc number %s already exists", lc.LCNumber)
	}
	return lc, nil
}

// ChangeLCStatus LC状态流转
func (s *FinancialService) ChangeLCStatus(ctx context.Context, actor Actor, id, status string) (*entity.LetterOfCredit, error) {
	lc, err := s.GetLC(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(entity.ValidLCTransitions, lc.Status, status) {
		return nil, NewValidationError("status", fmt.Sprintf("cannot change lc status from %s to %s", lc.Status, status))
	}

	err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		previous := lc.Status
		lc.Status = status
		if err := r.Financial.UpdateLC(ctx, lc); err != nil {
			return fmt.Errorf("update lc: %w", err)
		}
		return logTimeline(ctx, r, actor, lc.OrderID, entity.EventLCStatus, "LC "+status,
			fmt.Sprintf("%s: %s -> %s", lc.LCNumber, previous, status),
			map[string]interface{}{"lc_id": lc.ID, "from": previous, "to": status})
	})
	if err != nil {
		return nil, err
	}
	return lc, nil
}

// DeleteLC 删除LC
func (s *FinancialService) DeleteLC(ctx context.Context, actor Actor, id string) error {
	lc, err := s.GetLC(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.Financial.DeleteLC(ctx, lc.ID)
}

func (s *FinancialService) fillLCOrderNumbers(ctx context.Context, items []entity.LetterOfCredit) error {
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].OrderID)
	}
	numbers, err := s.repos.Order.NumbersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("find order numbers: %w", err)
	}
	for i := range items {
		items[i].OrderNumber = numbers[items[i].OrderID]
	}
	return nil
}

// === 分析 ===

// StatusBucket 按状态汇总
type StatusBucket struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// CurrencyTotal 按币种汇总
type CurrencyTotal struct {
	Currency string          `json:"currency"`
	PICount  int64           `json:"pi_count"`
	PIAmount decimal.Decimal `json:"pi_amount"`
	LCCount  int64           `json:"lc_count"`
	LCAmount decimal.Decimal `json:"lc_amount"`
}

// Pipeline PI/LC 管道
type Pipeline struct {
	PI         []StatusBucket  `json:"pi"`
	LC         []StatusBucket  `json:"lc"`
	ByCurrency []CurrencyTotal `json:"by_currency"`
}

// BuildPipeline 把按 (状态, 币种) 的汇总整理为按状态和按币种两种视图
func BuildPipeline(pis, lcs []repository.StatusTotal) *Pipeline {
	out := &Pipeline{PI: []StatusBucket{}, LC: []StatusBucket{}, ByCurrency: []CurrencyTotal{}}
	currencies := make(map[string]*CurrencyTotal)
	currencyOf := func(c string) *CurrencyTotal {
		ct, ok := currencies[c]
		if !ok {
			ct = &CurrencyTotal{Currency: c, PIAmount: decimal.Zero, LCAmount: decimal.Zero}
			currencies[c] = ct
		}
		return ct
	}

	bucket := func(rows []repository.StatusTotal) []StatusBucket {
		index := make(map[string]int)
		var buckets []StatusBucket
		for _, row := range rows {
			i, ok := index[row.Status]
			if !ok {
				i = len(buckets)
				index[row.Status] = i
				buckets = append(buckets, StatusBucket{Status: row.Status, Amount: decimal.Zero})
			}
			buckets[i].Count += row.Count
			buckets[i].Amount = buckets[i].Amount.Add(row.Amount)
		}
		if buckets == nil {
			buckets = []StatusBucket{}
		}
		return buckets
	}

	out.PI = bucket(pis)
	out.LC = bucket(lcs)
	for _, row := range pis {
		ct := currencyOf(row.Currency)
		ct.PICount += row.Count
		ct.PIAmount = ct.PIAmount.Add(row.Amount)
	}
	for _, row := range lcs {
		ct := currencyOf(row.Currency)
		ct.LCCount += row.Count
		ct.LCAmount = ct.LCAmount.Add(row.Amount)
	}

	keys := make([]string, 0, len(currencies))
	for k := range currencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.ByCurrency = append(out.ByCurrency, *currencies[k])
	}
	return out
}

// Pipeline PI/LC 按状态和币种汇总
func (s *FinancialService) Pipeline(ctx context.Context, actor Actor, filters map[string]string) (*Pipeline, error) {
	scoped := actor.Scope(filters)
	pis, err := s.repos.Financial.PITotals(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("pi totals: %w", err)
	}
	lcs, err := s.repos.Financial.LCTotals(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("lc totals: %w", err)
	}
	return BuildPipeline(pis, lcs), nil
}

// OrderProfit 单个订单利润
type OrderProfit struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UID         string `json:"uid"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	OrderMetrics
}

// ProfitTotal 按币种合计
type ProfitTotal struct {
	Currency               string          `json:"currency"`
	Orders                 int             `json:"orders"`
	OrderedQuantity        float64         `json:"ordered_quantity"`
	TotalDeliveredQuantity float64         `json:"total_delivered_quantity"`
	PotentialProfit        decimal.Decimal `json:"potential_profit"`
	RealizedProfit         decimal.Decimal `json:"realized_profit"`
	RealizedValue          decimal.Decimal `json:"realized_value"`
}

// OrderProfits 利润报表
type OrderProfits struct {
	Orders []OrderProfit `json:"orders"`
	Totals []ProfitTotal `json:"totals"`
}

// SummarizeProfits 按币种合计
func SummarizeProfits(items []OrderProfit) []ProfitTotal {
	byCurrency := make(map[string]*ProfitTotal)
	for _, it := range items {
		t, ok := byCurrency[it.Currency]
		if !ok {
			t = &ProfitTotal{
				Currency:        it.Currency,
				PotentialProfit: decimal.Zero,
				RealizedProfit:  decimal.Zero,
				RealizedValue:   decimal.Zero,
			}
			byCurrency[it.Currency] = t
		}
		t.Orders++
		t.OrderedQuantity += it.OrderedQuantity
		t.TotalDeliveredQuantity += it.TotalDeliveredQuantity
		t.PotentialProfit = t.PotentialProfit.Add(it.PotentialProfit)
		t.RealizedProfit = t.RealizedProfit.Add(it.RealizedProfit)
		t.RealizedValue = t.RealizedValue.Add(it.RealizedValue)
	}

	keys := make([]string, 0, len(byCurrency))
	for k := range byCurrency {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ProfitTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byCurrency[k])
	}
	return out
}

// OrderProfits 可见订单的利润
func (s *FinancialService) OrderProfits(ctx context.Context, actor Actor, filters map[string]string) (*OrderProfits, error) {
	orders, err := s.repos.Order.FindAllUnpaged(ctx, actor.Scope(filters))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	ids := make([]string, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
	}
	delivered, err := s.repos.Delivery.SumByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("sum deliveries: %w", err)
	}

	items := make([]OrderProfit, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		items = append(items, OrderProfit{
			OrderID:      o.ID,
			OrderNumber:  o.OrderNumber,
			UID:          o.UID,
			Currency:     o.Currency,
			Status:       o.Status,
			OrderMetrics: ComputeOrderMetrics(o, delivered[o.ID]),
		})
	}
	return &OrderProfits{Orders: items, Totals: SummarizeProfits(items)}, nil
}
