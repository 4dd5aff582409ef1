package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

// MillOfferService 工厂报价
type MillOfferService struct {
	repos *repository.Repositories
}

func NewMillOfferService(repos *repository.Repositories) *MillOfferService {
	return &MillOfferService{repos: repos}
}

// CreateMillOfferRequest 新建报价
type CreateMillOfferRequest struct {
	OrderID   string          `json:"order_id" binding:"required"`
	LineID    *string         `json:"line_id"`
	MillName  string          `json:"mill_name" binding:"required,max=200"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency" binding:"max=10"`
	OfferDate *entity.Date    `json:"offer_date"`
	Notes     string          `json:"notes"`
}

// UpdateMillOfferRequest 修改报价
type UpdateMillOfferRequest struct {
	LineID    *string          `json:"line_id"`
	MillName  *string          `json:"mill_name"`
	Price     *decimal.Decimal `json:"price"`
	Currency  *string          `json:"currency"`
	OfferDate *entity.Date     `json:"offer_date"`
	Notes     *string          `json:"notes"`
}

// List 报价列表
func (s *MillOfferService) List(ctx context.Context, actor Actor, page, pageSize int, filters map[string]string) ([]entity.MillOffer, int64, error) {
	return s.repos.MillOffer.FindAll(ctx, page, pageSize, actor.Scope(filters))
}

// Get 报价详情
func (s *MillOfferService) Get(ctx context.Context, actor Actor, id string) (*entity.MillOffer, error) {
	item, err := s.repos.MillOffer.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleOrder(ctx, s.repos, actor, item.OrderID, false); err != nil {
		return nil, err
	}
	return item, nil
}

// Create 新建报价
func (s *MillOfferService) Create(ctx context.Context, actor Actor, req *CreateMillOfferRequest) (*entity.MillOffer, error) {
	v := &ValidationError{}
	if strings.TrimSpace(req.MillName) == "" {
		v.Add("mill_name", "is required")
	}
	if !req.Price.IsPositive() {
		v.Add("price", "must be greater than 0")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	order, err := loadVisibleOrder(ctx, s.repos, actor, req.OrderID, false)
	if err != nil {
		return nil, err
	}
	var lineID *string
	line, err := resolveLine(ctx, s.repos, order.ID, req.LineID)
	if err != nil {
		return nil, err
	}
	if line != nil {
		lineID = strPtr(line.ID)
	}
	currency := req.Currency
	if currency == "" {
		currency = order.Currency
	}

	item := &entity.MillOffer{
		OrderID:   order.ID,
		LineID:    lineID,
		MillName:  strings.TrimSpace(req.MillName),
		Price:     req.Price,
		Currency:  currency,
		OfferDate: req.OfferDate,
		Notes:     req.Notes,
		CreatedBy: actor.UserID,
	}
	if err := s.repos.MillOffer.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create mill offer: %w", err)
	}
	return item, nil
}

// Update 修改报价
func (s *MillOfferService) Update(ctx context.Context, actor Actor, id string, req *UpdateMillOfferRequest) (*entity.MillOffer, error) {
	item, err := s.Get(ctx, actor, id)
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
	if req.MillName != nil {
		name := strings.TrimSpace(*req.MillName)
		if name == "" {
			return nil, NewValidationError("mill_name", "must not be empty")
		}
		item.MillName = name
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, NewValidationError("price", "must be greater than 0")
		}
		item.Price = *req.Price
	}
	setString(&item.Currency, req.Currency)
	setDate(&item.OfferDate, req.OfferDate)
	setString(&item.Notes, req.Notes)

	if err := s.repos.MillOffer.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update mill offer: %w", err)
	}
	return item, nil
}

// Delete 删除报价
func (s *MillOfferService) Delete(ctx context.Context, actor Actor, id string) error {
	item, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.repos.MillOffer.Delete(ctx, item.ID)
}
