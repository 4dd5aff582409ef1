package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// LedgerHandler 交货和生产台账
type LedgerHandler struct {
	svc *service.LedgerService
}

func NewLedgerHandler(svc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// === 交货 ===

// ListDeliveries GET /supplier-deliveries
func (h *LedgerHandler) ListDeliveries(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListDeliveries(c.Request.Context(), actor(c), page, pageSize, filters(c, "order_id", "line_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// GetDelivery GET /supplier-deliveries/:id
func (h *LedgerHandler) GetDelivery(c *gin.Context) {
	item, err := h.svc.GetDelivery(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// CreateDelivery POST /supplier-deliveries
func (h *LedgerHandler) CreateDelivery(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.CreateDelivery(c.Request.Context(), actor(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// UpdateDelivery PATCH /supplier-deliveries/:id
func (h *LedgerHandler) UpdateDelivery(c *gin.Context) {
	var req service.UpdateDeliveryRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.UpdateDelivery(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// DeleteDelivery DELETE /supplier-deliveries/:id
func (h *LedgerHandler) DeleteDelivery(c *gin.Context) {
	if err := h.svc.DeleteDelivery(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// DeliverySummary GET /supplier-deliveries/summary?order_id=
func (h *LedgerHandler) DeliverySummary(c *gin.Context) {
	summary, err := h.svc.DeliverySummary(c.Request.Context(), actor(c), c.Query("order_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, summary)
}

// === 生产 ===

// ListProduction GET /production-entries
func (h *LedgerHandler) ListProduction(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListProduction(c.Request.Context(), actor(c), page, pageSize, filters(c, "order_id", "line_id", "entry_type"))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// GetProduction GET /production-entries/:id
func (h *LedgerHandler) GetProduction(c *gin.Context) {
	item, err := h.svc.GetProduction(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// CreateProduction POST /production-entries
func (h *LedgerHandler) CreateProduction(c *gin.Context) {
	var req service.CreateProductionRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.CreateProduction(c.Request.Context(), actor(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// UpdateProduction PATCH /production-entries/:id
func (h *LedgerHandler) UpdateProduction(c *gin.Context) {
	var req service.UpdateProductionRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.UpdateProduction(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// DeleteProduction DELETE /production-entries/:id
func (h *LedgerHandler) DeleteProduction(c *gin.Context) {
	if err := h.svc.DeleteProduction(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ProductionSummary GET /production-entries/summary?order_id=
func (h *LedgerHandler) ProductionSummary(c *gin.Context) {
	summary, err := h.svc.ProductionSummary(c.Request.Context(), actor(c), c.Query("order_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, summary)
}
