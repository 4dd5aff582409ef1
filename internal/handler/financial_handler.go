package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// FinancialHandler PI / LC 及财务汇总
type FinancialHandler struct {
	svc *service.FinancialService
}

func NewFinancialHandler(svc *service.FinancialService) *FinancialHandler {
	return &FinancialHandler{svc: svc}
}

var financialFilterKeys = []string{"order_id", "status", "currency", "search"}

// ListPIs GET /financials/pis
func (h *FinancialHandler) ListPIs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListPIs(c.Request.Context(), actor(c), page, pageSize, filters(c, financialFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// GetPI GET /financials/pis/:id
func (h *FinancialHandler) GetPI(c *gin.Context) {
	pi, err := h.svc.GetPI(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pi)
}

// CreatePI POST /financials/pis
func (h *FinancialHandler) CreatePI(c *gin.Context) {
	var req service.CreatePIRequest
	if !bind(c, &req) {
		return
	}
	pi, err := h.svc.CreatePI(c.Request.Context(), actor(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, pi)
}

// UpdatePI PATCH /financials/pis/:id
func (h *FinancialHandler) UpdatePI(c *gin.Context) {
	var req service.UpdatePIRequest
	if !bind(c, &req) {
		return
	}
	pi, err := h.svc.UpdatePI(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pi)
}

// ChangePIStatus POST /financials/pis/:id/status
func (h *FinancialHandler) ChangePIStatus(c *gin.Context) {
	var req service.StatusRequest
	if !bind(c, &req) {
		return
	}
	pi, err := h.svc.ChangePIStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pi)
}

// UploadPIPDF POST /financials/pis/:id/upload-pdf
func (h *FinancialHandler) UploadPIPDF(c *gin.Context) {
	in, closeFile, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFile()

	pi, err := h.svc.UploadPIPDF(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pi)
}

// DeletePI DELETE /financials/pis/:id
func (h *FinancialHandler) DeletePI(c *gin.Context) {
	if err := h.svc.DeletePI(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ListLCs GET /financials/lcs
func (h *FinancialHandler) ListLCs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListLCs(c.Request.Context(), actor(c), page, pageSize, filters(c, financialFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// GetLC GET /financials/lcs/:id
func (h *FinancialHandler) GetLC(c *gin.Context) {
	lc, err := h.svc.GetLC(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, lc)
}

// CreateLC POST /financials/lcs
func (h *FinancialHandler) CreateLC(c *gin.Context) {
	var req service.CreateLCRequest
	if !bind(c, &req) {
		return
	}
	lc, err := h.svc.CreateLC(c.Request.Context(), actor(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, lc)
}

// UpdateLC PATCH /financials/lcs/:id
func (h *FinancialHandler) UpdateLC(c *gin.Context) {
	var req service.UpdateLCRequest
	if !bind(c, &req) {
		return
	}
	lc, err := h.svc.UpdateLC(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, lc)
}

// ChangeLCStatus POST /financials/lcs/:id/status
func (h *FinancialHandler) ChangeLCStatus(c *gin.Context) {
	var req service.StatusRequest
	if !bind(c, &req) {
		return
	}
	lc, err := h.svc.ChangeLCStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, lc)
}

// DeleteLC DELETE /financials/lcs/:id
func (h *FinancialHandler) DeleteLC(c *gin.Context) {
	if err := h.svc.DeleteLC(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// Pipeline GET /financials/analytics/pipeline
func (h *FinancialHandler) Pipeline(c *gin.Context) {
	p, err := h.svc.Pipeline(c.Request.Context(), actor(c), filters(c, "order_id", "currency"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, p)
}

// OrderProfits GET /financials/order-profits
func (h *FinancialHandler) OrderProfits(c *gin.Context) {
	p, err := h.svc.OrderProfits(c.Request.Context(), actor(c), filters(c, orderFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, p)
}
