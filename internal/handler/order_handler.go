package handler

import (
	"fmt"
	"strconv"

	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc    *service.OrderService
	export *service.ExportService
}

func NewOrderHandler(svc *service.OrderService, export *service.ExportService) *OrderHandler {
	return &OrderHandler{svc: svc, export: export}
}

var orderFilterKeys = []string{"status", "category", "current_stage", "order_type", "merchandiser_id", "search"}

type changeStageRequest struct {
	Stage string `json:"stage" binding:"required,order_stage"`
}

type lineStatusRequest struct {
	Status string `json:"status" binding:"required,line_status"`
}

// List GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListOrders(c.Request.Context(), actor(c), page, pageSize, filters(c, orderFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// Get GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	detail, err := h.svc.GetOrder(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, detail)
}

// Create POST /orders
// PO 号已存在时合并到已有订单，返回 200
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a := actor(c)
	order, merged, err := h.svc.CreateOrder(ctx, a, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	detail, err := h.svc.GetOrder(ctx, a, order.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	if merged {
		Success(c, detail)
		return
	}
	Created(c, detail)
}

// Update PATCH /orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	a := actor(c)
	order, err := h.svc.UpdateOrder(ctx, a, c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	detail, err := h.svc.GetOrder(ctx, a, order.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, detail)
}

// Delete DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteOrder(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// DeleteStyle DELETE /orders/:id/styles/:style_id
func (h *OrderHandler) DeleteStyle(c *gin.Context) {
	if err := h.svc.DeleteStyle(c.Request.Context(), actor(c), c.Param("id"), c.Param("style_id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// Stats GET /orders/stats
func (h *OrderHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, stats)
}

// UpcomingETD GET /orders/alerts/upcoming-etd?days=N
func (h *OrderHandler) UpcomingETD(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(c, "days must be a non-negative integer")
			return
		}
		days = n
	}
	orders, err := h.svc.UpcomingETD(c.Request.Context(), actor(c), days)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": orders, "count": len(orders)})
}

// StuckApprovals GET /orders/alerts/stuck-approvals
func (h *OrderHandler) StuckApprovals(c *gin.Context) {
	orders, err := h.svc.StuckApprovals(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": orders, "count": len(orders)})
}

// ChangeStage POST /orders/:id/change-stage
func (h *OrderHandler) ChangeStage(c *gin.Context) {
	var req changeStageRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.svc.ChangeStage(c.Request.Context(), actor(c), c.Param("id"), req.Stage)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, order)
}

// UpdateLineStatus PATCH /orders/:id/lines/:line_id/status
func (h *OrderHandler) UpdateLineStatus(c *gin.Context) {
	var req lineStatusRequest
	if !bind(c, &req) {
		return
	}
	line, err := h.svc.UpdateLineStatus(c.Request.Context(), actor(c), c.Param("id"), c.Param("line_id"), req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, line)
}

// BulkUpdateLineStatus PATCH /orders/:id/lines/bulk-status
func (h *OrderHandler) BulkUpdateLineStatus(c *gin.Context) {
	var req lineStatusRequest
	if !bind(c, &req) {
		return
	}
	affected, err := h.svc.BulkUpdateLineStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"updated": affected, "status": req.Status})
}

// UpdateSwatchDates PATCH /orders/:id/lines/:line_id/swatch-dates
func (h *OrderHandler) UpdateSwatchDates(c *gin.Context) {
	var req service.SwatchDatesRequest
	if !bind(c, &req) {
		return
	}
	line, err := h.svc.UpdateSwatchDates(c.Request.Context(), actor(c), c.Param("id"), c.Param("line_id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, line)
}

// Timeline GET /orders/:id/timeline
func (h *OrderHandler) Timeline(c *gin.Context) {
	page, pageSize := GetPagination(c)
	events, total, err := h.svc.ListTimeline(c.Request.Context(), actor(c), c.Param("id"), page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, events, page, pageSize, total)
}

// ExportExcel GET /orders/export-excel
func (h *OrderHandler) ExportExcel(c *gin.Context) {
	f, filename, err := h.export.ExportOrders(c.Request.Context(), actor(c), filters(c, orderFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

// ExportTNA GET /orders/export-tna
func (h *OrderHandler) ExportTNA(c *gin.Context) {
	f, filename, err := h.export.ExportTNA(c.Request.Context(), actor(c), filters(c, orderFilterKeys...))
	if err != nil {
		handleError(c, err)
		return
	}
	writeWorkbook(c, f, filename)
}

// DownloadPO GET /orders/:id/download-po
func (h *OrderHandler) DownloadPO(c *gin.Context) {
	data, filename, err := h.export.RenderPO(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "application/pdf", data)
}

func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		zap.L().Error("write workbook failed", zap.String("file", filename), zap.Error(err))
	}
}
