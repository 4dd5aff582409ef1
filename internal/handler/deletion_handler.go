package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// DeletionHandler 订单删除申请
type DeletionHandler struct {
	svc *service.DeletionService
}

func NewDeletionHandler(svc *service.DeletionService) *DeletionHandler {
	return &DeletionHandler{svc: svc}
}

// Request POST /orders/:id/request-deletion
func (h *DeletionHandler) Request(c *gin.Context) {
	var req service.CreateDeletionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	item, err := h.svc.RequestDeletion(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// List GET /deletion-requests
func (h *DeletionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListRequests(c.Request.Context(), actor(c), page, pageSize, filters(c, "status", "order_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// Get GET /deletion-requests/:id
func (h *DeletionHandler) Get(c *gin.Context) {
	item, err := h.svc.GetRequest(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Approve POST /deletion-requests/:id/approve
func (h *DeletionHandler) Approve(c *gin.Context) {
	var req service.RespondDeletionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	item, err := h.svc.Approve(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Decline POST /deletion-requests/:id/decline
func (h *DeletionHandler) Decline(c *gin.Context) {
	var req service.RespondDeletionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	item, err := h.svc.Decline(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}
