package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type MillOfferHandler struct {
	svc *service.MillOfferService
}

func NewMillOfferHandler(svc *service.MillOfferService) *MillOfferHandler {
	return &MillOfferHandler{svc: svc}
}

// List GET /mill-offers
func (h *MillOfferHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters(c, "order_id", "line_id", "mill_name"))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// Get GET /mill-offers/:id
func (h *MillOfferHandler) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Create POST /mill-offers
func (h *MillOfferHandler) Create(c *gin.Context) {
	var req service.CreateMillOfferRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), actor(c), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, item)
}

// Update PATCH /mill-offers/:id
func (h *MillOfferHandler) Update(c *gin.Context) {
	var req service.UpdateMillOfferRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.Update(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// Delete DELETE /mill-offers/:id
func (h *MillOfferHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
