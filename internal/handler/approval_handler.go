package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

// ApprovalHandler 审批关卡及历史
type ApprovalHandler struct {
	svc *service.ApprovalService
}

func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{svc: svc}
}

// Change PATCH /orders/:id/approvals
func (h *ApprovalHandler) Change(c *gin.Context) {
	var req service.ChangeApprovalRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.svc.ChangeApproval(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, result)
}

// LineHistory GET /orders/:id/lines/:line_id/approval-history
func (h *ApprovalHandler) LineHistory(c *gin.Context) {
	view, err := h.svc.LineHistory(c.Request.Context(), actor(c), c.Param("id"), c.Param("line_id"), c.Query("approval_type"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, view)
}

// EditHistory PATCH /orders/:id/approval-history/:history_id
func (h *ApprovalHandler) EditHistory(c *gin.Context) {
	var req service.EditHistoryRequest
	if !bind(c, &req) {
		return
	}
	row, err := h.svc.EditHistory(c.Request.Context(), actor(c), c.Param("id"), c.Param("history_id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, row)
}

// DeleteHistory DELETE /orders/:id/approval-history/:history_id
func (h *ApprovalHandler) DeleteHistory(c *gin.Context) {
	if err := h.svc.DeleteHistory(c.Request.Context(), actor(c), c.Param("id"), c.Param("history_id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
