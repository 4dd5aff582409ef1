package handler

import (
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), actor(c), page, pageSize, filters(c, "is_read", "notification_type", "severity"))
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, items, page, pageSize, total)
}

// UnreadCount GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"count": n})
}

// MarkRead POST /notifications/:id/mark-read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	item, err := h.svc.MarkRead(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, item)
}

// MarkAllRead POST /notifications/mark-all-read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"updated": n})
}

// Clear POST /notifications/:id/clear
func (h *NotificationHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

// ClearAll POST /notifications/clear-all
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	n, err := h.svc.ClearAll(c.Request.Context(), actor(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"deleted": n})
}
