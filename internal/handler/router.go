package handler

import (
	"net/http"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由，服务端和测试共用
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		NotFound(c, "Not found")
	})

	v1 := r.Group("/api/v1")
	{
		// 认证 (无需登录)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtSecret))
		{
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 用户管理
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RequireRole(entity.RoleManager), h.User.List)
				users.GET("/:id", h.User.Get)
				users.POST("", middleware.RequireRole(entity.RoleAdmin), h.User.Create)
				users.PATCH("/:id", middleware.RequireRole(entity.RoleAdmin), h.User.Update)
			}

			// 订单
			orders := authorized.Group("/orders")
			{
				orders.GET("", h.Order.List)
				orders.POST("", h.Order.Create)
				orders.GET("/stats", h.Order.Stats)
				orders.GET("/alerts/upcoming-etd", h.Order.UpcomingETD)
				orders.GET("/alerts/stuck-approvals", h.Order.StuckApprovals)
				orders.GET("/export-excel", h.Order.ExportExcel)
				orders.GET("/export-tna", h.Order.ExportTNA)

				orders.GET("/:id", h.Order.Get)
				orders.PATCH("/:id", h.Order.Update)
				orders.DELETE("/:id", h.Order.Delete)
				orders.POST("/:id/request-deletion", h.Deletion.Request)
				orders.POST("/:id/change-stage", h.Order.ChangeStage)
				orders.GET("/:id/timeline", h.Order.Timeline)
				orders.GET("/:id/download-po", h.Order.DownloadPO)
				orders.DELETE("/:id/styles/:style_id", h.Order.DeleteStyle)

				// 行
				orders.PATCH("/:id/lines/bulk-status", h.Order.BulkUpdateLineStatus)
				orders.PATCH("/:id/lines/:line_id/status", h.Order.UpdateLineStatus)
				orders.PATCH("/:id/lines/:line_id/swatch-dates", h.Order.UpdateSwatchDates)

				// 审批
				orders.PATCH("/:id/approvals", h.Approval.Change)
				orders.GET("/:id/lines/:line_id/approval-history", h.Approval.LineHistory)
				orders.PATCH("/:id/approval-history/:history_id", h.Approval.EditHistory)
				orders.DELETE("/:id/approval-history/:history_id", h.Approval.DeleteHistory)

				// 附件
				orders.GET("/:id/documents", h.Document.List)
				orders.POST("/:id/documents", h.Document.Upload)
				orders.POST("/:id/documents/upload", h.Document.Upload)
				orders.GET("/:id/documents/:doc_id/download", h.Document.Download)
				orders.DELETE("/:id/documents/:doc_id", h.Document.Delete)
			}

			// 删除申请
			deletions := authorized.Group("/deletion-requests")
			{
				deletions.GET("", h.Deletion.List)
				deletions.GET("/:id", h.Deletion.Get)
				deletions.POST("/:id/approve", h.Deletion.Approve)
				deletions.POST("/:id/decline", h.Deletion.Decline)
			}

			// 交货台账
			deliveries := authorized.Group("/supplier-deliveries")
			{
				deliveries.GET("", h.Ledger.ListDeliveries)
				deliveries.POST("", h.Ledger.CreateDelivery)
				deliveries.GET("/summary", h.Ledger.DeliverySummary)
				deliveries.GET("/:id", h.Ledger.GetDelivery)
				deliveries.PATCH("/:id", h.Ledger.UpdateDelivery)
				deliveries.DELETE("/:id", h.Ledger.DeleteDelivery)
			}

			// 生产台账
			production := authorized.Group("/production-entries")
			{
				production.GET("", h.Ledger.ListProduction)
				production.POST("", h.Ledger.CreateProduction)
				production.GET("/summary", h.Ledger.ProductionSummary)
				production.GET("/:id", h.Ledger.GetProduction)
				production.PATCH("/:id", h.Ledger.UpdateProduction)
				production.DELETE("/:id", h.Ledger.DeleteProduction)
			}

			// 工厂报价
			offers := authorized.Group("/mill-offers")
			{
				offers.GET("", h.MillOffer.List)
				offers.POST("", h.MillOffer.Create)
				offers.GET("/:id", h.MillOffer.Get)
				offers.PATCH("/:id", h.MillOffer.Update)
				offers.DELETE("/:id", h.MillOffer.Delete)
			}

			// 财务
			financials := authorized.Group("/financials")
			{
				financials.GET("/pis", h.Financial.ListPIs)
				financials.POST("/pis", h.Financial.CreatePI)
				financials.GET("/pis/:id", h.Financial.GetPI)
				financials.PATCH("/pis/:id", h.Financial.UpdatePI)
				financials.DELETE("/pis/:id", h.Financial.DeletePI)
				financials.POST("/pis/:id/status", h.Financial.ChangePIStatus)
				financials.POST("/pis/:id/upload-pdf", h.Financial.UploadPIPDF)

				financials.GET("/lcs", h.Financial.ListLCs)
				financials.POST("/lcs", h.Financial.CreateLC)
				financials.GET("/lcs/:id", h.Financial.GetLC)
				financials.PATCH("/lcs/:id", h.Financial.UpdateLC)
				financials.DELETE("/lcs/:id", h.Financial.DeleteLC)
				financials.POST("/lcs/:id/status", h.Financial.ChangeLCStatus)

				financials.GET("/analytics/pipeline", h.Financial.Pipeline)
				financials.GET("/order-profits", h.Financial.OrderProfits)
			}

			// 通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/unread-count", h.Notification.UnreadCount)
				notifications.POST("/mark-all-read", h.Notification.MarkAllRead)
				notifications.POST("/clear-all", h.Notification.ClearAll)
				notifications.POST("/:id/mark-read", h.Notification.MarkRead)
				notifications.POST("/:id/clear", h.Notification.Clear)
			}
		}
	}
}
