package repository

import (
	"fmt"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"gorm.io/gorm"
)

// Models 需要迁移的全部实体
func Models() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.Order{},
		&entity.Style{},
		&entity.Line{},
		&entity.ApprovalHistory{},
		&entity.SupplierDelivery{},
		&entity.ProductionEntry{},
		&entity.ProformaInvoice{},
		&entity.LetterOfCredit{},
		&entity.DeletionRequest{},
		&entity.Notification{},
		&entity.Document{},
		&entity.MillOffer{},
		&entity.TimelineEvent{},
	}
}

// 表达式索引，AutoMigrate无法表达
var indexStatements = []string{
	// (style, color, cad) 唯一，空值按空串
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_order_lines_style_color_cad
		ON order_lines (style_id, COALESCE(color_code, ''), COALESCE(cad_code, ''))`,
	// 每个订单最多一个待处理删除申请
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_deletion_requests_pending
		ON deletion_requests (order_id) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_dedupe_day
		ON notifications (user_id, notification_type, related_id, created_at)`,
}

// Migrate 自动迁移并补充索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range indexStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
