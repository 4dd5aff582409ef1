package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService 订单附件
type DocumentService struct {
	repos  *repository.Repositories
	blob   BlobStore
	logger *zap.Logger
}

func NewDocumentService(repos *repository.Repositories, blob BlobStore, logger *zap.Logger) *DocumentService {
	return &DocumentService{repos: repos, blob: blob, logger: logger}
}

// UploadInput 上传参数
type UploadInput struct {
	Category     string
	Subcategory  string
	LineID       string
	Description  string
	DocumentDate *entity.Date
	FileName     string
	Size         int64
	ContentType  string
	Reader       io.Reader
}

// objectName 对象存储 key，随机文件名避免冲突
func objectName(prefix, orderID, fileName string) string {
	return fmt.Sprintf("%s/%s/%s%s", prefix, orderID, uuid.New().String(), strings.ToLower(filepath.Ext(fileName)))
}

// storedFileName 按分类决定保存的文件名：PI 重传为 revised_PI，LC 为 Amended_LC
func storedFileName(category, original string, hasPriorPI bool) string {
	ext := filepath.Ext(original)
	switch category {
	case entity.DocumentPI:
		if hasPriorPI {
			return "revised_PI" + ext
		}
	case entity.DocumentLC:
		return "Amended_LC" + ext
	}
	return filepath.Base(original)
}

// Upload 上传附件；PI 重传时删除之前全部 PI 附件，上传失败整体回滚
func (s *DocumentService) Upload(ctx context.Context, actor Actor, orderID string, in *UploadInput) (*entity.Document, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = entity.DocumentOther
	}
	if !entity.IsDocumentCategory(category) {
		return nil, NewValidationError("category", fmt.Sprintf("invalid category %q", category))
	}
	if in.Reader == nil || in.FileName == "" {
		return nil, NewValidationError("file", "is required")
	}
	if s.blob == nil {
		return nil, storageUnavailable(fmt.Errorf("no blob store configured"))
	}

	var (
		doc      *entity.Document
		replaced []string
	)
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		order, err := loadVisibleOrder(ctx, r, actor, orderID, true)
		if err != nil {
			return err
		}

		var lineID *string
		if in.LineID != "" {
			line, err := resolveLine(ctx, r, order.ID, &in.LineID)
			if err != nil {
				return err
			}
			if line != nil {
				lineID = strPtr(line.ID)
			}
		}

		hasPriorPI := false
		if category == entity.DocumentPI {
			prior, err := r.Document.FindByOrder(ctx, order.ID, entity.DocumentPI)
			if err != nil {
				return fmt.Errorf("find pi documents: %w", err)
			}
			if len(prior) > 0 {
				hasPriorPI = true
				ids := make([]string, 0, len(prior))
				for _, d := range prior {
					ids = append(ids, d.ID)
					replaced = append(replaced, d.FilePath)
				}
				if err := r.Document.DeleteByIDs(ctx, ids); err != nil {
					return fmt.Errorf("delete pi documents: %w", err)
				}
			}
		}

		doc = &entity.Document{
			OrderID:      order.ID,
			LineID:       lineID,
			Category:     category,
			Subcategory:  in.Subcategory,
			FileName:     storedFileName(category, in.FileName, hasPriorPI),
			FilePath:     objectName("orders", order.ID, in.FileName),
			FileSize:     in.Size,
			MimeType:     in.ContentType,
			Description:  in.Description,
			DocumentDate: in.DocumentDate,
			UploadedBy:   actor.UserID,
		}
		if err := r.Document.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := logTimeline(ctx, r, actor, order.ID, entity.EventDocumentUploaded, "Document uploaded",
			fmt.Sprintf("%s: %s", category, doc.FileName),
			map[string]interface{}{"document_id": doc.ID, "category": category}); err != nil {
			return err
		}

		// 最后上传，失败时回滚行记录
		if err := s.blob.Put(ctx, doc.FilePath, in.Reader, in.Size, in.ContentType); err != nil {
			return storageUnavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	removeBlobs(ctx, s.blob, s.logger, replaced)
	s.decorate(ctx, doc)
	return doc, nil
}

// List 订单附件列表（带访问 URL）
func (s *DocumentService) List(ctx context.Context, actor Actor, orderID, category string) ([]entity.Document, error) {
	if _, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false); err != nil {
		return nil, err
	}
	docs, err := s.repos.Document.FindByOrder(ctx, orderID, category)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(docs))
	for i := range docs {
		userIDs = append(userIDs, docs[i].UploadedBy)
	}
	users, err := s.repos.User.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("find uploaders: %w", err)
	}
	for i := range docs {
		s.decorate(ctx, &docs[i])
		if u, ok := users[docs[i].UploadedBy]; ok {
			docs[i].UploadedByName = u.FullName
		}
	}
	return docs, nil
}

// decorate 生成访问 URL，失败只记录日志
func (s *DocumentService) decorate(ctx context.Context, doc *entity.Document) {
	if s.blob == nil || doc.FilePath == "" {
		return
	}
	url, err := s.blob.URL(ctx, doc.FilePath)
	if err != nil {
		s.logger.Warn("presign document url failed", zap.String("document_id", doc.ID), zap.Error(err))
		return
	}
	doc.URL = url
}

// Download 读取附件内容；调用方负责关闭
func (s *DocumentService) Download(ctx context.Context, actor Actor, orderID, docID string) (*entity.Document, io.ReadCloser, int64, error) {
	if _, err := loadVisibleOrder(ctx, s.repos, actor, orderID, false); err != nil {
		return nil, nil, 0, err
	}
	doc, err := s.repos.Document.FindByID(ctx, orderID, docID)
	if err != nil {
		return nil, nil, 0, err
	}
	if s.blob == nil {
		return nil, nil, 0, storageUnavailable(fmt.Errorf("no blob store configured"))
	}
	rc, size, err := s.blob.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, 0, storageUnavailable(err)
	}
	return doc, rc, size, nil
}

// Delete 删除附件：先删记录，提交后删对象
func (s *DocumentService) Delete(ctx context.Context, actor Actor, orderID, docID string) error {
	var doc *entity.Document
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)

		if _, err := loadVisibleOrder(ctx, r, actor, orderID, false); err != nil {
			return err
		}
		var err error
		doc, err = r.Document.FindByID(ctx, orderID, docID)
		if err != nil {
			return err
		}
		if err := r.Document.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return logTimeline(ctx, r, actor, orderID, entity.EventDocumentDeleted, "Document deleted",
			fmt.Sprintf("%s: %s", doc.Category, doc.FileName),
			map[string]interface{}{"document_id": doc.ID, "category": doc.Category})
	})
	if err != nil {
		return err
	}
	removeBlobs(ctx, s.blob, s.logger, []string{doc.FilePath})
	return nil
}
