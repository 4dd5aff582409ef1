package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentHandler 订单附件
type DocumentHandler struct {
	svc             *service.DocumentService
	downloadTimeout time.Duration
}

func NewDocumentHandler(svc *service.DocumentService, downloadTimeout time.Duration) *DocumentHandler {
	if downloadTimeout <= 0 {
		downloadTimeout = 30 * time.Second
	}
	return &DocumentHandler{svc: svc, downloadTimeout: downloadTimeout}
}

// readUpload 读取 multipart 的 file 字段，返回的 close 由调用方执行
func readUpload(c *gin.Context) (*service.UploadInput, func(), bool) {
	header, err := c.FormFile("file")
	if err != nil {
		errorWith(c, 40000, "file is required", map[string][]string{"file": {"this field is required"}}, nil)
		return nil, nil, false
	}
	var file multipart.File
	file, err = header.Open()
	if err != nil {
		BadRequest(c, "failed to read uploaded file")
		return nil, nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	in := &service.UploadInput{
		FileName:    header.Filename,
		Size:        header.Size,
		ContentType: contentType,
		Reader:      file,
	}
	return in, func() { file.Close() }, true
}

// Upload POST /orders/:id/documents/upload
func (h *DocumentHandler) Upload(c *gin.Context) {
	in, closeFile, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFile()

	in.Category = formValue(c, "category")
	in.Subcategory = formValue(c, "subcategory")
	in.LineID = formValue(c, "line_id")
	in.Description = formValue(c, "description")
	if raw := formValue(c, "document_date"); raw != "" {
		d, err := entity.ParseDate(raw)
		if err != nil {
			errorWith(c, 40000, "invalid document_date", map[string][]string{"document_date": {"must be YYYY-MM-DD"}}, nil)
			return
		}
		in.DocumentDate = &d
	}

	doc, err := h.svc.Upload(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, doc)
}

// List GET /orders/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.List(c.Request.Context(), actor(c), c.Param("id"), c.Query("category"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"items": docs})
}

// Download GET /orders/:id/documents/:doc_id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.downloadTimeout)
	defer cancel()

	doc, rc, size, err := h.svc.Download(ctx, actor(c), c.Param("id"), c.Param("doc_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, doc.FileName, url.PathEscape(doc.FileName)))
	if size > 0 {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
	}
	c.Status(200)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		zap.L().Warn("document download interrupted", zap.String("document_id", doc.ID), zap.Error(err))
	}
}

// Delete DELETE /orders/:id/documents/:doc_id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actor(c), c.Param("id"), c.Param("doc_id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
