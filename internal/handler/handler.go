package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/middleware"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/farihafhf/provabook-3-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Order        *OrderHandler
	Approval     *ApprovalHandler
	Document     *DocumentHandler
	Ledger       *LedgerHandler
	Deletion     *DeletionHandler
	Financial    *FinancialHandler
	Notification *NotificationHandler
	MillOffer    *MillOfferHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	RegisterValidators()
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		User:         NewUserHandler(svc.User),
		Order:        NewOrderHandler(svc.Order, svc.Export),
		Approval:     NewApprovalHandler(svc.Approval),
		Document:     NewDocumentHandler(svc.Document, cfg.MinIO.DownloadTimeout),
		Ledger:       NewLedgerHandler(svc.Ledger),
		Deletion:     NewDeletionHandler(svc.Deletion),
		Financial:    NewFinancialHandler(svc.Financial),
		Notification: NewNotificationHandler(svc.Notification),
		MillOffer:    NewMillOfferHandler(svc.MillOffer),
	}
}

// Response 通用响应结构
type Response struct {
	Success bool                `json:"success"`
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Success: true,
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Success: true,
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	errorWith(c, code, message, nil, nil)
}

func errorWith(c *gin.Context, code int, message string, fields map[string][]string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Code:    code,
		Message: message,
		Data:    data,
		Errors:  fields,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// GetPagination 获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return
}

// List 分页列表响应
func List(c *gin.Context, items interface{}, page, pageSize int, total int64) {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// GetUserID 获取当前用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// actor 当前操作人
func actor(c *gin.Context) service.Actor {
	return service.Actor{
		UserID: GetUserID(c),
		Name:   c.GetString("user_name"),
		Role:   c.GetString("role"),
	}
}

// filters 收集非空查询参数
func filters(c *gin.Context, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			out[k] = v
		}
	}
	return out
}

// handleError 领域错误转响应
func handleError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		approvalErr   *service.ApprovalRequiredError
		domainErr     *service.DomainError
	)

	switch {
	case errors.As(err, &validationErr):
		errorWith(c, 40000, validationErr.Error(), validationErr.Fields, nil)
	case errors.As(err, &approvalErr):
		errorWith(c, 40300, approvalErr.Error(), nil, gin.H{
			"requires_approval": true,
			"creator": gin.H{
				"id":        approvalErr.CreatorID,
				"full_name": approvalErr.CreatorName,
				"email":     approvalErr.CreatorEmail,
			},
		})
	case errors.Is(err, repository.ErrNotFound):
		msg := "resource not found"
		if errors.As(err, &domainErr) {
			msg = domainErr.Message
		}
		NotFound(c, msg)
	case errors.Is(err, service.ErrForbidden):
		Forbidden(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		InternalError(c, err.Error())
	default:
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		InternalError(c, "internal server error")
	}
}

// bind 绑定 JSON 请求体，校验错误按字段返回
func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string][]string, len(verrs))
			for _, fe := range verrs {
				key := fieldKey(fe)
				fields[key] = append(fields[key], fieldMessage(fe))
			}
			errorWith(c, 40000, "validation failed", fields, nil)
			return false
		}
		BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// fieldKey 去掉结构体名前缀，例如 CreateOrderRequest.styles[0].style_number
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "approval_type":
		return fmt.Sprintf("unknown approval type %q", fe.Value())
	case "approval_status":
		return fmt.Sprintf("invalid approval status %q", fe.Value())
	case "line_status":
		return fmt.Sprintf("invalid line status %q", fe.Value())
	case "order_stage":
		return fmt.Sprintf("invalid stage %q", fe.Value())
	}
	return "failed on " + fe.Tag()
}

var registerOnce sync.Once

// domainRules 绑定标签 → 领域取值校验
var domainRules = map[string]func(string) bool{
	"approval_type":   entity.IsApprovalType,
	"approval_status": entity.IsApprovalStatus,
	"line_status":     entity.IsLineStatus,
	"order_stage":     entity.IsOrderStage,
}

// RegisterValidators 注册字段名和领域校验规则；注册失败直接 panic
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		if err := registerRules(v, domainRules); err != nil {
			zap.L().Error("Failed to register validators", zap.Error(err))
			panic(err)
		}
	})
}

// registerRules 字符串或字符串指针字段的取值校验
func registerRules(v *validator.Validate, rules map[string]func(string) bool) error {
	for tag, fn := range rules {
		fn := fn
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() == reflect.Ptr {
				if field.IsNil() {
					return true
				}
				field = field.Elem()
			}
			return fn(field.String())
		})
		if err != nil {
			return fmt.Errorf("register validator %q: %w", tag, err)
		}
	}
	return nil
}

// formValue multipart 字段，兼容 snake_case 和 camelCase
func formValue(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(c.PostForm(middleware.ToCamel(key)))
}
