package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// DomainError 携带面向用户的消息，Unwrap 到错误类别
type DomainError struct {
	Kind    error
	Message string
}

func (e *DomainError) Error() string { return e.Message }
func (e *DomainError) Unwrap() error { return e.Kind }

func forbiddenf(format string, args ...interface{}) error {
	return &DomainError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return &DomainError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func unauthorizedf(format string, args ...interface{}) error {
	return &DomainError{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) error {
	return &DomainError{Kind: repository.ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func storageUnavailable(err error) error {
	return &DomainError{Kind: ErrStorageUnavailable, Message: "file storage is unavailable: " + err.Error()}
}

// uniqueOr 唯一约束冲突转为 409，其他错误原样返回
func uniqueOr(err error, format string, args ...interface{}) error {
	if repository.IsUniqueViolation(err) {
		return conflictf(format, args...)
	}
	return err
}

// ValidationError 输入校验错误，Fields 为 字段 -> 错误消息
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.message()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return e.message() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// Add 追加字段错误
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty 无错误
func (e *ValidationError) Empty() bool {
	return e == nil || (len(e.Fields) == 0 && e.Message == "")
}

// Err 无错误时返回 nil
func (e *ValidationError) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

// ApprovalRequiredError 非创建人删除订单，需要走删除申请
type ApprovalRequiredError struct {
	CreatorID    string
	CreatorName  string
	CreatorEmail string
}

func (e *ApprovalRequiredError) Error() string {
	return "only the order creator or an admin can delete this order; submit a deletion request instead"
}
