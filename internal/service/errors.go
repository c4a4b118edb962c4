// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
)

// ErrorType 是业务错误的分类。
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation" // 入参非法，任何网络调用之前就被拒绝
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeExternal   ErrorType = "external" // 外部服务失败且会污染置信度计算，必须中止请求
	ErrorTypeInternal   ErrorType = "internal"
)

// DomainError 是携带分类的业务错误。
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error 实现 error 接口。
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap 实现 errors.Unwrap。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按错误分类匹配，支持 errors.Is(err, ErrInvalidQuery) 式判断。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewDomainError 创建一个新的业务错误。
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

// MaxQueryLength 是生成与检索请求允许的最大查询长度（字符数）。
const MaxQueryLength = 4000

var (
	ErrEmptyQuery       = NewDomainError(ErrorTypeValidation, "query cannot be empty", nil)
	ErrQueryTooLong     = NewDomainError(ErrorTypeValidation, "query exceeds maximum length", nil)
	ErrInvalidTenant    = NewDomainError(ErrorTypeValidation, "tenant id is missing or invalid", nil)
	ErrInvalidMode      = NewDomainError(ErrorTypeValidation, "unsupported writing mode", nil)
	ErrDocumentNotFound = NewDomainError(ErrorTypeNotFound, "document not found", nil)
)

// IsValidation 判断错误链中是否为校验类错误。
func IsValidation(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == ErrorTypeValidation
	}
	return false
}
