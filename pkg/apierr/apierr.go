// Package apierr 定义了外部 API 调用的类型化错误，区分可重试与不可恢复两类失败。
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError 表示一次对外部服务（Embedding / LLM）调用的失败。
// Retryable 标记该失败是否值得重试（限流、服务端错误、网络抖动）。
type APIError struct {
	Service    string // 失败的外部服务名，如 "embedding"、"llm"
	StatusCode int    // HTTP 状态码，网络层失败时为 0
	Retryable  bool
	Err        error
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d, retryable=%t): %v", e.Service, e.StatusCode, e.Retryable, e.Err)
	}
	return fmt.Sprintf("%s api error (retryable=%t): %v", e.Service, e.Retryable, e.Err)
}

// Unwrap 支持 errors.Is / errors.As 链。
func (e *APIError) Unwrap() error {
	return e.Err
}

// New 根据 HTTP 状态码构造 APIError。429 和 5xx 视为可重试。
func New(service string, statusCode int, err error) *APIError {
	retryable := statusCode == http.StatusTooManyRequests || statusCode >= 500
	return &APIError{Service: service, StatusCode: statusCode, Retryable: retryable, Err: err}
}

// Network 构造一个网络层失败（未收到响应），一律视为可重试。
func Network(service string, err error) *APIError {
	return &APIError{Service: service, Retryable: true, Err: err}
}

// IsRetryable 判断错误链中是否存在可重试的 APIError。
func IsRetryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}
