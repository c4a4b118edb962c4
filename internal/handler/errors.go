package handler

import (
	"errors"
	"net/http"

	"grant-trust-go/internal/service"
)

// statusForError 将业务错误分类映射到 HTTP 状态码。
// 外部依赖失败返回 502：请求本身没问题，客户端可以原样重试。
func statusForError(err error) int {
	var de *service.DomainError
	if errors.As(err, &de) {
		switch de.Type {
		case service.ErrorTypeValidation:
			return http.StatusBadRequest
		case service.ErrorTypeNotFound:
			return http.StatusNotFound
		case service.ErrorTypeExternal:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
