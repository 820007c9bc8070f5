// Package errors 定义带错误码的应用错误
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 对外暴露的错误码
type ErrorCode string

// 通用错误 (1xxx)
const (
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
)

// 问答流程错误 (4xxx)
const (
	CodeRetrievalFailed ErrorCode = "4001"
	CodeScoringFailed   ErrorCode = "4002"
	CodeWebSearchFailed ErrorCode = "4003"
	CodeSynthesisFailed ErrorCode = "4004"
	CodeEmbeddingFailed ErrorCode = "4006"
	CodeIngestionFailed ErrorCode = "4007"
)

// 外部依赖错误 (5xxx)
const (
	CodeCacheError       ErrorCode = "5002"
	CodeVectorDBError    ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5005"
	CodeSearchProvider   ErrorCode = "5006"
)

// httpStatusByCode 非 500 的错误码映射，未列出的一律 500
var httpStatusByCode = map[ErrorCode]int{
	CodeInvalidParam:       http.StatusBadRequest,
	CodeTooManyRequests:    http.StatusTooManyRequests,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// AppError 应用错误，携带错误码与对应的 HTTP 状态
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus(code),
	}
}

// Wrap 包装底层错误为应用错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus(code),
		Err:        err,
	}
}

// AsAppError 从错误链中取出 AppError，取不到时归类为未知错误
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

func httpStatus(code ErrorCode) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
