package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 에러 코드 정의
type ErrorCode string

const (
	// Validation Errors
	ErrCodeInvalidOrder ErrorCode = "INVALID_ORDER"

	// Business Errors
	ErrCodeMinOrderAmountNotMet   ErrorCode = "MIN_ORDER_AMOUNT_NOT_MET"
	ErrCodeOrderNotCancellable    ErrorCode = "ORDER_NOT_CANCELLABLE"
	ErrCodeInvalidTransition      ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeOrderNotFound          ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeDuplicateOrderNumber   ErrorCode = "DUPLICATE_ORDER_NUMBER"
	ErrCodeDuplicateRequest       ErrorCode = "DUPLICATE_REQUEST"
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"

	// Technical Errors
	ErrCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCodeTimeoutError       ErrorCode = "TIMEOUT_ERROR"
	ErrCodeSerializationError ErrorCode = "SERIALIZATION_ERROR"
	ErrCodeUnknownError       ErrorCode = "UNKNOWN_ERROR"
)

// DomainError 도메인 에러 구조체
type DomainError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// New 새로운 도메인 에러 생성
func New(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Wrap 기존 에러를 래핑한 도메인 에러 생성
func Wrap(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf 에러에서 코드 추출 (도메인 에러가 아니면 UNKNOWN_ERROR)
func CodeOf(err error) ErrorCode {
	var domainErr *DomainError
	if goerrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ErrCodeUnknownError
}

// IsCode 에러가 특정 코드인지 확인
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable 재시도 가능한 에러인지 판단
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDatabaseError, ErrCodeTimeoutError, ErrCodeConcurrentModification:
		return true
	}
	return false
}

// IsBusinessError 비즈니스 에러인지 판단 (재시도 불필요)
func IsBusinessError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidOrder, ErrCodeMinOrderAmountNotMet, ErrCodeOrderNotCancellable,
		ErrCodeInvalidTransition, ErrCodeOrderNotFound, ErrCodeDuplicateRequest:
		return true
	}
	return false
}

// HTTPStatus 에러 코드를 HTTP 상태 코드로 변환
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidOrder, ErrCodeMinOrderAmountNotMet:
		return http.StatusBadRequest
	case ErrCodeOrderNotFound:
		return http.StatusNotFound
	case ErrCodeOrderNotCancellable, ErrCodeInvalidTransition,
		ErrCodeDuplicateRequest, ErrCodeConcurrentModification, ErrCodeDuplicateOrderNumber:
		return http.StatusConflict
	case ErrCodeTimeoutError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
