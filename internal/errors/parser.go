package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ikkim/review-insight-backend/pkg/gemini"
	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int    // HTTP 상태 코드
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 내부 정보(SQL, API 키 등)는 노출하지 않음
func ParseError(err error, action string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Internal server error",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundInfo(action)
	}

	// 2. 외부 AI 서비스 에러
	if info, ok := parseModelError(err); ok {
		return info
	}

	// 3. DB 제약 조건 위반 (PostgreSQL / SQLite)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return ErrorInfo{
			Status:  http.StatusConflict,
			Code:    ResourceAlreadyExists,
			Message: "This record already exists",
		}
	}
	if strings.Contains(errStrLower, "not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return parseNotNullError(errStrLower)
	}
	if strings.Contains(errStrLower, "check constraint") {
		if strings.Contains(errStrLower, "rating") {
			return ErrorInfo{
				Status:  http.StatusBadRequest,
				Code:    ReviewInvalidRating,
				Message: "Ratings must be between 0 and 5",
			}
		}
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    ValidationInvalidInput,
			Message: "The input is not valid",
		}
	}

	// 4. 네트워크/연결 에러
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Status:  http.StatusBadGateway,
			Code:    InternalExternalAPI,
			Message: "Could not reach an upstream service. Please try again shortly",
		}
	}

	// 5. 기본 내부 서버 오류
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(action),
	}
}

// parseModelError Gemini 호출 실패를 코드로 변환
func parseModelError(err error) (ErrorInfo, bool) {
	var apiErr *gemini.APIError
	switch {
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrorInfo{http.StatusServiceUnavailable, InternalExternalAPI, "The AI service quota is exhausted. Please try again later"}, true
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return ErrorInfo{http.StatusBadGateway, InternalConfigError, "The AI service rejected the configured API key"}, true
		default:
			return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "The AI service returned an error"}, true
		}
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return ErrorInfo{http.StatusServiceUnavailable, InternalConfigError, "No AI API key is configured"}, true
	case errors.Is(err, gemini.ErrBlocked):
		return ErrorInfo{http.StatusUnprocessableEntity, InternalExternalAPI, "The AI service declined to answer this request"}, true
	case errors.Is(err, gemini.ErrEmptyResponse), errors.Is(err, gemini.ErrNetworkError):
		return ErrorInfo{http.StatusBadGateway, InternalExternalAPI, "The AI service did not return a usable answer"}, true
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorInfo{http.StatusGatewayTimeout, InternalExternalAPI, "The AI service took too long to answer"}, true
	}
	return ErrorInfo{}, false
}

// parseNotNullError Not null constraint 위반 에러 파싱
func parseNotNullError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "review_date") {
		return ErrorInfo{http.StatusBadRequest, ValidationRequired, "Review date is required"}
	}
	return ErrorInfo{http.StatusBadRequest, ValidationRequired, "A required field is missing"}
}

// notFoundInfo context에 따른 Not Found 응답
func notFoundInfo(action string) ErrorInfo {
	contextLower := strings.ToLower(action)

	if strings.Contains(contextLower, "review") {
		return ErrorInfo{http.StatusNotFound, ReviewNotFound, "Review not found"}
	}
	if strings.Contains(contextLower, "report") {
		return ErrorInfo{http.StatusNotFound, ReportNotFound, "No report has been generated yet"}
	}
	return ErrorInfo{http.StatusNotFound, ResourceNotFound, "The requested data was not found"}
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(action string) string {
	contextLower := strings.ToLower(action)

	switch {
	case strings.Contains(contextLower, "save") || strings.Contains(contextLower, "create"):
		return "Saving failed. Please try again shortly"
	case strings.Contains(contextLower, "update"):
		return "Updating failed. Please try again shortly"
	case strings.Contains(contextLower, "delete"):
		return "Deleting failed. Please try again shortly"
	case strings.Contains(contextLower, "export"):
		return "Export failed. Please try again shortly"
	}
	return "Something went wrong on our side. Please try again shortly"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (헬퍼 함수)
// statusCode가 0이면 파싱된 상태 코드를 사용
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, action string) {
	errorInfo := ParseError(err, action)
	if statusCode == 0 {
		statusCode = errorInfo.Status
	}
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
