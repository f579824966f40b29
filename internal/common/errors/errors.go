// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"exchange-matcher/internal/matching"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeListingNotFound         ErrorCode = "LISTING_NOT_FOUND"
	ErrCodeInvalidInput            ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodeMatchNotFound           ErrorCode = "MATCH_NOT_FOUND"

	ErrCodeMatchStoreFailed     ErrorCode = "MATCH_STORE_FAILED"
	ErrCodeCandidateQueryFailed ErrorCode = "CANDIDATE_QUERY_FAILED"
	ErrCodeWeightStoreFailed    ErrorCode = "WEIGHT_STORE_FAILED"
	ErrCodeOptimizationFailed   ErrorCode = "OPTIMIZATION_FAILED"
	ErrCodeNotificationFailed   ErrorCode = "NOTIFICATION_FAILED"

	ErrCodeTimeout        ErrorCode = "TIMEOUT_ERROR"
	ErrCodeWorkflowEngine ErrorCode = "WORKFLOW_ENGINE_ERROR"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewListingNotFoundError(listingID string) *StandardError {
	return newError(ErrCodeListingNotFound, "Listing not found", listingID, false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewInvalidStatusTransitionError(details string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition, "Match status change not allowed", details, false)
}

func NewMatchNotFoundError(matchID string) *StandardError {
	return newError(ErrCodeMatchNotFound, "Match not found", matchID, false)
}

// NewMatchStoreFailedError creates a retryable persistence error.
func NewMatchStoreFailedError(err error) *StandardError {
	return newError(ErrCodeMatchStoreFailed, "Failed to persist match", err.Error(), true)
}

func NewCandidateQueryFailedError(err error) *StandardError {
	return newError(ErrCodeCandidateQueryFailed, "Candidate retrieval failed", err.Error(), true)
}

func NewWeightStoreFailedError(err error) *StandardError {
	return newError(ErrCodeWeightStoreFailed, "Weight vector could not be loaded or saved", err.Error(), true)
}

func NewOptimizationFailedError(err error) *StandardError {
	return newError(ErrCodeOptimizationFailed, "Weight optimization failed", err.Error(), true)
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, fmt.Sprintf("Notification via %s failed", channel), err.Error(), true)
}

func NewTimeoutError(operation string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Operation '%s' timed out", operation), err.Error(), true)
}

func NewWorkflowEngineError(err error) *StandardError {
	return newError(ErrCodeWorkflowEngine, "Workflow engine request failed", err.Error(), true)
}

// FromMatching translates an engine error into a StandardError. fallback is
// used for anything that is not a known matching sentinel.
func FromMatching(err error, fallback func(error) *StandardError) *StandardError {
	var stdErr *StandardError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &stdErr):
		return stdErr
	case stderrors.Is(err, matching.ErrListingNotFound):
		return newError(ErrCodeListingNotFound, "Listing not found", err.Error(), false)
	case stderrors.Is(err, matching.ErrMatchNotFound):
		return newError(ErrCodeMatchNotFound, "Match not found", err.Error(), false)
	case stderrors.Is(err, matching.ErrInvalidStatus):
		return NewInvalidInputError(err.Error())
	case stderrors.Is(err, matching.ErrInvalidTransition):
		return NewInvalidStatusTransitionError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("matching", err)
	case fallback != nil:
		return fallback(err)
	default:
		return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeListingNotFound:         "LISTING_NOT_FOUND",
	ErrCodeInvalidInput:            "INVALID_INPUT",
	ErrCodeInvalidStatusTransition: "INVALID_STATUS_TRANSITION",
	ErrCodeMatchNotFound:           "MATCH_NOT_FOUND",
	ErrCodeMatchStoreFailed:        "MATCH_STORE_FAILED",
	ErrCodeCandidateQueryFailed:    "CANDIDATE_QUERY_FAILED",
	ErrCodeWeightStoreFailed:       "WEIGHT_STORE_FAILED",
	ErrCodeOptimizationFailed:      "OPTIMIZATION_FAILED",
	ErrCodeNotificationFailed:      "NOTIFICATION_FAILED",
	ErrCodeTimeout:                 "TIMEOUT_ERROR",
	ErrCodeWorkflowEngine:          "WORKFLOW_ENGINE_ERROR",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeMatchStoreFailed,
		ErrCodeCandidateQueryFailed,
		ErrCodeWeightStoreFailed,
		ErrCodeNotificationFailed,
		ErrCodeWorkflowEngine:
		return 3

	case ErrCodeOptimizationFailed,
		ErrCodeTimeout:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "QUERY"):
		return "STORAGE"
	case strings.Contains(codeStr, "OPTIMIZATION"):
		return "OPTIMIZER"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
