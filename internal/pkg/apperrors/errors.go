package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrLiquidityUnavailable  ErrorType = "LIQUIDITY_UNAVAILABLE"
	ErrAllowanceInsufficient ErrorType = "ALLOWANCE_INSUFFICIENT"
	ErrApprovalFailed        ErrorType = "APPROVAL_FAILED"
	ErrSignatureRejected     ErrorType = "SIGNATURE_REJECTED"
	ErrSubmissionFailed      ErrorType = "SUBMISSION_FAILED"
	ErrSettlementFailed      ErrorType = "SETTLEMENT_FAILED"
	ErrNetworkMismatch       ErrorType = "NETWORK_MISMATCH"
	ErrLimitReject           ErrorType = "LIMIT_REJECT"
	ErrAuthFailed            ErrorType = "AUTH_FAILED"
	ErrInvalidRequest        ErrorType = "INVALID_REQUEST"
	ErrInternal              ErrorType = "INTERNAL_ERROR"
	ErrNotFound              ErrorType = "NOT_FOUND"
	ErrUpstream              ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewLiquidityUnavailable() *AppError {
	return New(ErrLiquidityUnavailable, "no route with available liquidity for this pair", nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewLimitReject(msg string) *AppError {
	return New(ErrLimitReject, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err carries the given error type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrLiquidityUnavailable, ErrNetworkMismatch, ErrAllowanceInsufficient:
		return http.StatusConflict
	case ErrLimitReject, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrSignatureRejected:
		return http.StatusUnprocessableEntity
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream, ErrSubmissionFailed, ErrSettlementFailed, ErrApprovalFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrLiquidityUnavailable:
		return "Try a smaller amount or a different pair."
	case ErrNetworkMismatch:
		return "Point the gateway at an RPC endpoint for the requested chain."
	case ErrAllowanceInsufficient:
		return "Approve the settlement contract for the sell token."
	case ErrLimitReject:
		return "Check swap parameters against configured limits."
	case ErrAuthFailed:
		return "Check the API key."
	case ErrSignatureRejected:
		return "Retry the swap to produce fresh signatures."
	case ErrSubmissionFailed:
		return "Retry from a fresh quote."
	default:
		return ""
	}
}
