package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/asterdex/astergate/internal/signer"
)

type ErrorType string

const (
	ErrNotConnected      ErrorType = "NOT_CONNECTED"
	ErrSigningFailed     ErrorType = "SIGNING_FAILED"
	ErrSignatureMismatch ErrorType = "SIGNATURE_MISMATCH"
	ErrAuthFailed        ErrorType = "AUTH_FAILED"
	ErrRateLimited       ErrorType = "RATE_LIMITED"
	ErrInvalidRequest    ErrorType = "INVALID_REQUEST"
	ErrUnknownAction     ErrorType = "UNKNOWN_ACTION"
	ErrReadOnly          ErrorType = "READ_ONLY"
	ErrInternal          ErrorType = "INTERNAL_ERROR"
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

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

// Wrap classifies err. Errors from the signing core are mapped onto their
// types; anything unknown becomes an internal error.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, signer.ErrNotConnected):
		return New(ErrNotConnected, "wallet not connected", err)
	case errors.Is(err, signer.ErrSignatureMismatch):
		return New(ErrSignatureMismatch, "signature does not match user", err)
	case errors.Is(err, signer.ErrInvalidWallet):
		return New(ErrInvalidRequest, "invalid address", err)
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed, ErrSignatureMismatch:
		return http.StatusUnauthorized
	case ErrNotConnected:
		return http.StatusConflict
	case ErrUnknownAction:
		return http.StatusNotFound
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrSigningFailed:
		return http.StatusBadGateway
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrNotConnected:
		return "Connect a wallet account before signing."
	case ErrSigningFailed:
		return "Retry the action; a new nonce will be issued."
	case ErrSignatureMismatch:
		return "Sign the typed data returned by the gateway with the user's wallet."
	case ErrAuthFailed:
		return "Check the gateway API key."
	case ErrRateLimited:
		return "Slow down and retry."
	case ErrReadOnly:
		return "Signing is paused by the operator; typed data can still be inspected."
	default:
		return ""
	}
}
