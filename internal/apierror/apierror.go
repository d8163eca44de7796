package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Ledger and credit-instrument error codes.
	ErrInsufficientFunds     ErrorCode = "INSUFFICIENT_FUNDS"
	ErrAccountFrozen         ErrorCode = "ACCOUNT_FROZEN"
	ErrDuplicateReference    ErrorCode = "DUPLICATE_REFERENCE"
	ErrInvalidPin            ErrorCode = "INVALID_PIN"
	ErrPinNotSet             ErrorCode = "PIN_NOT_SET"
	ErrTooManyAttempts       ErrorCode = "TOO_MANY_ATTEMPTS"
	ErrInstallmentOutOfOrder ErrorCode = "INSTALLMENT_OUT_OF_ORDER"
	ErrAlreadyTerminal       ErrorCode = "ALREADY_TERMINAL"
	ErrSelfPayment           ErrorCode = "SELF_PAYMENT"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Is reports whether err is an APIError carrying the given code.
func Is(err error, code ErrorCode) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict, ErrDuplicateReference, ErrAlreadyTerminal, ErrInstallmentOutOfOrder:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest, ErrSelfPayment:
			return http.StatusBadRequest
		case ErrInsufficientFunds:
			return http.StatusUnprocessableEntity
		case ErrAccountFrozen, ErrInvalidPin, ErrPinNotSet:
			return http.StatusForbidden
		case ErrTooManyAttempts:
			return http.StatusTooManyRequests
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
