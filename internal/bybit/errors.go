package bybit

import "fmt"

// APIError represents a Bybit API error with its exchange error code.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeInvalidAPIKey       = 10003
	ErrCodeInvalidSignature    = 10004
	ErrCodeRateLimitExceeded   = 10006
	ErrCodeOrderNotFound       = 110001
	ErrCodeInsufficientBalance = 110007
)

// ParseAPIError converts a non-zero retCode into an APIError.
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return &APIError{Code: retCode, Message: retMsg}
}

// IsOrderNotFoundError checks if the error is due to order not found
func IsOrderNotFoundError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Code == ErrCodeOrderNotFound
	}
	return false
}

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Code == ErrCodeRateLimitExceeded
	}
	return false
}

// IsInsufficientBalanceError checks if the error is due to insufficient balance
func IsInsufficientBalanceError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Code == ErrCodeInsufficientBalance
	}
	return false
}
