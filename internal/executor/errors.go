package executor

// ExecError represents standardized errors surfaced by executors. Callers
// inspect IsRetryable to decide whether to reconnect and retry or to skip.
type ExecError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	IsRetryable bool   `json:"is_retryable"`
}

func (e *ExecError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// WithDetails returns a copy of the error carrying extra context, keeping
// the sentinel values immutable.
func (e *ExecError) WithDetails(details string) *ExecError {
	clone := *e
	clone.Details = details
	return &clone
}

// Common error values.
var (
	ErrNotConnected = &ExecError{
		Code:        "NOT_CONNECTED",
		Message:     "executor is not connected to the exchange",
		IsRetryable: true,
	}

	ErrConnectionFailed = &ExecError{
		Code:        "CONNECTION_FAILED",
		Message:     "failed to connect to exchange",
		IsRetryable: true,
	}

	ErrRateLimitWait = &ExecError{
		Code:        "RATE_LIMIT_WAIT",
		Message:     "rate limit wait cancelled",
		IsRetryable: true,
	}

	ErrInsufficientBalance = &ExecError{
		Code:        "INSUFFICIENT_BALANCE",
		Message:     "insufficient balance for trade",
		IsRetryable: false,
	}

	ErrInvalidOrder = &ExecError{
		Code:        "INVALID_ORDER",
		Message:     "order request failed validation",
		IsRetryable: false,
	}

	ErrUnsupportedOrderType = &ExecError{
		Code:        "UNSUPPORTED_ORDER_TYPE",
		Message:     "order type is not supported by this operation",
		IsRetryable: false,
	}

	ErrUnsupportedExchange = &ExecError{
		Code:        "UNSUPPORTED_EXCHANGE",
		Message:     "exchange is not supported",
		IsRetryable: false,
	}

	ErrMissingCredentials = &ExecError{
		Code:        "MISSING_CREDENTIALS",
		Message:     "exchange credentials are required",
		IsRetryable: false,
	}
)
