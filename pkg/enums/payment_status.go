package enums

import "fmt"

// PaymentAttemptStatus tracks an asynchronous UPI attempt.
type PaymentAttemptStatus string

const (
	PaymentAttemptInitiating           PaymentAttemptStatus = "INITIATING"
	PaymentAttemptAwaitingConfirmation PaymentAttemptStatus = "AWAITING_CONFIRMATION"
	PaymentAttemptSucceeded            PaymentAttemptStatus = "SUCCEEDED"
	PaymentAttemptFailed               PaymentAttemptStatus = "FAILED"
	PaymentAttemptTimedOut             PaymentAttemptStatus = "TIMED_OUT"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptInitiating,
	PaymentAttemptAwaitingConfirmation,
	PaymentAttemptSucceeded,
	PaymentAttemptFailed,
	PaymentAttemptTimedOut,
}

// String implements fmt.Stringer.
func (s PaymentAttemptStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (s PaymentAttemptStatus) IsValid() bool {
	for _, candidate := range validPaymentAttemptStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Retryable reports whether confirmation may be awaited again.
func (s PaymentAttemptStatus) Retryable() bool {
	return s == PaymentAttemptFailed || s == PaymentAttemptTimedOut || s == PaymentAttemptAwaitingConfirmation
}

// GatewayStatus is what the payment gateway reports for a transaction.
type GatewayStatus string

const (
	GatewayStatusPending GatewayStatus = "PENDING"
	GatewayStatusSuccess GatewayStatus = "SUCCESS"
	GatewayStatusFailed  GatewayStatus = "FAILED"
)

var validGatewayStatuses = []GatewayStatus{
	GatewayStatusPending,
	GatewayStatusSuccess,
	GatewayStatusFailed,
}

// String implements fmt.Stringer.
func (s GatewayStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known GatewayStatus.
func (s GatewayStatus) IsValid() bool {
	for _, candidate := range validGatewayStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseGatewayStatus converts raw input into a GatewayStatus.
func ParseGatewayStatus(value string) (GatewayStatus, error) {
	for _, candidate := range validGatewayStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway status %q", value)
}
