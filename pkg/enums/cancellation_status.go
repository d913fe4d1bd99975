package enums

import "fmt"

// CancellationStatus tracks refund processing on a cancellation record.
type CancellationStatus string

const (
	CancellationStatusPending  CancellationStatus = "pending"
	CancellationStatusRefunded CancellationStatus = "refunded"
	CancellationStatusVoided   CancellationStatus = "voided"
	CancellationStatusNoRefund CancellationStatus = "no_refund"
)

var validCancellationStatuses = []CancellationStatus{
	CancellationStatusPending,
	CancellationStatusRefunded,
	CancellationStatusVoided,
	CancellationStatusNoRefund,
}

// String implements fmt.Stringer.
func (c CancellationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancellationStatus.
func (c CancellationStatus) IsValid() bool {
	for _, candidate := range validCancellationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCancellationStatus converts raw input into a CancellationStatus.
func ParseCancellationStatus(value string) (CancellationStatus, error) {
	for _, candidate := range validCancellationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancellation status %q", value)
}
