package enums

import "fmt"

// RefundMethod records how a cancellation was made whole. Paid orders are
// always refunded into the owner wallet, never back onto the card rail;
// unpaid invoice orders have the open invoice voided instead.
type RefundMethod string

const (
	RefundMethodWalletCredit RefundMethod = "wallet_credit"
	RefundMethodInvoiceVoid  RefundMethod = "invoice_void"
	RefundMethodNone         RefundMethod = "none"
)

var validRefundMethods = []RefundMethod{
	RefundMethodWalletCredit,
	RefundMethodInvoiceVoid,
	RefundMethodNone,
}

// String implements fmt.Stringer.
func (r RefundMethod) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundMethod.
func (r RefundMethod) IsValid() bool {
	for _, candidate := range validRefundMethods {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundMethod converts raw input into a RefundMethod.
func ParseRefundMethod(value string) (RefundMethod, error) {
	for _, candidate := range validRefundMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund method %q", value)
}
