package enums

import "fmt"

// WalletTransactionType tags an append-only wallet transaction with its cause.
type WalletTransactionType string

const (
	WalletTransactionTypeRefund     WalletTransactionType = "refund"
	WalletTransactionTypeEarnings   WalletTransactionType = "earnings"
	WalletTransactionTypeTopUp      WalletTransactionType = "top_up"
	WalletTransactionTypePayment    WalletTransactionType = "payment"
	WalletTransactionTypeWithdrawal WalletTransactionType = "withdrawal"
	WalletTransactionTypeAdjustment WalletTransactionType = "adjustment"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeRefund,
	WalletTransactionTypeEarnings,
	WalletTransactionTypeTopUp,
	WalletTransactionTypePayment,
	WalletTransactionTypeWithdrawal,
	WalletTransactionTypeAdjustment,
}

// String implements fmt.Stringer.
func (w WalletTransactionType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
