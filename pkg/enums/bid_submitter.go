package enums

import "fmt"

// BidSubmitterType identifies who placed a bid on behalf of a truck.
type BidSubmitterType string

const (
	BidSubmitterDriver     BidSubmitterType = "driver"
	BidSubmitterDispatcher BidSubmitterType = "dispatcher"
)

var validBidSubmitterTypes = []BidSubmitterType{
	BidSubmitterDriver,
	BidSubmitterDispatcher,
}

// String implements fmt.Stringer.
func (b BidSubmitterType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidSubmitterType.
func (b BidSubmitterType) IsValid() bool {
	for _, candidate := range validBidSubmitterTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBidSubmitterType converts raw input into a BidSubmitterType.
func ParseBidSubmitterType(value string) (BidSubmitterType, error) {
	for _, candidate := range validBidSubmitterTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid submitter type %q", value)
}
