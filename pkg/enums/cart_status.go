package enums

import "fmt"

// CartStatus tracks where a cart sits in its lifecycle.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusCheckout  CartStatus = "checkout"
	CartStatusCompleted CartStatus = "completed"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusMerged    CartStatus = "merged"
)

var validCartStatuses = []CartStatus{
	CartStatusActive,
	CartStatusCheckout,
	CartStatusCompleted,
	CartStatusAbandoned,
	CartStatusMerged,
}

// String implements fmt.Stringer.
func (c CartStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CartStatus.
func (c CartStatus) IsValid() bool {
	for _, candidate := range validCartStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the cart can never be mutated again.
func (c CartStatus) IsTerminal() bool {
	return c == CartStatusCompleted || c == CartStatusMerged
}

// ParseCartStatus converts raw input into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	for _, candidate := range validCartStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
