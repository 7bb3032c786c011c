package enums

import "fmt"

// CouponValueType describes how a coupon's value is interpreted.
type CouponValueType string

const (
	CouponValuePercentage   CouponValueType = "percentage"
	CouponValueFixed        CouponValueType = "fixed"
	CouponValueFreeShipping CouponValueType = "free_shipping"
)

var validCouponValueTypes = []CouponValueType{
	CouponValuePercentage,
	CouponValueFixed,
	CouponValueFreeShipping,
}

// String implements fmt.Stringer.
func (c CouponValueType) String() string {
	return string(c)
}

// IsValid reports whether the value type is recognized.
func (c CouponValueType) IsValid() bool {
	for _, candidate := range validCouponValueTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponValueType converts raw input into a CouponValueType.
func ParseCouponValueType(value string) (CouponValueType, error) {
	for _, candidate := range validCouponValueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon value type %q", value)
}

// CouponScope determines whether a coupon targets the whole cart or one listing.
type CouponScope string

const (
	CouponScopeCart CouponScope = "cart"
	CouponScopeItem CouponScope = "item"
)

var validCouponScopes = []CouponScope{
	CouponScopeCart,
	CouponScopeItem,
}

// String implements fmt.Stringer.
func (c CouponScope) String() string {
	return string(c)
}

// IsValid reports whether the scope is recognized.
func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponScope converts raw input into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}
