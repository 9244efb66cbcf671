package domain

import "strings"

// PaymentMethod selects how a subscription purchase was settled.
type PaymentMethod int

const (
	MethodUnknown PaymentMethod = iota
	MethodEth
	MethodCommerce
)

func (m PaymentMethod) String() string {
	switch m {
	case MethodEth:
		return "eth"
	case MethodCommerce:
		return "commerce"
	default:
		return "unknown"
	}
}

// ParsePaymentMethod converts the wire value into the enum. Adding a new
// method means extending the enum and every switch over it.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "eth":
		return MethodEth, nil
	case "commerce":
		return MethodCommerce, nil
	default:
		return MethodUnknown, ErrInvalidMethod
	}
}
