package domain

// CouponType represents how a coupon's value is interpreted
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// IsValid checks if the coupon type is valid
func (t CouponType) IsValid() bool {
	switch t {
	case CouponTypePercentage, CouponTypeFixed:
		return true
	default:
		return false
	}
}

// RestrictionType represents the scope a coupon applies to
type RestrictionType string

const (
	RestrictionGlobal   RestrictionType = "global"
	RestrictionProduct  RestrictionType = "product"
	RestrictionCategory RestrictionType = "category"
)

// IsValid checks if the restriction type is valid
func (t RestrictionType) IsValid() bool {
	switch t {
	case RestrictionGlobal, RestrictionProduct, RestrictionCategory:
		return true
	default:
		return false
	}
}

// CheckoutStep represents the position in the checkout flow
type CheckoutStep string

const (
	StepContactInfo     CheckoutStep = "CONTACT_INFO"
	StepShippingAddress CheckoutStep = "SHIPPING_ADDRESS"
	StepPaymentMethod   CheckoutStep = "PAYMENT_METHOD"
	StepSubmitted       CheckoutStep = "SUBMITTED"
)

// IsValid checks if the checkout step is valid
func (s CheckoutStep) IsValid() bool {
	switch s {
	case StepContactInfo, StepShippingAddress, StepPaymentMethod, StepSubmitted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a step transition is valid. Forward moves advance
// one step at a time; backward moves are unconditional until submission.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	switch s {
	case StepContactInfo:
		return next == StepShippingAddress
	case StepShippingAddress:
		return next == StepContactInfo || next == StepPaymentMethod
	case StepPaymentMethod:
		return next == StepContactInfo || next == StepShippingAddress || next == StepSubmitted
	case StepSubmitted:
		return false // Terminal state
	default:
		return false
	}
}

// PaymentMethod is a checkout payment selection
type PaymentMethod string

const (
	PaymentMBWay       PaymentMethod = "mbway"
	PaymentMBReference PaymentMethod = "mbref"
	PaymentKlarna      PaymentMethod = "klarna"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMBWay, PaymentMBReference, PaymentKlarna:
		return true
	default:
		return false
	}
}

// Provider returns the payment provider handling the method.
func (m PaymentMethod) Provider() string {
	if m == PaymentKlarna {
		return "klarna"
	}
	return "ifthenpay"
}

// APIMethod returns the method name expected by the payments API.
func (m PaymentMethod) APIMethod() string {
	if m == PaymentMBReference {
		return "mb_reference"
	}
	return string(m)
}
