package checkout

import (
	"regexp"
	"strings"

	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/pkg/errors"
)

// ContactInfo is the first checkout step's data
type ContactInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// ShippingAddress is the second checkout step's data
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

var emailShape = regexp.MustCompile(`\S+@\S+\.\S+`)

// Flow walks ContactInfo -> ShippingAddress -> PaymentMethod -> Submitted.
// Forward transitions are gated by field validation; backward transitions are
// unconditional until submission. The flow itself performs no I/O.
type Flow struct {
	step     domain.CheckoutStep
	contact  ContactInfo
	shipping ShippingAddress
	payment  domain.PaymentMethod

	// signedInEmail, when set, overrides the typed email like a logged-in
	// shopper's locked email field.
	signedInEmail string
}

// NewFlow starts a checkout at the contact step
func NewFlow() *Flow {
	return &Flow{
		step:    domain.StepContactInfo,
		payment: domain.PaymentMBWay,
		shipping: ShippingAddress{
			Country: "PT",
		},
	}
}

// Step returns the current position in the flow.
func (f *Flow) Step() domain.CheckoutStep {
	return f.step
}

// SetSignedInEmail locks the checkout email to the shopper's account email.
func (f *Flow) SetSignedInEmail(email string) {
	f.signedInEmail = strings.TrimSpace(email)
}

// SetContactInfo records the contact step's fields without validating them;
// validation happens on the forward transition.
func (f *Flow) SetContactInfo(contact ContactInfo) {
	f.contact = contact
}

// SetShippingAddress records the shipping step's fields.
func (f *Flow) SetShippingAddress(shipping ShippingAddress) {
	f.shipping = shipping
}

// SetPaymentMethod selects the payment method.
func (f *Flow) SetPaymentMethod(method domain.PaymentMethod) error {
	if !method.IsValid() {
		return &errors.ErrValidation{Message: "Please select a payment method."}
	}
	f.payment = method
	return nil
}

// PaymentMethod returns the current payment selection.
func (f *Flow) PaymentMethod() domain.PaymentMethod {
	return f.payment
}

// Email returns the effective checkout email.
func (f *Flow) Email() string {
	if f.signedInEmail != "" {
		return f.signedInEmail
	}
	return strings.TrimSpace(f.contact.Email)
}

// Contact returns the recorded contact fields.
func (f *Flow) Contact() ContactInfo {
	return f.contact
}

// Shipping returns the recorded shipping fields.
func (f *Flow) Shipping() ShippingAddress {
	return f.shipping
}

// Next advances one step after validating the current step's fields.
func (f *Flow) Next() error {
	switch f.step {
	case domain.StepContactInfo:
		if err := f.validateContact(); err != nil {
			return err
		}
		f.step = domain.StepShippingAddress
		return nil
	case domain.StepShippingAddress:
		if err := f.validateShipping(); err != nil {
			return err
		}
		f.step = domain.StepPaymentMethod
		return nil
	default:
		return &errors.ErrInvalidStateTransition{From: f.step, To: domain.StepSubmitted}
	}
}

// Back moves one step backward; always allowed except once submitted.
func (f *Flow) Back() error {
	switch f.step {
	case domain.StepShippingAddress:
		f.step = domain.StepContactInfo
		return nil
	case domain.StepPaymentMethod:
		f.step = domain.StepShippingAddress
		return nil
	default:
		return &errors.ErrInvalidStateTransition{From: f.step, To: f.step}
	}
}

// markSubmitted finalizes the flow; only reachable from the payment step.
func (f *Flow) markSubmitted() error {
	if !f.step.CanTransitionTo(domain.StepSubmitted) {
		return &errors.ErrInvalidStateTransition{From: f.step, To: domain.StepSubmitted}
	}
	f.step = domain.StepSubmitted
	return nil
}

func (f *Flow) validateContact() error {
	if strings.TrimSpace(f.contact.FirstName) == "" || strings.TrimSpace(f.contact.LastName) == "" {
		return &errors.ErrValidation{Message: "Please enter first name and last name."}
	}
	if !emailShape.MatchString(f.Email()) {
		return &errors.ErrValidation{Message: "Please enter a valid email."}
	}
	if strings.TrimSpace(f.contact.Phone) == "" {
		return &errors.ErrValidation{Message: "Please enter phone number."}
	}
	return nil
}

func (f *Flow) validateShipping() error {
	if strings.TrimSpace(f.shipping.Address) == "" {
		return &errors.ErrValidation{Message: "Please enter shipping address."}
	}
	if strings.TrimSpace(f.shipping.City) == "" {
		return &errors.ErrValidation{Message: "Please enter shipping city."}
	}
	if strings.TrimSpace(f.shipping.PostalCode) == "" {
		return &errors.ErrValidation{Message: "Please enter postal code."}
	}
	if strings.TrimSpace(f.shipping.Country) == "" {
		return &errors.ErrValidation{Message: "Please select country."}
	}
	return nil
}
