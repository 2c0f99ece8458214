package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/pkg/errors"
)

func validContact() ContactInfo {
	return ContactInfo{
		FirstName: "Ana",
		LastName:  "Silva",
		Email:     "ana@example.com",
		Phone:     "912345678",
	}
}

func validShipping() ShippingAddress {
	return ShippingAddress{
		Address:    "Rua das Flores 1",
		City:       "Lisboa",
		PostalCode: "1000-001",
		Country:    "PT",
	}
}

func TestNewFlow_Defaults(t *testing.T) {
	flow := NewFlow()

	assert.Equal(t, domain.StepContactInfo, flow.Step())
	assert.Equal(t, domain.PaymentMBWay, flow.PaymentMethod())
	assert.Equal(t, "PT", flow.Shipping().Country)
}

func TestNext_ValidatesContactFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContactInfo)
		message string
	}{
		{"missing name", func(c *ContactInfo) { c.FirstName = " " }, "Please enter first name and last name."},
		{"bad email", func(c *ContactInfo) { c.Email = "not-an-email" }, "Please enter a valid email."},
		{"missing phone", func(c *ContactInfo) { c.Phone = "" }, "Please enter phone number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlow()
			contact := validContact()
			tt.mutate(&contact)
			flow.SetContactInfo(contact)

			err := flow.Next()
			var validation *errors.ErrValidation
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.message, validation.Message)
			assert.Equal(t, domain.StepContactInfo, flow.Step())
		})
	}
}

func TestNext_ValidatesShippingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ShippingAddress)
		message string
	}{
		{"missing address", func(s *ShippingAddress) { s.Address = "" }, "Please enter shipping address."},
		{"missing city", func(s *ShippingAddress) { s.City = " " }, "Please enter shipping city."},
		{"missing postal code", func(s *ShippingAddress) { s.PostalCode = "" }, "Please enter postal code."},
		{"missing country", func(s *ShippingAddress) { s.Country = "" }, "Please select country."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlow()
			flow.SetContactInfo(validContact())
			require.NoError(t, flow.Next())

			shipping := validShipping()
			tt.mutate(&shipping)
			flow.SetShippingAddress(shipping)

			err := flow.Next()
			var validation *errors.ErrValidation
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.message, validation.Message)
			assert.Equal(t, domain.StepShippingAddress, flow.Step())
		})
	}
}

func TestNext_WalksForward(t *testing.T) {
	flow := NewFlow()
	flow.SetContactInfo(validContact())
	require.NoError(t, flow.Next())
	assert.Equal(t, domain.StepShippingAddress, flow.Step())

	flow.SetShippingAddress(validShipping())
	require.NoError(t, flow.Next())
	assert.Equal(t, domain.StepPaymentMethod, flow.Step())

	// There is no forward transition out of the payment step except
	// submission.
	err := flow.Next()
	var transition *errors.ErrInvalidStateTransition
	assert.ErrorAs(t, err, &transition)
}

func TestBack_AlwaysAllowedUntilSubmitted(t *testing.T) {
	flow := NewFlow()
	flow.SetContactInfo(validContact())
	require.NoError(t, flow.Next())
	flow.SetShippingAddress(validShipping())
	require.NoError(t, flow.Next())

	require.NoError(t, flow.Back())
	assert.Equal(t, domain.StepShippingAddress, flow.Step())
	require.NoError(t, flow.Back())
	assert.Equal(t, domain.StepContactInfo, flow.Step())

	err := flow.Back()
	var transition *errors.ErrInvalidStateTransition
	assert.ErrorAs(t, err, &transition)
}

func TestSignedInEmail_OverridesTypedEmail(t *testing.T) {
	flow := NewFlow()
	contact := validContact()
	contact.Email = "typed@example.com"
	flow.SetContactInfo(contact)
	flow.SetSignedInEmail("account@example.com")

	assert.Equal(t, "account@example.com", flow.Email())

	// The locked email also satisfies contact validation even when the
	// typed one is unusable.
	contact.Email = ""
	flow.SetContactInfo(contact)
	require.NoError(t, flow.Next())
}

func TestSetPaymentMethod_RejectsUnknownMethod(t *testing.T) {
	flow := NewFlow()

	err := flow.SetPaymentMethod(domain.PaymentMethod("paypal"))
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, domain.PaymentMBWay, flow.PaymentMethod())

	require.NoError(t, flow.SetPaymentMethod(domain.PaymentKlarna))
	assert.Equal(t, domain.PaymentKlarna, flow.PaymentMethod())
}

func TestMarkSubmitted_OnlyFromPaymentStep(t *testing.T) {
	flow := NewFlow()

	err := flow.markSubmitted()
	var transition *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transition)

	flow.SetContactInfo(validContact())
	require.NoError(t, flow.Next())
	flow.SetShippingAddress(validShipping())
	require.NoError(t, flow.Next())

	require.NoError(t, flow.markSubmitted())
	assert.Equal(t, domain.StepSubmitted, flow.Step())

	// Submitted is terminal.
	assert.Error(t, flow.Back())
	assert.Error(t, flow.markSubmitted())
}
