package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunoshop/storefront/internal/domain"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "Enter a coupon code", (&ErrValidation{Message: "Enter a coupon code"}).Error())
	assert.Equal(t, "cart is empty", (&ErrEmptyCart{}).Error())
	assert.Equal(t, "product not found: p1", (&ErrNotFound{Resource: "product", ID: "p1"}).Error())
	assert.Equal(t,
		"invalid transition from SUBMITTED to SUBMITTED",
		(&ErrInvalidStateTransition{From: domain.StepSubmitted, To: domain.StepSubmitted}).Error(),
	)
}

func TestErrorsUnwrapThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading cart: %w", &ErrEmptyCart{})

	var emptyCart *ErrEmptyCart
	require.True(t, stderrors.As(wrapped, &emptyCart))
}
