package errors

import (
	"fmt"

	"github.com/brunoshop/storefront/internal/domain"
)

// ErrValidation is a local validation failure; no remote call was made and no
// state was mutated.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrEmptyCart is returned when an operation requires at least one cart item
type ErrEmptyCart struct{}

func (e *ErrEmptyCart) Error() string {
	return "cart is empty"
}

// ErrNotFound is returned when a referenced resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInvalidStateTransition is returned on a disallowed checkout step change
type ErrInvalidStateTransition struct {
	From domain.CheckoutStep
	To   domain.CheckoutStep
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
