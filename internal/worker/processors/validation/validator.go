package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"coursebridge/internal/logger"
	"coursebridge/internal/models"
)

var (
	ErrMissingOrderID = errors.New("order id is missing")
	ErrMissingEmail   = errors.New("order has no customer email")
	ErrNoLineItems    = errors.New("order has no line items")
)

type Validator struct {
	logger *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	return &Validator{
		logger: logger,
	}
}

// ValidateOrder checks what enrollment work needs from an order: an id, a
// usable customer email, and at least one line item.
func (v *Validator) ValidateOrder(order *models.Order) error {
	if order == nil || strings.TrimSpace(order.ID) == "" {
		return ErrMissingOrderID
	}

	email := order.CustomerEmail()
	if email == "" {
		return ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("order %s: invalid customer email %q: %w", order.ID, email, err)
	}

	if len(order.LineItems) == 0 {
		return ErrNoLineItems
	}

	v.logger.Debug("Order %s passed validation (%d line items)", order.ID, len(order.LineItems))
	return nil
}
