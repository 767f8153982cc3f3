package payment

import (
	"context"
	"errors"
)

const (
	defaultSandboxPayPalMax = 100000
	defaultSandboxStripeMin = 100
)

// SandboxPayPal simulates PayPal without network access. Amounts above
// MaxMinorUnits are declined.
type SandboxPayPal struct {
	MaxMinorUnits int64
}

// Pay implements PaypalProcessor.
func (p SandboxPayPal) Pay(ctx context.Context, minorUnits int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	limit := p.MaxMinorUnits
	if limit <= 0 {
		limit = defaultSandboxPayPalMax
	}
	if minorUnits > limit {
		return errors.New("Too high price")
	}
	return nil
}

// SandboxStripe simulates Stripe without network access. Amounts below
// MinMinorUnits are declined.
type SandboxStripe struct {
	MinMinorUnits int64
}

// ProcessPayment implements StripeProcessor.
func (s SandboxStripe) ProcessPayment(ctx context.Context, minorUnits int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	limit := s.MinMinorUnits
	if limit <= 0 {
		limit = defaultSandboxStripeMin
	}
	if minorUnits < limit {
		return errors.New("Too low price")
	}
	return nil
}
