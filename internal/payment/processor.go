package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Processor identifies one of the supported payment backends.
type Processor int

const (
	// PayPal routes payments through PayPal.
	PayPal Processor = iota + 1
	// Stripe routes payments through Stripe.
	Stripe
)

// String returns the wire name of the processor.
func (p Processor) String() string {
	switch p {
	case PayPal:
		return "paypal"
	case Stripe:
		return "stripe"
	default:
		return "unknown"
	}
}

// ParseProcessor maps a processor name to its Processor. Matching is exact.
func ParseProcessor(name string) (Processor, error) {
	switch name {
	case "paypal":
		return PayPal, nil
	case "stripe":
		return Stripe, nil
	default:
		return 0, ErrUnsupportedProcessor
	}
}

// PaypalProcessor charges an amount expressed in minor currency units.
type PaypalProcessor interface {
	Pay(ctx context.Context, minorUnits int64) error
}

// StripeProcessor charges an amount expressed in minor currency units.
type StripeProcessor interface {
	ProcessPayment(ctx context.Context, minorUnits int64) error
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a decimal amount to the smallest currency unit,
// rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FormatMinorUnits renders minor units back as a two-digit decimal string.
func FormatMinorUnits(minorUnits int64) string {
	return decimal.New(minorUnits, -2).StringFixed(2)
}

type referenceKey struct{}

// WithReference attaches a purchase reference used by processors as an
// idempotency key.
func WithReference(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, referenceKey{}, ref)
}

// ReferenceFromContext returns the purchase reference, if any.
func ReferenceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(referenceKey{}).(string); ok {
		return v
	}
	return ""
}
