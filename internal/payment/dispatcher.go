// Package payment converts checkout prices to minor units and charges them
// through PayPal or Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-checkout/internal/obs"
)

var (
	// ErrUnsupportedProcessor is returned for processor names other than paypal and stripe.
	ErrUnsupportedProcessor = errors.New("unsupported payment processor")
	// ErrPaymentFailed matches every *FailedError.
	ErrPaymentFailed = errors.New("payment failed")
)

// FailedError wraps a processor-side failure.
type FailedError struct {
	Processor Processor
	Err       error
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	if e == nil || e.Err == nil {
		return "Payment failed"
	}
	return "Payment failed: " + e.Err.Error()
}

// Unwrap exposes the processor error for diagnostics.
func (e *FailedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports ErrPaymentFailed equivalence.
func (e *FailedError) Is(target error) bool {
	return target == ErrPaymentFailed
}

// Dispatcher routes a payment to the processor named by the caller. It keeps
// no state between calls and makes exactly one attempt.
type Dispatcher struct {
	PayPal PaypalProcessor
	Stripe StripeProcessor
}

// Pay charges amount through the named processor.
func (d *Dispatcher) Pay(ctx context.Context, amount decimal.Decimal, processorName string) error {
	if d == nil {
		return errors.New("payment dispatcher not configured")
	}
	processor, err := ParseProcessor(processorName)
	if err != nil {
		return err
	}
	minorUnits := MinorUnits(amount)

	ctx, span := otel.Tracer("payment.Dispatcher").Start(ctx, "Dispatcher.Pay")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.processor", processor.String()),
		attribute.Int64("payment.minor_units", minorUnits),
	)

	start := time.Now()
	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.result", result))
		if obs.PaymentTotal != nil {
			obs.PaymentTotal.WithLabelValues(processor.String(), result).Inc()
		}
		if obs.PaymentDuration != nil {
			obs.PaymentDuration.WithLabelValues(processor.String()).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	switch processor {
	case PayPal:
		if d.PayPal == nil {
			return fmt.Errorf("%s processor not configured", processor)
		}
		err = d.PayPal.Pay(ctx, minorUnits)
	case Stripe:
		if d.Stripe == nil {
			return fmt.Errorf("%s processor not configured", processor)
		}
		err = d.Stripe.ProcessPayment(ctx, minorUnits)
	default:
		return ErrUnsupportedProcessor
	}
	if err != nil {
		span.RecordError(err)
		result = "failed"
		return &FailedError{Processor: processor, Err: err}
	}
	result = "success"
	return nil
}
