package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeClient charges payments by creating and confirming Stripe PaymentIntents.
type StripeClient struct {
	intents       intentCreator
	currency      string
	paymentMethod string
}

// NewStripeClient builds a client for the given secret key. paymentMethod is
// the saved payment method confirmed against each intent.
func NewStripeClient(secretKey, currency, paymentMethod string) *StripeClient {
	return newStripeClient(paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}, currency, paymentMethod)
}

func newStripeClient(intents intentCreator, currency, paymentMethod string) *StripeClient {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "eur"
	}
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentMethod == "" {
		paymentMethod = "pm_card_visa"
	}
	return &StripeClient{intents: intents, currency: currency, paymentMethod: paymentMethod}
}

// ProcessPayment implements StripeProcessor.
func (c *StripeClient) ProcessPayment(ctx context.Context, minorUnits int64) error {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(minorUnits),
		Currency:           stripe.String(c.currency),
		PaymentMethod:      stripe.String(c.paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if ref := ReferenceFromContext(ctx); ref != "" {
		params.SetIdempotencyKey(ref)
		params.AddMetadata("reference", ref)
	}

	intent, err := c.intents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && strings.TrimSpace(stripeErr.Msg) != "" {
			return errors.New(stripeErr.Msg)
		}
		return err
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return nil
	default:
		return fmt.Errorf("payment intent %s ended in status %s", intent.ID, intent.Status)
	}
}
