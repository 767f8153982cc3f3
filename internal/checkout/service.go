// Package checkout exposes price calculation and purchase over HTTP.
package checkout

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/payment"
	"github.com/noah-isme/toko-checkout/internal/pricing"
)

// PriceCalculator computes a final price.
type PriceCalculator interface {
	Calculate(ctx context.Context, productID int64, taxNumber, couponCode string) (decimal.Decimal, error)
}

// PaymentDispatcher charges an amount through a named processor.
type PaymentDispatcher interface {
	Pay(ctx context.Context, amount decimal.Decimal, processorName string) error
}

// QuoteInput is the price calculation request.
type QuoteInput struct {
	Product    int64  `json:"product" validate:"required,gt=0"`
	TaxNumber  string `json:"taxNumber" validate:"required,taxnumber"`
	CouponCode string `json:"couponCode"`
}

// PurchaseInput is the purchase request.
type PurchaseInput struct {
	QuoteInput
	PaymentProcessor string `json:"paymentProcessor" validate:"required,oneof=paypal stripe"`
}

// PurchaseResult describes a completed purchase.
type PurchaseResult struct {
	Price     decimal.Decimal
	Reference string
}

// Service runs the checkout flow. It is stateless; concurrent calls share
// nothing but the collaborators.
type Service struct {
	Prices   PriceCalculator
	Payments PaymentDispatcher
}

// Quote returns the final price for in.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (decimal.Decimal, error) {
	if s == nil || s.Prices == nil {
		return decimal.Decimal{}, errors.New("checkout service not configured")
	}
	price, err := s.Prices.Calculate(ctx, in.Product, in.TaxNumber, in.CouponCode)
	if err != nil {
		return decimal.Decimal{}, mapError(err)
	}
	return price, nil
}

// Purchase calculates the price and charges it once through the requested
// processor. No payment is attempted when the price cannot be calculated.
func (s *Service) Purchase(ctx context.Context, reference string, in PurchaseInput) (PurchaseResult, error) {
	if s == nil || s.Payments == nil {
		return PurchaseResult{}, errors.New("checkout service not configured")
	}
	price, err := s.Quote(ctx, in.QuoteInput)
	if err != nil {
		return PurchaseResult{}, err
	}
	logger := zerolog.Ctx(ctx)
	if err := s.Payments.Pay(payment.WithReference(ctx, reference), price, in.PaymentProcessor); err != nil {
		logger.Warn().Err(err).
			Str("processor", in.PaymentProcessor).
			Str("price", price.StringFixed(2)).
			Msg("purchase_payment_failed")
		return PurchaseResult{}, mapError(err)
	}
	logger.Info().
		Str("processor", in.PaymentProcessor).
		Str("price", price.StringFixed(2)).
		Msg("purchase_completed")
	return PurchaseResult{Price: price, Reference: reference}, nil
}

// mapError attaches API codes to domain errors. Unknown errors pass through
// and end up as 500s.
func mapError(err error) error {
	switch {
	case errors.Is(err, pricing.ErrProductNotFound):
		return common.NewAppError("PRODUCT_NOT_FOUND", "Product not found", http.StatusNotFound, err)
	case errors.Is(err, pricing.ErrInvalidCoupon):
		return common.NewAppError("INVALID_COUPON", "Invalid coupon code", http.StatusBadRequest, err)
	case errors.Is(err, pricing.ErrTaxRateNotConfigured):
		return common.NewAppError("TAX_RATE_NOT_CONFIGURED", "Tax rate for this country is not configured", http.StatusBadRequest, err)
	case errors.Is(err, payment.ErrUnsupportedProcessor):
		return common.NewAppError("UNSUPPORTED_PROCESSOR", "Unsupported payment processor", http.StatusBadRequest, err)
	case errors.Is(err, payment.ErrPaymentFailed):
		return common.NewAppError("PAYMENT_FAILED", err.Error(), http.StatusPaymentRequired, err)
	default:
		return err
	}
}
