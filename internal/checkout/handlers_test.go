package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/checkout"
	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/payment"
	"github.com/noah-isme/toko-checkout/internal/pricing"
	"github.com/noah-isme/toko-checkout/internal/repo"
)

type processorStub struct {
	calls     int
	amounts   []int64
	reference string
	err       error
}

func (p *processorStub) Pay(ctx context.Context, minorUnits int64) error {
	return p.record(ctx, minorUnits)
}

func (p *processorStub) ProcessPayment(ctx context.Context, minorUnits int64) error {
	return p.record(ctx, minorUnits)
}

func (p *processorStub) record(ctx context.Context, minorUnits int64) error {
	p.calls++
	p.amounts = append(p.amounts, minorUnits)
	p.reference = payment.ReferenceFromContext(ctx)
	return p.err
}

type fixture struct {
	handler *checkout.Handler
	paypal  *processorStub
	stripe  *processorStub
}

func newFixture() fixture {
	store := repo.NewMemoryWithFixtures(repo.DefaultFixtures())
	pp, st := &processorStub{}, &processorStub{}
	svc := &checkout.Service{
		Prices:   &pricing.Calculator{Products: store, Coupons: store, Taxes: store},
		Payments: &payment.Dispatcher{PayPal: pp, Stripe: st},
	}
	return fixture{
		handler: &checkout.Handler{Svc: svc, Validate: checkout.NewValidator()},
		paypal:  pp,
		stripe:  st,
	}
}

func post(h http.HandlerFunc, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body common.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestCalculatePrice(t *testing.T) {
	f := newFixture()
	cases := []struct {
		body string
		want string
	}{
		{`{"product":1,"taxNumber":"DE123456789"}`, `{"price":119.00}`},
		{`{"product":1,"taxNumber":"IT12345678900","couponCode":"D15"}`, `{"price":103.70}`},
		{`{"product":1,"taxNumber":"GR123456789","couponCode":"P6"}`, `{"price":116.56}`},
		{`{"product":3,"taxNumber":"FRAB123456789","couponCode":"F10"}`, `{"price":0.00}`},
	}
	for _, tc := range cases {
		rr := post(f.handler.CalculatePrice, tc.body)
		require.Equal(t, http.StatusOK, rr.Code, tc.body)
		require.JSONEq(t, tc.want, rr.Body.String(), tc.body)
		require.Equal(t, strings.TrimSpace(tc.want), strings.TrimSpace(rr.Body.String()), "price keeps two decimals")
	}
	require.Zero(t, f.paypal.calls+f.stripe.calls, "calculating never pays")
}

func TestCalculatePriceValidation(t *testing.T) {
	f := newFixture()

	rr := post(f.handler.CalculatePrice, `{"product":0,"taxNumber":"DE12345"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "VALIDATION_FAILED", body.Code)
	details, ok := body.Details.(map[string]any)
	require.True(t, ok)
	require.Contains(t, details, "product")
	require.Equal(t, "Invalid tax number format.", details["taxNumber"])

	rr = post(f.handler.CalculatePrice, `{"product":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "BAD_REQUEST", decodeError(t, rr).Code)

	rr = post(f.handler.CalculatePrice, `{"product":"one","taxNumber":"DE123456789"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalculatePriceDomainErrors(t *testing.T) {
	f := newFixture()
	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"product":42,"taxNumber":"DE123456789"}`, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{`{"product":1,"taxNumber":"DE123456789","couponCode":"NOPE"}`, http.StatusBadRequest, "INVALID_COUPON"},
	}
	for _, tc := range cases {
		rr := post(f.handler.CalculatePrice, tc.body)
		require.Equal(t, tc.status, rr.Code, tc.body)
		require.Equal(t, tc.code, decodeError(t, rr).Code, tc.body)
	}
}

func TestCalculatePriceTaxNotConfigured(t *testing.T) {
	store := repo.NewMemoryWithFixtures(repo.Fixtures{Products: repo.DefaultFixtures().Products})
	svc := &checkout.Service{Prices: &pricing.Calculator{Products: store, Coupons: store, Taxes: store}}
	h := &checkout.Handler{Svc: svc}

	rr := post(h.CalculatePrice, `{"product":1,"taxNumber":"DE123456789"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "TAX_RATE_NOT_CONFIGURED", decodeError(t, rr).Code)
}

func TestPurchaseSuccess(t *testing.T) {
	f := newFixture()

	rr := post(f.handler.Purchase, `{"product":1,"taxNumber":"IT12345678900","couponCode":"D15","paymentProcessor":"paypal"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Message   string          `json:"message"`
		Price     decimal.Decimal `json:"price"`
		Reference string          `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Purchase successful.", body.Message)
	require.Equal(t, "103.7", body.Price.String())
	_, err := uuid.Parse(body.Reference)
	require.NoError(t, err)

	require.Equal(t, []int64{10370}, f.paypal.amounts)
	require.Equal(t, body.Reference, f.paypal.reference)
	require.Zero(t, f.stripe.calls)
}

func TestPurchaseReferenceFollowsIdempotencyKey(t *testing.T) {
	f := newFixture()
	payload := `{"product":2,"taxNumber":"DE123456789","paymentProcessor":"stripe"}`

	post(f.handler.Purchase, payload, common.IdempotencyHeader, "order-77")
	post(f.handler.Purchase, payload, common.IdempotencyHeader, "order-77")
	post(f.handler.Purchase, payload)

	require.Equal(t, 3, f.stripe.calls)
	require.Equal(t, []int64{2380, 2380, 2380}, f.stripe.amounts)
}

func TestPurchaseValidationRejectsProcessor(t *testing.T) {
	f := newFixture()
	rr := post(f.handler.Purchase, `{"product":1,"taxNumber":"DE123456789","paymentProcessor":"crypto"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	details := decodeError(t, rr).Details.(map[string]any)
	require.Contains(t, details, "paymentProcessor")
	require.Zero(t, f.paypal.calls+f.stripe.calls)
}

func TestPurchasePaymentFailure(t *testing.T) {
	f := newFixture()
	f.stripe.err = errors.New("Gateway down")

	rr := post(f.handler.Purchase, `{"product":1,"taxNumber":"FRAB123456789","paymentProcessor":"stripe"}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "PAYMENT_FAILED", body.Code)
	require.Equal(t, "Payment failed: Gateway down", body.Message)
}

func TestPurchaseSkipsPaymentWhenPriceFails(t *testing.T) {
	f := newFixture()
	rr := post(f.handler.Purchase, `{"product":9,"taxNumber":"DE123456789","paymentProcessor":"paypal"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Zero(t, f.paypal.calls)
}

func TestPurchaseSandboxDecline(t *testing.T) {
	store := repo.NewMemoryWithFixtures(repo.DefaultFixtures())
	svc := &checkout.Service{
		Prices:   &pricing.Calculator{Products: store, Coupons: store, Taxes: store},
		Payments: &payment.Dispatcher{PayPal: payment.SandboxPayPal{MaxMinorUnits: 5000}, Stripe: payment.SandboxStripe{}},
	}
	h := &checkout.Handler{Svc: svc}

	rr := post(h.Purchase, `{"product":1,"taxNumber":"DE123456789","paymentProcessor":"paypal"}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	require.Equal(t, "Payment failed: Too high price", decodeError(t, rr).Message)
}

func TestServiceMapsUnsupportedProcessor(t *testing.T) {
	store := repo.NewMemoryWithFixtures(repo.DefaultFixtures())
	svc := &checkout.Service{
		Prices:   &pricing.Calculator{Products: store, Coupons: store, Taxes: store},
		Payments: &payment.Dispatcher{},
	}
	in := checkout.PurchaseInput{
		QuoteInput:       checkout.QuoteInput{Product: 1, TaxNumber: "DE123456789"},
		PaymentProcessor: "bitcoin",
	}
	_, err := svc.Purchase(context.Background(), "ref", in)
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "UNSUPPORTED_PROCESSOR", appErr.Code)
	require.ErrorIs(t, err, payment.ErrUnsupportedProcessor)
}

func TestHandlerWithoutService(t *testing.T) {
	h := &checkout.Handler{}
	rr := post(h.CalculatePrice, `{}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
