package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/toko-checkout/internal/resilience"
)

const paypalSandboxURL = "https://api-m.sandbox.paypal.com"

// PayPalClient charges payments through the PayPal Orders API using
// client-credentials OAuth.
type PayPalClient struct {
	HTTP         resilience.HTTPClient
	BaseURL      string
	ClientID     string
	ClientSecret string
	Currency     string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paypalErrorResponse struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

const (
	paypalStatusCompleted = "COMPLETED"
	paypalStatusApproved  = "APPROVED"
)

// Pay implements PaypalProcessor. Only an order that reaches COMPLETED counts
// as paid; an APPROVED order is captured first.
func (c *PayPalClient) Pay(ctx context.Context, minorUnits int64) error {
	ref := ReferenceFromContext(ctx)
	payload, err := json.Marshal(paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: ref,
			Amount:      paypalAmount{CurrencyCode: c.currency(), Value: FormatMinorUnits(minorUnits)},
		}},
	})
	if err != nil {
		return err
	}
	order, err := c.postOrder(ctx, "/v2/checkout/orders", ref, payload)
	if err != nil {
		return err
	}
	if order.ID == "" {
		return errors.New("paypal returned an order without id")
	}
	if order.Status == paypalStatusApproved {
		captureRef := ""
		if ref != "" {
			captureRef = ref + "-capture"
		}
		order, err = c.postOrder(ctx, "/v2/checkout/orders/"+url.PathEscape(order.ID)+"/capture", captureRef, nil)
		if err != nil {
			return err
		}
	}
	if order.Status != paypalStatusCompleted {
		return fmt.Errorf("paypal order %s ended in status %s", order.ID, order.Status)
	}
	return nil
}

// postOrder sends an authenticated Orders API call. A 401 drops the cached
// token and the call is repeated once with a fresh one.
func (c *PayPalClient) postOrder(ctx context.Context, path, requestID string, payload []byte) (paypalOrderResponse, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return paypalOrderResponse{}, err
		}
		order, unauthorized, err := c.sendOrder(ctx, token, path, requestID, payload)
		if unauthorized {
			c.resetToken()
			if attempt == 0 {
				continue
			}
		}
		return order, err
	}
}

func (c *PayPalClient) sendOrder(ctx context.Context, token, path, requestID string, payload []byte) (paypalOrderResponse, bool, error) {
	var order paypalOrderResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return order, false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return order, false, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return order, resp.StatusCode == http.StatusUnauthorized, decodePayPalError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return order, false, fmt.Errorf("decode paypal order: %w", err)
	}
	return order, false, nil
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", decodePayPalError(resp)
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode paypal token: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("paypal returned an empty access token")
	}
	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute
	}
	c.token = body.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.token, nil
}

func (c *PayPalClient) resetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

func (c *PayPalClient) baseURL() string {
	host := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if host == "" {
		return paypalSandboxURL
	}
	return host
}

func (c *PayPalClient) currency() string {
	code := strings.ToUpper(strings.TrimSpace(c.Currency))
	if code == "" {
		return "EUR"
	}
	return code
}

func decodePayPalError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body paypalErrorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Message != "":
			return errors.New(body.Message)
		case body.ErrorDescription != "":
			return errors.New(body.ErrorDescription)
		}
	}
	return fmt.Errorf("paypal responded %s", resp.Status)
}
