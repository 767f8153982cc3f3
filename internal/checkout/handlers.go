package checkout

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/common"
)

// Handler serves the checkout endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type priceResponse struct {
	Price json.Number `json:"price"`
}

type purchaseResponse struct {
	Message   string      `json:"message"`
	Price     json.Number `json:"price"`
	Reference string      `json:"reference"`
}

// CalculatePrice handles POST /calculate-price.
func (h *Handler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var in QuoteInput
	if !h.decode(w, r, &in) {
		return
	}
	price, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, priceResponse{Price: priceNumber(price)})
}

// Purchase handles POST /purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var in PurchaseInput
	if !h.decode(w, r, &in) {
		return
	}
	ref := purchaseReference(r)
	zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("reference", ref)
	})
	res, err := h.Svc.Purchase(r.Context(), ref, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, purchaseResponse{
		Message:   "Purchase successful.",
		Price:     priceNumber(res.Price),
		Reference: res.Reference,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	v := h.Validate
	if v == nil {
		v = defaultValidator
	}
	if err := v.Struct(dst); err != nil {
		details := validationDetails(err)
		if details == nil {
			h.writeError(w, r, err)
			return false
		}
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "validation failed", details)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := common.AsAppError(err); !ok {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout_internal_error")
	}
	common.WriteError(w, err)
}

var defaultValidator = NewValidator()

// purchaseReference derives a stable reference from the Idempotency-Key so a
// retried purchase reuses the processor side idempotency key as well.
func purchaseReference(r *http.Request) string {
	if key := r.Header.Get(common.IdempotencyHeader); key != "" {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte("purchase:"+key)).String()
	}
	return uuid.NewString()
}

func priceNumber(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
