package common_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/common"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	appErr := common.NewAppError("INVALID_COUPON", "invalid coupon code", http.StatusBadRequest, errors.New("x"))
	rr := httptest.NewRecorder()
	common.WriteError(rr, fmt.Errorf("calculate: %w", appErr))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body common.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "INVALID_COUPON", body.Error.Code)
	require.Equal(t, "invalid coupon code", body.Error.Message)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: password authentication failed"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "password")
}

func TestAppErrorDetailsCopy(t *testing.T) {
	base := common.NewAppError("VALIDATION_FAILED", "invalid", http.StatusUnprocessableEntity, nil)
	withDetails := base.WithDetails(map[string]string{"taxNumber": "invalid"})
	require.Nil(t, base.Details)
	require.NotNil(t, withDetails.Details)
	require.Equal(t, "invalid", withDetails.Error())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	require.Equal(t, "10.0.0.1", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	require.Equal(t, "203.0.113.9", common.ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	require.Equal(t, "198.51.100.7", common.ClientIP(req))
}
