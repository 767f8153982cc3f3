package common_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/common"
)

func newIdem(t *testing.T) (common.Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}, mr
}

func purchase(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/purchase", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(common.IdempotencyHeader, key)
	}
	return req
}

func TestIdemReplaysStoredResponse(t *testing.T) {
	idem, _ := newIdem(t)
	var calls int32
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		common.JSON(w, http.StatusOK, map[string]any{"call": n})
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, purchase("abc"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, purchase("abc"))

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestIdemRejectsInFlightDuplicate(t *testing.T) {
	idem, _ := newIdem(t)
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an in-flight key")
	}))

	// the outer request holds the key while the duplicate arrives
	holder := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, purchase("busy"))
		require.Equal(t, http.StatusConflict, rr.Code)
		require.Contains(t, rr.Body.String(), "IDEMPOTENT_IN_PROGRESS")
		w.WriteHeader(http.StatusOK)
	}))
	holder.ServeHTTP(httptest.NewRecorder(), purchase("busy"))
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem, _ := newIdem(t)
	var calls int32
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, purchase("retry"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, purchase("retry"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestIdemPassThrough(t *testing.T) {
	idem, mr := newIdem(t)
	var calls int32
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), purchase(""))
	handler.ServeHTTP(httptest.NewRecorder(), purchase(""))
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
	require.Empty(t, mr.Keys())

	noRedis := common.Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	noRedis.ServeHTTP(httptest.NewRecorder(), purchase("k"))
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestIdemStoreUnavailable(t *testing.T) {
	idem, mr := newIdem(t)
	mr.Close()
	handler := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without the store")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, purchase("k"))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
