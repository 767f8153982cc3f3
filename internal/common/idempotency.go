package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// IdempotencyHeader carries the client supplied key.
const IdempotencyHeader = "Idempotency-Key"

const idemPending = "pending"

// Idem provides an Idempotency-Key middleware backed by Redis. The first
// request for a key runs the handler and stores its response; later requests
// with the same key replay the stored response. A duplicate arriving while
// the first is still running gets 409. Server errors release the key so the
// client may retry.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body"`
}

func (i Idem) key(r *http.Request, header string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + header))
	return "idem:" + hex.EncodeToString(sum[:])
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

// Middleware enforces idempotency semantics for write endpoints. Requests
// without the header, or with no Redis configured, pass straight through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := i.key(r, header)

		acquired, err := i.R.SetNX(ctx, key, idemPending, i.ttl()).Result()
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("idempotency_store_error")
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
			return
		}
		if !acquired {
			i.replay(ctx, w, key)
			return
		}

		rec := &responseCapture{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if !completed {
				// handler panicked; let the client retry
				_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
		completed = true

		storeCtx := context.WithoutCancel(ctx)
		if rec.status >= http.StatusInternalServerError {
			_ = i.R.Del(storeCtx, key).Err()
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status: rec.status,
			Header: http.Header{"Content-Type": w.Header().Values("Content-Type")},
			Body:   rec.body.Bytes(),
		})
		if err == nil {
			err = i.R.Set(storeCtx, key, payload, i.ttl()).Err()
		}
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency_store_failed")
		}
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key string) {
	raw, err := i.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || string(raw) == idemPending {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_IN_PROGRESS", "a request with this idempotency key is in progress", nil)
		return
	}
	if err != nil {
		JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store unavailable", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
		return
	}
	for k, values := range stored.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

type responseCapture struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.status = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.wroteHeader = true
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}
