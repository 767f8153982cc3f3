package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// routeSlot is filled once routing has happened, so middleware that wrapped
// the router can still label a request by its pattern.
type routeSlot struct {
	pattern string
}

// WithRoutePattern returns ctx carrying pattern as the request's route.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, &routeSlot{pattern: pattern})
}

// RoutePatternFromContext reports the route recorded for the request, if any.
func RoutePatternFromContext(ctx context.Context) string {
	if slot, ok := ctx.Value(routeKey{}).(*routeSlot); ok {
		return slot.pattern
	}
	return ""
}

// RoutePatternMiddleware records the chi pattern that served the request.
// The pattern is only known after the handler chain has run.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot := &routeSlot{}
		ctx := context.WithValue(r.Context(), routeKey{}, slot)
		defer func() {
			if rc := chi.RouteContext(ctx); rc != nil && slot.pattern == "" {
				slot.pattern = rc.RoutePattern()
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
