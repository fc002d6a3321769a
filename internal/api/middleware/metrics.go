package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/ayo6706/custodial-ledger/internal/access"
	"github.com/ayo6706/custodial-ledger/internal/observability"
	"github.com/go-chi/chi/v5"
)

// operationSlot carries the route's ledger operation from Authorize back out
// to MetricsMiddleware.
type operationSlot struct {
	op access.Operation
}

// MetricsMiddleware records request durations labelled with the route
// pattern and the ledger operation it dispatched to.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		slot := &operationSlot{}

		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), operationContextKey, slot)))

		observability.ObserveHTTP(r.Method, routePattern(r), string(slot.op), rw.status, time.Since(start))
	})
}

// OperationFromContext returns the ledger operation recorded for the request.
func OperationFromContext(ctx context.Context) access.Operation {
	if slot, ok := ctx.Value(operationContextKey).(*operationSlot); ok {
		return slot.op
	}
	return ""
}

func recordOperation(ctx context.Context, op access.Operation) {
	if slot, ok := ctx.Value(operationContextKey).(*operationSlot); ok {
		slot.op = op
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
