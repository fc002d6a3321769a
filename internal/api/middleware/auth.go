package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/custodial-ledger/internal/access"
	"github.com/ayo6706/custodial-ledger/internal/api/problem"
	"github.com/ayo6706/custodial-ledger/internal/auth"
	"github.com/ayo6706/custodial-ledger/internal/observability"
	"go.uber.org/zap"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	traceContextKey     contextKey = "trace_id"
	operationContextKey contextKey = "operation"
)

// PrincipalResolver turns a bearer credential into its holder.
type PrincipalResolver interface {
	Resolve(token string) (auth.Principal, error)
}

// Authenticate resolves the bearer credential, if any, into the request
// context. Requests without an Authorization header continue anonymously.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-format"), http.StatusText(http.StatusUnauthorized), "Invalid token format")
				return
			}
			if resolver == nil {
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("auth/misconfigured"), http.StatusText(http.StatusInternalServerError), "auth is not configured")
				return
			}

			principal, err := resolver.Resolve(tokenString)
			if err != nil {
				zap.L().Debug("credential rejected", zap.Error(err), zap.String("trace_id", TraceIDFromContext(r.Context())))
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token"), http.StatusText(http.StatusUnauthorized), "Invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize gates the route behind the access policy for op.
func Authorize(op access.Operation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recordOperation(r.Context(), op)
			var principal *auth.Principal
			if p, ok := PrincipalFromContext(r.Context()); ok {
				principal = &p
			}
			err := access.Authorize(principal, op)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, access.ErrUnauthenticated):
				observability.IncrementAccessDenied(string(op), "unauthenticated")
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/authorization-header-required"), http.StatusText(http.StatusUnauthorized), "Authorization header required")
			default:
				observability.IncrementAccessDenied(string(op), "forbidden")
				problem.Write(w, r, http.StatusForbidden, problem.Type("auth/insufficient-permissions"), http.StatusText(http.StatusForbidden), "insufficient permissions")
			}
		})
	}
}

// PrincipalFromContext returns the authenticated principal.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	if ctx == nil {
		return auth.Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey).(auth.Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated subject.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Subject
	}
	return ""
}

// TraceIDFromContext returns the trace id for the request.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceContextKey).(string); ok {
		return v
	}
	return ""
}
