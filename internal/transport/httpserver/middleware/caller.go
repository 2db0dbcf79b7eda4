package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"lab-catalog-go/internal/domain/references"
	"lab-catalog-go/internal/domain/resolution"
	"lab-catalog-go/pkg/logger"
)

// MembershipSource loads the caller's references in membership order.
type MembershipSource interface {
	ListByUser(ctx context.Context, userID string) ([]references.Reference, error)
}

// CallerProvider derives the resolution.Caller for each request. Identity
// headers are trusted: authentication happens upstream, this service never
// verifies credentials.
type CallerProvider struct {
	memberships  MembershipSource
	publicPrices bool
	log          logger.Logger
}

type contextKey int

const callerKey contextKey = iota

func NewCallerProvider(memberships MembershipSource, publicPrices bool, log logger.Logger) *CallerProvider {
	return &CallerProvider{
		memberships:  memberships,
		publicPrices: publicPrices,
		log:          log,
	}
}

func (p *CallerProvider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := parseRole(r.Header.Get("X-User-Role"))
		if !ok {
			writeMiddlewareError(w, http.StatusBadRequest, "invalid_role", "unknown caller role")
			return
		}

		userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if role != resolution.RoleAnonymous && userID == "" {
			writeMiddlewareError(w, http.StatusUnauthorized, "missing_user", "user id required for this role")
			return
		}

		caller := resolution.Caller{
			Role:          role,
			UserID:        userID,
			CanViewPrices: role != resolution.RoleAnonymous || p.publicPrices,
		}

		if role == resolution.RoleMember {
			memberships, err := p.memberships.ListByUser(r.Context(), userID)
			if err != nil {
				// Fail closed: an unknown membership set must not widen
				// anything.
				p.log.InternalError("caller: load memberships failed", err, "user_id", userID)
				writeMiddlewareError(w, http.StatusInternalServerError, "internal_error", "internal error")
				return
			}
			caller.Memberships = memberships
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireAdmin gates the admin mutation surface.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		if !ok || caller.Role != resolution.RoleAdmin {
			writeMiddlewareError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithCaller(ctx context.Context, caller resolution.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func CallerFromContext(ctx context.Context) (resolution.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(resolution.Caller)
	return caller, ok
}

func parseRole(value string) (resolution.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(resolution.RoleAnonymous):
		return resolution.RoleAnonymous, true
	case string(resolution.RoleMember):
		return resolution.RoleMember, true
	case string(resolution.RoleAdmin):
		return resolution.RoleAdmin, true
	default:
		return "", false
	}
}

func writeMiddlewareError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}
