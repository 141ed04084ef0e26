// Package middleware provides HTTP middleware for extracting the
// authenticated account identity from requests.
//
// Token issuance belongs to the external identity provider; this package
// only verifies signatures and trusts the account ID claim, as the registry
// performs authorization checks, never authentication.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v4"
	"github.com/mkravets/slug-registry/pkg/response"
)

// ContextKey is a dedicated type for context keys to avoid collisions.
type ContextKey string

// AccountIDKey is the context key under which the authenticated account ID
// is stored.
const AccountIDKey ContextKey = "accountID"

// Claims is the expected JWT payload issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// AccountIDFromContext returns the authenticated account ID, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}

// WithAccount verifies a bearer token when one is present and injects the
// account ID from its claims into the request context. Requests without a
// token pass through anonymously; requests with an invalid token are
// rejected.
func WithAccount(secret []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims := new(Claims)
			_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || claims.AccountID == "" {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.UnauthorizedResponse)
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, claims.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount rejects requests that did not authenticate.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := AccountIDFromContext(r.Context()); !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.UnauthorizedResponse)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
