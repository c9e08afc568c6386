package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/icberg-810202/tilecatread/internal/auth"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// authMiddleware verifies a Bearer token when present and stores its claims
// in the request context. Requests without a valid token continue
// unauthenticated; handlers decide whether that is acceptable.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// authorize checks that the caller may access username's document.
func authorize(ctx context.Context, username string) error {
	claims, ok := ctx.Value(claimsKey).(*auth.DocumentClaims)
	if !ok || claims == nil {
		return domainerrors.Unauthorized("missing or invalid access token")
	}
	if !claims.Allows(username) {
		return domainerrors.Forbiddenf("token is not valid for user %s", username)
	}
	return nil
}
