// internal/auth/middleware.go
//
// HTTP middleware for seat tokens. RequireSeat answers 401 for a missing or
// invalid bearer token and stores the claims for Seat to read.

package auth

import (
	"context"
	"net/http"
)

type contextKey string

var seatCtxKey = contextKey("seat")

// RequireSeat rejects requests without a valid bearer seat token and stores
// the claims in the request context.
func RequireSeat(iss *Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := Bearer(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			c, err := iss.Parse(tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), seatCtxKey, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Seat returns the claims stored by RequireSeat.
func Seat(ctx context.Context) (SeatClaims, bool) {
	c, ok := ctx.Value(seatCtxKey).(SeatClaims)
	return c, ok
}
