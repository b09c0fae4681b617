package middleware

import (
	"context"
	"net/http"
	"strings"

	"party-service/pkg/response"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const ContextUserID contextKey = "userID"

func UserIDFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserID).(string)
	return val, ok
}

// Auth identifies the caller from a Bearer JWT and stores the user id on the
// request context. Authorization beyond identity (who may mutate which party)
// is the access-control layer's concern, not this service's.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			response.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}

		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			response.Error(w, http.StatusUnauthorized, "invalid token subject")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserID, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
