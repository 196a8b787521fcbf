package middleware

import (
	"context"
	"net/http"

	"github.com/amogham/storefront/internal/cart"
	"github.com/google/uuid"
)

// SessionCookie names the shopper session cookie.
const SessionCookie = "sid"

const (
	sessionKey contextKey = "session"
	cartKey    contextKey = "cart"
)

// CartSessions resolves the cart of a shopper session.
type CartSessions interface {
	For(ctx context.Context, sessionID string) *cart.Store
}

// Shopper identifies the browser by its sid cookie, issuing a fresh one when
// missing or malformed, and attaches that session's cart to the request.
func Shopper(carts CartSessions, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionKey, sid)
			ctx = context.WithValue(ctx, cartKey, carts.For(ctx, sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey).(string)
	return sid
}

func CartFromContext(ctx context.Context) *cart.Store {
	st, _ := ctx.Value(cartKey).(*cart.Store)
	return st
}
