// Package auth resolves the acting user of a request. Authentication itself
// happens upstream; this package only reads the identity it produced.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrJamesThe3rd/conciliacao/internal/http/respond"
)

// ActorHeader carries the acting user when no bearer token is sent.
const ActorHeader = "X-Actor-ID"

type ctxKey struct{}

// ActorFrom returns the acting user stored by Actor, or "".
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(ctxKey{}).(string)
	return actor
}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// Actor reads the acting user from an HS256 bearer token's subject, or from
// ActorHeader when no token is present. A token that fails verification is
// rejected with 401. With an empty secret bearer tokens are not accepted.
func Actor(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(ActorHeader))

			if header := r.Header.Get("Authorization"); header != "" {
				sub, err := subject(header, secret)
				if err != nil {
					respond.Problem(w, http.StatusUnauthorized, "nao_autorizado", err.Error())
					return
				}

				actor = sub
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func subject(header, secret string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errors.New("invalid authorization header format")
	}

	if secret == "" {
		return "", errors.New("bearer tokens are not accepted")
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.New("invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}

	return sub, nil
}
