// Package authz validates the bearer token on inbound requests and exposes the
// acting user to handlers. Token issuance lives elsewhere; this service only
// verifies HS256 tokens signed with the shared secret and trusts the identity
// and role claims they carry.
package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"casetrack/internal/domain"
	obsmw "casetrack/internal/observability/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Actor is the authenticated caller: who they are and which role the token
// granted them.
type Actor struct {
	ID   domain.UserID
	Role domain.Role
}

type ctxKey string

const ctxKeyActor ctxKey = "actor"

func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	return a, ok
}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

type Validator struct {
	secret []byte
	issuer string
}

func NewValidator(secret, issuer string) *Validator {
	return &Validator{secret: []byte(secret), issuer: issuer}
}

func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := obsmw.RequestIDFromContext(r.Context())
		raw := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			slog.Warn("auth missing bearer", "request_id", reqID)
			return
		}
		tokStr := strings.TrimSpace(raw[len("Bearer "):])

		actor, err := v.Parse(tokStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			slog.Warn("auth invalid token", "error", err, "request_id", reqID)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// Parse verifies the token and extracts the actor from the sub and role claims.
func (v *Validator) Parse(tokStr string) (Actor, error) {
	token, err := jwt.Parse(tokStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", token.Method)
		}
		return v.secret, nil
	})
	if err != nil {
		return Actor{}, err
	}
	if !token.Valid {
		return Actor{}, fmt.Errorf("token invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}
	if v.issuer != "" {
		iss, _ := claims["iss"].(string)
		if iss != v.issuer {
			return Actor{}, fmt.Errorf("issuer mismatch: %q", iss)
		}
	}

	sub, _ := claims["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid subject: %w", err)
	}

	roleStr, _ := claims["role"].(string)
	role := domain.Role(roleStr)
	if !role.Valid() {
		return Actor{}, fmt.Errorf("invalid role claim: %q", roleStr)
	}

	return Actor{ID: id, Role: role}, nil
}
