package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "charter/pkg/domain"
	"charter/pkg/requestcontext"
)

// ActorClaims are the JWT claims the identity provider asserts per request:
// the caller's account, role and region scope.
type ActorClaims struct {
	Role     string `json:"role"`
	RegionID string `json:"region_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator validates a bearer token into an actor identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (requestcontext.ActorIdentity, error)
}

// JWTValidator validates HMAC-signed tokens issued by the identity provider.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (requestcontext.ActorIdentity, error) {
	var claims ActorClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return requestcontext.ActorIdentity{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return requestcontext.ActorIdentity{}, fmt.Errorf("invalid token")
	}

	accountID, err := id.ParseAccountID(claims.Subject)
	if err != nil {
		return requestcontext.ActorIdentity{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	role, ok := id.ParseRole(claims.Role)
	if !ok {
		return requestcontext.ActorIdentity{}, fmt.Errorf("unknown role claim %q", claims.Role)
	}
	actor := requestcontext.ActorIdentity{AccountID: accountID, Role: role}
	if claims.RegionID != "" {
		regionID, err := id.ParseRegionID(claims.RegionID)
		if err != nil {
			return requestcontext.ActorIdentity{}, fmt.Errorf("invalid region claim: %w", err)
		}
		actor.RegionID = regionID
	}
	return actor, nil
}

// RequireAuth rejects requests without a valid bearer token and places the
// actor identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			actor, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}
