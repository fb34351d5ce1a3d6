package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "charter/pkg/domain"
	"charter/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, claims ActorClaims, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestJWTValidator(t *testing.T) {
	validator := NewJWTValidator(testSigningKey)
	accountID := id.NewAccountID()
	regionID := id.NewRegionID()

	t.Run("valid token yields the actor", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role:     "regional_admin",
			RegionID: regionID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSigningKey)

		actor, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, accountID, actor.AccountID)
		assert.Equal(t, id.RoleRegionalAdmin, actor.Role)
		assert.Equal(t, regionID, actor.RegionID)
	})

	t.Run("global roles need no region claim", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role: "finance_admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSigningKey)

		actor, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, actor.RegionID.IsNil())
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role:             "member",
			RegisteredClaims: jwt.RegisteredClaims{Subject: accountID.String()},
		}, "other-key")

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role: "member",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, testSigningKey)

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role: "emperor",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSigningKey)

		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	validator := NewJWTValidator(testSigningKey)
	logger := slog.New(slog.DiscardHandler)
	accountID := id.NewAccountID()

	var seen requestcontext.ActorIdentity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Actor(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(validator, logger)(next)

	t.Run("missing header is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/claims", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/claims", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token passes the actor downstream", func(t *testing.T) {
		token := signToken(t, ActorClaims{
			Role: "central_admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   accountID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSigningKey)
		req := httptest.NewRequest(http.MethodGet, "/claims", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, accountID, seen.AccountID)
		assert.Equal(t, id.RoleCentralAdmin, seen.Role)
	})
}
