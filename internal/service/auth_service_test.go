package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteVerifier_Verify(t *testing.T) {
	t.Run("Should return the identity for a valid token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/current", r.URL.Path)
			assert.Equal(t, "Bearer good", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"1","name":"Ann","email":"ann@x.com","enabled":true}`))
		}))
		defer srv.Close()

		id, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "ann@x.com", id.Email)
		assert.Equal(t, "Ann", id.Name)
	})

	t.Run("Should fall back to login when email is empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login":"bob@x.com","enabled":true}`))
		}))
		defer srv.Close()

		id, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "bob@x.com", id.Email)
	})

	t.Run("Should reject a token the service refuses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "bad")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject a disabled user", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"email":"c@x.com","enabled":false}`))
		}))
		defer srv.Close()

		_, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "good")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should retry and report server errors as upstream problems", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewRemoteVerifier(srv.URL).Verify(context.Background(), "good")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
		assert.Equal(t, int32(3), calls.Load())
	})
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestJWTVerifier_Verify(t *testing.T) {
	const secret = "test-secret"
	v := NewJWTVerifier(secret, "parcel-api")
	ctx := context.Background()
	future := time.Now().Add(time.Hour).Unix()

	t.Run("Should accept a valid token", func(t *testing.T) {
		tok := signHS256(t, secret, jwt.MapClaims{"email": "a@x.com", "name": "A", "exp": future, "aud": "parcel-api"})
		id, err := v.Verify(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", id.Email)
		assert.Equal(t, "A", id.Name)
	})

	t.Run("Should reject an expired token", func(t *testing.T) {
		tok := signHS256(t, secret, jwt.MapClaims{"email": "a@x.com", "exp": time.Now().Add(-time.Hour).Unix(), "aud": "parcel-api"})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject a token without expiry", func(t *testing.T) {
		tok := signHS256(t, secret, jwt.MapClaims{"email": "a@x.com", "aud": "parcel-api"})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject the wrong signature", func(t *testing.T) {
		tok := signHS256(t, "other", jwt.MapClaims{"email": "a@x.com", "exp": future, "aud": "parcel-api"})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject the wrong audience", func(t *testing.T) {
		tok := signHS256(t, secret, jwt.MapClaims{"email": "a@x.com", "exp": future, "aud": "elsewhere"})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should require an email claim", func(t *testing.T) {
		tok := signHS256(t, secret, jwt.MapClaims{"exp": future, "aud": "parcel-api"})
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should fail closed without a secret", func(t *testing.T) {
		_, err := NewJWTVerifier("", "").Verify(ctx, "x.y.z")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})
}
