package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contentflow/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, claims jwt.RegisteredClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newAuthApp(cfg *config.Config, rdb *redis.Client) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(cfg, rdb), func(c *fiber.Ctx) error {
		uid, _ := UserID(c)
		ctxUID, _ := UserIDFromContext(c.UserContext())
		return c.JSON(fiber.Map{"userID": uid, "ctxUserID": ctxUID})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := newAuthApp(cfg, nil)

	valid := jwt.RegisteredClaims{
		Subject:   "user_2abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   "user_2abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	noSubject := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"happy path", "Bearer " + signToken(t, valid, testSecret), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, expired, testSecret), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, valid, "another-secret"), http.StatusUnauthorized},
		{"missing subject", "Bearer " + signToken(t, noSubject, testSecret), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "user_2abc", body["userID"])
				assert.Equal(t, "user_2abc", body["ctxUserID"])
			}
		})
	}
}

func TestAuthRequired_Issuer(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret, AuthIssuer: "https://clerk.example.com"}
	app := newAuthApp(cfg, nil)

	good := signToken(t, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "https://clerk.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)
	bad := signToken(t, jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "https://evil.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}, testSecret)

	for token, want := range map[string]int{good: http.StatusOK, bad: http.StatusUnauthorized} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
}

func TestRevokeSession(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{JWTSecret: testSecret}
	app := newAuthApp(cfg, rdb)

	claims := jwt.RegisteredClaims{
		ID:        "jti-1",
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := signToken(t, claims, testSecret)

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, call())
	require.NoError(t, RevokeSession(context.Background(), rdb, &claims))
	assert.True(t, mr.Exists("blacklist:jti-1"))
	assert.Equal(t, http.StatusUnauthorized, call())
}

func TestRevokeSession_Edges(t *testing.T) {
	err := RevokeSession(context.Background(), nil, &jwt.RegisteredClaims{ID: "x"})
	assert.ErrorIs(t, err, ErrNoRedis)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	assert.NoError(t, RevokeSession(context.Background(), rdb, &jwt.RegisteredClaims{Subject: "no-jti"}))
	assert.Empty(t, mr.Keys())
}
