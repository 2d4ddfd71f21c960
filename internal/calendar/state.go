package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"contentflow/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stateIssuer = "contentflow-google-oauth"
	// StateTTL bounds how long a consent round-trip may take.
	StateTTL = 10 * time.Minute
)

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrStateReused  = errors.New("oauth state already used")
)

// StateSigner issues and checks the OAuth state parameter. The state is a
// short-lived HS256 token naming the user, so the unauthenticated callback
// can trust it. With Redis each state is accepted once.
type StateSigner struct {
	secret []byte
	rdb    *redis.Client
	now    func() time.Time
}

// NewStateSigner returns a signer keyed by secret. rdb may be nil.
func NewStateSigner(secret string, rdb *redis.Client) *StateSigner {
	return &StateSigner{secret: []byte(secret), rdb: rdb, now: time.Now}
}

// Sign returns a state value for userID.
func (s *StateSigner) Sign(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    stateIssuer,
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

// Verify returns the user id carried by state.
func (s *StateSigner) Verify(ctx context.Context, state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return "", ErrInvalidState
	}

	if s.rdb != nil {
		ttl := claims.ExpiresAt.Time.Sub(s.now())
		if ttl <= 0 {
			ttl = time.Second
		}
		fresh, err := s.rdb.SetNX(ctx, "oauth_state:"+claims.ID, claims.Subject, ttl).Result()
		switch {
		case err != nil:
			middleware.Logger.WarnContext(ctx, "oauth state replay check skipped", slog.String("error", err.Error()))
		case !fresh:
			return "", ErrStateReused
		}
	}

	return claims.Subject, nil
}
