package auth

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/config"
)

var (
	ErrInvalidToken  = errors.New("invalid_token")
	ErrMissingSecret = errors.New("missing_jwt_secret")
)

const (
	issuer     = "modelrail"
	defaultTTL = 24 * time.Hour
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a snowflake id.
func (c *Claims) UserID() (snowflake.ID, error) {
	return snowflake.ParseString(c.Subject)
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewTokenIssuer(cfg config.Config, clk clock.Clock) (*TokenIssuer, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenIssuer{secret: []byte(cfg.Auth.JWTSecret), ttl: ttl, clock: clk}, nil
}

// Issue signs an HS256 token for the user.
func (i *TokenIssuer) Issue(ctx context.Context, userID snowflake.ID, role string) (string, time.Time, error) {
	now := i.clock.Now(ctx)
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (i *TokenIssuer) Parse(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return i.clock.Now(ctx) }),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
