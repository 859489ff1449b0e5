// Package token issues and verifies the JWT credentials that identify a
// logged-in user: a short-lived access token presented on every API call
// and a long-lived refresh token used only to mint a new pair.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential covers every verification failure: bad signature,
// expired, malformed, or signed for the wrong purpose. Callers get no
// finer detail so responses cannot leak why a token was rejected.
var ErrInvalidCredential = errors.New("invalid or expired credential")

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

// Pair is one issued access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh"`
}

// Service signs and verifies HS256 JWTs. Access and refresh tokens use
// separate secrets so one can never be presented as the other.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(accessSecret, refreshSecret string) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTokenTTL,
		refreshTTL:    refreshTokenTTL,
	}
}

// Issue mints a new token pair for the given user.
func (s *Service) Issue(userID int64) (Pair, error) {
	access, err := sign(userID, s.accessSecret, s.accessTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := sign(userID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return Pair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks an access token and returns the user ID it was issued for.
func (s *Service) Verify(credential string) (int64, error) {
	return verify(credential, s.accessSecret)
}

// VerifyRefresh checks a refresh token and returns the user ID it was
// issued for.
func (s *Service) VerifyRefresh(credential string) (int64, error) {
	return verify(credential, s.refreshSecret)
}

func sign(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(credential string, secret []byte) (int64, error) {
	parsed, err := jwt.ParseWithClaims(
		credential,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidCredential
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidCredential
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidCredential
	}
	return userID, nil
}
