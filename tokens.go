package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vidtube/models"
)

// Token verification failures. Expiry is kept apart from tampering so the
// refresh flow can tell clients "expired or used" instead of a generic 401.
var (
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("token invalid")
)

// accessClaims carry the identity projection clients may read without a
// store lookup. Subject is the user id in decimal.
type accessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// refreshClaims carry the user id only.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// tokenIssuer signs and verifies access and refresh tokens. Secrets and
// expiries come from Config; access expiry is expected to be much shorter
// than refresh expiry.
type tokenIssuer struct {
	accessSecret  []byte
	accessExpiry  time.Duration
	refreshSecret []byte
	refreshExpiry time.Duration
}

func newTokenIssuer(cfg *Config) *tokenIssuer {
	return &tokenIssuer{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		accessExpiry:  cfg.AccessTokenExpiry,
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		refreshExpiry: cfg.RefreshTokenExpiry,
	}
}

func (t *tokenIssuer) issueAccess(user *models.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

func (t *tokenIssuer) issueRefresh(userID uint) (string, error) {
	now := time.Now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

func (t *tokenIssuer) verifyAccess(tokenString string) (*accessClaims, error) {
	var claims accessClaims
	if err := t.parse(tokenString, &claims, t.accessSecret); err != nil {
		return nil, err
	}
	return &claims, nil
}

// verifyRefresh returns the user id the refresh token was issued for.
func (t *tokenIssuer) verifyRefresh(tokenString string) (uint, error) {
	var claims refreshClaims
	if err := t.parse(tokenString, &claims, t.refreshSecret); err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, errTokenInvalid
	}
	return uint(id), nil
}

func (t *tokenIssuer) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	switch {
	case err == nil && token.Valid:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return errTokenExpired
	default:
		return errTokenInvalid
	}
}
