// Package auth issues and validates access tokens and hashes passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/johndosdos/eventhub/internal/model"
)

type ContextKey string

const (
	UserIDKey ContextKey = "userID"
	UserKey   ContextKey = "user"
)

var ErrNoUser = errors.New("internal/auth: no user in context")

func HashPassword(password string) (string, error) {
	hashedPw, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("internal/auth: pw hash failed: %w", err)
	}

	return hashedPw, nil
}

func CheckPasswordHash(password, hash string) (bool, error) {
	isMatch, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("internal/auth: pw and hash comparison failed: %w", err)
	}

	return isMatch, nil
}

// TokenIssuer signs and validates HS256 access tokens.
type TokenIssuer struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Make returns a signed token whose subject is the user id.
func (ti TokenIssuer) Make(userID string) (string, error) {
	return MakeJWT(userID, ti.Secret, ti.Issuer, ti.TTL)
}

// Validate returns the user id carried by a valid token.
func (ti TokenIssuer) Validate(token string) (string, error) {
	return ValidateJWT(token, ti.Secret)
}

func MakeJWT(userID, tokenSecret, issuer string, expiresIn time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		ID:        uuid.NewString(),
	})

	return token.SignedString([]byte(tokenSecret))
}

func ValidateJWT(tokenString, tokenSecret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("internal/auth: failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("internal/auth: token is invalid")
	}

	if claims.Subject == "" {
		return "", errors.New("internal/auth: subject claim is missing")
	}

	return claims.Subject, nil
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user model.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, UserKey, user)
}

// GetUserFromContext returns the authenticated user stored by WithUser.
func GetUserFromContext(ctx context.Context) (model.User, error) {
	user, ok := ctx.Value(UserKey).(model.User)
	if !ok || user.ID == "" {
		return model.User{}, ErrNoUser
	}

	return user, nil
}
