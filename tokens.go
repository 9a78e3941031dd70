package warden

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = time.Hour

// TokenData is what a successful login hands back to the controller.
type TokenData struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// TokenIssuer creates and verifies the signed tokens that bind a user id to
// an expiry. The secret is explicit, immutable configuration; construct one
// per process (or per test) rather than sharing a global key.
type TokenIssuer struct {
	SecretKey string
	Issuer    string

	// Lifetime defaults to TokenLifetime when zero.
	Lifetime time.Duration
}

func NewTokenIssuer(secretKey, issuer string) *TokenIssuer {
	return &TokenIssuer{SecretKey: secretKey, Issuer: issuer, Lifetime: TokenLifetime}
}

func (t *TokenIssuer) lifetime() time.Duration {
	if t.Lifetime == 0 {
		return TokenLifetime
	}
	return t.Lifetime
}

// Issue signs a token whose only payload is the user id.
func (t *TokenIssuer) Issue(userID int64) (TokenData, error) {
	now := time.Now()
	lifetime := t.lifetime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iss": t.Issuer,
		"iat": now.Unix(),
		"exp": now.Add(lifetime).Unix(),
	})
	signed, err := token.SignedString([]byte(t.SecretKey))
	if err != nil {
		return TokenData{}, err
	}
	return TokenData{Token: signed, ExpiresIn: int(lifetime.Seconds())}, nil
}

// Verify checks signature and expiry and returns the embedded user id.
// Every failure mode collapses into the same unauthorized error so callers
// cannot distinguish tampering from expiry.
func (t *TokenIssuer) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(t.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, NewUnauthorizedError(ErrCodeWrongToken, "Wrong authentication token")
	}
	return userID, nil
}
