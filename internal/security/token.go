package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload of access and refresh tokens: the user id plus
// the standard expiry.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// ActivationClaims binds an activation token to a pending registration.
type ActivationClaims struct {
	PendingID string `json:"pid"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return sign(secret, claims)
}

// ParseToken verifies signature, algorithm and expiry. No claims are
// returned on failure.
func ParseToken(tokenStr string, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GenerateActivationToken(secret string, pendingID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ActivationClaims{
		PendingID: pendingID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return sign(secret, claims)
}

func ParseActivationToken(tokenStr string, secret string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	if claims.PendingID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func parse(tokenStr string, secret string, claims jwt.Claims) error {
	if tokenStr == "" {
		return ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
