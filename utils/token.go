package authUtils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ErrInvalidToken covers malformed, badly signed and expired tokens.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the fields carried in a session token.
type SessionClaims struct {
	UserID    string
	Anonymous bool
	ExpiresAt time.Time
}

// GenerateSessionToken signs a session token for the given user ID
func GenerateSessionToken(userID string, anonymous bool, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, fmt.Errorf("session token secret is not set")
	}

	expiresAt := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"anonymous": anonymous,
		"exp":       expiresAt.Unix(),
	})

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ParseSessionToken validates the signature and expiry and returns the claims.
func ParseSessionToken(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	session := &SessionClaims{UserID: userID}
	session.Anonymous, _ = claims["anonymous"].(bool)
	if exp, ok := claims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return session, nil
}
