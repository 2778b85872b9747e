package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

type Claims struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id"`
	Role      model.Role `json:"role"`
	Name      string     `json:"name"`
	jwt.RegisteredClaims
}

func NewSessionToken(secret, issuer string, ttl time.Duration, sessionID string, identity model.Identity) (string, error) {
	if secret == "" {
		return "", errors.New("missing_secret")
	}
	now := time.Now().UTC()
	claims := Claims{
		SessionID: sessionID,
		UserID:    identity.Identifier,
		Role:      identity.Role,
		Name:      identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Identifier,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseSessionToken(secret, issuer, tokenString string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, options...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
