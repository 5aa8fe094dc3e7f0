package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jmcneish/castbridge/internal/config"
)

// TokenPayload represents the validated payload data.
type TokenPayload struct {
	Sub        string
	BridgeName string
}

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type tokenClaims struct {
	BridgeName string `json:"bridgeName"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed bearer token for a notification bridge.
// Tokens are minted out of band (deploy-time) and presented by the voice
// front end on every command delivery.
func GenerateToken(cfg config.Config, payload TokenPayload, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		BridgeName: payload.BridgeName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.Sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// VerifyToken validates a bearer token and returns its payload.
func VerifyToken(cfg config.Config, tokenString string) (TokenPayload, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrTokenExpired
		}
		return TokenPayload{}, ErrTokenInvalid
	}
	if !token.Valid {
		return TokenPayload{}, ErrTokenInvalid
	}
	return TokenPayload{
		Sub:        claims.Subject,
		BridgeName: claims.BridgeName,
	}, nil
}
