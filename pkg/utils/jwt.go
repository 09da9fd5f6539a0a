package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

const issuer = "postpilot"

var ErrInvalidToken = errors.New("invalid token")

func GenerateToken(secretKey, userID string, tokenDuration time.Duration) (string, error) {
	return sign(secretKey, transfer.CustomClaims{UserID: userID}, tokenDuration)
}

// GenerateStateToken binds an OAuth connect flow to the user who started it.
func GenerateStateToken(secretKey, userID, platform string, tokenDuration time.Duration) (string, error) {
	return sign(secretKey, transfer.CustomClaims{UserID: userID, Platform: platform}, tokenDuration)
}

func sign(secretKey string, claims transfer.CustomClaims, tokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func ValidateToken(secretKey, tokenString string) (*transfer.CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if claims, ok := token.Claims.(*transfer.CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
