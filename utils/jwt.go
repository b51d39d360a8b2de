package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"salespipe/config"
)

type Claims struct {
	EmployeeID   uint `json:"employee_id"`
	TokenVersion int  `json:"token_version"`
	jwt.RegisteredClaims
}

// IssueJWTToken mints a short-lived access token for an employee id.
// Tokens are issued out of band (ops tooling); the service itself only
// validates them.
func IssueJWTToken(employeeID uint, tokenVersion int) (string, error) {
	claims := &Claims{
		EmployeeID:   employeeID,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
