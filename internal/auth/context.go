package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type contextKey struct{}

type UserContext struct {
	EmployeeID string
	Role       string
}

type Claims struct {
	EmployeeID string `json:"employee_id"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken verifies an HS256 token signed with secret and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.EmployeeID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GenerateToken(secret, employeeID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		EmployeeID: employeeID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func WithUser(ctx context.Context, user UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

func GetUser(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(contextKey{}).(UserContext)
	return user, ok
}

// GetEmployeeID returns the authenticated employee, or "" for anonymous calls.
func GetEmployeeID(ctx context.Context) string {
	user, _ := GetUser(ctx)
	return user.EmployeeID
}
