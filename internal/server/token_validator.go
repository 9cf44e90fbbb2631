package server

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/types"
)

// TokenValidator validates access tokens on incoming requests
type TokenValidator struct {
	config *config.JWTConfig
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(cfg *config.JWTConfig) *TokenValidator {
	return &TokenValidator{config: cfg}
}

// ValidateAccessToken parses and validates an access token, returning
// the embedded user claims. Refresh tokens are rejected.
func (tv *TokenValidator) ValidateAccessToken(tokenString string) (*types.UserClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tv.config.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if tokenType, _ := claims["type"].(string); tokenType == "refresh" {
		return nil, fmt.Errorf("refresh tokens cannot be used for authentication")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("token missing user_id claim")
	}

	role, _ := claims["role"].(string)
	if !types.ValidRoles[types.UserRole(role)] {
		return nil, fmt.Errorf("token carries an unknown role")
	}

	email, _ := claims["email"].(string)

	return &types.UserClaims{
		UserID: userID,
		Email:  email,
		Role:   types.UserRole(role),
	}, nil
}
