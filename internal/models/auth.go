package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims carried by backend-issued access tokens.
// The subject is the caller's email.
type TokenClaims struct {
	jwt.RegisteredClaims
}
