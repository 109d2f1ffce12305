package models

import (
	"github.com/golang-jwt/jwt/v4"
)

// UserID is the opaque identifier of an account. Nothing else about a user is stored here.
type UserID string

func (id UserID) String() string {
	return string(id)
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID UserID `json:"user_id"`
	jwt.RegisteredClaims
}
