package types

import (
	"github.com/golang-jwt/jwt/v5"

	"servicesync-server/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed claim set carried by both access and refresh tokens.
type Claims struct {
	UserID    uint            `json:"id"`
	Role      models.UserRole `json:"role"`
	TokenType string          `json:"typ"`
	jwt.RegisteredClaims
}
