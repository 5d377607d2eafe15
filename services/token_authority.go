package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"servicesync-server/config"
	"servicesync-server/models"
	"servicesync-server/types"
)

var ErrMissingSigningKey = errors.New("token signing keys are not configured")

// UserFinder resolves the subject of a refresh token.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// TokenAuthority issues and verifies access and refresh tokens.
// It holds no session state.
type TokenAuthority struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	users         UserFinder
	now           func() time.Time
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`
}

func NewTokenAuthority(cfg config.JWTConfig, users UserFinder) (*TokenAuthority, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSigningKey
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "servicesync-server"
	}
	return &TokenAuthority{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        issuer,
		users:         users,
		now:           time.Now,
	}, nil
}

func (ta *TokenAuthority) AccessTTL() time.Duration  { return ta.accessTTL }
func (ta *TokenAuthority) RefreshTTL() time.Duration { return ta.refreshTTL }

// IssuePair signs a fresh access and refresh token for user.
func (ta *TokenAuthority) IssuePair(user *models.User) (*TokenPair, error) {
	accessToken, err := ta.sign(user, types.TokenTypeAccess, ta.accessSecret, ta.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := ta.sign(user, types.TokenTypeRefresh, ta.refreshSecret, ta.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(ta.accessTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

func (ta *TokenAuthority) sign(user *models.User, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := ta.now()
	claims := &types.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    ta.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token and returns its claims.
func (ta *TokenAuthority) VerifyAccess(tokenString string) (*types.Claims, error) {
	return ta.verify(tokenString, ta.accessSecret, types.TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (ta *TokenAuthority) VerifyRefresh(tokenString string) (*types.Claims, error) {
	return ta.verify(tokenString, ta.refreshSecret, types.TokenTypeRefresh)
}

func (ta *TokenAuthority) verify(tokenString string, secret []byte, tokenType string) (*types.Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenAbsent
	}

	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(ta.issuer), jwt.WithTimeFunc(ta.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, tokenType)
	}
	if claims.UserID == 0 || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: malformed claims", ErrTokenInvalid)
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair carrying the user's
// current role. Any failure to tie the token to a live user is
// ErrSessionExpired.
func (ta *TokenAuthority) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *models.User, error) {
	claims, err := ta.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	user, err := ta.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user no longer exists", ErrSessionExpired)
		}
		return nil, nil, err
	}

	pair, err := ta.IssuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}
