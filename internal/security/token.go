package security

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

// RoleAccountant may close periods and restructure the chart of accounts.
const RoleAccountant = "accountant"

// ActorClaims identifies the user behind a request. Every ledger mutation is
// stamped with UserID.
type ActorClaims struct {
	UserID int64     `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Type   TokenType `json:"type"`
	Roles  []string  `json:"roles,omitempty"`
	Scopes []int64   `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

func (c *ActorClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// CanAccessScope reports whether the token grants the scope. A token without
// scopes is unrestricted.
func (c *ActorClaims) CanAccessScope(scopeID int64) bool {
	return len(c.Scopes) == 0 || slices.Contains(c.Scopes, scopeID)
}

type TokenManager interface {
	GenerateAccessToken(userID int64, email string, roles []string, scopes []int64) (string, error)
	GenerateServiceToken(userID int64) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

func NewTokenManager(secret, issuer string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

func (m *tokenManager) sign(claims ActorClaims, ttl time.Duration, audience string) (string, error) {
	issued := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(issued),
		Issuer:    m.issuer,
		Audience:  jwt.ClaimStrings{audience},
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) GenerateAccessToken(userID int64, email string, roles []string, scopes []int64) (string, error) {
	return m.sign(ActorClaims{
		UserID: userID,
		Email:  email,
		Type:   TokenTypeAccess,
		Roles:  roles,
		Scopes: scopes,
	}, m.expiry, "api-access")
}

// GenerateServiceToken issues a long-lived token for batch tooling such as
// the bank import CLI.
func (m *tokenManager) GenerateServiceToken(userID int64) (string, error) {
	return m.sign(ActorClaims{
		UserID: userID,
		Type:   TokenTypeService,
	}, 24*time.Hour, "api-service")
}

func (m *tokenManager) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*ActorClaims); ok && token.Valid {
		if claims.UserID == 0 && claims.Subject != "" {
			uid, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				return nil, ErrInvalidToken
			}
			claims.UserID = uid
		}
		if claims.UserID <= 0 {
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}
