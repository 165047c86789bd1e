package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kalpovskii/nervetask/internal/app/models"
)

const (
	viewerAudience = "nervetask:viewer"
	nonceAudience  = "nervetask:nonce"

	// DefaultNonceTTL matches the lifetime of a form nonce.
	DefaultNonceTTL = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidNonce = errors.New("invalid nonce")
)

type ViewerClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// NonceClaims bind a form token to one action, one object, one user and the
// tenant the form was rendered for.
type NonceClaims struct {
	Action   string `json:"action"`
	TenantID int64  `json:"tid"`
	ObjectID int64  `json:"oid"`
	UserID   int64  `json:"uid"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret   []byte
	nonceTTL time.Duration
	now      func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{
		secret:   []byte(secret),
		nonceTTL: DefaultNonceTTL,
		now:      time.Now,
	}
}

func (t *Tokens) keyFunc(token *jwt.Token) (interface{}, error) {
	return t.secret, nil
}

func (t *Tokens) parser(audience string) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
}

// IssueViewer signs an identity token. Login itself happens elsewhere; this
// exists for tooling and tests.
func (t *Tokens) IssueViewer(v models.Viewer, ttl time.Duration) (string, error) {
	now := t.now()
	claims := &ViewerClaims{
		Email: v.Email,
		Role:  v.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(v.UserID, 10),
			Audience:  jwt.ClaimStrings{viewerAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) ParseViewer(tokenStr string) (*models.Viewer, error) {
	claims := &ViewerClaims{}
	token, err := t.parser(viewerAudience).ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return &models.Viewer{UserID: id, Email: claims.Email, Role: claims.Role}, nil
}

func (t *Tokens) MintNonce(action string, tenantID, objectID, userID int64) (string, error) {
	now := t.now()
	claims := &NonceClaims{
		Action:   action,
		TenantID: tenantID,
		ObjectID: objectID,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{nonceAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.nonceTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *Tokens) VerifyNonce(tokenStr, action string, tenantID, objectID, userID int64) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: missing", ErrInvalidNonce)
	}

	claims := &NonceClaims{}
	token, err := t.parser(nonceAudience).ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	if claims.Action != action || claims.TenantID != tenantID || claims.ObjectID != objectID || claims.UserID != userID {
		return fmt.Errorf("%w: issued for a different form", ErrInvalidNonce)
	}
	return nil
}
