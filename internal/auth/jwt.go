package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Account types carried in the "account_type" claim.
const (
	AccountStaff   = "staff"
	AccountStudent = "student"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// Claims represents JWT payload. IsAdmin is informational for clients; the
// authorization guard never reads it.
type Claims struct {
	AccountType string `json:"account_type"`
	IsAdmin     bool   `json:"is_admin"`
	Fresh       bool   `json:"fresh"`
	Type        string `json:"type"`
	jwt.RegisteredClaims
}

// AdminResolver reports whether an identity belongs to an admin staff account.
type AdminResolver interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// Issuer mints signed session tokens.
type Issuer struct {
	key        []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	admins     AdminResolver
	now        func() time.Time
}

// NewIssuer creates an HS256 issuer.
func NewIssuer(key, issuer string, accessTTL, refreshTTL time.Duration, admins AdminResolver) *Issuer {
	return &Issuer{
		key:        []byte(key),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		admins:     admins,
		now:        time.Now,
	}
}

// Issue issues a fresh access token and a refresh token for subject. Each
// token gets its own session id.
func (i *Issuer) Issue(ctx context.Context, subject, accountType string) (TokenPair, error) {
	isAdmin, err := i.isAdmin(ctx, subject, accountType)
	if err != nil {
		return TokenPair{}, err
	}
	now := i.now()
	accessExp := now.Add(i.accessTTL)
	refreshExp := now.Add(i.refreshTTL)

	access, err := i.sign(Claims{
		AccountType:      accountType,
		IsAdmin:          isAdmin,
		Fresh:            true,
		Type:             TokenAccess,
		RegisteredClaims: i.registered(subject, now, accessExp),
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(Claims{
		AccountType:      accountType,
		IsAdmin:          isAdmin,
		Type:             TokenRefresh,
		RegisteredClaims: i.registered(subject, now, refreshExp),
	})
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh mints a non-fresh access token from verified refresh claims.
func (i *Issuer) Refresh(ctx context.Context, refresh Claims) (string, time.Time, error) {
	if refresh.Type != TokenRefresh {
		return "", time.Time{}, ErrTokenInvalid
	}
	isAdmin, err := i.isAdmin(ctx, refresh.Subject, refresh.AccountType)
	if err != nil {
		return "", time.Time{}, err
	}
	now := i.now()
	exp := now.Add(i.accessTTL)
	token, err := i.sign(Claims{
		AccountType:      refresh.AccountType,
		IsAdmin:          isAdmin,
		Type:             TokenAccess,
		RegisteredClaims: i.registered(refresh.Subject, now, exp),
	})
	return token, exp, err
}

func (i *Issuer) isAdmin(ctx context.Context, subject, accountType string) (bool, error) {
	if accountType != AccountStaff || i.admins == nil {
		return false, nil
	}
	ok, err := i.admins.IsAdmin(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("resolve admin flag: %w", err)
	}
	return ok, nil
}

func (i *Issuer) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (i *Issuer) sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// Parse validates a token and returns claims. Failures are reported as
// ErrTokenExpired or ErrTokenInvalid.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return *claims, nil
}
