package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"studentrecords/internal/apperr"
)

// Machine-readable 401 codes. Clients branch on these exact strings.
const (
	CodeAuthorizationRequired = "Authorization required"
	CodeInvalidToken          = "invalid token"
	CodeTokenExpired          = "Token expired"
	CodeTokenRevoked          = "token_revoked"
)

const claimsKey = "claims"

var authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_failures_total",
	Help: "Rejected bearer tokens by reason.",
}, []string{"reason"})

var (
	errMissing = apperr.Unauthenticated(CodeAuthorizationRequired, "Request does not contain an access token.")
	errInvalid = apperr.Unauthenticated(CodeInvalidToken, "Signature verification failed.")
	errExpired = apperr.Unauthenticated(CodeTokenExpired, "The token has expired.")
	errRevoked = apperr.Unauthenticated(CodeTokenRevoked, "The token has been revoked.")
)

// Verifier checks bearer tokens: signature, expiry, token type, revocation.
type Verifier struct {
	key      string
	issuer   string
	registry Registry
	log      *slog.Logger
}

// NewVerifier creates a verifier for HS256 tokens.
func NewVerifier(key, issuer string, registry Registry, log *slog.Logger) *Verifier {
	return &Verifier{key: key, issuer: issuer, registry: registry, log: log}
}

// Verify validates raw as a token of tokenType. Errors are *apperr.Error.
func (v *Verifier) Verify(ctx context.Context, raw, tokenType string) (Claims, error) {
	if raw == "" {
		return Claims{}, errMissing
	}
	claims, err := Parse(raw, v.key, v.issuer)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Claims{}, errExpired
		}
		return Claims{}, errInvalid
	}
	if claims.Type != tokenType {
		return Claims{}, errInvalid
	}
	revoked, err := v.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, apperr.Internal(err)
	}
	if revoked {
		return Claims{}, errRevoked
	}
	return claims, nil
}

// Middleware enforces bearer tokens of tokenType and stores the claims on the
// gin context.
func (v *Verifier) Middleware(tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := v.Verify(c.Request.Context(), bearerToken(c.GetHeader("Authorization")), tokenType)
		if err != nil {
			reason := "internal"
			var ae *apperr.Error
			if errors.As(err, &ae) && ae.Kind == apperr.KindUnauthenticated {
				reason = ae.Code
				v.log.WarnContext(c.Request.Context(), "bearer token rejected", "reason", ae.Code, "path", c.FullPath())
			}
			authFailures.WithLabelValues(reason).Inc()
			apperr.Abort(c, v.log, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func bearerToken(header string) string {
	if len(header) < len("bearer ") || !strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}
