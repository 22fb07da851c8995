package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentrecords/internal/accounts"
	"studentrecords/internal/apperr"
	"studentrecords/internal/auth"
)

type loginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	AccountType string `json:"account_type" binding:"omitempty,oneof=staff student"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}
	id, err := s.Accounts.Login(c.Request.Context(), req.Email, req.Password, req.AccountType)
	if err != nil {
		s.fail(c, err)
		return
	}
	tokens, err := s.Issuer.Issue(c.Request.Context(), id.ID, id.AccountType)
	if err != nil {
		s.fail(c, err)
		return
	}
	msg := "Student logged in successfully"
	if id.AccountType == accounts.TypeStaff {
		msg = "Staff logged in successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       msg,
		"account_type":  id.AccountType,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

func (s *Server) refresh(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	token, exp, err := s.Issuer.Refresh(c.Request.Context(), claims)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_at": exp.Unix()})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// logout revokes the presented access token and, when supplied and valid,
// the matching refresh token.
func (s *Server) logout(c *gin.Context) {
	ctx := c.Request.Context()
	claims, _ := auth.ClaimsFrom(c)
	if err := s.Registry.Revoke(ctx, claims.ID); err != nil {
		s.fail(c, apperr.Internal(err))
		return
	}

	var req logoutRequest
	if c.Request.ContentLength != 0 && c.ShouldBindJSON(&req) == nil && req.RefreshToken != "" {
		refresh, err := s.Verifier.Verify(ctx, req.RefreshToken, auth.TokenRefresh)
		switch {
		case err != nil:
			s.Log.InfoContext(ctx, "refresh token not revoked on logout", "error", err)
		case refresh.Subject != claims.Subject:
			s.Log.WarnContext(ctx, "refresh token belongs to another subject", "identity", claims.Subject)
		default:
			if err := s.Registry.Revoke(ctx, refresh.ID); err != nil {
				s.fail(c, apperr.Internal(err))
				return
			}
		}
	}
	s.Log.InfoContext(ctx, "user logged out", "identity", claims.Subject)
	c.JSON(http.StatusOK, gin.H{"msg": "Access token revoked"})
}
