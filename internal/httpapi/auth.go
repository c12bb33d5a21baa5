package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentmanagement/internal/auth"
	"studentmanagement/internal/metrics"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	usr, err := s.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		metrics.Logins.WithLabelValues("failed").Inc()
		respondErr(c, err)
		return
	}

	tokens, err := auth.Issue(usr.ID, usr.Username, usr.Role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	metrics.Logins.WithLabelValues("ok").Inc()

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"user":          usr,
	})
}

// refresh exchanges a valid refresh token for a new pair. The user is
// re-resolved so a disabled or deleted account cannot renew its session.
func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}

	claims, err := auth.Parse(req.RefreshToken, s.cfg.JWTSigningKey, s.cfg.JWTIssuer)
	if err != nil || !claims.Refresh {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	usr, err := s.accounts.GetByID(c.Request.Context(), claims.Subject)
	if err != nil || !usr.Enabled {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	tokens, err := auth.Issue(usr.ID, usr.Username, usr.Role, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// profile returns the authenticated caller's own account.
func (s *Server) profile(c *gin.Context) {
	actor := auth.ContextActor(c)
	usr, err := s.accounts.GetByID(c.Request.Context(), actor.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}
