package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"faceattend/internal/auth"
	"faceattend/internal/users"
)

type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
}

// IssueToken exchanges email and password for a token pair.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.Users.GetByEmail(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	case err != nil:
		h.log().Error("user lookup failed", zap.String("user_email", req.Email), zap.Error(err))
		fail(c, http.StatusInternalServerError, "user lookup failed")
		return
	}
	if !h.Auth.DevIssue {
		if err := u.CheckPassword(req.Password); err != nil {
			fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
	}
	if !u.IsActive {
		fail(c, http.StatusForbidden, users.ErrInactive.Error())
		return
	}

	role := auth.RoleUser
	if u.IsAdmin() {
		role = auth.RoleAdmin
	}
	tokens, err := auth.Issue(u.Email, role, h.Auth.Issuer, h.Auth.SigningKey, h.Auth.AccessTTL, h.Auth.RefreshTTL)
	if err != nil {
		h.log().Error("token issue failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "token issue failed")
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
		"role":          role,
	})
}
