package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin teacher student"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type session struct {
	User attendance.User `json:"user"`
	auth.TokenPair
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}

	u, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password, attendance.Role(req.Role))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.issue(c, u, "Login successful")
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return
	}

	claims, err := auth.Parse(req.RefreshToken, h.tokens.SigningKey, h.tokens.Issuer, auth.KindRefresh)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	// reload so a deleted account or a changed role takes effect
	u, err := h.svc.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	h.issue(c, u, "Token refreshed")
}

func (h *Handler) issue(c *gin.Context, u attendance.User, message string) {
	pair, err := auth.Issue(u.ID, string(u.Role), h.tokens.Issuer, h.tokens.SigningKey, h.tokens.AccessTTL, h.tokens.RefreshTTL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session{User: u, TokenPair: pair}, message)
}
