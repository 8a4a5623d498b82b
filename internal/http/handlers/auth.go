package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantbid.kr/app/internal/http/middleware"
	"plantbid.kr/app/internal/http/validation"
	"plantbid.kr/app/internal/modules/users"
	"plantbid.kr/app/internal/shared/apperr"
)

type AuthHandler struct {
	Logger     *slog.Logger
	Users      *users.Service
	SessionCfg middleware.SessionCfg
}

func NewAuthHandler(logger *slog.Logger, userSv *users.Service, sessCfg middleware.SessionCfg) *AuthHandler {
	return &AuthHandler{Logger: logger, Users: userSv, SessionCfg: sessCfg}
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		errs := validation.FromBindError(err, &in)
		middleware.Fail(c, apperr.InvalidErr("Invalid login request.", errs))
		return
	}

	u, err := h.Users.Authenticate(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			middleware.Fail(c, apperr.UnauthorizedErr("이메일 또는 비밀번호가 올바르지 않습니다."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	sess, err := middleware.CreateSession(h.SessionCfg, u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.SetCookie(h.SessionCfg.CookieName, sess.ID,
		int(h.SessionCfg.TTL.Seconds()), "/", "", h.SessionCfg.Secure, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    gin.H{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role},
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(h.SessionCfg.CookieName); err == nil && sessionID != "" {
		_ = middleware.DeleteSession(h.SessionCfg, sessionID)
	}
	c.SetCookie(h.SessionCfg.CookieName, "", -1, "/", "", h.SessionCfg.Secure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
