package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/account-portal/internal/application"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/response"
	"github.com/oksasatya/account-portal/pkg/validation"
)

// Messages the clients match on.
const (
	MessageUnauthorized   = "Unauthorized"
	MessageEmailDuplicate = "EMAIL_DUPLICATE"
	MessageUserDuplicate  = "USER_DUPLICATE"
)

// AuthHandler serves sign-in, sign-out, registration and recovery.
type AuthHandler struct {
	Svc     *userapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func requestMeta(c *gin.Context) userapp.RequestMeta {
	return userapp.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registrationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Login    string `json:"login" binding:"required,login"`
	Password string `json:"password" binding:"required,pwd"`
}

type recoveryRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Login POST /api/auth/login {username, password}
// Answers with the envelope plus a top-level access_token, and sets the session cookie.
// Any failure, including an incomplete payload, is reported as 401 Unauthorized.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusUnauthorized, MessageUnauthorized, validation.ToDetails(err))
		return
	}

	res, tok, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, userapp.ErrInvalidCredentials) {
		response.Error[any](c, http.StatusUnauthorized, MessageUnauthorized, nil)
		return
	}
	if err != nil {
		helpers.LogError(h.Logger, "login failed", err, logrus.Fields{"username": req.Username})
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}

	h.Cookies.SetAuth(c, tok.AccessToken, tok.AccessTokenExpiry)
	response.Token(c, http.StatusOK, tok.AccessToken, res, "login successful")
}

// Logout POST /api/auth/logout (auth required)
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Logout(c.Request.Context(), uid); err != nil {
		helpers.LogWarn(h.Logger, "drop session failed", err, logrus.Fields{"user_id": uid})
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Register POST /user/registration {email, login, password}
// 201 on success, 409 with EMAIL_DUPLICATE or USER_DUPLICATE otherwise.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), req.Email, req.Login, req.Password, requestMeta(c))
	switch {
	case errors.Is(err, userapp.ErrEmailDuplicate):
		response.Error[any](c, http.StatusConflict, MessageEmailDuplicate, nil)
		return
	case errors.Is(err, userapp.ErrUserDuplicate):
		response.Error[any](c, http.StatusConflict, MessageUserDuplicate, nil)
		return
	case err != nil:
		helpers.LogError(h.Logger, "registration failed", err, logrus.Fields{"email": req.Email})
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": u.ID, "email": u.Email, "login": u.Username}, "registered", nil)
}

// Recover POST /user/recovery {email}
// The body is a bare JSON boolean: true when a temporary password was mailed.
// Without a mail queue a known address gets 503 and the password is kept.
func (h *AuthHandler) Recover(c *gin.Context) {
	var req recoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, false)
		return
	}
	ok, err := h.Svc.Recover(c.Request.Context(), req.Email, requestMeta(c))
	switch {
	case errors.Is(err, userapp.ErrMailUnavailable):
		helpers.LogError(h.Logger, "recovery mail not queued", err, logrus.Fields{"email": req.Email})
		c.JSON(http.StatusServiceUnavailable, false)
		return
	case err != nil:
		helpers.LogError(h.Logger, "recovery failed", err, logrus.Fields{"email": req.Email})
		c.JSON(http.StatusInternalServerError, false)
		return
	}
	c.JSON(http.StatusOK, ok)
}
