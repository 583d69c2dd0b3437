package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/account-portal/internal/application"
	"github.com/oksasatya/account-portal/internal/domain/entity"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/response"
	"github.com/oksasatya/account-portal/pkg/validation"
)

const maxAvatarBytes = 5 << 20

type UserHandler struct {
	Svc    *userapp.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// profileView is the flat profile document the personal area reads.
type profileView struct {
	Username    string `json:"username"`
	RealName    string `json:"realName"`
	RealSurname string `json:"realSurname"`
	School      string `json:"school"`
	University  string `json:"university"`
	WorkPlace   string `json:"workPlace"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func viewOf(u *entity.User) profileView {
	return profileView{
		Username:    u.Username,
		RealName:    u.RealName,
		RealSurname: u.RealSurname,
		School:      u.School,
		University:  u.University,
		WorkPlace:   u.WorkPlace,
		AvatarURL:   u.AvatarURL,
	}
}

type profileRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type updateProfileRequest struct {
	Email       string `json:"email" binding:"required,email"`
	RealName    string `json:"realName" binding:"required"`
	RealSurname string `json:"realSurname" binding:"required"`
	School      string `json:"school"`
	University  string `json:"university"`
	WorkPlace   string `json:"workPlace"`
}

// owns reports whether the signed-in user is the owner of email, answering 403/404 when not.
func (h *UserHandler) owns(c *gin.Context, email string) bool {
	sessionEmail := c.GetString(middleware.CtxUserEmailKey)
	if sessionEmail == "" {
		u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
		if err != nil {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return false
		}
		sessionEmail = u.Email
	}
	if !strings.EqualFold(strings.TrimSpace(email), sessionEmail) {
		response.Error[any](c, http.StatusForbidden, "forbidden", nil)
		return false
	}
	return true
}

// Profile POST /api/user/data {email}
func (h *UserHandler) Profile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if !h.owns(c, req.Email) {
		return
	}
	u, err := h.Svc.GetProfileByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(u))
}

// UpdateProfile POST /api/user/data-update {email, realName, realSurname, school, university, workPlace}
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if !h.owns(c, req.Email) {
		return
	}
	u, err := h.Svc.UpdateProfileByEmail(c.Request.Context(), req.Email, userapp.UpdateProfileInput{
		RealName:    req.RealName,
		RealSurname: req.RealSurname,
		School:      req.School,
		University:  req.University,
		WorkPlace:   req.WorkPlace,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, viewOf(u), "profile updated", nil)
}

// UploadAvatar POST /api/user/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAvatarBytes)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error[any](c, http.StatusUnsupportedMediaType, "avatar must be an image", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is unreadable", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), f, fh.Filename, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar updated", nil)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		helpers.LogError(h.Logger, "search failed", err, logrus.Fields{"q": c.Query("q")})
		response.Error[any](c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, userapp.ErrStorageDisabled):
		response.Error[any](c, http.StatusServiceUnavailable, "avatar storage is not configured", nil)
	default:
		helpers.LogError(h.Logger, "request failed", err, logrus.Fields{"path": c.FullPath()})
		response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
	}
}
