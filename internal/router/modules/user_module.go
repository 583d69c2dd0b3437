package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-portal/internal/container"
	handlers "github.com/oksasatya/account-portal/internal/interface/http"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

// UserModule wires the personal-area endpoints; all of them require a session.
// POST /api/user/data, POST /api/user/data-update, POST /api/user/avatar, GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT, container.GetConfig().AuthCookieName))
	auth.Use(middleware.RateLimit(rdb, middleware.PersonalAreaLimit, middleware.BySession, nil))
	{
		auth.POST("/user/data", m.Handler.Profile)
		auth.POST("/user/data-update", m.Handler.UpdateProfile)
		auth.POST("/user/avatar", m.Handler.UploadAvatar)
		auth.GET("/users/search", m.Handler.Search)
	}
}
