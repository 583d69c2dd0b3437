package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-portal/internal/container"
	handlers "github.com/oksasatya/account-portal/internal/interface/http"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

// AuthModule mounts sign-in and sign-out under /api/auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	rg.POST("/auth/login", middleware.RateLimit(rdb, middleware.LoginLimit, middleware.ByIP, nil), m.Handler.Login)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(rdb, m.JWT, container.GetConfig().AuthCookieName))
	{
		auth.POST("/logout", m.Handler.Logout)
	}
}
