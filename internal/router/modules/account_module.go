package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-portal/internal/container"
	handlers "github.com/oksasatya/account-portal/internal/interface/http"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
)

// AccountModule mounts the public registration and recovery endpoints at /user.
type AccountModule struct {
	Handler *handlers.AuthHandler
}

func NewAccountModule(h *handlers.AuthHandler) *AccountModule {
	return &AccountModule{Handler: h}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	rg.POST("/user/registration", middleware.RateLimit(rdb, middleware.RegistrationLimit, middleware.ByIP, nil), m.Handler.Register)
	rg.POST("/user/recovery", middleware.RateLimit(rdb, middleware.RecoveryLimit, middleware.ByIP, nil), m.Handler.Recover)
}
