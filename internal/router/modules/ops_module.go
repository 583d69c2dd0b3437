package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/account-portal/internal/container"
	handlers "github.com/oksasatya/account-portal/internal/interface/http"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
)

// OpsModule serves the operator endpoints enabled by DEBUG_METRICS_ENABLED:
// GET /api/debug/vars (expvar counters) and GET /api/email/preview/:template.
type OpsModule struct {
	Email *handlers.EmailHandler
}

func NewOpsModule(email *handlers.EmailHandler) *OpsModule {
	return &OpsModule{Email: email}
}

func (m *OpsModule) Register(rg *gin.RouterGroup) {
	// private networks are neither limited nor refused
	limit := middleware.RateLimit(container.GetRedis(), middleware.DebugLimit, middleware.ByIP, middleware.AllowPrivateIP())
	rg.GET("/debug/vars", limit, gin.WrapH(expvar.Handler()))

	// private networks only
	rg.GET("/email/preview/:template", middleware.PrivateOnly(), m.Email.Preview)
}
