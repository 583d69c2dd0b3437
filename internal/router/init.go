package router

import (
	appuser "github.com/oksasatya/account-portal/internal/application"
	"github.com/oksasatya/account-portal/internal/container"
	handlers "github.com/oksasatya/account-portal/internal/interface/http"
	"github.com/oksasatya/account-portal/internal/router/modules"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

type UserModuleDeps struct {
	Service *appuser.Service
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Email   *handlers.EmailHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	service := appuser.NewService(
		container.GetUserRepo(),
		container.GetJWT(),
		container.GetRedis(),
		logger,
		cfg,
	)
	if gcs := container.GetGCS(); gcs != nil {
		service.GCS, service.GCSBucket = gcs, cfg.GCSBucket
	}
	if es := container.GetES(); es != nil {
		service.ES, service.ESUsersIndex = es, cfg.ESUsersIndex
	}
	if pub := container.GetMailPublisher(); pub != nil {
		service.Mail = pub
	}

	cookies := helpers.NewCookie(cfg.AuthCookieName, cfg.CookieDomain, cfg.CookieSecure, cfg.AuthCookieTTL)
	return UserModuleDeps{
		Service: service,
		Auth:    handlers.NewAuthHandler(service, logger, cookies),
		User:    handlers.NewUserHandler(service, logger),
		Email:   handlers.NewEmailHandler(logger, cfg),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	deps := buildUserDeps()
	r.Add(modules.NewAuthModule(deps.Auth, container.GetJWT()))
	r.Add(modules.NewUserModule(deps.User, container.GetJWT()))
	r.AddRoot(modules.NewAccountModule(deps.Auth))

	if cfg := container.GetConfig(); cfg.DebugMetricsEnabled {
		r.Add(modules.NewOpsModule(deps.Email))
	}
}
