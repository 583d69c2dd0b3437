package main

import (
	"log"
	"net/http/cookiejar"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/internal/portal/api"
	"github.com/oksasatya/account-portal/internal/portal/login"
	"github.com/oksasatya/account-portal/internal/portal/profile"
	"github.com/oksasatya/account-portal/internal/portal/storage"
	"github.com/oksasatya/account-portal/internal/portal/tui"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := os.MkdirAll(cfg.PortalStateDir, 0o700); err != nil {
		log.Fatalf("state dir: %v", err)
	}

	// The terminal belongs to the UI; logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.PortalStateDir, "portal.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer func() { _ = logFile.Close() }()
	logger := helpers.NewLogger(cfg.AppName+"-portal", cfg.Env, logFile)

	var kv storage.KeyValue
	switch cfg.PortalKVBackend {
	case "redis":
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		kv = storage.NewRedisStore(rdb, "portal:")
	default:
		fs, err := storage.NewFileStore(cfg.PortalStateDir)
		if err != nil {
			log.Fatalf("state store: %v", err)
		}
		kv = fs
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatalf("cookie jar: %v", err)
	}
	cookies, err := storage.NewJarCookies(jar, cfg.PortalAPIURL, kv)
	if err != nil {
		log.Fatalf("cookies: %v", err)
	}
	client := api.NewClient(cfg.PortalAPIURL, jar)

	start := tui.RouteAuth
	if cookies.Restore(cfg.AuthCookieName) {
		start = tui.RouteProfile
	}
	router := tui.NewRouter(start)

	auth := login.New(login.Config{
		CookieName:  cfg.AuthCookieName,
		CookieTTL:   cfg.AuthCookieTTL,
		NoticeDelay: cfg.LoginNoticeDelay,
	}, login.Deps{
		API:     client,
		Cookies: cookies,
		Store:   kv,
		Router:  router,
		Logger:  logger,
	})
	newProfile := func() *profile.Screen {
		return profile.New(profile.Config{
			NoticeDelay: cfg.ProfileNoticeDelay,
			MinLoader:   cfg.ProfileMinLoader,
		}, profile.Deps{
			API:    client,
			Store:  kv,
			Logger: logger,
		})
	}

	logger.WithField("api", cfg.PortalAPIURL).Info("portal starting")
	if err := tui.Run(tui.New(router, auth, newProfile), tea.WithAltScreen()); err != nil {
		logger.WithError(err).Error("portal exited with error")
		log.Fatalf("portal: %v", err)
	}
}
