package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/pkg/helpers"
	tpl "github.com/oksasatya/account-portal/pkg/mailer/templates"
	"github.com/oksasatya/account-portal/pkg/response"
)

// EmailHandler renders the transactional e-mails with sample data so they can
// be checked without a broker or Mailgun.
type EmailHandler struct {
	Logger *logrus.Logger
	Cfg    *config.Config
}

func NewEmailHandler(logger *logrus.Logger, cfg *config.Config) *EmailHandler {
	return &EmailHandler{Logger: logger, Cfg: cfg}
}

func (h *EmailHandler) sample(name string) map[string]any {
	opts := []tpl.Option{tpl.WithTime(time.Now()), tpl.WithIP("203.0.113.7"), tpl.WithUserAgent("preview")}
	switch name {
	case tpl.AccountRecovery:
		return tpl.NewRecoveryData(h.Cfg, "Алиса", "alice@example.com", "Xk3mPq9zTw", opts...)
	case tpl.Welcome:
		return tpl.NewWelcomeData(h.Cfg, "", "alice@example.com", "alice", opts...)
	}
	return nil
}

// Preview GET /api/email/preview/:template?format=html|text|json
func (h *EmailHandler) Preview(c *gin.Context) {
	name := c.Param("template")
	data := h.sample(name)
	if data == nil || !tpl.Known(name) {
		response.Error[any](c, http.StatusNotFound, "unknown template", nil)
		return
	}
	subject, text, html, err := tpl.Render(name, data)
	if err != nil {
		helpers.LogError(h.Logger, "render preview failed", err, logrus.Fields{"template": name})
		response.Error[any](c, http.StatusInternalServerError, "render failed", err.Error())
		return
	}
	switch c.DefaultQuery("format", "html") {
	case "text":
		c.String(http.StatusOK, "Subject: %s\n\n%s", subject, text)
	case "json":
		response.Success(c, http.StatusOK, gin.H{"subject": subject, "text": text, "html": html}, "preview", nil)
	default:
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	}
}
