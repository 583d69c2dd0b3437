package helpers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Manager writes the session cookie read by the web front-end and the terminal portal.
// The cookie never outlives MaxTTL, even when the token it carries does.
type Manager struct {
	Name   string
	Domain string
	Secure bool
	MaxTTL time.Duration
}

func NewCookie(name, domain string, secure bool, maxTTL time.Duration) *Manager {
	return &Manager{Name: name, Domain: domain, Secure: secure, MaxTTL: maxTTL}
}

// Lifetime returns the Max-Age, in seconds, of a cookie carrying a token that expires at exp.
func (m *Manager) Lifetime(now, exp time.Time) int {
	if m.MaxTTL > 0 {
		if limit := now.Add(m.MaxTTL); limit.Before(exp) {
			exp = limit
		}
	}
	if sec := int(exp.Sub(now) / time.Second); sec > 0 {
		return sec
	}
	return 0
}

// SetAuth stores the access token.
func (m *Manager) SetAuth(c *gin.Context, token string, exp time.Time) {
	m.write(c, token, m.Lifetime(time.Now(), exp))
}

// Clear expires the cookie.
func (m *Manager) Clear(c *gin.Context) {
	m.write(c, "", -1)
}

func (m *Manager) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, value, maxAge, "/", m.Domain, m.Secure, true)
}
