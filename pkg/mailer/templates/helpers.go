package templates

import (
	"time"

	"github.com/oksasatya/account-portal/config"
)

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04 MST")
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
	}
	if cfg != nil {
		d.AppName = cfg.AppName
		d.CompanyName = cfg.CompanyName
		d.SupportURL = cfg.SupportURL
		d.PortalURL = cfg.PortalURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewRecoveryData(cfg *config.Config, name, email, tempPassword string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, AccountRecovery, name, email, opts...)
	d.TempPassword = tempPassword
	return ToMap(d)
}

func NewWelcomeData(cfg *config.Config, name, email, login string, opts ...Option) map[string]any {
	d := NewBaseEmailData(cfg, Welcome, name, email, opts...)
	d.Login = login
	return ToMap(d)
}
