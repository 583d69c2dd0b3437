package application

import "expvar"

// Counters published under /api/debug/vars.
var (
	metrics = expvar.NewMap("account")

	logins         = new(expvar.Int)
	loginFailures  = new(expvar.Int)
	registrations  = new(expvar.Int)
	recoveries     = new(expvar.Int)
	profileUpdates = new(expvar.Int)
	mailsQueued    = new(expvar.Int)
)

func init() {
	metrics.Set("logins", logins)
	metrics.Set("login_failures", loginFailures)
	metrics.Set("registrations", registrations)
	metrics.Set("recoveries", recoveries)
	metrics.Set("profile_updates", profileUpdates)
	metrics.Set("mails_queued", mailsQueued)
}
