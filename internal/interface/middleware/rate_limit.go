package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/account-portal/pkg/response"
)

// Limit is one fixed-window budget. Scope keeps the counters of different
// routes apart.
type Limit struct {
	Scope  string
	Max    int
	Window time.Duration
}

// Budgets of the account routes, per client unless noted.
var (
	LoginLimit        = Limit{Scope: "login", Max: 10, Window: time.Minute}
	RegistrationLimit = Limit{Scope: "registration", Max: 10, Window: time.Minute}
	RecoveryLimit     = Limit{Scope: "recovery", Max: 5, Window: time.Minute}
	PersonalAreaLimit = Limit{Scope: "user", Max: 120, Window: time.Minute} // per session
	DebugLimit        = Limit{Scope: "debug", Max: 120, Window: time.Minute}
)

// KeyFunc names the counter a request is charged to.
type KeyFunc func(c *gin.Context, scope string) string

// AllowFunc returns true for requests that bypass the limit.
type AllowFunc func(*gin.Context) bool

func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// ByIP charges the client address.
func ByIP(c *gin.Context, scope string) string {
	return "rl:" + scope + ":ip:" + ipFromCtx(c)
}

// BySession charges the signed-in user, falling back to the address.
func BySession(c *gin.Context, scope string) string {
	if uid := c.GetString(CtxUserIDKey); uid != "" {
		return "rl:" + scope + ":user:" + uid
	}
	return ByIP(c, scope)
}

// hit counts the request and reports the window's remaining lifetime in one round trip.
var hit = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

func count(c *gin.Context, rdb *redis.Client, key string, window time.Duration) (n int64, reset time.Duration, err error) {
	res, err := hit.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		return 0, 0, err
	}
	if res[1] > 0 {
		reset = time.Duration(res[1]) * time.Millisecond
	}
	return res[0], reset, nil
}

// RateLimit enforces lim with Redis counters and sets the X-RateLimit-*
// headers. OPTIONS requests pass, Redis errors fail open and a nil client
// disables the limiter.
func RateLimit(rdb *redis.Client, lim Limit, key KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || lim.Max <= 0 || lim.Window <= 0 || key == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		n, reset, err := count(c, rdb, key(c, lim.Scope), lim.Window)
		if err != nil || n == 0 {
			c.Next()
			return
		}
		resetSec := int((reset + time.Second - 1) / time.Second)
		remaining := lim.Max - int(n)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(lim.Max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if int(n) > lim.Max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
