package storage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// CookieWriter sets a session cookie that expires after ttl.
type CookieWriter interface {
	SetCookie(name, value string, ttl time.Duration) error
}

type savedCookie struct {
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// JarCookies writes cookies into the HTTP client's jar for the API origin
// and mirrors them into a KeyValue so a restarted portal keeps its session
// until expiry.
type JarCookies struct {
	jar   http.CookieJar
	u     *url.URL
	store KeyValue
	now   func() time.Time
}

// NewJarCookies binds jar to apiURL. store may be nil.
func NewJarCookies(jar http.CookieJar, apiURL string, store KeyValue) (*JarCookies, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	return &JarCookies{jar: jar, u: u, store: store, now: time.Now}, nil
}

func storeKey(name string) string { return "cookie:" + name }

func (j *JarCookies) SetCookie(name, value string, ttl time.Duration) error {
	exp := j.now().Add(ttl)
	j.jar.SetCookies(j.u, []*http.Cookie{{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		SameSite: http.SameSiteLaxMode,
	}})
	if j.store == nil {
		return nil
	}
	b, err := json.Marshal(savedCookie{Value: value, Expires: exp})
	if err != nil {
		return err
	}
	return j.store.Set(storeKey(name), string(b))
}

// Restore loads a persisted cookie back into the jar. It reports whether an
// unexpired, non-empty cookie was found.
func (j *JarCookies) Restore(name string) bool {
	if j.store == nil {
		return false
	}
	raw := j.store.Get(storeKey(name), "")
	if raw == "" {
		return false
	}
	var sc savedCookie
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return false
	}
	if sc.Value == "" || !sc.Expires.After(j.now()) {
		return false
	}
	j.jar.SetCookies(j.u, []*http.Cookie{{Name: name, Value: sc.Value, Path: "/", Expires: sc.Expires}})
	return true
}

// Value returns the cookie currently held by the jar for the API origin.
func (j *JarCookies) Value(name string) string {
	for _, c := range j.jar.Cookies(j.u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
