package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/internal/container"
	"github.com/oksasatya/account-portal/internal/infrastructure/sqlite"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type app struct {
	t      *testing.T
	engine *gin.Engine
	mail   *mailQueue
}

// mailQueue records queued jobs in place of RabbitMQ; err makes it fail.
type mailQueue struct {
	mu   sync.Mutex
	jobs []any
	err  error
}

func (q *mailQueue) PublishJSON(_ context.Context, body any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, body)
	return nil
}

func (q *mailQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func newApp(t *testing.T) *app {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		container.Reset()
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	container.Reset()
	container.SetConfig(&config.Config{
		AppName:             "account-portal",
		AuthCookieName:      "auth",
		AuthCookieTTL:       5 * time.Minute,
		CookieDomain:        "localhost",
		DebugMetricsEnabled: true,
		MailSendEnabled:     true,
	})
	container.SetLogger(logger)
	container.SetUserRepo(sqlite.NewUserRepository(db))
	container.SetJWT(helpers.NewJWTManager("test-secret", time.Hour))
	mail := &mailQueue{}
	container.SetMailPublisher(mail)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := NewRegistry(r)
	InitModules(reg)
	reg.RegisterAll()
	return &app{t: t, engine: r, mail: mail}
}

func (a *app) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth", Value: token})
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func (a *app) register(email, login, password string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/user/registration", map[string]string{"email": email, "login": login, "password": password}, "")
}

func (a *app) login(username, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", map[string]string{"username": username, "password": password}, "")
	if rec.Code != http.StatusOK {
		a.t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	tok, _ := decode(a.t, rec)["access_token"].(string)
	return tok
}

func TestRegistrationContract(t *testing.T) {
	a := newApp(t)

	rec := a.register("alice@example.com", "alice", "secret")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["status"] != float64(201) || body["success"] != true {
		t.Errorf("unexpected envelope %v", body)
	}

	cases := []struct {
		name, email, login, password string
		status                       int
		message                      string
	}{
		{"duplicate email", "alice@example.com", "other", "secret", http.StatusConflict, "EMAIL_DUPLICATE"},
		{"duplicate email in other case", "Alice@Example.com", "other", "secret", http.StatusConflict, "EMAIL_DUPLICATE"},
		{"duplicate login", "bob@example.com", "alice", "secret", http.StatusConflict, "USER_DUPLICATE"},
		{"short login", "bob@example.com", "bob", "secret", http.StatusBadRequest, "invalid payload"},
		{"spaced password", "bob@example.com", "bobby", "sec ret", http.StatusBadRequest, "invalid payload"},
		{"bad email", "bob", "bobby", "secret", http.StatusBadRequest, "invalid payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.register(tc.email, tc.login, tc.password)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			body := decode(t, rec)
			if body["message"] != tc.message || body["status"] != float64(tc.status) {
				t.Errorf("unexpected envelope %v", body)
			}
		})
	}
}

func TestLoginContract(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")

	rec := a.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrong"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["message"] != "Unauthorized" {
		t.Errorf("expected Unauthorized message, got %v", body)
	}
	if _, ok := body["access_token"]; ok {
		t.Error("failed login must not carry a token")
	}

	rec = a.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "secret"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body = decode(t, rec)
	tok, _ := body["access_token"].(string)
	data, _ := body["data"].(map[string]any)
	if tok == "" || data["email"] != "alice@example.com" || body["message"] == "Unauthorized" {
		t.Errorf("unexpected login envelope %v", body)
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.HasPrefix(cookie, "auth="+tok) || !strings.Contains(cookie, "HttpOnly") {
		t.Errorf("unexpected cookie %q", cookie)
	}
}

func TestRecoveryContract(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")

	cases := []struct {
		body   any
		status int
		want   string
	}{
		{map[string]string{"email": "alice@example.com"}, http.StatusOK, "true"},
		{map[string]string{"email": "nobody@example.com"}, http.StatusOK, "false"},
		{map[string]string{"email": ""}, http.StatusBadRequest, "false"},
	}
	for _, tc := range cases {
		rec := a.do(http.MethodPost, "/user/recovery", tc.body, "")
		if rec.Code != tc.status || strings.TrimSpace(rec.Body.String()) != tc.want {
			t.Errorf("%v: got %d %q", tc.body, rec.Code, rec.Body.String())
		}
	}
	if n := len(a.mail.jobs); n != 2 {
		t.Errorf("expected welcome and recovery jobs, got %d", n)
	}
}

func TestRecoveryWithBrokenQueueKeepsPassword(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")
	a.mail.fail(errors.New("broker down"))

	rec := a.do(http.MethodPost, "/user/recovery", map[string]string{"email": "alice@example.com"}, "")
	if rec.Code != http.StatusServiceUnavailable || strings.TrimSpace(rec.Body.String()) != "false" {
		t.Fatalf("expected 503 false, got %d %q", rec.Code, rec.Body.String())
	}
	if tok := a.login("alice", "secret"); tok == "" {
		t.Error("old password should still sign in")
	}
}

func TestProfileContract(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")
	a.register("bob@example.com", "bobby", "secret")
	tok := a.login("alice", "secret")

	if rec := a.do(http.MethodPost, "/api/user/data", map[string]string{"email": "alice@example.com"}, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("profile without session: expected 401, got %d", rec.Code)
	}
	if rec := a.do(http.MethodPost, "/api/user/data", map[string]string{"email": "bob@example.com"}, tok); rec.Code != http.StatusForbidden {
		t.Errorf("foreign profile: expected 403, got %d", rec.Code)
	}

	update := map[string]string{
		"email": "alice@example.com", "realName": "Алиса", "realSurname": "Иванова",
		"school": "57", "university": "", "workPlace": "ACME",
	}
	rec := a.do(http.MethodPost, "/api/user/data-update", update, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["success"] != true {
		t.Errorf("unexpected update envelope %v", body)
	}

	rec = a.do(http.MethodPost, "/api/user/data", map[string]string{"email": "alice@example.com"}, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: %d %s", rec.Code, rec.Body.String())
	}
	got := decode(t, rec)
	want := map[string]any{
		"username": "alice", "realName": "Алиса", "realSurname": "Иванова",
		"school": "57", "university": "", "workPlace": "ACME",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: got %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["status"]; ok {
		t.Error("profile document must be flat, not an envelope")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")
	tok := a.login("alice", "secret")

	rec := a.do(http.MethodPost, "/api/auth/logout", nil, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if c := rec.Header().Get("Set-Cookie"); !strings.Contains(c, "auth=;") || !strings.Contains(c, "Max-Age=0") {
		t.Errorf("cookie not cleared: %q", c)
	}
}

func TestDebugRoutes(t *testing.T) {
	a := newApp(t)
	a.register("alice@example.com", "alice", "secret")

	rec := a.do(http.MethodGet, "/api/debug/vars", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"registrations"`) {
		t.Errorf("debug vars: %d %s", rec.Code, rec.Body.String())
	}

	if rec := a.do(http.MethodGet, "/api/email/preview/account_recovery", nil, ""); rec.Code != http.StatusForbidden {
		t.Errorf("preview from a public address: expected 403, got %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/email/preview/account_recovery?format=text", nil)
	req.Header.Set("X-Real-IP", "127.0.0.1")
	rec = httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Xk3mPq9zTw") {
		t.Errorf("preview: %d %s", rec.Code, rec.Body.String())
	}
}
