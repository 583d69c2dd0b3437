package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/account-portal/internal/application"
	"github.com/oksasatya/account-portal/internal/infrastructure/sqlite"
	"github.com/oksasatya/account-portal/internal/interface/middleware"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func newService(t *testing.T) *userapp.Service {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return userapp.NewService(sqlite.NewUserRepository(db), helpers.NewJWTManager("k", time.Hour), nil, logger, nil)
}

// asUser stands in for the auth middleware.
func asUser(uid, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, uid)
		c.Set(middleware.CtxUserEmailKey, email)
		c.Next()
	}
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRecoverAnswersBareBoolean(t *testing.T) {
	svc := newService(t)
	h := NewAuthHandler(svc, svc.Logger, helpers.NewCookie("auth", "", false, time.Minute))
	r := gin.New()
	r.POST("/user/recovery", h.Recover)

	cases := []struct {
		body   string
		status int
	}{
		{`{`, http.StatusBadRequest},
		{`{"email":"not-an-address"}`, http.StatusBadRequest},
		{`{"email":"ghost@example.com"}`, http.StatusOK},
	}
	for _, tc := range cases {
		rec := postJSON(r, "/user/recovery", tc.body)
		if rec.Code != tc.status || strings.TrimSpace(rec.Body.String()) != "false" {
			t.Errorf("%s: got %d %q", tc.body, rec.Code, rec.Body.String())
		}
	}
}

func TestRecoverWithoutMailQueue(t *testing.T) {
	svc := newService(t)
	if _, err := svc.Register(context.Background(), "alice@example.com", "alice", "secret", userapp.RequestMeta{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	h := NewAuthHandler(svc, svc.Logger, helpers.NewCookie("auth", "", false, time.Minute))
	r := gin.New()
	r.POST("/user/recovery", h.Recover)

	rec := postJSON(r, "/user/recovery", `{"email":"alice@example.com"}`)
	if rec.Code != http.StatusServiceUnavailable || strings.TrimSpace(rec.Body.String()) != "false" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginRejectsIncompletePayload(t *testing.T) {
	svc := newService(t)
	h := NewAuthHandler(svc, svc.Logger, helpers.NewCookie("auth", "", false, time.Minute))
	r := gin.New()
	r.POST("/api/auth/login", h.Login)

	rec := postJSON(r, "/api/auth/login", `{"username":"alice"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["message"] != MessageUnauthorized {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get("Set-Cookie") != "" {
		t.Error("no cookie expected on failure")
	}
}

func TestProfileOwnership(t *testing.T) {
	svc := newService(t)
	u, err := svc.Register(context.Background(), "alice@example.com", "alice", "secret", userapp.RequestMeta{})
	if err != nil {
		t.Fatal(err)
	}
	h := NewUserHandler(svc, svc.Logger)

	cases := []struct {
		name, uid, sessionEmail, body string
		status                        int
	}{
		{"own profile", u.ID, "alice@example.com", `{"email":"alice@example.com"}`, http.StatusOK},
		{"case insensitive", u.ID, "alice@example.com", `{"email":"Alice@Example.com"}`, http.StatusOK},
		{"falls back to id", u.ID, "", `{"email":"alice@example.com"}`, http.StatusOK},
		{"foreign profile", u.ID, "alice@example.com", `{"email":"bob@example.com"}`, http.StatusForbidden},
		{"stale session", "missing", "", `{"email":"alice@example.com"}`, http.StatusNotFound},
		{"missing email", u.ID, "alice@example.com", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/user/data", asUser(tc.uid, tc.sessionEmail), h.Profile)
			rec := postJSON(r, "/api/user/data", tc.body)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateProfileRequiresNames(t *testing.T) {
	svc := newService(t)
	u, _ := svc.Register(context.Background(), "alice@example.com", "alice", "secret", userapp.RequestMeta{})
	h := NewUserHandler(svc, svc.Logger)
	r := gin.New()
	r.POST("/api/user/data-update", asUser(u.ID, u.Email), h.UpdateProfile)

	rec := postJSON(r, "/api/user/data-update", `{"email":"alice@example.com","realName":"","realSurname":"X"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = postJSON(r, "/api/user/data-update", `{"email":"alice@example.com","realName":" Alice ","realSurname":"Smith","school":"57"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := svc.GetProfile(context.Background(), u.ID)
	if got.RealName != "Alice" || got.School != "57" || got.WorkPlace != "" {
		t.Errorf("unexpected stored profile %+v", got)
	}
}

func avatarRequest(t *testing.T, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("\x89PNG fake"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/user/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAvatar(t *testing.T) {
	svc := newService(t)
	h := NewUserHandler(svc, svc.Logger)
	r := gin.New()
	r.POST("/api/user/avatar", asUser("u1", "a@b.c"), h.UploadAvatar)

	cases := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"storage not configured", avatarRequest(t, "image/png"), http.StatusServiceUnavailable},
		{"not an image", avatarRequest(t, "text/plain"), http.StatusUnsupportedMediaType},
		{"no file", httptest.NewRequest(http.MethodPost, "/api/user/avatar", nil), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, tc.req)
			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSearchWithoutIndex(t *testing.T) {
	svc := newService(t)
	h := NewUserHandler(svc, svc.Logger)
	r := gin.New()
	r.GET("/api/users/search", h.Search)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/search?q=alice", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data []any          `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Data) != 0 || body.Meta["count"] != 0 {
		t.Errorf("expected an empty result list, got %s", rec.Body.String())
	}
}

func TestEmailPreview(t *testing.T) {
	h := NewEmailHandler(nil, nil)
	r := gin.New()
	r.GET("/api/email/preview/:template", h.Preview)

	cases := []struct {
		path, want string
		status     int
	}{
		{"/api/email/preview/welcome?format=text", "alice", http.StatusOK},
		{"/api/email/preview/account_recovery", "<", http.StatusOK},
		{"/api/email/preview/account_recovery?format=json", `"subject"`, http.StatusOK},
		{"/api/email/preview/verify", "unknown template", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.want) {
			t.Errorf("%s: got %d %s", tc.path, rec.Code, rec.Body.String())
		}
	}
}
