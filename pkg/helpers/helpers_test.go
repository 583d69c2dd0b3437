package helpers

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/account-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/account-portal/pkg/mailer/templates"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	tok, exp, err := m.GenerateAccessToken("user-1", "sid-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry should be in the future, got %v", exp)
	}
	claims, err := m.ParseAccessToken(tok)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID != "sid-1" {
		t.Errorf("unexpected claims %+v", claims)
	}

	other := NewJWTManager("other", time.Minute)
	if _, err := other.ParseAccessToken(tok); err == nil {
		t.Error("token signed with another secret must be rejected")
	}
	if DefaultJWT() != other {
		t.Error("DefaultJWT should return the last manager")
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	tok, _, err := m.GenerateAccessToken("u", "s")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := m.ParseAccessToken(tok); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CompareHashAndPassword(hash, "secret") {
		t.Error("hash should match its password")
	}
	if CompareHashAndPassword(hash, "Secret") {
		t.Error("hash should not match another password")
	}
}

func TestTempPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := TempPassword(10)
		if err != nil {
			t.Fatalf("TempPassword: %v", err)
		}
		if len(p) != 10 || strings.ContainsAny(p, " 0O1lI") {
			t.Errorf("bad temp password %q", p)
		}
		seen[p] = true
	}
	if len(seen) < 2 {
		t.Error("temp passwords should differ")
	}
	if p, _ := TempPassword(1); len(p) != 5 {
		t.Errorf("short lengths are raised to 5, got %q", p)
	}
}

func TestNormalizeJob(t *testing.T) {
	job := mailer.EmailJob{To: "a@b.c", Template: " Recovery "}
	NormalizeJob(&job)
	if job.Template != mailtpl.AccountRecovery {
		t.Errorf("alias not resolved: %q", job.Template)
	}
	if job.Data["Email"] != "a@b.c" || job.Data["RecipientEmail"] != "a@b.c" {
		t.Errorf("recipient not filled: %v", job.Data)
	}

	raw := mailer.EmailJob{To: "a@b.c", Text: "hi"}
	NormalizeJob(&raw)
	if raw.Subject != "Notification" || raw.Data != nil {
		t.Errorf("unexpected raw job %+v", raw)
	}
}

func TestKeys(t *testing.T) {
	if got := SessionKey("u1"); got != "user:session:u1" {
		t.Errorf("SessionKey = %q", got)
	}
	if got := RecoveryCooldownKey(" Alice@Example.com "); got != "user:recovery:alice@example.com" {
		t.Errorf("RecoveryCooldownKey = %q", got)
	}
	if got := SearchCacheKey("Ivan", 10); got != "search:users:ivan:10" {
		t.Errorf("SearchCacheKey = %q", got)
	}
	p := AvatarObjectPath("u1", "Me.PNG")
	if !strings.HasPrefix(p, "avatars/u1/") || !strings.HasSuffix(p, ".png") {
		t.Errorf("AvatarObjectPath = %q", p)
	}
	url := PublicURL("bucket", p)
	if got, ok := ObjectPathFromURL("bucket", url); !ok || got != p {
		t.Errorf("ObjectPathFromURL(%q) = %q, %v", url, got, ok)
	}
	if _, ok := ObjectPathFromURL("other", url); ok {
		t.Error("URL of another bucket must not match")
	}
	if _, ok := ObjectPathFromURL("bucket", ""); ok {
		t.Error("empty URL must not match")
	}
}

func TestCookieLifetime(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		maxTTL time.Duration
		exp    time.Time
		want   int
	}{
		{"capped by cookie ttl", 5 * time.Minute, now.Add(time.Hour), 300},
		{"token expires first", 5 * time.Minute, now.Add(time.Minute), 60},
		{"no cap", 0, now.Add(time.Hour), 3600},
		{"already expired", 5 * time.Minute, now.Add(-time.Second), 0},
	}
	for _, tc := range cases {
		m := NewCookie("auth", "", false, tc.maxTTL)
		if got := m.Lifetime(now, tc.exp); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	uid := uuid.NewString()
	t.Cleanup(func() { _ = DropSession(ctx, rdb, uid) })

	if _, err := LoadSession(ctx, rdb, uid); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	err := SaveSession(ctx, rdb, Session{UserID: uid, Email: "a@b.c", SID: "s1", CreatedAt: time.Now()}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := TouchSession(ctx, rdb, uid); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSession(ctx, rdb, uid)
	if err != nil || got.SID != "s1" || got.Email != "a@b.c" || got.UpdatedAt.IsZero() {
		t.Fatalf("unexpected session %+v, %v", got, err)
	}
	if ttl := rdb.TTL(ctx, SessionKey(uid)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl not kept: %v", ttl)
	}
	rdb.HSet(ctx, SessionKey(uid), "updated_at", "not-a-time")
	if _, err := LoadSession(ctx, rdb, uid); err == nil || errors.Is(err, ErrNoSession) {
		t.Errorf("corrupt timestamp should be reported, got %v", err)
	}
	if err := DropSession(ctx, rdb, uid); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(ctx, rdb, uid); !errors.Is(err, ErrNoSession) {
		t.Errorf("session survived drop: %v", err)
	}
}
