package storage

import (
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "portal")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if got := s.Get("initialEmail", "none"); got != "none" {
		t.Errorf("expected default, got %q", got)
	}
	if err := s.Set("initialEmail", "a@b.c"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, _ := NewFileStore(dir)
	if got := reopened.Get("initialEmail", ""); got != "a@b.c" {
		t.Errorf("expected persisted value, got %q", got)
	}

	fi, err := os.Stat(filepath.Join(dir, stateFileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 state file, got %v", fi.Mode().Perm())
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFileStore(dir)
	if got := s.Get("k", "def"); got != "def" {
		t.Errorf("expected default for corrupt file, got %q", got)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set should replace a corrupt file: %v", err)
	}
	if got := s.Get("k", ""); got != "v" {
		t.Errorf("got %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	if s.Get("x", "d") != "d" {
		t.Error("expected default")
	}
	_ = s.Set("x", "")
	if s.Get("x", "d") != "" {
		t.Error("an empty stored value is still a value")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: addr}), "portal:test:")
	if err := s.Set("initialEmail", "a@b.c"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get("initialEmail", ""); got != "a@b.c" {
		t.Errorf("got %q", got)
	}
	if got := s.Get("missing", "def"); got != "def" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestJarCookies(t *testing.T) {
	jar, _ := cookiejar.New(nil)
	kv := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	jc, err := NewJarCookies(jar, "http://127.0.0.1:8080", kv)
	if err != nil {
		t.Fatal(err)
	}
	jc.now = func() time.Time { return now }

	if err := jc.SetCookie("auth", "tok", 5*time.Minute); err != nil {
		t.Fatalf("SetCookie: %v", err)
	}
	if kv.Get("cookie:auth", "") == "" {
		t.Fatal("cookie was not persisted")
	}

	jar2, _ := cookiejar.New(nil)
	restored, _ := NewJarCookies(jar2, "http://127.0.0.1:8080", kv)
	restored.now = func() time.Time { return now.Add(4 * time.Minute) }
	if !restored.Restore("auth") {
		t.Fatal("expected unexpired cookie to be restored")
	}

	late, _ := NewJarCookies(jar2, "http://127.0.0.1:8080", kv)
	late.now = func() time.Time { return now.Add(6 * time.Minute) }
	if late.Restore("auth") {
		t.Error("expired cookie must not be restored")
	}

	_ = jc.SetCookie("auth", "", 5*time.Minute)
	if restored.Restore("auth") {
		t.Error("empty cookie must not be restored")
	}
}
