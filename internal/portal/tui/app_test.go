package tui

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/internal/portal/api"
	"github.com/oksasatya/account-portal/internal/portal/login"
	"github.com/oksasatya/account-portal/internal/portal/notify"
	"github.com/oksasatya/account-portal/internal/portal/profile"
	"github.com/oksasatya/account-portal/internal/portal/storage"
)

type stubAPI struct {
	replies map[string]string
}

func (s stubAPI) Request(_ context.Context, path, _ string, _ any) (*api.Response, error) {
	return &api.Response{Status: 200, Data: json.RawMessage(s.replies[path])}, nil
}

type nopCookies struct{}

func (nopCookies) SetCookie(string, string, time.Duration) error { return nil }

type harness struct {
	model  Model
	router *Router
	auth   *login.Screen
	clock  *notify.ManualScheduler
	mu     sync.Mutex
	sent   []tea.Msg
}

func newHarness(replies map[string]string) *harness {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := &harness{clock: notify.NewManualScheduler()}
	kv := storage.NewMemoryStore()
	a := stubAPI{replies: replies}
	h.router = NewRouter(RouteAuth)
	h.router.attach(func(msg tea.Msg) {
		h.mu.Lock()
		h.sent = append(h.sent, msg)
		h.mu.Unlock()
	})
	h.auth = login.New(login.DefaultConfig(), login.Deps{
		API: a, Cookies: nopCookies{}, Store: kv, Router: h.router, Scheduler: h.clock, Logger: logger,
	})
	h.model = New(h.router, h.auth, func() *profile.Screen {
		return profile.New(profile.DefaultConfig(), profile.Deps{API: a, Store: kv, Scheduler: h.clock, Logger: logger})
	})
	return h
}

func (h *harness) send(msg tea.Msg) {
	next, _ := h.model.Update(msg)
	h.model = next.(Model)
}

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.sent {
		if n, ok := m.(navigateMsg); ok {
			out = append(out, n.path)
		}
	}
	return out
}

func TestTypingFeedsController(t *testing.T) {
	h := newHarness(nil)
	h.typeText("alice")
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.typeText("secret")

	st := h.auth.State()
	if st.Login != "alice" || st.Password.Value != "secret" {
		t.Fatalf("unexpected controller state %+v", st)
	}
	if !h.auth.CanLogin() {
		t.Error("login should be enabled")
	}
	if !strings.Contains(h.model.View(), "Sign in") {
		t.Error("expected the sign-in view")
	}
}

func TestModeSwitchKeysClearInputs(t *testing.T) {
	h := newHarness(nil)
	h.typeText("alice")
	h.send(tea.KeyMsg{Type: tea.KeyCtrlN})

	if h.auth.State().Mode != login.ModeRegistration {
		t.Fatal("ctrl+n should open registration")
	}
	for i, in := range h.model.authInputs {
		if in.Value() != "" {
			t.Errorf("input %d not cleared: %q", i, in.Value())
		}
	}
	if !strings.Contains(h.model.View(), "Registration") {
		t.Error("expected the registration view")
	}

	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	if h.auth.State().Mode != login.ModeLogin {
		t.Error("esc returns to login")
	}
}

func TestLoginNavigatesToProfile(t *testing.T) {
	h := newHarness(map[string]string{
		api.PathAuthLogin: `{"access_token":"tok","data":{"email":"alice@example.com"}}`,
		api.PathProfile:   `{"username":"alice","realName":"Алиса","realSurname":"Иванова"}`,
	})
	h.typeText("alice")
	h.send(tea.KeyMsg{Type: tea.KeyTab})
	h.typeText("secret")
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.auth.Wait()

	navs := h.navigations()
	if len(navs) != 1 || navs[0] != RouteProfile {
		t.Fatalf("expected navigation to the profile, got %v", navs)
	}
	if h.router.Path() != RouteProfile {
		t.Errorf("router path %q", h.router.Path())
	}

	h.send(navigateMsg{path: RouteProfile})
	if h.model.prof == nil {
		t.Fatal("profile screen should be created")
	}
	h.model.prof.Wait()
	h.clock.Advance(500 * time.Millisecond)
	h.send(refreshMsg{})

	if got := h.model.profInputs[fieldRealName].Value(); got != "Алиса" {
		t.Errorf("expected loaded name in input, got %q", got)
	}
	if !strings.Contains(h.model.View(), "alice") {
		t.Error("expected the username in the profile view")
	}
}

func TestErrorMessageShown(t *testing.T) {
	h := newHarness(nil)
	h.send(errMsg{err: io.ErrUnexpectedEOF})
	if !strings.Contains(h.model.View(), io.ErrUnexpectedEOF.Error()) {
		t.Error("expected the transport error in the view")
	}
}
