// Package login is the controller of the authentication screen. It owns the
// field state of the login, registration and recovery forms, gates the
// submit actions on field validity and reacts to the backend replies.
package login

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/internal/portal/api"
	"github.com/oksasatya/account-portal/internal/portal/form"
	"github.com/oksasatya/account-portal/internal/portal/notify"
	"github.com/oksasatya/account-portal/internal/portal/storage"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

// Mode selects the active sub-view of the screen.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegistration
	ModeRecovery
)

func (m Mode) String() string {
	switch m {
	case ModeRegistration:
		return "registration"
	case ModeRecovery:
		return "recovery"
	default:
		return "login"
	}
}

// LandingPath is where a successful sign-in navigates.
const LandingPath = "/personal-area"

// Router navigates between screens.
type Router interface {
	Push(path string)
}

type Config struct {
	CookieName  string
	CookieTTL   time.Duration
	NoticeDelay time.Duration
}

func DefaultConfig() Config {
	return Config{CookieName: "auth", CookieTTL: 5 * time.Minute, NoticeDelay: 2 * time.Second}
}

// Deps are the collaborators of the screen. Scheduler and Logger may be nil.
type Deps struct {
	API       api.Requester
	Cookies   storage.CookieWriter
	Store     storage.KeyValue
	Router    Router
	Scheduler notify.Scheduler
	Logger    *logrus.Logger
}

// State is a snapshot of everything the renderer draws.
type State struct {
	Mode     Mode
	Email    string
	Login    string
	Password form.Secret
	Confirm  form.Secret

	EmailCheck    form.FieldValidation
	LoginCheck    form.FieldValidation
	PasswordCheck form.FieldValidation
	ConfirmCheck  form.FieldValidation

	Notice notify.State
}

// Screen is the auth screen controller. All methods are safe for concurrent
// use; replies are handled on their own goroutines.
type Screen struct {
	mu   sync.Mutex
	cfg  Config
	deps Deps
	log  *logrus.Logger

	mode     Mode
	email    string
	login    string
	password form.Secret
	confirm  form.Secret

	emailCheck    form.FieldValidation
	loginCheck    form.FieldValidation
	passwordCheck form.FieldValidation
	confirmCheck  form.FieldValidation

	notice   *notify.Notification
	wg       sync.WaitGroup
	onChange func()
	onError  func(error)
}

func New(cfg Config, deps Deps) *Screen {
	s := &Screen{cfg: cfg, deps: deps, log: deps.Logger}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.notice = notify.New(cfg.NoticeDelay, deps.Scheduler, s.changed)
	return s
}

// OnChange registers the redraw hook, called after asynchronous updates.
func (s *Screen) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// OnError registers the hook receiving transport failures.
func (s *Screen) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *Screen) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Mode:          s.mode,
		Email:         s.email,
		Login:         s.login,
		Password:      s.password,
		Confirm:       s.confirm,
		EmailCheck:    s.emailCheck,
		LoginCheck:    s.loginCheck,
		PasswordCheck: s.passwordCheck,
		ConfirmCheck:  s.confirmCheck,
		Notice:        s.notice.State(),
	}
}

// SetMode switches the sub-view and resets every field.
func (s *Screen) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.clearLocked()
}

func (s *Screen) clearLocked() {
	s.email, s.login = "", ""
	s.password, s.confirm = form.Secret{}, form.Secret{}
	s.emailCheck = form.Unchecked()
	s.loginCheck = form.Unchecked()
	s.passwordCheck = form.Unchecked()
	s.confirmCheck = form.Unchecked()
}

func (s *Screen) registering() bool { return s.mode == ModeRegistration }

func (s *Screen) SetEmail(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.email = v
	s.emailCheck = form.Email(v, s.registering())
}

func (s *Screen) SetLogin(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.login = v
	s.loginCheck = form.Login(v, s.registering())
}

func (s *Screen) SetPassword(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password.Value = v
	s.passwordCheck = form.Password(v, s.registering())
	if s.registering() {
		s.confirmCheck = form.Confirm(s.confirm.Value, v)
	}
}

func (s *Screen) SetConfirm(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm.Value = v
	s.confirmCheck = form.Confirm(v, s.password.Value)
}

func (s *Screen) TogglePassword() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = s.password.Toggle()
}

func (s *Screen) ToggleConfirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm = s.confirm.Toggle()
}

// DismissNotice closes the notification.
func (s *Screen) DismissNotice() { s.notice.Dismiss() }

func (s *Screen) CanLogin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.AllValid(s.loginCheck, s.passwordCheck)
}

func (s *Screen) CanRegister() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.AllValid(s.emailCheck, s.loginCheck, s.passwordCheck, s.confirmCheck)
}

func (s *Screen) CanRecover() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return form.AllValid(s.emailCheck)
}

// SubmitLogin sends the credentials. It returns false without a request when
// the form is not valid.
func (s *Screen) SubmitLogin() bool {
	s.mu.Lock()
	if !form.AllValid(s.loginCheck, s.passwordCheck) {
		s.mu.Unlock()
		return false
	}
	body := api.LoginRequest{Username: s.login, Password: s.password.Value}
	s.mu.Unlock()

	s.send(api.PathAuthLogin, body, s.handleLogin)
	return true
}

func (s *Screen) handleLogin(resp *api.Response) {
	res := api.ReadLogin(resp.Data)
	if err := s.deps.Cookies.SetCookie(s.cfg.CookieName, res.AccessToken, s.cfg.CookieTTL); err != nil {
		helpers.LogError(s.log, "set session cookie failed", err, nil)
	}
	if res.Message == api.MessageUnauthorized {
		s.notice.Show(TitleError, NoticeWrongCredentials)
		return
	}
	if res.Email != "" && s.deps.Store != nil {
		if err := s.deps.Store.Set(storage.KeyInitialEmail, res.Email); err != nil {
			helpers.LogError(s.log, "store initial email failed", err, nil)
		}
	}
	s.deps.Router.Push(LandingPath)
}

// SubmitRegistration sends the new account and clears the form right away.
func (s *Screen) SubmitRegistration() bool {
	s.mu.Lock()
	if !form.AllValid(s.emailCheck, s.loginCheck, s.passwordCheck, s.confirmCheck) {
		s.mu.Unlock()
		return false
	}
	body := api.RegistrationRequest{Email: s.email, Login: s.login, Password: s.password.Value}
	s.clearLocked()
	s.mu.Unlock()

	s.send(api.PathRegistration, body, s.handleRegistration)
	return true
}

func (s *Screen) handleRegistration(resp *api.Response) {
	res := api.ReadRegistration(resp.Data)
	if res.Status == http.StatusCreated {
		s.notice.Show(TitleAttention, NoticeRegistered)
		return
	}
	// Both codes are checked; a reply carrying one message matches at most one.
	if res.Message == api.MessageEmailDuplicate {
		s.notice.Show(TitleError, NoticeEmailDuplicate)
	}
	if res.Message == api.MessageUserDuplicate {
		s.notice.Show(TitleError, NoticeUserDuplicate)
	}
}

// SubmitRecovery asks for a new password and clears the form right away.
func (s *Screen) SubmitRecovery() bool {
	s.mu.Lock()
	if !form.AllValid(s.emailCheck) {
		s.mu.Unlock()
		return false
	}
	body := api.RecoveryRequest{Email: s.email}
	s.clearLocked()
	s.mu.Unlock()

	s.send(api.PathRecovery, body, s.handleRecovery)
	return true
}

func (s *Screen) handleRecovery(resp *api.Response) {
	if api.Truthy(resp.Data) {
		s.notice.Show(TitleAttention, NoticeRecoverySent)
		return
	}
	s.notice.Show(TitleError, NoticeRecoveryUnknown)
}

// send issues the request on its own goroutine. Replies are applied whatever
// the current mode; in-flight requests are never cancelled.
func (s *Screen) send(path string, body any, handle func(*api.Response)) {
	s.changed()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resp, err := s.deps.API.Request(context.Background(), path, http.MethodPost, body)
		if err != nil {
			helpers.LogError(s.log, "request failed", err, logrus.Fields{"path": path})
			s.mu.Lock()
			fn := s.onError
			s.mu.Unlock()
			if fn != nil {
				fn(err)
			}
			return
		}
		handle(resp)
		s.changed()
	}()
}

// Wait blocks until every reply has been handled.
func (s *Screen) Wait() { s.wg.Wait() }

// Close cancels pending notification timers.
func (s *Screen) Close() { s.notice.Stop() }
