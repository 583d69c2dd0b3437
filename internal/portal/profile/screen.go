// Package profile is the controller of the profile edit screen: it loads the
// stored account's data, validates edits and saves them.
package profile

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/internal/portal/api"
	"github.com/oksasatya/account-portal/internal/portal/form"
	"github.com/oksasatya/account-portal/internal/portal/notify"
	"github.com/oksasatya/account-portal/internal/portal/storage"
	"github.com/oksasatya/account-portal/pkg/helpers"
)

const (
	NoticeTitle = "Attention"
	NoticeSaved = "Your information has been updated"
)

type Config struct {
	NoticeDelay time.Duration
	MinLoader   time.Duration
}

func DefaultConfig() Config {
	return Config{NoticeDelay: 4 * time.Second, MinLoader: 500 * time.Millisecond}
}

// Deps are the collaborators of the screen. Scheduler and Logger may be nil.
type Deps struct {
	API       api.Requester
	Store     storage.KeyValue
	Scheduler notify.Scheduler
	Logger    *logrus.Logger
}

type State struct {
	Loading bool
	Email   string

	Username    string
	RealName    string
	RealSurname string
	School      string
	University  string
	WorkPlace   string

	UsernameCheck    form.FieldValidation
	RealNameCheck    form.FieldValidation
	RealSurnameCheck form.FieldValidation
	SchoolCheck      form.FieldValidation
	UniversityCheck  form.FieldValidation
	WorkPlaceCheck   form.FieldValidation

	Notice notify.State
}

// Screen is the profile screen controller.
type Screen struct {
	mu    sync.Mutex
	cfg   Config
	deps  Deps
	log   *logrus.Logger
	sched notify.Scheduler

	st         State
	mounted    bool
	loaderDone bool
	fetchDone  bool
	loader     notify.Timer

	notice   *notify.Notification
	wg       sync.WaitGroup
	onChange func()
	onError  func(error)
}

func New(cfg Config, deps Deps) *Screen {
	s := &Screen{cfg: cfg, deps: deps, log: deps.Logger, sched: deps.Scheduler}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.sched == nil {
		s.sched = notify.RealScheduler{}
	}
	s.st.Loading = true
	s.notice = notify.New(cfg.NoticeDelay, s.sched, s.changed)
	return s
}

func (s *Screen) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

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
	st := s.st
	st.Notice = s.notice.State()
	return st
}

// Mount reads the stored e-mail, starts the minimum loader timer and fetches
// the profile. Only the first call has an effect.
func (s *Screen) Mount() {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = true
	if s.deps.Store != nil {
		s.st.Email = s.deps.Store.Get(storage.KeyInitialEmail, "")
	}
	email := s.st.Email
	s.loader = s.sched.AfterFunc(s.cfg.MinLoader, s.loaderElapsed)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		resp, err := s.deps.API.Request(context.Background(), api.PathProfile, http.MethodPost, api.ProfileRequest{Email: email})
		if err != nil {
			s.fail(api.PathProfile, err)
		} else {
			s.apply(api.ReadProfile(resp.Data))
		}
		s.mu.Lock()
		s.fetchDone = true
		s.settleLocked()
		s.mu.Unlock()
		s.changed()
	}()
}

func (s *Screen) loaderElapsed() {
	s.mu.Lock()
	s.loaderDone = true
	s.settleLocked()
	s.mu.Unlock()
	s.changed()
}

// settleLocked clears the loader once both the minimum duration and the
// fetch are over.
func (s *Screen) settleLocked() {
	if s.loaderDone && s.fetchDone {
		s.st.Loading = false
	}
}

func (s *Screen) apply(p api.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Username, s.st.UsernameCheck = p.Username, loaded(p.Username)
	s.st.RealName, s.st.RealNameCheck = p.RealName, loaded(p.RealName)
	s.st.RealSurname, s.st.RealSurnameCheck = p.RealSurname, loaded(p.RealSurname)
	s.st.School, s.st.SchoolCheck = p.School, loaded(p.School)
	s.st.University, s.st.UniversityCheck = p.University, loaded(p.University)
	s.st.WorkPlace, s.st.WorkPlaceCheck = p.WorkPlace, loaded(p.WorkPlace)
}

// loaded marks fetched values valid and leaves empty ones neutral.
func loaded(v string) form.FieldValidation {
	if v == "" {
		return form.Unchecked()
	}
	return form.Accept()
}

func (s *Screen) fail(path string, err error) {
	helpers.LogError(s.log, "request failed", err, logrus.Fields{"path": path})
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// SetRealName stores the trimmed input.
func (s *Screen) SetRealName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.RealName = strings.TrimSpace(v)
	s.st.RealNameCheck = form.RealName(v)
}

// SetRealSurname stores the trimmed input.
func (s *Screen) SetRealSurname(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.RealSurname = strings.TrimSpace(v)
	s.st.RealSurnameCheck = form.RealSurname(v)
}

func (s *Screen) SetSchool(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.School, s.st.SchoolCheck = v, form.Optional(v)
}

func (s *Screen) SetUniversity(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.University, s.st.UniversityCheck = v, form.Optional(v)
}

func (s *Screen) SetWorkPlace(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.WorkPlace, s.st.WorkPlaceCheck = v, form.Optional(v)
}

func (s *Screen) canSaveLocked() bool {
	return s.st.RealName != "" && !s.st.RealNameCheck.Invalid &&
		s.st.RealSurname != "" && !s.st.RealSurnameCheck.Invalid
}

// CanSave reports whether name and surname are filled in and not in error.
// The optional fields never block saving.
func (s *Screen) CanSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canSaveLocked()
}

// Save shows the confirmation right away and sends the update; the reply is
// not inspected.
func (s *Screen) Save() bool {
	s.mu.Lock()
	if !s.canSaveLocked() {
		s.mu.Unlock()
		return false
	}
	body := api.ProfileUpdateRequest{
		Email:       s.st.Email,
		RealName:    s.st.RealName,
		RealSurname: s.st.RealSurname,
		School:      s.st.School,
		University:  s.st.University,
		WorkPlace:   s.st.WorkPlace,
	}
	s.mu.Unlock()

	s.notice.Show(NoticeTitle, NoticeSaved)
	s.changed()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.deps.API.Request(context.Background(), api.PathProfileSave, http.MethodPost, body); err != nil {
			s.fail(api.PathProfileSave, err)
		}
	}()
	return true
}

func (s *Screen) DismissNotice() { s.notice.Dismiss() }

// Wait blocks until outstanding requests have finished.
func (s *Screen) Wait() { s.wg.Wait() }

// Close cancels the loader and notification timers.
func (s *Screen) Close() {
	s.mu.Lock()
	if s.loader != nil {
		s.loader.Stop()
	}
	s.mu.Unlock()
	s.notice.Stop()
}
