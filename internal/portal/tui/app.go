// Package tui renders the portal screens in the terminal with Bubble Tea. The
// screen controllers own all state; the model only mirrors it into inputs.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oksasatya/account-portal/internal/portal/form"
	"github.com/oksasatya/account-portal/internal/portal/login"
	"github.com/oksasatya/account-portal/internal/portal/notify"
	"github.com/oksasatya/account-portal/internal/portal/profile"
)

type keyMap struct {
	Next         key.Binding
	Prev         key.Binding
	Submit       key.Binding
	Reveal       key.Binding
	Registration key.Binding
	Recovery     key.Binding
	Back         key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:         key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next")),
		Prev:         key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev")),
		Submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Reveal:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "show password")),
		Registration: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "register")),
		Recovery:     key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "forgot password")),
		Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// auth input slots
const (
	fieldEmail = iota
	fieldLogin
	fieldPassword
	fieldConfirm
)

// profile input slots
const (
	fieldRealName = iota
	fieldRealSurname
	fieldSchool
	fieldUniversity
	fieldWorkPlace
)

// Model is the Bubble Tea model of the portal.
type Model struct {
	router     *Router
	auth       *login.Screen
	newProfile func() *profile.Screen
	prof       *profile.Screen

	route      string
	authInputs []textinput.Model
	authFocus  int
	profInputs []textinput.Model
	profFocus  int

	spin    spinner.Model
	help    help.Model
	keys    keyMap
	lastErr string
}

// New builds the model. newProfile is called each time the profile route is
// entered.
func New(router *Router, auth *login.Screen, newProfile func() *profile.Screen) Model {
	m := Model{
		router:     router,
		auth:       auth,
		newProfile: newProfile,
		route:      router.Path(),
		spin:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:       help.New(),
		keys:       defaultKeys(),
	}
	m.authInputs = []textinput.Model{
		newInput("Email", "user@example.com", false),
		newInput("Login", "username", false),
		newInput("Password", "", true),
		newInput("Repeat password", "", true),
	}
	m.profInputs = []textinput.Model{
		newInput("First name", "Евкакий", false),
		newInput("Surname", "Премудрый", false),
		newInput("School", "Гимназия №4", false),
		newInput("University", "Стэнфорд", false),
		newInput("Work place", "Facebook", false),
	}
	m.focusAuth(0)
	return m
}

func newInput(title, placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Prompt = title + ": "
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// Run starts the program and blocks until the user quits.
func Run(m Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, opts...)
	m.router.attach(p.Send)
	m.auth.OnChange(func() { p.Send(refreshMsg{}) })
	m.auth.OnError(func(err error) { p.Send(errMsg{err: err}) })

	final, err := p.Run()
	m.auth.Close()
	if fm, ok := final.(Model); ok && fm.prof != nil {
		fm.prof.Close()
	}
	return err
}

func (m Model) Init() tea.Cmd {
	if m.route == RouteProfile {
		return func() tea.Msg { return navigateMsg{path: RouteProfile} }
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case navigateMsg:
		return m.navigate(msg.path)
	case refreshMsg:
		m.sync()
		return m, nil
	case errMsg:
		m.lastErr = msg.err.Error()
		return m, nil
	case spinner.TickMsg:
		if m.prof == nil || !m.prof.State().Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.route == RouteProfile && m.prof != nil {
			return m.updateProfile(msg)
		}
		return m.updateAuth(msg)
	}
	return m, nil
}

func (m Model) navigate(path string) (tea.Model, tea.Cmd) {
	if path == m.route && (path != RouteProfile || m.prof != nil) {
		return m, nil
	}
	m.route = path
	if path != RouteProfile {
		if m.prof != nil {
			m.prof.Close()
			m.prof = nil
		}
		m.focusAuth(0)
		m.sync()
		return m, textinput.Blink
	}
	m.prof = m.newProfile()
	send := m.router.emit
	m.prof.OnChange(func() { send(refreshMsg{}) })
	m.prof.OnError(func(err error) { send(errMsg{err: err}) })
	m.prof.Mount()
	m.focusProfile(0)
	return m, tea.Batch(m.spin.Tick, textinput.Blink)
}

// authFields lists the inputs shown in the current mode.
func authFields(mode login.Mode) []int {
	switch mode {
	case login.ModeRegistration:
		return []int{fieldEmail, fieldLogin, fieldPassword, fieldConfirm}
	case login.ModeRecovery:
		return []int{fieldEmail}
	default:
		return []int{fieldLogin, fieldPassword}
	}
}

func (m *Model) focusAuth(pos int) {
	fields := authFields(m.auth.State().Mode)
	pos = (pos%len(fields) + len(fields)) % len(fields)
	m.authFocus = pos
	for i := range m.authInputs {
		m.authInputs[i].Blur()
	}
	m.authInputs[fields[pos]].Focus()
}

func (m *Model) focusProfile(pos int) {
	n := len(m.profInputs)
	pos = (pos%n + n) % n
	m.profFocus = pos
	for i := range m.profInputs {
		m.profInputs[i].Blur()
	}
	m.profInputs[pos].Focus()
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.auth.State()
	fields := authFields(st.Mode)
	current := fields[m.authFocus]

	switch {
	case key.Matches(msg, m.keys.Back):
		switch {
		case st.Notice.Visible:
			m.auth.DismissNotice()
		case st.Mode != login.ModeLogin:
			m.switchMode(login.ModeLogin)
		default:
			return m, tea.Quit
		}
		return m, nil
	case key.Matches(msg, m.keys.Registration):
		m.switchMode(login.ModeRegistration)
		return m, nil
	case key.Matches(msg, m.keys.Recovery):
		m.switchMode(login.ModeRecovery)
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.focusAuth(m.authFocus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.focusAuth(m.authFocus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Reveal):
		if current == fieldConfirm {
			m.auth.ToggleConfirm()
		} else {
			m.auth.TogglePassword()
		}
		m.sync()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.lastErr = ""
		switch st.Mode {
		case login.ModeRegistration:
			m.auth.SubmitRegistration()
		case login.ModeRecovery:
			m.auth.SubmitRecovery()
		default:
			m.auth.SubmitLogin()
		}
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.authInputs[current].Value()
	m.authInputs[current], cmd = m.authInputs[current].Update(msg)
	if v := m.authInputs[current].Value(); v != before {
		switch current {
		case fieldEmail:
			m.auth.SetEmail(v)
		case fieldLogin:
			m.auth.SetLogin(v)
		case fieldPassword:
			m.auth.SetPassword(v)
		case fieldConfirm:
			m.auth.SetConfirm(v)
		}
	}
	m.sync()
	return m, cmd
}

func (m *Model) switchMode(mode login.Mode) {
	m.auth.SetMode(mode)
	m.lastErr = ""
	m.focusAuth(0)
	m.sync()
}

func (m Model) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.prof.State()
	if st.Loading {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		if st.Notice.Visible {
			m.prof.DismissNotice()
			return m, nil
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.focusProfile(m.profFocus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.focusProfile(m.profFocus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.lastErr = ""
		m.prof.Save()
		return m, nil
	}

	var cmd tea.Cmd
	i := m.profFocus
	before := m.profInputs[i].Value()
	m.profInputs[i], cmd = m.profInputs[i].Update(msg)
	if v := m.profInputs[i].Value(); v != before {
		switch i {
		case fieldRealName:
			m.prof.SetRealName(v)
		case fieldRealSurname:
			m.prof.SetRealSurname(v)
		case fieldSchool:
			m.prof.SetSchool(v)
		case fieldUniversity:
			m.prof.SetUniversity(v)
		case fieldWorkPlace:
			m.prof.SetWorkPlace(v)
		}
	}
	m.sync()
	return m, cmd
}

// sync copies controller values into the inputs.
func (m *Model) sync() {
	st := m.auth.State()
	setValue(&m.authInputs[fieldEmail], st.Email)
	setValue(&m.authInputs[fieldLogin], st.Login)
	setValue(&m.authInputs[fieldPassword], st.Password.Value)
	setValue(&m.authInputs[fieldConfirm], st.Confirm.Value)
	m.authInputs[fieldPassword].EchoMode = echo(st.Password.Reveal)
	m.authInputs[fieldConfirm].EchoMode = echo(st.Confirm.Reveal)

	if m.prof == nil {
		return
	}
	ps := m.prof.State()
	if ps.Loading {
		return
	}
	setValue(&m.profInputs[fieldRealName], ps.RealName)
	setValue(&m.profInputs[fieldRealSurname], ps.RealSurname)
	setValue(&m.profInputs[fieldSchool], ps.School)
	setValue(&m.profInputs[fieldUniversity], ps.University)
	setValue(&m.profInputs[fieldWorkPlace], ps.WorkPlace)
}

func setValue(ti *textinput.Model, v string) {
	if ti.Value() != v {
		ti.SetValue(v)
	}
}

func echo(reveal bool) textinput.EchoMode {
	if reveal {
		return textinput.EchoNormal
	}
	return textinput.EchoPassword
}

func (m Model) View() string {
	var body string
	if m.route == RouteProfile && m.prof != nil {
		body = m.profileView()
	} else {
		body = m.authView()
	}
	if m.lastErr != "" {
		body += "\n" + errorStyle.Render(markInvalid+" "+m.lastErr)
	}
	return panelStyle.Render(body)
}

func (m Model) authView() string {
	st := m.auth.State()
	var b strings.Builder

	checks := map[int]form.FieldValidation{
		fieldEmail:    st.EmailCheck,
		fieldLogin:    st.LoginCheck,
		fieldPassword: st.PasswordCheck,
		fieldConfirm:  st.ConfirmCheck,
	}

	var title, action string
	var enabled bool
	bindings := []key.Binding{m.keys.Next, m.keys.Submit}
	switch st.Mode {
	case login.ModeRegistration:
		title, action, enabled = "Registration", "Register", m.auth.CanRegister()
		bindings = append(bindings, m.keys.Reveal, m.keys.Back)
	case login.ModeRecovery:
		title, action, enabled = "Password recovery", "Recover", m.auth.CanRecover()
		bindings = append(bindings, m.keys.Back)
	default:
		title, action, enabled = "Sign in", "Sign in", m.auth.CanLogin()
		bindings = append(bindings, m.keys.Reveal, m.keys.Registration, m.keys.Recovery)
	}

	b.WriteString(titleStyle.Render(title) + "\n\n")
	for _, f := range authFields(st.Mode) {
		b.WriteString(fieldLine(m.authInputs[f].View(), checks[f]))
	}
	b.WriteString("\n" + button(action, enabled) + "\n")
	if st.Notice.Visible {
		b.WriteString("\n" + noticeView(st.Notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help.ShortHelpView(bindings)))
	return b.String()
}

func (m Model) profileView() string {
	st := m.prof.State()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Profile") + "  " + mutedStyle.Render("Tell us about yourself") + "\n\n")
	if st.Loading {
		b.WriteString(m.spin.View() + " loading\n")
		return b.String()
	}

	b.WriteString(mutedStyle.Render("Username: ") + accentStyle.Render(st.Username) + "\n")
	checks := []form.FieldValidation{
		st.RealNameCheck, st.RealSurnameCheck, st.SchoolCheck, st.UniversityCheck, st.WorkPlaceCheck,
	}
	for i, in := range m.profInputs {
		b.WriteString(fieldLine(in.View(), checks[i]))
	}
	b.WriteString("\n" + button("Save", m.prof.CanSave()) + "\n")
	if st.Notice.Visible {
		b.WriteString("\n" + noticeView(st.Notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help.ShortHelpView([]key.Binding{m.keys.Next, m.keys.Submit, m.keys.Back, m.keys.Quit})))
	return b.String()
}

func fieldLine(input string, v form.FieldValidation) string {
	line := input
	switch {
	case v.Valid:
		line += " " + successStyle.Render(markValid)
	case v.Invalid:
		line += "\n  " + errorStyle.Render(markInvalid+" "+v.Message)
	}
	return line + "\n"
}

func noticeView(n notify.State) string {
	return modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(n.Title),
		n.Body,
	))
}
