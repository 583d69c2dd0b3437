package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Routes of the portal.
const (
	RouteAuth    = "/"
	RouteProfile = "/personal-area"
)

type navigateMsg struct{ path string }

type refreshMsg struct{}

type errMsg struct{ err error }

// Router records the current route and forwards navigation to the running
// program. It satisfies login.Router.
type Router struct {
	mu   sync.Mutex
	path string
	send func(tea.Msg)
}

func NewRouter(start string) *Router {
	return &Router{path: start}
}

func (r *Router) Push(path string) {
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
	r.emit(navigateMsg{path: path})
}

// Path returns the current route.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

func (r *Router) attach(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
}

func (r *Router) emit(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}
