package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name           string `json:"Name"`
	Email          string `json:"Email"`
	RecipientEmail string `json:"RecipientEmail"`
	Type           string `json:"Type"`

	AppName     string `json:"AppName"`
	CompanyName string `json:"CompanyName"`
	SupportURL  string `json:"SupportURL"`
	PortalURL   string `json:"PortalURL"`

	Login        string `json:"Login"`
	TempPassword string `json:"TempPassword"`

	IP        string    `json:"IP"`
	UserAgent string    `json:"UserAgent"`
	Time      string    `json:"Time"`
	TimeAt    time.Time `json:"TimeAt"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.IsZero() {
			return fallback
		}
		return value
	}
}

var funcs = map[string]any{"default": defaultFn}

// Template names
const (
	AccountRecovery = "account_recovery"
	Welcome         = "welcome"
)

// set is one e-mail: <name>.subject.tmpl, <name>.text.tmpl and <name>.html.tmpl.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var (
	loadOnce sync.Once
	sets     map[string]*set
	loadErr  error
)

// load parses every embedded e-mail once.
func load() (map[string]*set, error) {
	loadOnce.Do(func() {
		names, err := fs.Glob(FS, "*.subject.tmpl")
		if err != nil {
			loadErr = err
			return
		}
		sets = make(map[string]*set, len(names))
		for _, n := range names {
			name := strings.TrimSuffix(n, ".subject.tmpl")
			st, err := parseSet(name)
			if err != nil {
				loadErr = err
				return
			}
			sets[name] = st
		}
	})
	return sets, loadErr
}

func parseSet(name string) (*set, error) {
	subjectFile, textFile, htmlFile := name+".subject.tmpl", name+".text.tmpl", name+".html.tmpl"
	subject, err := texttpl.New(subjectFile).Funcs(funcs).ParseFS(FS, subjectFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s subject: %w", name, err)
	}
	text, err := texttpl.New(textFile).Funcs(funcs).ParseFS(FS, textFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s text: %w", name, err)
	}
	html, err := htmpl.New(htmlFile).Funcs(funcs).ParseFS(FS, htmlFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", name, err)
	}
	return &set{subject: subject, text: text, html: html}, nil
}

// Known reports whether name has embedded templates.
func Known(name string) bool {
	all, err := load()
	return err == nil && all[name] != nil
}

type executor interface {
	Execute(w io.Writer, data any) error
}

func execute(t executor, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render renders the subject, plain-text and HTML bodies of the e-mail name.
func Render(name string, data any) (subject string, text string, html string, err error) {
	all, err := load()
	if err != nil {
		return "", "", "", err
	}
	st := all[name]
	if st == nil {
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
	if subject, err = execute(st.subject, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s subject: %w", name, err)
	}
	if text, err = execute(st.text, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s text: %w", name, err)
	}
	if html, err = execute(st.html, data); err != nil {
		return "", "", "", fmt.Errorf("exec %s html: %w", name, err)
	}
	return strings.TrimSpace(subject), text, html, nil
}
