package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/account-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/account-portal/pkg/mailer/templates"
)

// templateAliases maps the short names producers may use onto embedded templates.
var templateAliases = map[string]string{
	"recovery":     mailtpl.AccountRecovery,
	"registration": mailtpl.Welcome,
}

// FallbackSubject is used for raw jobs that carry no subject.
func FallbackSubject(template string) string {
	switch template {
	case mailtpl.AccountRecovery:
		return "Your temporary password"
	case mailtpl.Welcome:
		return "Welcome"
	default:
		return "Notification"
	}
}

// NormalizeJob fills recipient fields and resolves template aliases.
func NormalizeJob(job *mailer.EmailJob) {
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if alias, ok := templateAliases[job.Template]; ok {
		job.Template = alias
	}
	if job.Template == "" {
		if job.Subject == "" {
			job.Subject = FallbackSubject("")
		}
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
