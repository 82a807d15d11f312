package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const (
	TemplateMemberDeleted   = "member_deleted"
	TemplateMemberSetup     = "member_setup"
	TemplateOverdueReminder = "overdue_reminder"
)

// Each template starts with a "Subject:" line followed by a blank line and the body.
var templates = template.Must(template.New("mail").Parse(`
{{define "member_deleted"}}Subject: Your {{.LibraryName}} account has been removed

Hello {{.Name}},

Your member account ({{.UserCode}}) at {{.LibraryName}} has been removed by a librarian.
If you think this is a mistake, please contact the library.

{{.LibraryName}}
{{end}}

{{define "member_setup"}}Subject: Set up your {{.LibraryName}} account

Hello {{.Name}},

An account has been created for you at {{.LibraryName}}. Your member ID is {{.UserCode}}.

Choose a password using the link below. The link expires on {{.ExpiresAt}}.

{{.Link}}

{{.LibraryName}}
{{end}}

{{define "overdue_reminder"}}Subject: Overdue: {{.BookTitle}}

Hello {{.Name}},

"{{.BookTitle}}" was due on {{.DueDate}} and is now {{.DaysOverdue}} day(s) overdue.
Please return or renew it at {{.LibraryName}} as soon as possible.

{{.LibraryName}}
{{end}}
`))

// Render executes a named template and splits off its subject line.
func Render(name string, data any) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", name, err)
	}

	head, rest, ok := strings.Cut(buf.String(), "\n")
	if !ok || !strings.HasPrefix(head, "Subject: ") {
		return "", "", fmt.Errorf("render %s: missing subject line", name)
	}
	return strings.TrimPrefix(head, "Subject: "), strings.TrimLeft(rest, "\n"), nil
}
