// Package notify delivers the service's outbound email, either directly over
// SMTP or by handing events to a webhook that sends them.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/Inspirimental/addonware-web-sub000/internal/services"
	"github.com/Inspirimental/addonware-web-sub000/internal/utils"
)

// Email is a rendered plain-text message.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends a rendered email.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

var (
	unlockBody = template.Must(template.New("unlock").Parse(`Hello {{.Name}},

use the link below to unlock the full solution of "{{.ResourceTitle}}".
The link works once.

{{.Link}}
`))
	confirmationBody = template.Must(template.New("confirmation").Parse(`Hello {{.Name}},

thank you for completing "{{.QuestionnaireTitle}}". Your answers:
{{range .Lines}}
- {{.Question}}: {{.Answer}}{{end}}
`))
	noticeBody = template.Must(template.New("notice").Parse(`New response {{.ResponseID}} to "{{.QuestionnaireTitle}}"

Name: {{.Name}}
Email: {{.Email}}{{if .Organization}}
Organization: {{.Organization}}{{end}}
{{range .Lines}}
- {{.Question}}: {{.Answer}}{{end}}
`))
)

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func subject(locale, key, title string) string {
	return fmt.Sprintf(utils.T(locale, key), title)
}

// RenderUnlockLink builds the unlock email.
func RenderUnlockLink(msg services.UnlockLinkMessage) (Email, error) {
	body, err := render(unlockBody, msg)
	if err != nil {
		return Email{}, err
	}
	return Email{To: msg.Email, Subject: subject(msg.Locale, "mail.unlock.subject", msg.ResourceTitle), Body: body}, nil
}

// RenderConfirmation builds the thank-you email for the submitter.
func RenderConfirmation(msg services.SubmissionMessage) (Email, error) {
	body, err := render(confirmationBody, msg)
	if err != nil {
		return Email{}, err
	}
	return Email{To: msg.To, Subject: subject(msg.Locale, "mail.confirmation.subject", msg.QuestionnaireTitle), Body: body}, nil
}

// RenderNotice builds the internal notice about a new response.
func RenderNotice(msg services.SubmissionMessage) (Email, error) {
	body, err := render(noticeBody, msg)
	if err != nil {
		return Email{}, err
	}
	return Email{To: msg.To, Subject: subject("en", "mail.notice.subject", msg.QuestionnaireTitle), Body: body}, nil
}

// headerSafe strips CR/LF so user-provided text cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(s)
}
