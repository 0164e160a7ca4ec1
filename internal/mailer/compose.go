package mailer

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/amoylab/hydrowatch/internal/i18n"
)

const layout = `{{ .Body | trim }}

--
{{ .Product | upper }} water quality monitoring, {{ now | date "2006" }}
`

// Composer renders localized mail bodies
type Composer struct {
	tr        *i18n.I18n
	verifyURL string
	tmpl      *template.Template
}

func NewComposer(tr *i18n.I18n, verifyURL string) *Composer {
	return &Composer{
		tr:        tr,
		verifyURL: verifyURL,
		tmpl:      template.Must(template.New("layout").Funcs(sprig.TxtFuncMap()).Parse(layout)),
	}
}

// OTP is the email-verification code mail sent at signup or on resend
func (c *Composer) OTP(lang, to, username, code string, minutes int) Message {
	data := map[string]any{"Username": username, "Code": code, "Minutes": minutes, "VerifyURL": c.verifyURL}
	return Message{
		Kind:    "otp",
		To:      to,
		Subject: c.tr.Translate("MailOTPSubject", lang, data),
		Body:    c.wrap(c.tr.Translate("MailOTPBody", lang, data)),
	}
}

// AdminWelcome is sent to a freshly created admin with their code and sites
func (c *Composer) AdminWelcome(lang, to, username, role, code string, minutes int, establishments []string) Message {
	data := map[string]any{
		"Username":       username,
		"Role":           role,
		"Code":           code,
		"Minutes":        minutes,
		"Establishments": strings.Join(establishments, ", "),
	}
	return Message{
		Kind:    "admin_welcome",
		To:      to,
		Subject: c.tr.Translate("MailAdminWelcomeSubject", lang, data),
		Body:    c.wrap(c.tr.Translate("MailAdminWelcomeBody", lang, data)),
	}
}

// Reset carries a password-reset code
func (c *Composer) Reset(lang, to, username, code string, minutes int) Message {
	data := map[string]any{"Username": username, "Code": code, "Minutes": minutes}
	return Message{
		Kind:    "reset",
		To:      to,
		Subject: c.tr.Translate("MailResetSubject", lang, data),
		Body:    c.wrap(c.tr.Translate("MailResetBody", lang, data)),
	}
}

// Translate exposes the underlying translator for non-mail text
func (c *Composer) Translate(msgID, lang string, data map[string]any) string {
	return c.tr.Translate(msgID, lang, data)
}

// Language returns the default mail language
func (c *Composer) Language() string {
	return c.tr.DefaultLanguage()
}

func (c *Composer) wrap(body string) string {
	var buf bytes.Buffer
	err := c.tmpl.Execute(&buf, map[string]any{
		"Body":    body,
		"Product": "HydroWatch",
	})
	if err != nil {
		return body
	}
	return buf.String()
}
