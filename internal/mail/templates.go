// AngelaMos | 2026
// templates.go

package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type mailTemplate struct {
	subject  string
	required []string
	text     *texttemplate.Template
	html     *htmltemplate.Template
}

const layoutHTML = `<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937;max-width:560px;margin:0 auto;padding:24px">
<h2 style="color:#0f766e">PropertyXchange</h2>
{{template "content" .}}
<p style="color:#6b7280;font-size:12px;margin-top:32px">You received this email because an account action was requested on PropertyXchange.</p>
</body></html>`

func newTemplate(
	name, subject, text, html string,
	required ...string,
) mailTemplate {
	h := htmltemplate.Must(htmltemplate.New(name).Parse(layoutHTML))
	htmltemplate.Must(h.New("content").Parse(html))

	return mailTemplate{
		subject:  subject,
		required: required,
		text:     texttemplate.Must(texttemplate.New(name).Parse(text)),
		html:     h,
	}
}

var templates = map[Kind]mailTemplate{
	KindVerification: newTemplate(
		"verification",
		"Verify your email",
		"Hi {{.username}},\n\nYour verification code is {{.code}}. It expires in 24 hours.\n",
		`<p>Hi {{.username}},</p>
<p>Your verification code is:</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.code}}</p>
<p>The code expires in 24 hours.</p>`,
		ParamCode,
	),
	KindWelcome: newTemplate(
		"welcome",
		"Welcome to PropertyXchange",
		"Hi {{.username}},\n\nYour email is verified. Welcome to PropertyXchange.\n",
		`<p>Hi {{.username}},</p>
<p>Your email is verified. Welcome to PropertyXchange.</p>`,
	),
	KindPasswordReset: newTemplate(
		"password_reset",
		"Reset your password",
		"Hi {{.username}},\n\nReset your password here: {{.reset_url}}\nThe link expires in 1 hour. If you did not ask for this, ignore this email.\n",
		`<p>Hi {{.username}},</p>
<p>We received a request to reset your password.</p>
<p><a href="{{.reset_url}}" style="background:#0f766e;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none">Reset password</a></p>
<p>The link expires in 1 hour. If you did not ask for this, ignore this email.</p>`,
		ParamResetURL,
	),
	KindPasswordResetSuccess: newTemplate(
		"password_reset_success",
		"Your password was changed",
		"Hi {{.username}},\n\nYour password was reset successfully.\n",
		`<p>Hi {{.username}},</p>
<p>Your password was reset successfully. If this was not you, contact support immediately.</p>`,
	),
}

func render(kind Kind, to string, params map[string]string) (Message, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	for _, key := range tmpl.required {
		if params[key] == "" {
			return Message{}, fmt.Errorf("%w: %s", ErrMissingParam, key)
		}
	}

	data := make(map[string]string, len(params)+1)
	data[ParamUsername] = "there"
	for k, v := range params {
		if v != "" {
			data[k] = v
		}
	}

	var text, html bytes.Buffer
	if err := tmpl.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("execute text template: %w", err)
	}
	if err := tmpl.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("execute html template: %w", err)
	}

	return Message{
		To:      to,
		Subject: tmpl.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
