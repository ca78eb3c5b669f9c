package notify

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

var templates = map[Kind]emailTemplate{
	KindVerifyEmail: mustTemplate(KindVerifyEmail,
		`Verify Your Email Address`,
		`<h2>Email Verification</h2>
<p>Please verify your email address by clicking the link below:</p>
<a href="{{.link}}">{{.link}}</a>
<p>If you did not request this, please ignore this email.</p>`),
	KindStatusUpdate: mustTemplate(KindStatusUpdate,
		`Update on Your Restaurant: {{.restaurant}}`,
		`<h2>Status Update</h2>
<p>The status of your restaurant <strong>{{.restaurant}}</strong> has been updated to <strong>{{.status}}</strong>.</p>
<p>If you have any questions, please contact our support team.</p>`),
	KindBusinessRegistered: mustTemplate(KindBusinessRegistered,
		`Your Business Registration`,
		`<h2>Business Registered</h2>
<p>Your business "{{.restaurant}}" has been registered successfully.</p>
<p>Our team will review the details, and you will be notified once approved.</p>`),
	KindPasswordChanged: mustTemplate(KindPasswordChanged,
		`Your Password Was Changed`,
		`<p>Your password has been updated successfully. If this was not you, please reset your password immediately.</p>`),
	KindPasswordReset: mustTemplate(KindPasswordReset,
		`Password Reset`,
		`<p>You requested a password reset.</p>
<p>Click the link below to reset your password:</p>
<a href="{{.link}}">{{.link}}</a>
<p>This link will expire in 10 minutes.</p>`),
}

func mustTemplate(kind Kind, subject, body string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(string(kind) + "-subject").Option("missingkey=error").Parse(subject)),
		body:    template.Must(template.New(string(kind) + "-body").Option("missingkey=error").Parse(body)),
	}
}

// Render produces the subject line and HTML body for a notification.
func Render(kind Kind, data Data) (subject, body string, err error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	var s, b bytes.Buffer
	if err := tpl.subject.Execute(&s, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tpl.body.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", kind, err)
	}
	return s.String(), b.String(), nil
}
