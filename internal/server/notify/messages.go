package notify

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Message is a rendered mail ready for a Sender.
type Message struct {
	Subject string
	Body    string
}

var verificationTmpl = template.Must(template.New("verify").Parse(`<html><body>
<h2>Welcome{{if .Name}}, {{.Name}}{{end}}!</h2>
<p>Please confirm your email address to activate your account.</p>
<p><a href="{{.Link}}">Verify Email</a></p>
<p>The link expires in {{.Validity}}.</p>
<p>If you did not register, ignore this message.</p>
</body></html>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<html><body>
<h2>Password reset</h2>
<p>We received a request to reset the password of {{.Email}}.</p>
<p><a href="{{.Link}}">Reset Password</a></p>
<p>The link expires in {{.Validity}}.</p>
<p>If you did not ask for a reset, ignore this message; your password stays unchanged.</p>
</body></html>`))

// Messages renders the account mails. Links point at the public base URL
// of the HTTP API.
type Messages struct {
	baseURL string
	appName string
}

func NewMessages(baseURL, appName string) *Messages {
	return &Messages{baseURL: strings.TrimRight(baseURL, "/"), appName: appName}
}

// VerificationLink is <base>/account/verify-email?userId=<id>&token=<token>.
func (m *Messages) VerificationLink(id uuid.UUID, token string) string {
	return m.link("/account/verify-email", id, token)
}

// ResetLink is <base>/account/reset-password?userId=<id>&token=<token>.
func (m *Messages) ResetLink(id uuid.UUID, token string) string {
	return m.link("/account/reset-password", id, token)
}

func (m *Messages) Verification(name string, id uuid.UUID, token, validity string) (Message, error) {
	body, err := render(verificationTmpl, map[string]string{
		"Name":     name,
		"Link":     m.VerificationLink(id, token),
		"Validity": validity,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Verify Your Email - " + m.appName, Body: body}, nil
}

func (m *Messages) PasswordReset(email string, id uuid.UUID, token, validity string) (Message, error) {
	body, err := render(resetTmpl, map[string]string{
		"Email":    email,
		"Link":     m.ResetLink(id, token),
		"Validity": validity,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Reset Your Password - " + m.appName, Body: body}, nil
}

func (m *Messages) link(path string, id uuid.UUID, token string) string {
	q := url.Values{}
	q.Set("userId", id.String())
	q.Set("token", token)
	return m.baseURL + path + "?" + q.Encode()
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
