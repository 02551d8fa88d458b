package mail

import (
	"bytes"
	"strings"
	"text/template"
)

const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "verification"}}Hi {{.Username}},

Thanks for signing up. Please verify your email address by opening the link below:

{{.URL}}

The link expires on {{.ExpiresAt}}. If it expires, request a new one and we will send a fresh code.
{{end}}
{{define "password_reset"}}Hi {{.Username}},

We received a request to reset your password. Open the link below to choose a new one:

{{.URL}}

The link expires on {{.ExpiresAt}}. If you did not ask for a reset you can ignore this email.
{{end}}
`))

// CodeEmail carries what both code templates render.
type CodeEmail struct {
	Username  string
	Email     string
	Code      string
	ExpiresAt string
}

// VerificationMessage builds the account verification email.
func VerificationMessage(frontendURL string, data CodeEmail) (Message, error) {
	return render(TemplateVerification, data.Username+", please verify your email",
		joinURL(frontendURL, data.Code), data)
}

// PasswordResetMessage builds the password reset email.
func PasswordResetMessage(frontendURL string, data CodeEmail) (Message, error) {
	return render(TemplatePasswordReset, data.Username+", here is the link to reset your password.",
		joinURL(frontendURL, "password/reset/"+data.Code), data)
}

func render(name, subject, url string, data CodeEmail) (Message, error) {
	var body bytes.Buffer
	err := templates.ExecuteTemplate(&body, name, struct {
		CodeEmail
		URL string
	}{data, url})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:       data.Email,
		Subject:  subject,
		Body:     strings.TrimSpace(body.String()) + "\n",
		Template: name,
	}, nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + path + "/"
}
