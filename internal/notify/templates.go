package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

// PasswordResetSubject is the subject line of reset emails.
const PasswordResetSubject = "Reset Your SeatServe Password"

var passwordResetHTML = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset the password for your SeatServe account.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>This link expires in {{.Expiry}}. If you did not request a reset, you can ignore this email.</p>`))

// ResetLink builds the confirmation URL for token under appURL.
func ResetLink(appURL, token string) string {
	base := strings.TrimRight(appURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// PasswordResetMessage renders the reset email.
func PasswordResetMessage(to, name, link string, ttl time.Duration) (Message, error) {
	if strings.TrimSpace(name) == "" {
		name = to
	}
	expiry := ttl.Round(time.Minute).String()

	var html bytes.Buffer
	err := passwordResetHTML.Execute(&html, struct {
		Name   string
		Link   string
		Expiry string
	}{name, link, expiry})
	if err != nil {
		return Message{}, fmt.Errorf("notify: render reset email: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nWe received a request to reset the password for your SeatServe account.\n\nOpen this link to choose a new password:\n%s\n\nThis link expires in %s. If you did not request a reset, you can ignore this email.\n",
		name, link, expiry)

	return Message{To: to, Subject: PasswordResetSubject, Text: text, HTML: html.String()}, nil
}
