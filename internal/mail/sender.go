// Package mail sends drafted follow-up emails over SMTP.
package mail

import (
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"gopkg.in/gomail.v2"
)

var (
	// ErrNotConfigured is returned when no SMTP host is set.
	ErrNotConfigured = errors.New("email sending is not configured: set CRM_SMTP_HOST")
	// ErrNoRecipient is returned when the account has no usable contact email.
	ErrNoRecipient = errors.New("account has no valid contact email")
)

// DefaultSubject is used when a draft has no Subject line.
const DefaultSubject = "Following up"

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers drafts through one SMTP server.
type Sender struct {
	dialer dialer
	from   string
}

// NewSender returns a sender, or nil when host is empty.
func NewSender(host string, port int, user, password, from string) *Sender {
	if strings.TrimSpace(host) == "" {
		return nil
	}
	if from == "" {
		from = user
	}
	return &Sender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Enabled reports whether the sender can deliver.
func (s *Sender) Enabled() bool { return s != nil }

// SplitDraft separates a leading "Subject:" line from the body.
func SplitDraft(draft string) (subject, body string) {
	draft = strings.TrimSpace(draft)
	first, rest, found := strings.Cut(draft, "\n")
	if !found {
		first, rest = draft, ""
	}
	line := strings.TrimSpace(first)
	if len(line) >= len("subject:") && strings.EqualFold(line[:len("subject:")], "subject:") {
		subject = strings.TrimSpace(line[len("subject:"):])
		body = strings.TrimSpace(rest)
	} else {
		body = draft
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return subject, body
}

// Send mails draft to the given address.
func (s *Sender) Send(to, draft string) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	addr, err := netmail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNoRecipient, to)
	}
	subject, body := SplitDraft(draft)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", addr.Address)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
