package mail

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSplitDraft(t *testing.T) {
	subject, body := SplitDraft("Subject: Next steps for Acme\n\nHi Jo,\nThanks.")
	assert.Equal(t, "Next steps for Acme", subject)
	assert.Equal(t, "Hi Jo,\nThanks.", body)

	subject, body = SplitDraft("subject:Quick question")
	assert.Equal(t, "Quick question", subject)
	assert.Empty(t, body)

	subject, body = SplitDraft("Hi Jo,\nThanks.")
	assert.Equal(t, DefaultSubject, subject)
	assert.Equal(t, "Hi Jo,\nThanks.", body)
}

func TestSendBuildsMessage(t *testing.T) {
	d := &captureDialer{}
	s := &Sender{dialer: d, from: "me@leadboard.dev"}
	require.NoError(t, s.Send(" Jo <jo@acme.io> ", "Subject: Hello\n\nBody text"))

	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"jo@acme.io"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, m.GetHeader("Subject"))
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Body text")
}

func TestSendErrors(t *testing.T) {
	var disabled *Sender
	assert.True(t, errors.Is(disabled.Send("jo@acme.io", "x"), ErrNotConfigured))
	assert.Nil(t, NewSender("", 587, "", "", ""))

	d := &captureDialer{err: errors.New("auth failed")}
	s := &Sender{dialer: d, from: "me@leadboard.dev"}
	assert.True(t, errors.Is(s.Send("not an address", "x"), ErrNoRecipient))
	assert.Empty(t, d.sent)
	assert.Error(t, s.Send("jo@acme.io", "x"))
}
