package smtp

import (
	"net/smtp"
	"testing"
	"time"

	"github.com/go-credential-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestMailer(cfg *config.Config) (*mailer, *[]sentMail) {
	var sent []sentMail
	m := NewMailer(cfg).(*mailer)
	m.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m, &sent
}

func TestSendEmail_BuildsMessage(t *testing.T) {
	m, sent := newTestMailer(&config.Config{SMTPHost: "localhost", SMTPPort: "1025", SMTPFrom: "noreply@example.com"})

	require.NoError(t, m.SendEmail("alice@example.com", "Your password was changed", "hello"))
	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, "localhost:1025", got.addr)
	assert.Nil(t, got.auth)
	assert.Equal(t, []string{"alice@example.com"}, got.to)
	assert.Contains(t, got.msg, "Subject: Your password was changed\r\n")
	assert.Contains(t, got.msg, "Date: Wed, 14 Oct 2026 12:00:00 +0000\r\n")
	assert.Contains(t, got.msg, "\r\n\r\nhello")
}

func TestSendEmail_UsesAuthWhenConfigured(t *testing.T) {
	m, sent := newTestMailer(&config.Config{SMTPHost: "mail", SMTPPort: "587", SMTPUsername: "u", SMTPPassword: "p"})

	require.NoError(t, m.SendEmail("alice@example.com", "s", "b"))
	assert.NotNil(t, (*sent)[0].auth)
}

func TestSendEmail_RejectsHeaderInjection(t *testing.T) {
	m, sent := newTestMailer(&config.Config{})

	err := m.SendEmail("alice@example.com\r\nBcc: eve@example.com", "s", "b")
	assert.Error(t, err)
	assert.Empty(t, *sent)
}
