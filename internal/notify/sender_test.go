package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
)

type sentMail struct {
	addr string
	from string
	to   []string
	raw  string
}

func newTestSender(fail error) (*SMTPSender, *[]sentMail) {
	var sent []sentMail
	s := NewSMTPSender("", 0)
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, raw: string(msg)})
		return fail
	}
	return s, &sent
}

func TestSMTPSender_Send(t *testing.T) {
	s, sent := newTestSender(nil)
	creds := Credentials{Email: "shop@example.com", AppPassword: "app-pass"}

	err := s.Send(context.Background(), creds, Message{To: "p1@example.com", Subject: "Your Order #ORD-1 is Shipping! 🚚", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.gmail.com:587", got.addr)
	assert.Equal(t, "shop@example.com", got.from)
	assert.Equal(t, []string{"p1@example.com"}, got.to)
	assert.Contains(t, got.raw, "Subject: =?utf-8?q?")
	assert.Contains(t, got.raw, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.True(t, strings.HasSuffix(got.raw, "\r\n\r\n<p>hi</p>"))
}

func TestSMTPSender_RequiresCredentials(t *testing.T) {
	s, sent := newTestSender(nil)

	err := s.Send(context.Background(), Credentials{Email: "shop@example.com"}, Message{To: "p1@example.com"})
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, *sent)
}

func TestSMTPSender_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	s, sent := newTestSender(errors.New("connection refused"))
	creds := Credentials{Email: "shop@example.com", AppPassword: "app-pass"}
	msg := Message{To: "p1@example.com", Subject: "s", HTML: "b"}

	for i := 0; i < 5; i++ {
		err := s.Send(context.Background(), creds, msg)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	err := s.Send(context.Background(), creds, msg)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, *sent, 5, "open breaker must not reach the server")
}
