package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
)

const (
	DefaultSMTPHost = "smtp.gmail.com"
	DefaultSMTPPort = 587
)

// ErrNotConfigured is returned when no sender credentials are available.
var ErrNotConfigured = apperr.Invalid("emailConfig", "email credentials are not configured")

type Credentials struct {
	Email       string
	AppPassword string
}

func (c Credentials) Configured() bool {
	return c.Email != "" && c.AppPassword != ""
}

// Sender delivers a message from the account described by creds.
type Sender interface {
	Send(ctx context.Context, creds Credentials, msg Message) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPSender struct {
	host     string
	port     int
	cb       *gobreaker.CircuitBreaker
	sendMail sendMailFunc
}

func NewSMTPSender(host string, port int) *SMTPSender {
	if host == "" {
		host = DefaultSMTPHost
	}
	if port == 0 {
		port = DefaultSMTPPort
	}

	settings := gobreaker.Settings{
		Name:        "SMTP",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notify: circuit breaker state changed")
		},
	}

	return &SMTPSender{
		host:     host,
		port:     port,
		cb:       gobreaker.NewCircuitBreaker(settings),
		sendMail: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, creds Credentials, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !creds.Configured() {
		return ErrNotConfigured
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	auth := smtp.PlainAuth("", creds.Email, creds.AppPassword, s.host)
	raw := buildMessage(creds.Email, msg)

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.sendMail(addr, auth, creds.Email, []string{msg.To}, raw)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("smtp unavailable: %w", err)
		}
		return fmt.Errorf("failed to send mail: %w", err)
	}

	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("notify: email sent")
	return nil
}

func buildMessage(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
