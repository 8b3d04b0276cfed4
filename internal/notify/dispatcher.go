// Package notify turns order events and one-off codes into customer emails.
// Dispatch is fire-and-forget: order operations never wait on or fail
// because of email delivery.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/gamergear-storefront/internal/apperr"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/settings"
)

const (
	KindOrderCreated     = "order_created"
	KindOrderStatus      = "order_status"
	KindConfirmationCode = "confirmation_code"
	KindPasswordReset    = "password_reset"

	DefaultQueueSize = 64
	DefaultStoreName = "GamerGear"
)

// CredentialSource resolves the configured sender account at dispatch time.
type CredentialSource interface {
	EmailCredentials(ctx context.Context) (settings.EmailConfig, error)
}

// Recorder receives delivery outcomes. *metrics.Metrics implements it.
type Recorder interface {
	NotificationSent(kind string)
	NotificationFailed(kind, reason string)
	NotificationDropped()
}

type nopRecorder struct{}

func (nopRecorder) NotificationSent(string)           {}
func (nopRecorder) NotificationFailed(string, string) {}
func (nopRecorder) NotificationDropped()              {}

type Options struct {
	StoreName string
	QueueSize int
}

type Dispatcher struct {
	sender    Sender
	creds     CredentialSource
	recorder  Recorder
	storeName string
	queue     chan order.Event
}

func NewDispatcher(sender Sender, creds CredentialSource, recorder Recorder, opts Options) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if opts.StoreName == "" {
		opts.StoreName = DefaultStoreName
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Dispatcher{
		sender:    sender,
		creds:     creds,
		recorder:  recorder,
		storeName: opts.StoreName,
		queue:     make(chan order.Event, opts.QueueSize),
	}
}

// Publish enqueues e without blocking. A full queue drops the event.
func (d *Dispatcher) Publish(e order.Event) {
	select {
	case d.queue <- e:
	default:
		d.recorder.NotificationDropped()
		log.Warn().
			Str("order_id", e.Order.ID).
			Str("kind", string(e.Kind)).
			Msg("notify: queue full, event dropped")
	}
}

// Run delivers queued events until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Int("queue_size", cap(d.queue)).Msg("notify: dispatcher started")
	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				log.Warn().Int("pending", pending).Msg("notify: dispatcher stopped with undelivered events")
			} else {
				log.Info().Msg("notify: dispatcher stopped")
			}
			return
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e order.Event) {
	kind := KindOrderStatus
	if e.Kind == order.EventCreated {
		kind = KindOrderCreated
	}

	creds, err := d.configured(ctx)
	if err != nil {
		d.fail(kind, "config", e.Order.ID, err)
		return
	}
	if !creds.Configured() {
		d.recorder.NotificationFailed(kind, "unconfigured")
		log.Warn().Str("order_id", e.Order.ID).Str("kind", kind).Msg("notify: email not configured, skipping")
		return
	}

	msg, err := OrderMessage(e, d.storeName)
	if err != nil {
		d.fail(kind, "render", e.Order.ID, err)
		return
	}
	if err := d.sender.Send(ctx, creds, msg); err != nil {
		d.fail(kind, "smtp", e.Order.ID, err)
		return
	}
	d.recorder.NotificationSent(kind)
}

func (d *Dispatcher) fail(kind, reason, orderID string, err error) {
	d.recorder.NotificationFailed(kind, reason)
	log.Error().
		Err(fmt.Errorf("%w: %w", apperr.ErrDispatch, err)).
		Str("order_id", orderID).
		Str("kind", kind).
		Msg("notify: failed to deliver order email")
}

func (d *Dispatcher) configured(ctx context.Context) (Credentials, error) {
	if d.creds == nil {
		return Credentials{}, nil
	}
	cfg, err := d.creds.EmailCredentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Email: cfg.Email, AppPassword: cfg.AppPassword}, nil
}

// resolve prefers explicit credentials and falls back to the config store.
func (d *Dispatcher) resolve(ctx context.Context, explicit Credentials) (Credentials, error) {
	if explicit.Configured() {
		return explicit, nil
	}
	creds, err := d.configured(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %w", apperr.ErrDispatch, err)
	}
	if !creds.Configured() {
		return Credentials{}, ErrNotConfigured
	}
	return creds, nil
}

func (d *Dispatcher) sendNow(ctx context.Context, kind string, creds Credentials, msg Message) error {
	if err := d.sender.Send(ctx, creds, msg); err != nil {
		d.recorder.NotificationFailed(kind, "smtp")
		log.Error().Err(err).Str("to", msg.To).Str("kind", kind).Msg("notify: failed to send email")
		return fmt.Errorf("%w: %w", apperr.ErrDispatch, err)
	}
	d.recorder.NotificationSent(kind)
	return nil
}

// SendResetCode mails a password reset code using the configured account.
func (d *Dispatcher) SendResetCode(ctx context.Context, to, name, code string) error {
	creds, err := d.resolve(ctx, Credentials{})
	if err != nil {
		d.recorder.NotificationFailed(KindPasswordReset, "unconfigured")
		return err
	}
	msg, err := ResetCodeMessage(to, name, code, d.storeName)
	if err != nil {
		return err
	}
	return d.sendNow(ctx, KindPasswordReset, creds, msg)
}

type ConfirmationCodeRequest struct {
	To          string
	Name        string
	Code        string
	Credentials Credentials
}

func (d *Dispatcher) SendConfirmationCode(ctx context.Context, req ConfirmationCodeRequest) error {
	switch {
	case req.To == "":
		return apperr.Invalid("email", "is required")
	case req.Code == "":
		return apperr.Invalid("code", "is required")
	}

	creds, err := d.resolve(ctx, req.Credentials)
	if err != nil {
		return err
	}
	msg, err := ConfirmationCodeMessage(req.To, req.Name, req.Code, d.storeName)
	if err != nil {
		return err
	}
	return d.sendNow(ctx, KindConfirmationCode, creds, msg)
}

func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, o order.Order, explicit Credentials) error {
	switch {
	case o.ID == "":
		return apperr.Invalid("order.id", "is required")
	case o.UserID == "":
		return apperr.Invalid("order.userId", "is required")
	}

	creds, err := d.resolve(ctx, explicit)
	if err != nil {
		return err
	}
	msg, err := OrderMessage(order.Event{Kind: order.EventCreated, Order: o, To: o.Status}, d.storeName)
	if err != nil {
		return err
	}
	return d.sendNow(ctx, KindOrderCreated, creds, msg)
}
