package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dvloznov/cashflow-bot/internal/logger"
)

// MaxMessageLength is the longest text message the chat accepts.
const MaxMessageLength = 4096

const (
	defaultRetries   = 2
	defaultRetryBase = 2 * time.Second
)

// API is the subset of *tgbotapi.BotAPI used by this package.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deliverer sends messages and documents, retrying transient failures.
type Deliverer struct {
	api     API
	retries int
	base    time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// DeliverOption configures a Deliverer.
type DeliverOption func(*Deliverer)

// WithRetry sets the retry count and the base delay. Attempt n waits
// base*(n+1).
func WithRetry(retries int, base time.Duration) DeliverOption {
	return func(d *Deliverer) {
		d.retries = retries
		d.base = base
	}
}

// NewDeliverer creates a Deliverer with 2 retries and a 2s base delay.
func NewDeliverer(api API, opts ...DeliverOption) *Deliverer {
	d := &Deliverer{
		api:     api,
		retries: defaultRetries,
		base:    defaultRetryBase,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendText sends an HTML message.
func (d *Deliverer) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if err := d.send(ctx, msg); err != nil {
		return fmt.Errorf("SendText: %w", err)
	}
	return nil
}

// SendDocument uploads data as a file named name.
func (d *Deliverer) SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	if err := d.send(ctx, doc); err != nil {
		return fmt.Errorf("SendDocument: %s: %w", name, err)
	}
	return nil
}

func (d *Deliverer) send(ctx context.Context, c tgbotapi.Chattable) error {
	log := logger.FromContext(ctx)
	for attempt := 0; ; attempt++ {
		_, err := d.api.Send(c)
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= d.retries {
			return err
		}
		wait := d.base * time.Duration(attempt+1)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("wait", wait).Msg("delivery failed, retrying")
		if err := d.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// IsTransient reports whether err is a network failure or a rate-limit
// or server-side API error worth retrying.
func IsTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
