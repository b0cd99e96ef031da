// Package events publishes case lifecycle events to NATS as JSON, carrying
// OpenTelemetry trace context in the message headers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"CaseLifecycle/internal/notify"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher implements notify.Notifier on top of a NATS connection.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

// Connect dials the NATS server and returns a publisher owning the connection.
func Connect(logger *slog.Logger, url, prefix string) (*Publisher, error) {
	op := "events.Connect"
	log := logger.With(slog.String("component", "events"))

	nc, err := nats.Connect(url,
		nats.Name("case-lifecycle"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", sl.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("connected to nats", slog.String("url", nc.ConnectedUrl()), slog.String("prefix", prefix))
	return New(logger, nc, prefix), nil
}

// New wraps an existing connection.
func New(logger *slog.Logger, nc *nats.Conn, prefix string) *Publisher {
	return &Publisher{
		nc:     nc,
		prefix: prefix,
		log:    logger.With(slog.String("component", "events")),
	}
}

// Subject returns the subject an event kind is published on.
func (p *Publisher) Subject(kind notify.EventKind) string {
	if p.prefix == "" {
		return string(kind)
	}
	return p.prefix + "." + string(kind)
}

// Notify publishes e on <prefix>.<kind>.
func (p *Publisher) Notify(ctx context.Context, e notify.Event) error {
	op := "events.Notify"

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(e.Kind),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.log.Debug("event published",
		slog.String("subject", msg.Subject),
		slog.String("caseID", e.CaseID))
	return nil
}

// Subscribe decodes events published on subject. Malformed messages are dropped.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, notify.Event)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var e notify.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, e)
	})
}

// Shutdown drains pending messages and closes the connection.
func (p *Publisher) Shutdown(ctx context.Context) error {
	op := "events.Shutdown"

	closed := make(chan struct{})
	p.nc.SetClosedHandler(func(*nats.Conn) { close(closed) })
	if err := p.nc.Drain(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	select {
	case <-closed:
		return nil
	case <-ctx.Done():
		p.nc.Close()
		return fmt.Errorf("force exit %s: %w", op, ctx.Err())
	}
}
