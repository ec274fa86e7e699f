// Package bus publishes provisioning lifecycle events over NATS JetStream.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// StreamName is the JetStream stream that captures provisioning events.
const StreamName = "PROVISIONING"

// Publisher implements core.BusPublisher over JetStream. Publishes are
// best-effort from the saga's point of view; the stream exists for
// downstream consumers (billing, notifications), not for correctness.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

// Options groups settings for Connect.
type Options struct {
	URL      string // Required, e.g. nats.DefaultURL
	Name     string // Optional connection name
	Subjects string // Optional stream subject filter, defaults to "provisioning.>"
	Logger   *slog.Logger
}

// Connect dials NATS, ensures the provisioning stream exists, and returns
// a ready Publisher.
func Connect(opts Options) (*Publisher, error) {
	if opts.URL == "" {
		return nil, errors.New("nats url is required")
	}

	name := opts.Name
	if name == "" {
		name = "directory-wizard"
	}

	nc, err := nats.Connect(opts.URL, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	subjects := opts.Subjects
	if subjects == "" {
		subjects = "provisioning.>"
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjects},
		Storage:  nats.FileStorage,
	}); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{conn: nc, js: js, logger: logger.With("component", "bus")}, nil
}

// Publish encodes v as JSON and publishes it to the subject.
func (p *Publisher) Publish(ctx context.Context, subject string, v any) error {
	if p == nil {
		return errors.New("nil publisher")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains the connection, falling back to a hard close.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
