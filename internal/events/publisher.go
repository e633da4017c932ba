// Package events publishes accepted ISS positions to NATS
package events

import (
	"context"
	"fmt"
	"time"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/logging"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// PositionMessage is the published message body
type PositionMessage struct {
	Position  domain.ISSPosition `json:"position"`
	Timestamp time.Time          `json:"timestamp"`
	Source    string             `json:"source"`
	Version   string             `json:"version"`
}

// Config holds NATS configuration
type Config struct {
	URL     string
	Subject string
}

// Publisher publishes ISS positions to a NATS subject
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS
func NewPublisher(cfg Config) (*Publisher, error) {
	log := logging.With("nats")
	nc, err := nats.Connect(cfg.URL,
		nats.Name("nasa-explorer"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	return &Publisher{conn: nc, subject: cfg.Subject}, nil
}

// Subject returns the subject positions are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// Accept publishes pos; it satisfies the tracker sink interface
func (p *Publisher) Accept(ctx context.Context, pos domain.ISSPosition, _ []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(PositionMessage{
		Position:  pos,
		Timestamp: time.Now().UTC(),
		Source:    "iss-tracker",
		Version:   "1.0",
	})
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
