// Package events publishes turn lifecycle events for out-of-band
// observability. Publishing is best-effort: a failed publish is logged and
// never fails the turn that produced it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
)

// TurnCompleted describes one finished turn.
type TurnCompleted struct {
	TurnID       string        `json:"turn_id"`
	SessionID    string        `json:"session_id,omitempty"`
	Outcome      string        `json:"outcome"`
	Steps        int           `json:"steps"`
	Retries      int           `json:"retries"`
	RewriteTries int           `json:"rewrite_tries"`
	Duration     time.Duration `json:"duration_ms"`
}

// Publisher emits turn events.
type Publisher interface {
	PublishTurnCompleted(ctx context.Context, event TurnCompleted)
	Close()
}

// New returns a NATS publisher when a URL is configured, otherwise a no-op.
func New(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(cfg, logger)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) PublishTurnCompleted(context.Context, TurnCompleted) {}
func (NopPublisher) Close()                                             {}

// NATSPublisher publishes events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher.
func NewNATSPublisher(cfg config.EventsConfig, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("answerd"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", cfg.NATSURL, err)
	}

	return &NATSPublisher{
		conn:    conn,
		subject: cfg.SubjectPrefix + ".turn.completed",
		logger:  logger,
	}, nil
}

// PublishTurnCompleted publishes the event. Failures are logged, not
// returned: event delivery never affects answer delivery.
func (p *NATSPublisher) PublishTurnCompleted(ctx context.Context, event TurnCompleted) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal turn event", zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn("failed to publish turn event",
			zap.String("subject", p.subject),
			zap.Error(err),
		)
	}
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", zap.Error(err))
	}
}
