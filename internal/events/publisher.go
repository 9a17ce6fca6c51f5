// Package events publishes session events to NATS JetStream for downstream
// review tooling. Publishing is best-effort telemetry; failures never affect
// the response pipeline.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/serene-mind/companion-api/internal/model"
	"github.com/serene-mind/companion-api/pkg/logger"
)

const (
	// StreamName is the name of the session events stream.
	StreamName = "SESSION_EVENTS"

	// SubjectPrefix is the prefix for all session event subjects.
	SubjectPrefix = "session"
)

// Sink accepts session events. Implementations must be safe for concurrent
// use and must not block the caller on failure.
type Sink interface {
	Publish(ctx context.Context, event model.SessionEvent)
}

// Noop discards all events. Used when NATS is not configured.
type Noop struct{}

// Publish discards the event.
func (Noop) Publish(context.Context, model.SessionEvent) {}

// Config holds NATS connection configuration.
type Config struct {
	URL   string
	Token string
}

// Publisher publishes session events to JetStream.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect establishes a connection to NATS and ensures the event stream
// exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{conn: nc, js: js, logger: log}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Pipeline session events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// EventSubject returns the subject for a session event.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, sessionID, eventType)
}

// Publish sends the event to JetStream. Failures are logged and dropped.
func (p *Publisher) Publish(ctx context.Context, event model.SessionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal session event", zap.Error(err))
		return
	}

	if _, err := p.js.Publish(ctx, EventSubject(event.SessionID, event.Type), data); err != nil {
		p.logger.Warn("failed to publish session event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
