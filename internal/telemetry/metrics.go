package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the relay's instruments. Built from the global meter
// provider, so with telemetry disabled every method is a cheap no-op.
type Metrics struct {
	messages    metric.Int64Counter
	logEdits    metric.Int64Counter
	resets      metric.Int64Counter
	sessions    metric.Int64Counter
	connections metric.Int64UpDownCounter
}

// NewMetrics registers the relay instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(serviceName)

	messages, err := meter.Int64Counter("relay.messages",
		metric.WithDescription("Accepted transcript messages"))
	if err != nil {
		return nil, err
	}
	logEdits, err := meter.Int64Counter("relay.log_edits",
		metric.WithDescription("Log row notes updates"))
	if err != nil {
		return nil, err
	}
	resets, err := meter.Int64Counter("relay.resets",
		metric.WithDescription("Session resets"))
	if err != nil {
		return nil, err
	}
	sessions, err := meter.Int64Counter("relay.sessions_created",
		metric.WithDescription("Sessions created via the HTTP API"))
	if err != nil {
		return nil, err
	}
	connections, err := meter.Int64UpDownCounter("relay.ws_connections",
		metric.WithDescription("Live websocket connections"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		messages:    messages,
		logEdits:    logEdits,
		resets:      resets,
		sessions:    sessions,
		connections: connections,
	}, nil
}

// MessageRelayed records an accepted send_message, labeled by role.
func (m *Metrics) MessageRelayed(ctx context.Context, role string) {
	if m == nil {
		return
	}
	m.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

// LogRowEdited records a notes update.
func (m *Metrics) LogRowEdited(ctx context.Context) {
	if m == nil {
		return
	}
	m.logEdits.Add(ctx, 1)
}

// SessionReset records a reset_session.
func (m *Metrics) SessionReset(ctx context.Context) {
	if m == nil {
		return
	}
	m.resets.Add(ctx, 1)
}

// SessionCreated records an explicit session provisioning.
func (m *Metrics) SessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1)
}

// ConnectionOpened bumps the live-connection gauge.
func (m *Metrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, 1)
}

// ConnectionClosed drops the live-connection gauge.
func (m *Metrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, -1)
}
