package source

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carrier-dashboard/backend/internal/models"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher forwards dashboard events to NATS subjects under a common prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("nats")
	opts := []nats.Option{
		nats.Name("carrier-dashboard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if prefix == "" {
		prefix = "carriers"
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event type is published on, e.g. "carriers.records.refreshed".
func (p *Publisher) Subject(eventType string) string {
	return SubjectFor(p.prefix, eventType)
}

// SubjectFor maps an event type such as "records:refreshed" to a NATS subject.
func SubjectFor(prefix, eventType string) string {
	return prefix + "." + strings.ReplaceAll(eventType, ":", ".")
}

// Publish sends evt as JSON. Failures are logged; event delivery is best effort.
func (p *Publisher) Publish(evt models.Event) {
	if p.nc == nil || p.nc.IsClosed() {
		p.logger.Warn("nats not connected, dropping event", zap.String("type", evt.Type))
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("encoding event", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.Subject(evt.Type), payload); err != nil {
		p.logger.Warn("publish failed", zap.String("type", evt.Type), zap.Error(err))
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}
