package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, js, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

// PublishRideSummary publishes a summary on rides.summary.<rental>.
// The rental ID doubles as message ID so JetStream drops duplicates from workflow retries.
func (p *Publisher) PublishRideSummary(ctx context.Context, summary *domain.RideSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SummarySubject(summary.RentalID), data,
		nats.Context(ctx),
		nats.MsgId("ride-summary-"+summary.RentalID),
	)
	if err != nil {
		return fmt.Errorf("publish ride summary: %w", err)
	}
	return nil
}

// PublishRentalCompleted announces a closed rental on rentals.completed.<rental>.
func (p *Publisher) PublishRentalCompleted(ctx context.Context, event *domain.RentalCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RentalCompletedSubject(event.RentalID), data, nats.Context(ctx))
	return err
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
