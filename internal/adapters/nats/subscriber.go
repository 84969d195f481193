package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/samirrijal/ridemetrics/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, js, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeRentalCompleted delivers every rentals.completed.<rental> event to handler.
// Messages are acked on success, nacked on handler error and terminated when they cannot be decoded.
func (s *Subscriber) SubscribeRentalCompleted(ctx context.Context, handler func(ctx context.Context, event *domain.RentalCompleted) error) error {
	sub, err := s.js.Subscribe(rentalSubjectPrefix+">", func(msg *nats.Msg) {
		err := handleRentalCompleted(ctx, msg.Subject, msg.Data, handler)
		switch {
		case err == nil:
			_ = msg.Ack()
		case errors.Is(err, errUndecodable):
			_ = msg.Term()
		default:
			_ = msg.Nak()
		}
	},
		nats.Durable("ride-summarizer"),
		nats.ManualAck(),
		nats.MaxDeliver(5),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

var errUndecodable = errors.New("undecodable rental event")

// handleRentalCompleted decodes a message and calls handler. A body without rental_id
// falls back to the last subject token.
func handleRentalCompleted(ctx context.Context, subject string, data []byte, handler func(ctx context.Context, event *domain.RentalCompleted) error) error {
	var event domain.RentalCompleted
	if len(data) > 0 {
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("%w: %v", errUndecodable, err)
		}
	}
	if event.RentalID == "" {
		event.RentalID = strings.TrimPrefix(subject, rentalSubjectPrefix)
	}
	if event.RentalID == "" || event.RentalID == subject {
		return fmt.Errorf("%w: no rental id on %s", errUndecodable, subject)
	}
	return handler(ctx, &event)
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
