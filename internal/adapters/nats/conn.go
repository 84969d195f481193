package natsadapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	summarySubjectPrefix = "rides.summary."
	rentalSubjectPrefix  = "rentals.completed."
)

// Streams are created or updated on connect.
var streams = []nats.StreamConfig{
	{
		Name:      "RIDE_SUMMARIES",
		Subjects:  []string{summarySubjectPrefix + ">"},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "RENTAL_EVENTS",
		Subjects:  []string{rentalSubjectPrefix + ">"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

// Connect opens a reconnecting NATS connection and ensures the JetStream streams exist.
func Connect(url string) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return conn, js, nil
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// SummarySubject is the subject a rental's summary is published on.
func SummarySubject(rentalID string) string {
	return summarySubjectPrefix + tokenReplacer.Replace(rentalID)
}

// RentalCompletedSubject is the subject the rental system announces a closed rental on.
func RentalCompletedSubject(rentalID string) string {
	return rentalSubjectPrefix + tokenReplacer.Replace(rentalID)
}
